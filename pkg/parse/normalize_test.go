package parse

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

func TestParseAbsolute(t *testing.T) {
	u, err := ParseAbsolute(" https://www.example.com/sitemap.xml ")
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", u.Host)

	for _, bad := range []string{"", "sitemap.xml", "ftp://example.com/sitemap.xml", "/relative/path"} {
		_, err := ParseAbsolute(bad)
		assert.True(t, errors.Is(err, utils.ErrInvalidInput), "input %q", bad)
	}
}

func TestResolveReference(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/post")

	tests := []struct {
		ref      string
		expected string
	}{
		{"/img/og.png", "https://example.com/img/og.png"},
		{"og.png", "https://example.com/blog/og.png"},
		{"https://cdn.example.com/x.png", "https://cdn.example.com/x.png"},
		{"//cdn.example.com/y.png", "https://cdn.example.com/y.png"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ResolveReference(base, tt.ref), "ref %q", tt.ref)
	}
}

func TestSiteDomain(t *testing.T) {
	assert.Equal(t, "example.com", SiteDomain("www.example.com"))
	assert.Equal(t, "example.com", SiteDomain("WWW.Example.COM"))
	assert.Equal(t, "blog.example.com", SiteDomain("blog.example.com"))
	assert.Equal(t, "example.com", DomainOf("https://www.example.com:8443/a"))
	assert.Equal(t, "", DomainOf("://bad"))
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, []string{"en", "about"}, PathSegments("/en/about/"))
	assert.Nil(t, PathSegments("/"))
	assert.Equal(t, "about", LastSegment("/en/about/"))
	assert.Equal(t, "", LastSegment("/"))
	assert.True(t, HasSegment("/EN/about", "en"))
	assert.False(t, HasSegment("/english/about", "en"))
	assert.False(t, HasSegment("/", "en"))
}
