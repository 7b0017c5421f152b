package sitemap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/fetch"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testConfig() *config.AppConfig {
	cfg := &config.AppConfig{MaxAttempts: 1, RetryBackoffStep: time.Millisecond}
	_, _ = cfg.Validate()
	return cfg
}

// sitemapSite serves fixed documents by path; everything else is a 404. {{base}} is replaced with the server URL.
type sitemapSite struct {
	server *httptest.Server
	docs   map[string]string
	mu     sync.Mutex
	hits   map[string]int
}

func newSitemapSite(t *testing.T, docs map[string]string) *sitemapSite {
	t.Helper()
	site := &sitemapSite{docs: docs, hits: make(map[string]int)}
	site.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		site.mu.Unlock()
		body, ok := site.docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, strings.ReplaceAll(body, "{{base}}", site.server.URL))
	}))
	t.Cleanup(site.server.Close)
	return site
}

func (s *sitemapSite) url(path string) string { return s.server.URL + path }

func (s *sitemapSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newTestResolver(t *testing.T, cfg *config.AppConfig) *Resolver {
	t.Helper()
	fetcher := fetch.NewFetcher(&http.Client{Timeout: 5 * time.Second}, cfg, nil, testLogger())
	robots := fetch.NewRobotsHandler(fetcher, time.Second, testLogger())
	r, err := NewResolver(fetcher, robots, cfg, testLogger())
	require.NoError(t, err)
	return r
}

func urlset(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, loc := range locs {
		fmt.Fprintf(&b, "<url><loc>%s</loc></url>", loc)
	}
	b.WriteString(`</urlset>`)
	return b.String()
}

func index(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, loc := range locs {
		fmt.Fprintf(&b, "<sitemap><loc>%s</loc></sitemap>", loc)
	}
	b.WriteString(`</sitemapindex>`)
	return b.String()
}

func TestResolve_IndexUnion(t *testing.T) {
	site := newSitemapSite(t, map[string]string{
		"/sitemap_index.xml": index("{{base}}/s1.xml", "{{base}}/s2.xml"),
		"/s1.xml":            urlset("{{base}}/a", "{{base}}/b"),
		"/s2.xml":            urlset("{{base}}/b", "{{base}}/c"),
	})
	r := newTestResolver(t, testConfig())

	res, err := r.Resolve(context.Background(), site.url("/sitemap_index.xml"), false)
	require.NoError(t, err)

	assert.Equal(t, []string{site.url("/a"), site.url("/b"), site.url("/c")}, res.URLs)
	assert.True(t, res.Diagnostics.StartIsIndex)
	assert.Equal(t, 2, res.Diagnostics.ChildSitemaps)
	assert.Equal(t, 4, res.Diagnostics.RawURLCount)
	assert.Equal(t, 3, res.Diagnostics.UniqueURLCount)
}

func TestResolve_CycleTerminates(t *testing.T) {
	site := newSitemapSite(t, map[string]string{
		"/a.xml":     index("{{base}}/b.xml"),
		"/b.xml":     index("{{base}}/a.xml", "{{base}}/pages.xml"),
		"/pages.xml": urlset("{{base}}/p1"),
	})
	r := newTestResolver(t, testConfig())

	res, err := r.Resolve(context.Background(), site.url("/a.xml"), false)
	require.NoError(t, err)

	assert.Equal(t, []string{site.url("/p1")}, res.URLs)
	assert.Equal(t, 1, site.hitCount("/a.xml"))
	assert.Equal(t, 1, site.hitCount("/b.xml"))
}

func TestResolve_DepthBound(t *testing.T) {
	site := newSitemapSite(t, map[string]string{
		"/root.xml": index("{{base}}/lvl1.xml"),
		"/lvl1.xml": index("{{base}}/lvl2.xml"),
		"/lvl2.xml": urlset("{{base}}/deep"),
	})
	cfg := testConfig()
	cfg.Sitemap.MaxIndexDepth = 1
	r := newTestResolver(t, cfg)

	res, err := r.Resolve(context.Background(), site.url("/root.xml"), false)
	require.NoError(t, err)

	assert.Empty(t, res.URLs)
	assert.Equal(t, 0, site.hitCount("/lvl2.xml"))
	assert.NotEmpty(t, res.Diagnostics.Messages)
}

func TestResolve_HreflangBothSyntaxes(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9" xmlns:xhtml="http://www.w3.org/1999/xhtml">
  <url>
    <loc>{{base}}/o-nas</loc>
    <link rel="alternate" hreflang="de" href="{{base}}/de/o-nas"/>
    <xhtml:link rel="alternate" hreflang="en" href="{{base}}/en/o-nas"/>
  </url>
</urlset>`
	site := newSitemapSite(t, map[string]string{"/sitemap.xml": body})
	r := newTestResolver(t, testConfig())

	res, err := r.Resolve(context.Background(), site.url("/sitemap.xml"), false)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"de": site.url("/de/o-nas"),
		"en": site.url("/en/o-nas"),
	}, res.Hreflang[site.url("/o-nas")])
}

func TestResolve_StartFailureIsFatal(t *testing.T) {
	site := newSitemapSite(t, map[string]string{})
	r := newTestResolver(t, testConfig())

	res, err := r.Resolve(context.Background(), site.url("/sitemap.xml"), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrSitemapUnavailable))
	assert.Empty(t, res.URLs)
	assert.NotEmpty(t, res.Diagnostics.Messages)
}

func TestResolve_InvalidStartURL(t *testing.T) {
	r := newTestResolver(t, testConfig())
	_, err := r.Resolve(context.Background(), "not a url", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}

func TestResolve_FallbackIndexProbe(t *testing.T) {
	site := newSitemapSite(t, map[string]string{
		"/sitemap.xml":       urlset(),
		"/sitemap-index.xml": index("{{base}}/posts.xml"),
		"/posts.xml":         urlset("{{base}}/post-1"),
		// Never reached: the probe stops at the first index
		"/sitemapindex.xml": index("{{base}}/other.xml"),
	})
	r := newTestResolver(t, testConfig())

	res, err := r.Resolve(context.Background(), site.url("/sitemap.xml"), false)
	require.NoError(t, err)

	assert.Equal(t, []string{site.url("/post-1")}, res.URLs)
	assert.Equal(t, 1, site.hitCount("/sitemap_index.xml"))
	assert.Equal(t, 1, site.hitCount("/sitemap-index.xml"))
	assert.Equal(t, 1, site.hitCount("/sitemap.xml"), "start document is not refetched")
	assert.Equal(t, 0, site.hitCount("/sitemapindex.xml"))
}

func TestResolve_NoFallbackWhenURLsFound(t *testing.T) {
	site := newSitemapSite(t, map[string]string{
		"/sitemap.xml": urlset("{{base}}/a"),
	})
	r := newTestResolver(t, testConfig())

	res, err := r.Resolve(context.Background(), site.url("/sitemap.xml"), false)
	require.NoError(t, err)

	assert.Equal(t, []string{site.url("/a")}, res.URLs)
	assert.Equal(t, 0, site.hitCount("/sitemap_index.xml"))
	assert.Equal(t, 0, site.hitCount("/robots.txt"))
}

func TestResolve_RobotsDiscovery(t *testing.T) {
	site := newSitemapSite(t, map[string]string{
		"/sitemap.xml":      urlset(),
		"/robots.txt":       "User-agent: *\nSitemap: {{base}}/real-sitemap.xml\n",
		"/real-sitemap.xml": urlset("{{base}}/from-robots"),
	})
	r := newTestResolver(t, testConfig())

	res, err := r.Resolve(context.Background(), site.url("/sitemap.xml"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{site.url("/from-robots")}, res.URLs)

	disabled := testConfig()
	off := false
	disabled.Sitemap.DiscoverFromRobots = &off
	res, err = newTestResolver(t, disabled).Resolve(context.Background(), site.url("/sitemap.xml"), false)
	require.NoError(t, err)
	assert.Empty(t, res.URLs)
}

func TestResolve_NumberedProbes(t *testing.T) {
	site := newSitemapSite(t, map[string]string{
		"/sitemap-1.xml": urlset("{{base}}/a"),
		"/sitemap-2.xml": urlset("{{base}}/b"),
		"/sitemap_2.xml": urlset("{{base}}/never"),
		"/sitemap3.xml":  index("{{base}}/nested.xml"),
		"/nested.xml":    urlset("{{base}}/c"),
		// Gap at 4 does not stop the window
		"/sitemap_5.xml": urlset("{{base}}/d", "{{base}}/a"),
	})
	r := newTestResolver(t, testConfig())

	res, err := r.Resolve(context.Background(), site.url("/sitemap-1.xml"), true)
	require.NoError(t, err)

	assert.Equal(t, []string{site.url("/a"), site.url("/b"), site.url("/c"), site.url("/d")}, res.URLs)
	assert.Equal(t, 0, site.hitCount("/sitemap_2.xml"), "first pattern yielding URLs wins per number")
	assert.Equal(t, 1, site.hitCount("/sitemap-11.xml"), "full window 2..11 is attempted")
	assert.Equal(t, 0, site.hitCount("/sitemap-12.xml"))
	assert.Equal(t, 1, site.hitCount("/sitemap-1.xml"))
}

func TestResolve_NumberedProbesOff(t *testing.T) {
	site := newSitemapSite(t, map[string]string{
		"/sitemap-1.xml": urlset("{{base}}/a"),
		"/sitemap-2.xml": urlset("{{base}}/b"),
	})
	r := newTestResolver(t, testConfig())

	res, err := r.Resolve(context.Background(), site.url("/sitemap-1.xml"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{site.url("/a")}, res.URLs)
	assert.Equal(t, 0, site.hitCount("/sitemap-2.xml"))
}

func TestResolve_ExcludePatterns(t *testing.T) {
	site := newSitemapSite(t, map[string]string{
		"/sitemap.xml": urlset("{{base}}/a", "{{base}}/tag/x", "{{base}}/b"),
	})
	cfg := testConfig()
	cfg.Sitemap.ExcludePatterns = []string{`/tag/`}
	r := newTestResolver(t, cfg)

	res, err := r.Resolve(context.Background(), site.url("/sitemap.xml"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{site.url("/a"), site.url("/b")}, res.URLs)
}

func TestNewResolver_BadExcludePattern(t *testing.T) {
	cfg := testConfig()
	cfg.Sitemap.ExcludePatterns = []string{`([`}
	fetcher := fetch.NewFetcher(http.DefaultClient, cfg, nil, testLogger())
	_, err := NewResolver(fetcher, nil, cfg, testLogger())
	assert.True(t, errors.Is(err, utils.ErrConfigValidation))
}
