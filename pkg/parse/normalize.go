package parse

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// ParseAbsolute parses an absolute http(s) URL, rejecting relative references and other schemes
func ParseAbsolute(urlStr string) (*url.URL, error) {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(urlStr))
	if err != nil {
		return nil, fmt.Errorf("%w: URL %q: %w", utils.ErrInvalidInput, urlStr, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: URL %q must use http or https", utils.ErrInvalidInput, urlStr)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: URL %q has no host", utils.ErrInvalidInput, urlStr)
	}
	return parsed, nil
}

// ResolveReference resolves ref against base. The input is returned unchanged when either fails to parse.
func ResolveReference(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

// SiteDomain lowercases a hostname and strips a leading "www."
func SiteDomain(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// DomainOf returns the SiteDomain of rawURL, or "" if it does not parse
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return SiteDomain(u.Hostname())
}

// PathSegments splits a URL path into its non-empty segments
func PathSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// LastSegment returns the final non-empty path segment, or "" for the root
func LastSegment(path string) string {
	segs := PathSegments(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// HasSegment reports whether path contains seg as a whole segment, case-insensitively
func HasSegment(path, seg string) bool {
	for _, s := range PathSegments(path) {
		if strings.EqualFold(s, seg) {
			return true
		}
	}
	return false
}
