package analyze

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
)

// LanguageDetector resolves a page language from its html lang attribute or URL path
type LanguageDetector struct {
	codes    []string
	patterns []*regexp.Regexp // /xx/ or trailing /xx, same order as codes
	fallback string
}

// NewLanguageDetector builds a detector from the configured URL language codes and default
func NewLanguageDetector(cfg config.LanguageConfig) *LanguageDetector {
	d := &LanguageDetector{fallback: cfg.Default}
	for _, code := range cfg.URLPatterns {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		d.codes = append(d.codes, code)
		d.patterns = append(d.patterns, regexp.MustCompile(`(?i)/`+regexp.QuoteMeta(code)+`(?:/|$)`))
	}
	return d
}

// Detect prefers the primary subtag of htmlLang and falls back to FromURL
func (d *LanguageDetector) Detect(htmlLang, pageURL string) string {
	if lang := NormalizeLang(htmlLang); lang != "" {
		return lang
	}
	return d.FromURL(pageURL)
}

// FromURL matches the URL path against the configured codes in order, defaulting when none match
func (d *LanguageDetector) FromURL(pageURL string) string {
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil {
		path = u.Path
	}
	for i, re := range d.patterns {
		if re.MatchString(path) {
			return d.codes[i]
		}
	}
	return d.fallback
}

// NormalizeLang lowercases a language tag and keeps its primary subtag ("en-US" -> "en")
func NormalizeLang(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}
