package crosspage

import (
	"net/url"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/parse"
)

// TranslationChecker finds language variants that a site declares or implies but did not list
type TranslationChecker struct {
	cfg config.LanguageConfig
	log *logrus.Entry
}

// NewTranslationChecker creates a TranslationChecker
func NewTranslationChecker(cfg config.LanguageConfig, log *logrus.Entry) *TranslationChecker {
	return &TranslationChecker{cfg: cfg, log: log.WithField("component", "translation_checker")}
}

type crawledPage struct {
	domain   string
	segments []string
}

// FindMissing reports, for pages with hreflang alternates, every same-domain alternate
// (except x-default) that is not among the crawled URLs. Pages without alternates on
// runDomain in the default language are checked heuristically: a variant under each
// secondary-language path segment is expected unless a crawled page with that segment
// shares the page's final path segment.
func (c *TranslationChecker) FindMissing(pages []models.PageMetadata, runDomain string) []models.MissingTranslation {
	crawled := make(map[string]bool, len(pages))
	index := make([]crawledPage, 0, len(pages))
	for _, p := range pages {
		crawled[p.URL] = true
		if u, err := url.Parse(p.URL); err == nil {
			index = append(index, crawledPage{domain: parse.SiteDomain(u.Hostname()), segments: parse.PathSegments(u.Path)})
		}
	}

	var missing []models.MissingTranslation
	for _, p := range pages {
		if len(p.Hreflang) > 0 {
			missing = append(missing, c.missingAlternates(p, crawled, runDomain)...)
			continue
		}
		if c.cfg.HeuristicEnabled() {
			missing = append(missing, c.missingByPath(p, index, runDomain)...)
		}
	}

	c.log.WithFields(logrus.Fields{"pages": len(pages), "missing": len(missing)}).Debug("Translation check finished")
	return missing
}

func (c *TranslationChecker) missingAlternates(p models.PageMetadata, crawled map[string]bool, runDomain string) []models.MissingTranslation {
	langs := make([]string, 0, len(p.Hreflang))
	for lang := range p.Hreflang {
		langs = append(langs, lang)
	}
	slices.Sort(langs)

	var missing []models.MissingTranslation
	for _, lang := range langs {
		if strings.EqualFold(lang, "x-default") {
			continue
		}
		href := p.Hreflang[lang]
		if crawled[href] || parse.DomainOf(href) != runDomain {
			continue
		}
		missing = append(missing, models.MissingTranslation{
			SourceURL:   p.URL,
			SourceLang:  p.Language,
			MissingLang: lang,
			ExpectedURL: href,
		})
	}
	return missing
}

func (c *TranslationChecker) missingByPath(p models.PageMetadata, index []crawledPage, runDomain string) []models.MissingTranslation {
	// Error records carry a URL-derived language only, not a page's own signals
	if p.Status != models.PageStatusSuccess {
		return nil
	}
	u, err := url.Parse(p.URL)
	if err != nil || parse.SiteDomain(u.Hostname()) != runDomain || p.Language != c.cfg.Default {
		return nil
	}
	for _, sec := range c.cfg.Secondary {
		if parse.HasSegment(u.Path, sec) {
			return nil
		}
	}

	last := parse.LastSegment(u.Path)
	var missing []models.MissingTranslation
	for _, sec := range c.cfg.Secondary {
		if sec == c.cfg.Default || hasVariant(index, runDomain, sec, last) {
			continue
		}
		expected := *u
		expected.Path = "/" + sec + "/" + strings.TrimPrefix(u.Path, "/")
		expected.RawPath = ""
		missing = append(missing, models.MissingTranslation{
			SourceURL:   p.URL,
			SourceLang:  p.Language,
			MissingLang: sec,
			ExpectedURL: expected.String(),
		})
	}
	return missing
}

// hasVariant reports whether a crawled page on domain carries the sec segment and, with it
// removed, ends in last ("" meaning the section root).
func hasVariant(index []crawledPage, domain, sec, last string) bool {
	for _, cp := range index {
		if cp.domain != domain {
			continue
		}
		rest := make([]string, 0, len(cp.segments))
		found := false
		for _, s := range cp.segments {
			if !found && strings.EqualFold(s, sec) {
				found = true
				continue
			}
			rest = append(rest, s)
		}
		if !found {
			continue
		}
		tail := ""
		if len(rest) > 0 {
			tail = rest[len(rest)-1]
		}
		if tail == last {
			return true
		}
	}
	return false
}
