package analyze

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/parse"
)

// pageSignals are the static-markup measurements that feed the heuristic rules
type pageSignals struct {
	htmlLang        string
	domSize         int
	externalScripts int
	imageURLs       []string // Unique absolute http(s) img src values in document order
}

// extractMetadata reads the SEO fields of doc into meta. Link-like fields are resolved against base.
func extractMetadata(doc *goquery.Document, base *url.URL, meta *models.PageMetadata) pageSignals {
	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	meta.Description = metaContent(doc, "name", "description")
	meta.Keywords = metaContent(doc, "name", "keywords")
	meta.Robots = metaContent(doc, "name", "robots")
	meta.Viewport = metaContent(doc, "name", "viewport")

	meta.OGTitle = metaContent(doc, "property", "og:title")
	meta.OGDescription = metaContent(doc, "property", "og:description")
	meta.OGImage = parse.ResolveReference(base, metaContent(doc, "property", "og:image"))
	meta.OGURL = parse.ResolveReference(base, metaContent(doc, "property", "og:url"))

	if href, ok := doc.Find(`link[rel~="canonical"]`).First().Attr("href"); ok {
		meta.Canonical = parse.ResolveReference(base, href)
	}

	h1 := doc.Find("h1")
	meta.H1Count = h1.Length()
	meta.H1Text = strings.TrimSpace(h1.First().Text())
	meta.ImagesWithoutAlt = doc.Find("img:not([alt])").Length()

	signals := pageSignals{
		domSize:         doc.Find("*").Length(),
		externalScripts: doc.Find("script[src]").Length(),
	}
	signals.htmlLang, _ = doc.Find("html").First().Attr("lang")

	seen := make(map[string]bool)
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		abs := parse.ResolveReference(base, src)
		if abs == "" || seen[abs] {
			return
		}
		if !strings.HasPrefix(abs, "http://") && !strings.HasPrefix(abs, "https://") {
			return
		}
		seen[abs] = true
		signals.imageURLs = append(signals.imageURLs, abs)
	})

	return signals
}

// metaContent returns the trimmed content of the first <meta> whose attr equals key, case-insensitively
func metaContent(doc *goquery.Document, attr, key string) string {
	var content string
	doc.Find("meta[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr(attr)
		if !strings.EqualFold(strings.TrimSpace(v), key) {
			return true
		}
		content, _ = s.Attr("content")
		return false
	})
	return strings.TrimSpace(content)
}
