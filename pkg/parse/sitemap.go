package parse

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// --- XML Structs for Sitemap Parsing ---

// XMLAlternate is a <link rel="alternate" hreflang=".." href=".."> entry, in either the plain or xhtml: form
type XMLAlternate struct {
	Rel      string `xml:"rel,attr"`
	Hreflang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

// XMLURL represents a <url> element in a sitemap.
// The namespaced field must stay first so xhtml:link elements are not captured by the plain one.
type XMLURL struct {
	Loc        string         `xml:"loc"`
	LastMod    string         `xml:"lastmod,omitempty"`
	XHTMLLinks []XMLAlternate `xml:"http://www.w3.org/1999/xhtml link"`
	Links      []XMLAlternate `xml:"link"`
}

// XMLURLSet represents a <urlset> element in a sitemap
type XMLURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []XMLURL `xml:"url"`
}

// XMLSitemap represents a <sitemap> element in a sitemap index file
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemapIndex represents a <sitemapindex> element
type XMLSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []XMLSitemap `xml:"sitemap"`
}

// Alternates merges both hreflang syntaxes into language -> URL. xhtml:link entries win on conflict.
func (u XMLURL) Alternates() map[string]string {
	if len(u.Links) == 0 && len(u.XHTMLLinks) == 0 {
		return nil
	}
	alts := make(map[string]string, len(u.Links)+len(u.XHTMLLinks))
	for _, group := range [][]XMLAlternate{u.Links, u.XHTMLLinks} {
		for _, l := range group {
			lang := strings.TrimSpace(l.Hreflang)
			href := strings.TrimSpace(l.Href)
			if lang == "" || href == "" {
				continue
			}
			alts[lang] = href
		}
	}
	if len(alts) == 0 {
		return nil
	}
	return alts
}

// DocumentKind tells what a sitemap document declared at its root
type DocumentKind int

const (
	KindUnknown DocumentKind = iota
	KindIndex
	KindURLSet
)

func (k DocumentKind) String() string {
	switch k {
	case KindIndex:
		return "sitemapindex"
	case KindURLSet:
		return "urlset"
	default:
		return "unknown"
	}
}

// SitemapDocument is a decoded sitemap of either kind
type SitemapDocument struct {
	Kind     DocumentKind
	Sitemaps []string // Child sitemap locations (KindIndex)
	URLs     []XMLURL // Page entries (KindURLSet)
}

// ParseSitemap decodes a sitemap body, honouring any declared XML encoding.
// A well-formed document whose root is neither <sitemapindex> nor <urlset> yields KindUnknown.
func ParseSitemap(body []byte) (*SitemapDocument, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: XML document has no root element", utils.ErrParsing)
			}
			return nil, fmt.Errorf("%w: XML: %w", utils.ErrParsing, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "sitemapindex":
			var index XMLSitemapIndex
			if err := decoder.DecodeElement(&index, &start); err != nil {
				return nil, fmt.Errorf("%w: XML sitemap index: %w", utils.ErrParsing, err)
			}
			doc := &SitemapDocument{Kind: KindIndex}
			for _, sm := range index.Sitemaps {
				if loc := strings.TrimSpace(sm.Loc); loc != "" {
					doc.Sitemaps = append(doc.Sitemaps, loc)
				}
			}
			return doc, nil

		case "urlset":
			var set XMLURLSet
			if err := decoder.DecodeElement(&set, &start); err != nil {
				return nil, fmt.Errorf("%w: XML urlset: %w", utils.ErrParsing, err)
			}
			doc := &SitemapDocument{Kind: KindURLSet}
			for _, u := range set.URLs {
				u.Loc = strings.TrimSpace(u.Loc)
				if u.Loc != "" {
					doc.URLs = append(doc.URLs, u)
				}
			}
			return doc, nil

		default:
			return &SitemapDocument{Kind: KindUnknown}, nil
		}
	}
}
