package analyze

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// structuredData inspects every JSON-LD block. present is true once any non-empty block parses;
// valid requires present and every non-empty block to parse and declare @context and @type.
func structuredData(doc *goquery.Document) (present, valid bool) {
	valid = true
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			valid = false
			return
		}
		present = true
		if !declaresContextAndType(data) {
			valid = false
		}
	})
	return present, present && valid
}

// declaresContextAndType accepts an object with @context and @type, an object with @context whose
// @graph nodes all carry @type, or an array of such objects.
func declaresContextAndType(data any) bool {
	switch v := data.(type) {
	case map[string]any:
		if _, ok := v["@context"]; !ok {
			return false
		}
		if _, ok := v["@type"]; ok {
			return true
		}
		graph, ok := v["@graph"].([]any)
		if !ok || len(graph) == 0 {
			return false
		}
		for _, node := range graph {
			obj, ok := node.(map[string]any)
			if !ok {
				return false
			}
			if _, ok := obj["@type"]; !ok {
				return false
			}
		}
		return true
	case []any:
		if len(v) == 0 {
			return false
		}
		for _, item := range v {
			if !declaresContextAndType(item) {
				return false
			}
		}
		return true
	}
	return false
}
