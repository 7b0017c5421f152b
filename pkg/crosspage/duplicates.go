package crosspage

import "github.com/Sriram-PR/seo-auditor/pkg/models"

// groupBy collects pages sharing a non-empty key. Only groups of two or more are returned,
// ordered by first appearance; member URLs keep page order.
func groupBy(pages []models.PageMetadata, key func(*models.PageMetadata) string) []models.DuplicateGroup {
	index := make(map[string]int)
	var groups []models.DuplicateGroup
	for i := range pages {
		k := key(&pages[i])
		if k == "" {
			continue
		}
		if gi, ok := index[k]; ok {
			groups[gi].URLs = append(groups[gi].URLs, pages[i].URL)
			continue
		}
		index[k] = len(groups)
		groups = append(groups, models.DuplicateGroup{Value: k, URLs: []string{pages[i].URL}})
	}

	dups := make([]models.DuplicateGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.URLs) < 2 {
			continue
		}
		g.Count = len(g.URLs)
		dups = append(dups, g)
	}
	return dups
}

// DuplicateTitles groups pages with identical non-empty titles
func DuplicateTitles(pages []models.PageMetadata) []models.DuplicateGroup {
	return groupBy(pages, func(p *models.PageMetadata) string { return p.Title })
}

// DuplicateDescriptions groups pages with identical non-empty meta descriptions
func DuplicateDescriptions(pages []models.PageMetadata) []models.DuplicateGroup {
	return groupBy(pages, func(p *models.PageMetadata) string { return p.Description })
}

// DuplicateContent groups successfully fetched pages with byte-identical bodies
func DuplicateContent(pages []models.PageMetadata) []models.DuplicateGroup {
	return groupBy(pages, func(p *models.PageMetadata) string {
		if p.Status != models.PageStatusSuccess {
			return ""
		}
		return p.ContentHash
	})
}
