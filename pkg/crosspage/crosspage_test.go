package crosspage

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func page(url, lang string) models.PageMetadata {
	return models.PageMetadata{URL: url, Language: lang, Status: models.PageStatusSuccess}
}

func TestDuplicateTitles(t *testing.T) {
	pages := []models.PageMetadata{
		{URL: "https://a.com/1", Title: "Home"},
		{URL: "https://a.com/2", Title: "About"},
		{URL: "https://a.com/3", Title: "Home"},
		{URL: "https://a.com/4", Title: ""},
		{URL: "https://a.com/5", Title: ""},
		{URL: "https://a.com/6", Title: "About"},
		{URL: "https://a.com/7", Title: "Home"},
	}

	groups := DuplicateTitles(pages)
	require.Len(t, groups, 2)
	assert.Equal(t, "Home", groups[0].Value)
	assert.Equal(t, []string{"https://a.com/1", "https://a.com/3", "https://a.com/7"}, groups[0].URLs)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, "About", groups[1].Value)
	assert.Equal(t, 2, groups[1].Count)
}

func TestDuplicateDescriptions_NoneShared(t *testing.T) {
	pages := []models.PageMetadata{
		{URL: "https://a.com/1", Description: "one"},
		{URL: "https://a.com/2", Description: "two"},
	}
	assert.Empty(t, DuplicateDescriptions(pages))
}

func TestDuplicateContent_SuccessOnly(t *testing.T) {
	pages := []models.PageMetadata{
		{URL: "https://a.com/1", ContentHash: "abc", Status: models.PageStatusSuccess},
		{URL: "https://a.com/2", ContentHash: "abc", Status: models.PageStatusSuccess},
		{URL: "https://a.com/3", ContentHash: "abc", Status: models.PageStatusError},
		{URL: "https://a.com/4", ContentHash: "def", Status: models.PageStatusSuccess},
	}

	groups := DuplicateContent(pages)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"https://a.com/1", "https://a.com/2"}, groups[0].URLs)
}

func TestFindMissing_Hreflang(t *testing.T) {
	checker := NewTranslationChecker(config.Default().Languages, testLogger())

	src := page("https://www.example.com/o-nas", "pl")
	src.Hreflang = map[string]string{
		"pl":        "https://www.example.com/o-nas",
		"en":        "https://www.example.com/en/about",
		"de":        "https://www.example.com/de/uber-uns",
		"x-default": "https://www.example.com/x",
		"fr":        "https://other.com/fr/a-propos",
	}
	pages := []models.PageMetadata{src, page("https://www.example.com/en/about", "en")}

	missing := checker.FindMissing(pages, "example.com")
	require.Len(t, missing, 1)
	assert.Equal(t, models.MissingTranslation{
		SourceURL:   "https://www.example.com/o-nas",
		SourceLang:  "pl",
		MissingLang: "de",
		ExpectedURL: "https://www.example.com/de/uber-uns",
	}, missing[0])
}

func TestFindMissing_Heuristic(t *testing.T) {
	checker := NewTranslationChecker(config.Default().Languages, testLogger())

	pages := []models.PageMetadata{
		page("https://example.com/", "pl"),
		page("https://example.com/o-nas", "pl"),
		page("https://example.com/kontakt", "pl"),
		page("https://example.com/en/", "en"),
		page("https://example.com/en/kontakt", "en"),
		page("https://example.com/en/pricing", "en"),
		page("https://example.com/de/produkt", "de"),
	}

	missing := checker.FindMissing(pages, "example.com")
	require.Len(t, missing, 1)
	assert.Equal(t, "https://example.com/o-nas", missing[0].SourceURL)
	assert.Equal(t, "en", missing[0].MissingLang)
	assert.Equal(t, "https://example.com/en/o-nas", missing[0].ExpectedURL)
}

func TestFindMissing_HeuristicRootPage(t *testing.T) {
	checker := NewTranslationChecker(config.Default().Languages, testLogger())

	missing := checker.FindMissing([]models.PageMetadata{page("https://example.com/", "pl")}, "example.com")
	require.Len(t, missing, 1)
	assert.Equal(t, "https://example.com/en/", missing[0].ExpectedURL)
}

func TestFindMissing_HeuristicDisabled(t *testing.T) {
	cfg := config.Default().Languages
	off := false
	cfg.TranslationHeuristic = &off
	checker := NewTranslationChecker(cfg, testLogger())

	missing := checker.FindMissing([]models.PageMetadata{page("https://example.com/o-nas", "pl")}, "example.com")
	assert.Empty(t, missing)
}

func TestFindMissing_HeuristicSkipsOtherDomains(t *testing.T) {
	checker := NewTranslationChecker(config.Default().Languages, testLogger())

	missing := checker.FindMissing([]models.PageMetadata{page("https://cdn.other.com/o-nas", "pl")}, "example.com")
	assert.Empty(t, missing)
}

func TestFindMissing_HeuristicSkipsErrorRecords(t *testing.T) {
	checker := NewTranslationChecker(config.Default().Languages, testLogger())

	broken := models.PageMetadata{URL: "https://example.com/broken", Language: "pl", Status: models.PageStatusError}
	missing := checker.FindMissing([]models.PageMetadata{broken, page("https://example.com/o-nas", "pl")}, "example.com")
	require.Len(t, missing, 1)
	assert.Equal(t, "https://example.com/o-nas", missing[0].SourceURL)
}
