package models

import (
	"fmt"
	"time"
)

// PageMetadata is the analysis record for one page URL
type PageMetadata struct {
	URL                 string            `json:"url"`
	Language            string            `json:"language"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	Keywords            string            `json:"keywords,omitempty"`
	OGTitle             string            `json:"ogTitle,omitempty"`
	OGDescription       string            `json:"ogDescription,omitempty"`
	OGImage             string            `json:"ogImage,omitempty"`
	OGURL               string            `json:"ogUrl,omitempty"`
	OGImageStatus       OGImageStatus     `json:"ogImageStatus,omitempty"`
	Canonical           string            `json:"canonical,omitempty"`
	Robots              string            `json:"robots,omitempty"`
	Viewport            string            `json:"viewport,omitempty"`
	H1Count             int               `json:"h1Count"`
	H1Text              string            `json:"h1Text,omitempty"`
	ImagesWithoutAlt    int               `json:"imagesWithoutAlt"`
	HasStructuredData   bool              `json:"hasStructuredData"`
	StructuredDataValid bool              `json:"structuredDataValid"`
	DOMSize             int               `json:"domSize,omitempty"`
	ExternalScripts     int               `json:"externalScripts,omitempty"`
	LargestImageBytes   int64             `json:"largestImageBytes,omitempty"`
	Hreflang            map[string]string `json:"hreflang,omitempty"` // Snapshot of the sitemap alternates for this URL
	ContentHash         string            `json:"contentHash,omitempty"`
	Status              PageStatus        `json:"status"`
	StatusCode          int               `json:"statusCode,omitempty"`
	ErrorType           string            `json:"errorType,omitempty"` // Error category (on error)
	Error               string            `json:"error,omitempty"`
	Issues              []string          `json:"issues"`
	Score               int               `json:"score"`
	AnalyzedAt          time.Time         `json:"analyzedAt"`
}

// ScoreFor maps an issue count to a 0..100 score, 10 points per issue
func ScoreFor(issueCount int) int {
	return max(0, 100-10*issueCount)
}

// Options are the per-run switches supplied by the caller
type Options struct {
	CheckMultipleSitemaps bool `json:"checkMultipleSitemaps"`
	DetectLanguages       bool `json:"detectLanguages"`
	DetectDuplicates      bool `json:"checkDuplicates"`
}

// Stats summarises a finished run
type Stats struct {
	Total        int `json:"total"`
	AvgScore     int `json:"avgScore"`
	MissingTitle int `json:"missingTitle"`
	MissingDesc  int `json:"missingDesc"`
	MissingOG    int `json:"missingOG"`
	Errors       int `json:"errors"`
}

// DuplicateGroup is a value shared by two or more pages
type DuplicateGroup struct {
	Value string   `json:"value"`
	URLs  []string `json:"urls"`
	Count int      `json:"count"`
}

// MissingTranslation records an expected alternate that was not crawled
type MissingTranslation struct {
	SourceURL   string `json:"sourceUrl"`
	SourceLang  string `json:"sourceLang"`
	MissingLang string `json:"missingLang"`
	ExpectedURL string `json:"expectedUrl"`
}

// IssueSummary is one entry of the cross-page issues event
type IssueSummary struct {
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// ReportFiles names the rendered report artifacts
type ReportFiles struct {
	CSV  string `json:"csv"`
	JSON string `json:"json"`
	HTML string `json:"html"`
}

// SitemapDiagnostics describes how the URL set was resolved
type SitemapDiagnostics struct {
	StartIsIndex    bool     `json:"startIsIndex"`
	ChildSitemaps   int      `json:"childSitemaps"`
	SitemapsFetched []string `json:"sitemapsFetched"`
	ProbesAttempted int      `json:"probesAttempted"`
	RawURLCount     int      `json:"rawUrlCount"`
	UniqueURLCount  int      `json:"uniqueUrlCount"`
	Messages        []string `json:"messages,omitempty"`
}

// AnalysisRun is the full result of one sitemap audit
type AnalysisRun struct {
	ID                    string               `json:"id"`
	SitemapURL            string               `json:"sitemapUrl"`
	Domain                string               `json:"domain"`
	Options               Options              `json:"options"`
	StartedAt             time.Time            `json:"startedAt"`
	FinishedAt            time.Time            `json:"finishedAt"`
	Diagnostics           SitemapDiagnostics   `json:"diagnostics"`
	Pages                 []PageMetadata       `json:"pages"` // Sitemap order; progress events report completion order
	Stats                 Stats                `json:"stats"`
	LanguageStats         map[string]int       `json:"languageStats"`
	DuplicateTitles       []DuplicateGroup     `json:"duplicateTitles,omitempty"`
	DuplicateDescriptions []DuplicateGroup     `json:"duplicateDescriptions,omitempty"`
	DuplicateContent      []DuplicateGroup     `json:"duplicateContent,omitempty"`
	MissingTranslations   []MissingTranslation `json:"missingTranslations,omitempty"`
	Files                 ReportFiles          `json:"files"`
}

// ReportPrefix builds the report file prefix seo_<domain>_<YYYY-MM-DD>_<HH-MM-SS>
func ReportPrefix(domain string, at time.Time) string {
	return fmt.Sprintf("seo_%s_%s", domain, at.Format("2006-01-02_15-04-05"))
}
