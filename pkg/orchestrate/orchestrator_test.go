package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/report"
	"github.com/Sriram-PR/seo-auditor/pkg/storage"
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

const sharedPage = `<html><head><title>Shared title</title><meta name="description" content="Shared description"></head><body><h1>Hello</h1></body></html>`

// newSite serves XML documents and HTML pages by path. {{base}} is replaced with the server URL.
func newSite(t *testing.T, docs map[string]string) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".xml") {
			w.Header().Set("Content-Type", "application/xml")
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		io.WriteString(w, strings.ReplaceAll(body, "{{base}}", server.URL))
	}))
	t.Cleanup(server.Close)
	return server
}

func urlset(paths ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, p := range paths {
		fmt.Fprintf(&b, "<url><loc>{{base}}%s</loc></url>", p)
	}
	b.WriteString(`</urlset>`)
	return b.String()
}

func threePageSite(t *testing.T) *httptest.Server {
	return newSite(t, map[string]string{
		"/sitemap.xml": urlset("/a", "/b", "/c"),
		"/a":           sharedPage,
		"/b":           sharedPage,
		"/c":           `<html lang="en"><head><title>Unique</title></head><body></body></html>`,
	})
}

type fakeRenderer struct {
	files models.ReportFiles
	err   error
	calls int
}

func (f *fakeRenderer) Render(_ context.Context, _ *models.AnalysisRun) (models.ReportFiles, error) {
	f.calls++
	return f.files, f.err
}

type eventLog struct {
	mu     sync.Mutex
	events []models.Event
}

func (e *eventLog) emit(ev models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventLog) types() []string {
	types := make([]string, len(e.events))
	for i, ev := range e.events {
		types[i] = ev.EventType()
	}
	return types
}

func (e *eventLog) progress() []int {
	var values []int
	for _, ev := range e.events {
		if p, ok := ev.(models.ProgressEvent); ok {
			values = append(values, p.Progress)
		}
	}
	return values
}

func newTestOrchestrator(t *testing.T, renderer report.Renderer, store storage.RunStore) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(testConfig(), renderer, store, testLogger())
	require.NoError(t, err)
	return o
}

func TestRun_EventSequence(t *testing.T) {
	site := threePageSite(t)
	renderer := &fakeRenderer{files: models.ReportFiles{CSV: "r.csv", JSON: "r.json", HTML: "r.html"}}
	o := newTestOrchestrator(t, renderer, nil)
	events := &eventLog{}

	run, err := o.Run(context.Background(), Request{
		SitemapURL: site.URL + "/sitemap.xml",
		Options:    models.Options{DetectDuplicates: true, DetectLanguages: true},
	}, events.emit)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"progress", "progress",
		"progress", "progress", "progress",
		"stats", "language-stats", "issues",
		"progress", "progress", "complete",
	}, events.types())
	assert.Equal(t, []int{5, 10, 37, 63, 90, 95, 100}, events.progress())

	complete := events.events[len(events.events)-1].(models.CompleteEvent)
	assert.Equal(t, renderer.files, complete.Files)
	assert.Equal(t, 3, complete.Stats.Total)
	assert.Equal(t, 0, complete.Stats.Errors)
	assert.Equal(t, 1, complete.Stats.MissingDesc)
	assert.Equal(t, 3, complete.Stats.MissingOG)

	langs := events.events[6].(models.LanguageStatsEvent)
	assert.Equal(t, map[string]int{"pl": 2, "en": 1}, langs.Languages)

	require.Len(t, run.Pages, 3)
	assert.Equal(t, site.URL+"/a", run.Pages[0].URL, "pages keep sitemap order")
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 1, renderer.calls)
}

func TestRun_CrossPageIssues(t *testing.T) {
	site := threePageSite(t)
	o := newTestOrchestrator(t, nil, nil)
	events := &eventLog{}

	run, err := o.Run(context.Background(), Request{
		SitemapURL: site.URL + "/sitemap.xml",
		Options:    models.Options{DetectDuplicates: true, DetectLanguages: true},
	}, events.emit)
	require.NoError(t, err)

	var issues models.IssuesEvent
	for _, ev := range events.events {
		if ie, ok := ev.(models.IssuesEvent); ok {
			issues = ie
		}
	}
	assert.Equal(t, []models.IssueSummary{
		{Description: IssueDuplicateTitles, Count: 1},
		{Description: IssueDuplicateDescriptions, Count: 1},
		{Description: IssueDuplicateContent, Count: 1},
		{Description: IssueMissingTranslations, Count: 2},
	}, issues.Issues)

	require.Len(t, run.DuplicateTitles, 1)
	assert.Equal(t, "Shared title", run.DuplicateTitles[0].Value)
	assert.Len(t, run.MissingTranslations, 2)
}

func TestRun_NoDetectionSkipsIssues(t *testing.T) {
	site := threePageSite(t)
	o := newTestOrchestrator(t, nil, nil)
	events := &eventLog{}

	run, err := o.Run(context.Background(), Request{SitemapURL: site.URL + "/sitemap.xml"}, events.emit)
	require.NoError(t, err)
	assert.NotContains(t, events.types(), "issues")
	assert.Contains(t, events.types(), "language-stats")
	assert.Empty(t, run.DuplicateTitles)
	assert.Empty(t, run.MissingTranslations)
}

func TestRun_IndexEmitsDetectionProgress(t *testing.T) {
	site := newSite(t, map[string]string{
		"/sitemap_index.xml": `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` +
			`<sitemap><loc>{{base}}/one.xml</loc></sitemap><sitemap><loc>{{base}}/two.xml</loc></sitemap></sitemapindex>`,
		"/one.xml": urlset("/a"),
		"/two.xml": urlset("/b", "/a"),
		"/a":       sharedPage,
		"/b":       sharedPage,
	})
	o := newTestOrchestrator(t, nil, nil)
	events := &eventLog{}

	run, err := o.Run(context.Background(), Request{SitemapURL: site.URL + "/sitemap_index.xml"}, events.emit)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 7, 10, 50, 90, 95, 100}, events.progress())
	assert.Len(t, run.Pages, 2)
	assert.True(t, run.Diagnostics.StartIsIndex)
}

func TestRun_StartSitemapUnavailable(t *testing.T) {
	site := newSite(t, map[string]string{})
	renderer := &fakeRenderer{}
	o := newTestOrchestrator(t, renderer, nil)
	events := &eventLog{}

	_, err := o.Run(context.Background(), Request{SitemapURL: site.URL + "/sitemap.xml"}, events.emit)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrSitemapUnavailable))

	assert.Equal(t, []string{"progress", "error"}, events.types())
	assert.Equal(t, 0, renderer.calls)
}

func TestRun_ValidationError(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil)

	for _, input := range []string{"", "   ", "not a url", "ftp://example.com/sitemap.xml"} {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			events := &eventLog{}
			_, err := o.Run(context.Background(), Request{SitemapURL: input}, events.emit)
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrInvalidInput)
			require.Len(t, events.events, 1)
			assert.Equal(t, "error", events.events[0].EventType())
		})
	}
}

func TestRun_UnreachablePageBecomesErrorRecord(t *testing.T) {
	site := newSite(t, map[string]string{
		"/sitemap.xml": urlset("/a", "/gone"),
		"/a":           sharedPage,
	})
	o := newTestOrchestrator(t, nil, nil)

	run, err := o.Run(context.Background(), Request{SitemapURL: site.URL + "/sitemap.xml"}, func(models.Event) {})
	require.NoError(t, err)
	require.Len(t, run.Pages, 2)

	gone := run.Pages[1]
	assert.Equal(t, models.PageStatusError, gone.Status)
	assert.Equal(t, 404, gone.StatusCode)
	assert.Equal(t, 1, run.Stats.Errors)
	assert.Equal(t, map[string]int{"pl": 1}, run.LanguageStats, "error pages are not counted per language")
}

func TestRun_RenderFailure(t *testing.T) {
	site := threePageSite(t)
	renderer := &fakeRenderer{err: fmt.Errorf("%w: disk full", utils.ErrReportRender)}
	o := newTestOrchestrator(t, renderer, nil)
	events := &eventLog{}

	_, err := o.Run(context.Background(), Request{SitemapURL: site.URL + "/sitemap.xml"}, events.emit)
	require.ErrorIs(t, err, utils.ErrReportRender)

	types := events.types()
	assert.Equal(t, "error", types[len(types)-1])
	assert.NotContains(t, types, "complete")
	assert.Equal(t, 95, events.progress()[len(events.progress())-1])
}

func TestRun_PersistsToStore(t *testing.T) {
	site := threePageSite(t)
	store, err := storage.NewBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	o := newTestOrchestrator(t, nil, store)
	run, err := o.Run(context.Background(), Request{ID: "fixed-id", SitemapURL: site.URL + "/sitemap.xml"}, func(models.Event) {})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", run.ID)

	loaded, err := store.LoadRun(context.Background(), "fixed-id")
	require.NoError(t, err)
	assert.Len(t, loaded.Pages, 3)
	assert.Equal(t, run.Stats, loaded.Stats)
}

func TestRun_WritesReports(t *testing.T) {
	site := threePageSite(t)
	renderer := report.NewFileRenderer(t.TempDir(), testLogger())
	o := newTestOrchestrator(t, renderer, nil)

	run, err := o.Run(context.Background(), Request{SitemapURL: site.URL + "/sitemap.xml"}, func(models.Event) {})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(run.Files.CSV, "seo_127.0.0.1_"))
	assert.FileExists(t, filepath.Join(renderer.Dir(), run.Files.HTML))
}

func TestPageProgress(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{1, 1, 90},
		{1, 2, 50},
		{1, 3, 37},
		{2, 3, 63},
		{1, 160, 11},
		{0, 5, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pageProgress(tt.completed, tt.total), "%d/%d", tt.completed, tt.total)
	}
}

func TestComputeStats(t *testing.T) {
	assert.Equal(t, models.Stats{}, computeStats(nil))

	stats := computeStats([]models.PageMetadata{
		{Title: "t", Description: "d", OGImage: "i", Score: 100, Status: models.PageStatusSuccess},
		{Score: 75, Status: models.PageStatusSuccess},
		{Score: 90, Status: models.PageStatusError},
	})
	assert.Equal(t, models.Stats{Total: 3, AvgScore: 88, MissingTitle: 2, MissingDesc: 2, MissingOG: 2, Errors: 1}, stats)
}
