package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/analyze"
	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/crosspage"
	"github.com/Sriram-PR/seo-auditor/pkg/fetch"
	"github.com/Sriram-PR/seo-auditor/pkg/limiter"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/parse"
	"github.com/Sriram-PR/seo-auditor/pkg/report"
	"github.com/Sriram-PR/seo-auditor/pkg/sitemap"
	"github.com/Sriram-PR/seo-auditor/pkg/storage"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// Descriptions used in the issues event
const (
	IssueDuplicateTitles       = "Duplicate titles"
	IssueDuplicateDescriptions = "Duplicate descriptions"
	IssueDuplicateContent      = "Duplicate page content"
	IssueMissingTranslations   = "Missing translations"
)

// Request starts one audit
type Request struct {
	ID         string // Optional; a UUID is generated when empty
	SitemapURL string
	Options    models.Options
}

// Orchestrator drives audits: resolve the sitemap, analyze every page under the
// concurrency ceiling, aggregate, render, and report progress through events.
// It holds no per-run state, so one Orchestrator serves concurrent runs.
type Orchestrator struct {
	cfg          *config.AppConfig
	resolver     *sitemap.Resolver
	analyzer     *analyze.Analyzer
	translations *crosspage.TranslationChecker
	renderer     report.Renderer  // Optional
	store        storage.RunStore // Optional
	log          *logrus.Entry
}

// NewOrchestrator wires the shared HTTP stack and pipeline components from cfg.
// renderer and store may be nil.
func NewOrchestrator(cfg *config.AppConfig, renderer report.Renderer, store storage.RunStore, log *logrus.Entry) (*Orchestrator, error) {
	httpClient := fetch.NewClient(cfg.HTTPClientSettings, log)
	hostLimiter := fetch.NewHostLimiter(cfg.DelayPerHost, log)
	fetcher := fetch.NewFetcher(httpClient, cfg, hostLimiter, log)
	prober := fetch.NewProber(httpClient, cfg, hostLimiter, log)
	robots := fetch.NewRobotsHandler(fetcher, cfg.SitemapTimeout, log)

	resolver, err := sitemap.NewResolver(fetcher, robots, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("creating sitemap resolver: %w", err)
	}

	return &Orchestrator{
		cfg:          cfg,
		resolver:     resolver,
		analyzer:     analyze.NewAnalyzer(fetcher, prober, cfg, log),
		translations: crosspage.NewTranslationChecker(cfg.Languages, log),
		renderer:     renderer,
		store:        store,
		log:          log.WithField("component", "orchestrator"),
	}, nil
}

// runContext is the state owned by a single run
type runContext struct {
	req   Request
	emit  func(models.Event)
	run   *models.AnalysisRun
	log   *logrus.Entry
	saved int // Pages persisted to the store
}

// Run executes one audit, delivering events to emit in order from the calling goroutine.
// A fatal failure (invalid input, unavailable start sitemap, report rendering) ends the
// stream with a single error event and is also returned.
func (o *Orchestrator) Run(ctx context.Context, req Request, emit func(models.Event)) (*models.AnalysisRun, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	rc := &runContext{
		req:  req,
		emit: emit,
		run: &models.AnalysisRun{
			ID:            req.ID,
			SitemapURL:    strings.TrimSpace(req.SitemapURL),
			Options:       req.Options,
			StartedAt:     time.Now().UTC(),
			LanguageStats: map[string]int{},
		},
		log: o.log.WithFields(logrus.Fields{"run_id": req.ID, "sitemap_url": req.SitemapURL}),
	}

	err := o.execute(ctx, rc)
	rc.run.FinishedAt = time.Now().UTC()
	if err != nil {
		rc.log.Errorf("Run failed: %v", err)
		emit(models.NewError(err.Error()))
	}
	o.logSummary(rc, err)
	return rc.run, err
}

func (o *Orchestrator) execute(ctx context.Context, rc *runContext) error {
	run := rc.run
	if run.SitemapURL == "" {
		return fmt.Errorf("%w: sitemap URL is required", utils.ErrInvalidInput)
	}
	start, err := parse.ParseAbsolute(run.SitemapURL)
	if err != nil {
		return err
	}
	run.SitemapURL = start.String()
	run.Domain = parse.SiteDomain(start.Hostname())

	rc.emit(models.NewProgress(5, "Checking sitemap structure..."))
	resolved, err := o.resolver.Resolve(ctx, run.SitemapURL, run.Options.CheckMultipleSitemaps)
	if resolved != nil {
		run.Diagnostics = resolved.Diagnostics
	}
	if err != nil {
		return err
	}

	found := fmt.Sprintf("Found %d URLs to analyze", len(resolved.URLs))
	if resolved.Diagnostics.StartIsIndex {
		rc.emit(models.NewProgress(7, fmt.Sprintf("Detected sitemap index with %d child sitemaps...", resolved.Diagnostics.ChildSitemaps)))
		found += " (from all sitemaps in the index)"
	}
	rc.emit(models.NewProgress(10, found))
	rc.log.Infof("Resolved %d unique URLs (%d raw)", resolved.Diagnostics.UniqueURLCount, resolved.Diagnostics.RawURLCount)

	run.Pages = o.analyzePages(ctx, rc, resolved)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	run.Stats = computeStats(run.Pages)
	run.LanguageStats = languageStats(run.Pages)
	rc.emit(models.NewStats(run.Stats))
	rc.emit(models.NewLanguageStats(run.LanguageStats))

	if run.Options.DetectDuplicates || run.Options.DetectLanguages {
		rc.emit(models.NewIssues(o.crossPageIssues(run)))
	}

	rc.emit(models.NewProgress(95, "Generating reports..."))
	if o.renderer != nil {
		files, err := o.renderer.Render(ctx, run)
		if err != nil {
			return err
		}
		run.Files = files
	}
	rc.emit(models.NewProgress(100, "Done!"))
	rc.emit(models.NewComplete(run.Files, run.Stats))

	if o.store != nil {
		run.FinishedAt = time.Now().UTC()
		if err := o.store.SaveRun(ctx, run); err != nil {
			rc.log.Warnf("Failed to persist run summary: %v", err)
		}
	}
	return nil
}

// analyzePages runs the analyzer over every URL under the concurrency ceiling. Results are
// consumed here, one at a time, so progress events and the store see pages in completion order.
// The returned slice keeps sitemap order.
func (o *Orchestrator) analyzePages(ctx context.Context, rc *runContext, resolved *sitemap.Result) []models.PageMetadata {
	total := len(resolved.URLs)
	pages := make([]models.PageMetadata, total)
	if total == 0 {
		return pages
	}

	lim := limiter.New(o.cfg.Concurrency, rc.log.WithField("component", "limiter"))
	results := limiter.Run(ctx, lim, resolved.URLs, func(ctx context.Context, pageURL string) (models.PageMetadata, error) {
		return o.analyzer.Analyze(ctx, pageURL, resolved.Hreflang[pageURL]), nil
	})

	completed := 0
	for res := range results {
		page := res.Value
		if res.Err != nil {
			page = o.analyzer.ErrorRecord(res.Item, res.Err)
		}
		pages[res.Index] = page
		completed++

		if o.store != nil {
			if err := o.store.SavePage(ctx, rc.run.ID, page); err != nil {
				rc.log.WithField("url", page.URL).Warnf("Failed to persist page: %v", err)
			} else {
				rc.saved++
			}
		}

		rc.emit(models.NewProgress(pageProgress(completed, total),
			fmt.Sprintf("Analyzing [%d/%d]: %s...", completed, total, truncateRunes(res.Item, 50))))
	}

	rc.log.Debugf("Peak concurrency: %d of %d", lim.Peak(), lim.Ceiling())
	return pages
}

// crossPageIssues fills the run's duplicate and translation findings and summarises them
func (o *Orchestrator) crossPageIssues(run *models.AnalysisRun) []models.IssueSummary {
	var issues []models.IssueSummary
	add := func(description string, count int) {
		if count > 0 {
			issues = append(issues, models.IssueSummary{Description: description, Count: count})
		}
	}

	if run.Options.DetectDuplicates {
		run.DuplicateTitles = crosspage.DuplicateTitles(run.Pages)
		run.DuplicateDescriptions = crosspage.DuplicateDescriptions(run.Pages)
		run.DuplicateContent = crosspage.DuplicateContent(run.Pages)
		add(IssueDuplicateTitles, len(run.DuplicateTitles))
		add(IssueDuplicateDescriptions, len(run.DuplicateDescriptions))
		add(IssueDuplicateContent, len(run.DuplicateContent))
	}
	if run.Options.DetectLanguages {
		run.MissingTranslations = o.translations.FindMissing(run.Pages, run.Domain)
		add(IssueMissingTranslations, len(run.MissingTranslations))
	}
	return issues
}

// pageProgress maps page completion onto the 10..90 band
func pageProgress(completed, total int) int {
	return int(math.Round(float64(completed)/float64(total)*80)) + 10
}

func computeStats(pages []models.PageMetadata) models.Stats {
	stats := models.Stats{Total: len(pages)}
	sum := 0
	for _, p := range pages {
		sum += p.Score
		if p.Status == models.PageStatusError {
			stats.Errors++
		}
		if p.Title == "" {
			stats.MissingTitle++
		}
		if p.Description == "" {
			stats.MissingDesc++
		}
		if p.OGImage == "" {
			stats.MissingOG++
		}
	}
	if len(pages) > 0 {
		stats.AvgScore = int(math.Round(float64(sum) / float64(len(pages))))
	}
	return stats
}

// languageStats counts successfully analyzed pages per language
func languageStats(pages []models.PageMetadata) map[string]int {
	counts := make(map[string]int)
	for _, p := range pages {
		if p.Status == models.PageStatusSuccess {
			counts[p.Language]++
		}
	}
	return counts
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// logSummary logs a summary of the finished run
func (o *Orchestrator) logSummary(rc *runContext, runErr error) {
	run := rc.run
	status := "SUCCESS"
	if runErr != nil {
		status = "FAILED"
		if errors.Is(runErr, utils.ErrInvalidInput) {
			status = "REJECTED"
		}
	}

	rc.log.Info("============================================")
	rc.log.Infof("Audit %s: %s in %v", run.ID, status, run.FinishedAt.Sub(run.StartedAt))
	rc.log.Infof("  Sitemap: %s (index: %v, child sitemaps: %d, probes: %d)",
		run.SitemapURL, run.Diagnostics.StartIsIndex, run.Diagnostics.ChildSitemaps, run.Diagnostics.ProbesAttempted)
	if runErr != nil {
		rc.log.Infof("  Error: %v", runErr)
	} else {
		rc.log.Infof("  Pages: %d (%d errors), average score %d", run.Stats.Total, run.Stats.Errors, run.Stats.AvgScore)
		rc.log.Infof("  Missing: %d titles, %d descriptions, %d OG images", run.Stats.MissingTitle, run.Stats.MissingDesc, run.Stats.MissingOG)
		if run.Files.CSV != "" {
			rc.log.Infof("  Reports: %s, %s, %s", run.Files.CSV, run.Files.JSON, run.Files.HTML)
		}
	}
	if o.store != nil {
		rc.log.Infof("  Pages persisted: %d", rc.saved)
	}
	rc.log.Info("============================================")
}
