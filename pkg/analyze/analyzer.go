package analyze

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/fetch"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// ResourceProber checks linked resources without downloading them
type ResourceProber interface {
	CheckLiveness(ctx context.Context, rawURL string) fetch.ProbeResult
	Head(ctx context.Context, rawURL string) fetch.ProbeResult
}

// Analyzer fetches single pages and turns them into scored PageMetadata records
type Analyzer struct {
	fetcher fetch.BodyFetcher
	prober  ResourceProber
	lang    *LanguageDetector
	cfg     *config.AppConfig
	log     *logrus.Entry
}

// NewAnalyzer creates an Analyzer
func NewAnalyzer(fetcher fetch.BodyFetcher, prober ResourceProber, cfg *config.AppConfig, log *logrus.Entry) *Analyzer {
	return &Analyzer{
		fetcher: fetcher,
		prober:  prober,
		lang:    NewLanguageDetector(cfg.Languages),
		cfg:     cfg,
		log:     log.WithField("component", "page_analyzer"),
	}
}

// Languages exposes the detector so callers can classify URLs the same way
func (a *Analyzer) Languages() *LanguageDetector { return a.lang }

// Analyze fetches pageURL and evaluates it. It never fails: an unfetchable or unparseable page
// yields an error-status record. hreflang is the sitemap's alternates for this URL and is copied.
func (a *Analyzer) Analyze(ctx context.Context, pageURL string, hreflang map[string]string) models.PageMetadata {
	pageLog := a.log.WithField("url", pageURL)
	start := time.Now()

	resp, err := a.fetcher.FetchBody(ctx, pageURL, a.cfg.PageTimeout)
	if err != nil {
		pageLog.Warnf("Page unreachable: %v", err)
		return a.ErrorRecord(pageURL, err)
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body), resp.Header.Get("Content-Type"))
	if err != nil {
		pageLog.Debugf("Charset detection failed, reading as UTF-8: %v", err)
		reader = bytes.NewReader(resp.Body)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		parseErr := fmt.Errorf("%w: HTML: %w", utils.ErrParsing, err)
		pageLog.Warnf("Unparseable page: %v", parseErr)
		rec := a.ErrorRecord(pageURL, parseErr)
		rec.StatusCode = resp.StatusCode
		return rec
	}

	base, _ := url.Parse(pageURL)

	meta := models.PageMetadata{
		URL:         pageURL,
		Status:      models.PageStatusSuccess,
		StatusCode:  resp.StatusCode,
		ContentHash: utils.ContentSHA256(resp.Body),
		AnalyzedAt:  time.Now().UTC(),
	}
	if len(hreflang) > 0 {
		meta.Hreflang = maps.Clone(hreflang)
	}

	signals := extractMetadata(doc, base, &meta)
	meta.Language = a.lang.Detect(signals.htmlLang, pageURL)
	meta.HasStructuredData, meta.StructuredDataValid = structuredData(doc)
	meta.DOMSize = signals.domSize
	meta.ExternalScripts = signals.externalScripts

	var issues []string
	if meta.OGImage != "" {
		meta.OGImageStatus = a.probeOGImage(ctx, meta.OGImage)
		if issue := ogImageIssue(meta.OGImageStatus, meta.OGImage); issue != "" {
			issues = append(issues, issue)
		}
	}
	meta.LargestImageBytes = a.largestImage(ctx, signals.imageURLs)

	issues = append(issues, evaluateRules(&meta, a.cfg.Rules)...)
	issues = append(issues, evaluateHeuristics(&meta, a.cfg.Rules)...)
	if issues == nil {
		issues = []string{}
	}
	meta.Issues = issues
	meta.Score = models.ScoreFor(len(issues))

	pageLog.WithFields(logrus.Fields{
		"score":    meta.Score,
		"issues":   len(issues),
		"language": meta.Language,
		"duration": time.Since(start),
	}).Debug("Page analyzed")
	return meta
}

// ErrorRecord builds the error-status record for a page that could not be analyzed
func (a *Analyzer) ErrorRecord(pageURL string, err error) models.PageMetadata {
	issues := []string{IssuePageUnreachable}
	return models.PageMetadata{
		URL:        pageURL,
		Language:   a.lang.FromURL(pageURL),
		Status:     models.PageStatusError,
		StatusCode: fetch.StatusCodeOf(err),
		ErrorType:  utils.CategorizeError(err),
		Error:      err.Error(),
		Issues:     issues,
		Score:      models.ScoreFor(len(issues)),
		AnalyzedAt: time.Now().UTC(),
	}
}

func (a *Analyzer) probeOGImage(ctx context.Context, imageURL string) models.OGImageStatus {
	if !a.cfg.Rules.OGImageCheckEnabled() || a.prober == nil {
		return models.OGImageUnknown
	}
	res := a.prober.CheckLiveness(ctx, imageURL)
	return models.ClassifyOGImage(res.StatusCode, res.Err == nil)
}

// largestImage HEADs the first ImageSampleSize images and returns the largest declared size. Failures are ignored.
func (a *Analyzer) largestImage(ctx context.Context, imageURLs []string) int64 {
	if a.prober == nil {
		return 0
	}
	var largest int64
	for i, imageURL := range imageURLs {
		if i >= a.cfg.Rules.ImageSampleSize {
			break
		}
		res := a.prober.Head(ctx, imageURL)
		if res.Err != nil || res.StatusCode < 200 || res.StatusCode >= 300 {
			continue
		}
		largest = max(largest, res.ContentLength)
	}
	return largest
}
