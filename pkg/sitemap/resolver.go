package sitemap

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/fetch"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/parse"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

var (
	// Strips a trailing sitemap file name (sitemap.xml, sitemap_index.xml, sitemap-3.xml, ...) to leave the probe base
	sitemapNameRe = regexp.MustCompile(`sitemap[_-]?(?:index)?(?:-?\d+)?\.xml$`)
	// Captures the number of a numbered sitemap (sitemap-3.xml, sitemap_3.xml, sitemap3.xml)
	sitemapNumberRe = regexp.MustCompile(`sitemap[_-]?(\d+)\.xml$`)
)

// Result is the flattened outcome of resolving a start sitemap
type Result struct {
	URLs        []string                     // Unique page URLs in first-seen order
	Hreflang    map[string]map[string]string // page URL -> language -> alternate URL
	Diagnostics models.SitemapDiagnostics
}

// Resolver expands a start sitemap into the full set of page URLs
type Resolver struct {
	fetcher fetch.BodyFetcher
	robots  *fetch.RobotsHandler // Optional; nil disables robots.txt discovery
	exclude utils.Patterns
	cfg     *config.AppConfig
	log     *logrus.Entry
}

// NewResolver creates a Resolver. Exclude patterns from cfg are compiled here.
func NewResolver(fetcher fetch.BodyFetcher, robots *fetch.RobotsHandler, cfg *config.AppConfig, log *logrus.Entry) (*Resolver, error) {
	exclude, err := utils.CompilePatterns("sitemap.exclude_patterns", cfg.Sitemap.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	if !cfg.Sitemap.DiscoverFromRobotsEnabled() {
		robots = nil
	}
	return &Resolver{
		fetcher: fetcher,
		robots:  robots,
		exclude: exclude,
		cfg:     cfg,
		log:     log.WithField("component", "sitemap_resolver"),
	}, nil
}

// resolution is the state of a single Resolve call
type resolution struct {
	visited  map[string]bool
	raw      []string
	hreflang map[string]map[string]string
	diag     models.SitemapDiagnostics
	log      *logrus.Entry
}

// Resolve fetches startURL and follows index documents, fallback index names, robots.txt
// directives and (when checkMultiple is set) numbered siblings. Only a failure to fetch or
// parse the start document is returned as an error; every optional probe failure is swallowed.
func (r *Resolver) Resolve(ctx context.Context, startURL string, checkMultiple bool) (*Result, error) {
	start, err := parse.ParseAbsolute(startURL)
	if err != nil {
		return &Result{Hreflang: map[string]map[string]string{}}, err
	}
	startURL = start.String()

	res := &resolution{
		visited:  map[string]bool{startURL: true},
		hreflang: make(map[string]map[string]string),
		log:      r.log.WithField("start_url", startURL),
	}

	doc, err := r.fetchDocument(ctx, res, startURL)
	if err != nil {
		res.log.Errorf("Start sitemap unavailable: %v", err)
		res.diag.Messages = append(res.diag.Messages, "start sitemap could not be fetched: "+err.Error())
		return r.finish(res), fmt.Errorf("%w: %s: %w", utils.ErrSitemapUnavailable, startURL, err)
	}

	switch doc.Kind {
	case parse.KindIndex:
		res.diag.StartIsIndex = true
		res.diag.ChildSitemaps = len(doc.Sitemaps)
		res.log.Infof("Start sitemap is an index with %d child sitemaps", len(doc.Sitemaps))
		r.expandChildren(ctx, res, doc, 0)
	case parse.KindURLSet:
		r.record(res, doc)
	default:
		res.log.Warn("Start document is neither a sitemap index nor a urlset")
	}

	if !res.diag.StartIsIndex && len(res.raw) == 0 {
		r.probeIndexCandidates(ctx, res, startURL)
	}

	if len(res.raw) == 0 && r.robots != nil {
		r.discoverFromRobots(ctx, res, start)
	}

	if checkMultiple && len(res.raw) > 0 {
		r.probeNumbered(ctx, res, startURL)
	}

	return r.finish(res), nil
}

// fetchDocument fetches and decodes one sitemap document
func (r *Resolver) fetchDocument(ctx context.Context, res *resolution, loc string) (*parse.SitemapDocument, error) {
	resp, err := r.fetcher.FetchBody(ctx, loc, r.cfg.SitemapTimeout)
	if err != nil {
		return nil, err
	}
	res.diag.SitemapsFetched = append(res.diag.SitemapsFetched, loc)
	return parse.ParseSitemap(resp.Body)
}

// expand fetches loc and records everything reachable from it. Returns the number of page URLs added.
func (r *Resolver) expand(ctx context.Context, res *resolution, loc string, depth int) int {
	doc, err := r.fetchDocument(ctx, res, loc)
	if err != nil {
		res.log.WithField("sitemap_url", loc).Warnf("Skipping sitemap: %v", err)
		return 0
	}
	switch doc.Kind {
	case parse.KindIndex:
		return r.expandChildren(ctx, res, doc, depth)
	case parse.KindURLSet:
		return r.record(res, doc)
	}
	return 0
}

func (r *Resolver) expandChildren(ctx context.Context, res *resolution, doc *parse.SitemapDocument, depth int) int {
	added := 0
	for _, child := range doc.Sitemaps {
		if res.visited[child] {
			res.log.WithField("sitemap_url", child).Debug("Sitemap already visited, skipping")
			continue
		}
		res.visited[child] = true
		if depth+1 > r.cfg.Sitemap.MaxIndexDepth {
			res.diag.Messages = append(res.diag.Messages, "index depth limit reached at "+child)
			continue
		}
		added += r.expand(ctx, res, child, depth+1)
	}
	return added
}

// record appends the page URLs of a urlset and merges their hreflang alternates
func (r *Resolver) record(res *resolution, doc *parse.SitemapDocument) int {
	added := 0
	for _, u := range doc.URLs {
		if r.isExcluded(u.Loc) {
			continue
		}
		res.raw = append(res.raw, u.Loc)
		added++
		alts := u.Alternates()
		if len(alts) == 0 {
			continue
		}
		existing := res.hreflang[u.Loc]
		if existing == nil {
			existing = make(map[string]string, len(alts))
			res.hreflang[u.Loc] = existing
		}
		for lang, href := range alts {
			existing[lang] = href
		}
	}
	return added
}

func (r *Resolver) isExcluded(loc string) bool {
	return r.exclude.MatchAny(loc)
}

// probeIndexCandidates tries conventional index names next to the start document and expands the first index found
func (r *Resolver) probeIndexCandidates(ctx context.Context, res *resolution, startURL string) {
	base := sitemapNameRe.ReplaceAllString(startURL, "")
	for _, name := range r.cfg.Sitemap.IndexCandidates {
		candidate := base + name
		if res.visited[candidate] {
			continue
		}
		res.visited[candidate] = true
		res.diag.ProbesAttempted++

		doc, err := r.fetchDocument(ctx, res, candidate)
		if err != nil {
			res.log.WithField("sitemap_url", candidate).Debugf("Index probe failed: %v", err)
			continue
		}
		if doc.Kind != parse.KindIndex {
			continue
		}
		res.log.WithField("sitemap_url", candidate).Infof("Found sitemap index with %d child sitemaps", len(doc.Sitemaps))
		res.diag.Messages = append(res.diag.Messages, "found sitemap index at "+candidate)
		r.expandChildren(ctx, res, doc, 0)
		return
	}
}

// discoverFromRobots expands Sitemap directives from the start host's robots.txt
func (r *Resolver) discoverFromRobots(ctx context.Context, res *resolution, start *url.URL) {
	for _, loc := range r.robots.Sitemaps(ctx, start) {
		if res.visited[loc] {
			continue
		}
		res.visited[loc] = true
		res.diag.ProbesAttempted++
		if added := r.expand(ctx, res, loc, 0); added > 0 {
			res.diag.Messages = append(res.diag.Messages, fmt.Sprintf("robots.txt sitemap %s contributed %d URLs", loc, added))
		}
	}
}

// probeNumbered tries numbered siblings of the start document. For each number the first
// naming pattern that yields URLs wins; the whole window is always attempted.
func (r *Resolver) probeNumbered(ctx context.Context, res *resolution, startURL string) {
	base := sitemapNameRe.ReplaceAllString(startURL, "")
	current := 0
	if m := sitemapNumberRe.FindStringSubmatch(startURL); m != nil {
		current, _ = strconv.Atoi(m[1])
	}

	for i := current + 1; i <= current+r.cfg.Sitemap.NumberedWindow; i++ {
		for _, pattern := range []string{"sitemap-%d.xml", "sitemap_%d.xml", "sitemap%d.xml"} {
			candidate := base + fmt.Sprintf(pattern, i)
			if res.visited[candidate] {
				continue
			}
			res.visited[candidate] = true
			res.diag.ProbesAttempted++

			if added := r.expand(ctx, res, candidate, 0); added > 0 {
				res.log.WithField("sitemap_url", candidate).Infof("Numbered sitemap contributed %d URLs", added)
				break
			}
		}
	}
}

// finish deduplicates the collected URLs and fills the counts
func (r *Resolver) finish(res *resolution) *Result {
	seen := make(map[string]bool, len(res.raw))
	unique := make([]string, 0, len(res.raw))
	for _, u := range res.raw {
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	res.diag.RawURLCount = len(res.raw)
	res.diag.UniqueURLCount = len(unique)
	if len(res.raw) != len(unique) {
		res.diag.Messages = append(res.diag.Messages,
			fmt.Sprintf("removed %d duplicate URLs (%d -> %d)", len(res.raw)-len(unique), len(res.raw), len(unique)))
	}
	res.log.WithFields(logrus.Fields{
		"raw_urls":         len(res.raw),
		"unique_urls":      len(unique),
		"sitemaps_fetched": len(res.diag.SitemapsFetched),
	}).Info("Sitemap resolution finished")

	return &Result{URLs: unique, Hreflang: res.hreflang, Diagnostics: res.diag}
}
