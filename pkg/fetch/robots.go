package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// RobotsCacheTTL is how long a parsed robots.txt is reused across runs
const RobotsCacheTTL = time.Hour

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// RobotsHandler fetches, parses and caches robots.txt per host.
// Only successful parses are cached; failed lookups are retried on the next call.
type RobotsHandler struct {
	fetcher     BodyFetcher
	timeout     time.Duration
	ttl         time.Duration
	robotsCache map[string]robotsEntry // host -> parsed data
	robotsMu    sync.Mutex
	now         func() time.Time
	log         *logrus.Entry
}

// NewRobotsHandler creates a RobotsHandler
func NewRobotsHandler(fetcher BodyFetcher, timeout time.Duration, log *logrus.Entry) *RobotsHandler {
	return &RobotsHandler{
		fetcher:     fetcher,
		timeout:     timeout,
		ttl:         RobotsCacheTTL,
		robotsCache: make(map[string]robotsEntry),
		now:         time.Now,
		log:         log,
	}
}

// GetRobotsData retrieves robots.txt data for the targetURL's host, using cache or fetching.
// Returns nil on any fetch or parse error.
func (rh *RobotsHandler) GetRobotsData(ctx context.Context, targetURL *url.URL) *robotstxt.RobotsData {
	host := targetURL.Host

	rh.robotsMu.Lock()
	entry, found := rh.robotsCache[host]
	if found && rh.now().Sub(entry.fetchedAt) >= rh.ttl {
		delete(rh.robotsCache, host)
		found = false
	}
	rh.robotsMu.Unlock()
	if found {
		return entry.data
	}

	robotsURL := &url.URL{Scheme: targetURL.Scheme, Host: host, Path: "/robots.txt"}
	if targetURL.Scheme != "http" && targetURL.Scheme != "https" {
		robotsURL.Scheme = "https"
	}
	robotsLog := rh.log.WithField("robots_url", robotsURL.String())
	robotsLog.Debug("Fetching robots.txt...")

	var data *robotstxt.RobotsData
	resp, err := rh.fetcher.FetchBody(ctx, robotsURL.String(), rh.timeout)
	if err != nil {
		robotsLog.Debugf("Fetching robots.txt failed: %v", err)
		return nil
	}
	if data, err = robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body); err != nil {
		robotsLog.Warnf("Error parsing robots.txt: %v", err)
		return nil
	}

	rh.robotsMu.Lock()
	rh.robotsCache[host] = robotsEntry{data: data, fetchedAt: rh.now()}
	rh.robotsMu.Unlock()
	return data
}

// Sitemaps returns the Sitemap directives declared in the robots.txt of targetURL's host
func (rh *RobotsHandler) Sitemaps(ctx context.Context, targetURL *url.URL) []string {
	data := rh.GetRobotsData(ctx, targetURL)
	if data == nil {
		return nil
	}
	if len(data.Sitemaps) > 0 {
		rh.log.WithField("host", targetURL.Host).Infof("Found %d sitemap directive(s) in robots.txt", len(data.Sitemaps))
	}
	return data.Sitemaps
}
