package fetch

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
)

// ProbeResult is the outcome of a lightweight resource check
type ProbeResult struct {
	StatusCode    int
	ContentLength int64 // -1 when the server did not report it
	Err           error // Set when no HTTP response was obtained
}

// Prober performs single-attempt HEAD/GET checks on linked resources such as OG images
type Prober struct {
	client     *http.Client // Follows redirects
	noRedirect *http.Client // Surfaces 3xx
	limiter    *HostLimiter
	cfg        *config.AppConfig
	log        *logrus.Entry
}

// NewProber creates a Prober sharing the transport of client
func NewProber(client *http.Client, cfg *config.AppConfig, limiter *HostLimiter, log *logrus.Entry) *Prober {
	return &Prober{
		client:     client,
		noRedirect: withoutRedirects(client),
		limiter:    limiter,
		cfg:        cfg,
		log:        log,
	}
}

// CheckLiveness issues a HEAD for rawURL without following redirects.
// Servers answering 405 or 403 to HEAD get a streamed GET instead, whose body is never read.
func (p *Prober) CheckLiveness(ctx context.Context, rawURL string) ProbeResult {
	res := p.do(ctx, p.noRedirect, http.MethodHead, rawURL, p.cfg.ProbeTimeout)
	if res.Err == nil && (res.StatusCode == http.StatusMethodNotAllowed || res.StatusCode == http.StatusForbidden) {
		p.log.WithFields(logrus.Fields{"url": rawURL, "status_code": res.StatusCode}).Debug("HEAD rejected, falling back to GET")
		res = p.do(ctx, p.noRedirect, http.MethodGet, rawURL, p.cfg.ProbeGetTimeout)
	}
	return res
}

// Head issues a HEAD for rawURL, following redirects, and reports the declared Content-Length
func (p *Prober) Head(ctx context.Context, rawURL string) ProbeResult {
	return p.do(ctx, p.client, http.MethodHead, rawURL, p.cfg.ProbeTimeout)
}

func (p *Prober) do(ctx context.Context, client *http.Client, method, rawURL string, timeout time.Duration) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return ProbeResult{ContentLength: -1, Err: err}
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	if err := p.limiter.Wait(ctx, req.URL.Hostname()); err != nil {
		return ProbeResult{ContentLength: -1, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		p.log.WithFields(logrus.Fields{"url": rawURL, "method": method}).Debugf("Probe failed: %v", err)
		return ProbeResult{ContentLength: -1, Err: err}
	}
	// Body deliberately left unread: only status and headers matter
	resp.Body.Close()

	length := int64(-1)
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			length = n
		}
	}
	return ProbeResult{StatusCode: resp.StatusCode, ContentLength: length}
}
