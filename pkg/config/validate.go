package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// DefaultIndexCandidates are the conventional sitemap index names probed when the start document yields nothing
var DefaultIndexCandidates = []string{"sitemap_index.xml", "sitemap-index.xml", "sitemap.xml", "sitemapindex.xml"}

// DefaultURLLanguages are the language codes recognised as URL path segments
var DefaultURLLanguages = []string{"en", "pl", "de", "fr", "es"}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 SEO Analyzer Bot"
	}

	// Concurrency
	if c.Concurrency < 0 {
		warnings = append(warnings, "concurrency should be > 0, defaulting to 5")
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}

	// MaxAttempts
	if c.MaxAttempts < 0 {
		warnings = append(warnings, "max_attempts cannot be negative, defaulting to 3")
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoffStep < 0 {
		warnings = append(warnings, "retry_backoff_step cannot be negative, defaulting to 1.5s")
		c.RetryBackoffStep = 0
	}
	if c.RetryBackoffStep == 0 {
		c.RetryBackoffStep = 1500 * time.Millisecond
	}

	// Timeouts
	if c.PageTimeout <= 0 {
		c.PageTimeout = 10 * time.Second
	}
	if c.SitemapTimeout <= 0 {
		c.SitemapTimeout = 15 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.ProbeGetTimeout <= 0 {
		c.ProbeGetTimeout = 7 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}
	if c.DelayPerHost < 0 {
		warnings = append(warnings, "delay_per_host cannot be negative, disabling politeness delay")
		c.DelayPerHost = 0
	}

	warnings = append(warnings, c.Sitemap.validate()...)
	warnings = append(warnings, c.Rules.validate()...)
	warnings = append(warnings, c.Languages.validate()...)

	if c.Reports.Dir == "" {
		warnings = append(warnings, "reports.dir is empty, defaulting to './reports'")
		c.Reports.Dir = "./reports"
	}

	if err := c.Store.validate(); err != nil {
		return warnings, err
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 2
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 5
	}
	if c.Server.RunRetention <= 0 {
		c.Server.RunRetention = time.Hour
	}
	if c.Server.MaxFinishedRuns <= 0 {
		c.Server.MaxFinishedRuns = 200
	}

	if c.Watch.Interval == "" {
		c.Watch.Interval = "24h"
	}
	if c.Watch.StateDir == "" {
		c.Watch.StateDir = "./auditor_state"
	}
	for i, target := range c.Watch.Targets {
		if strings.TrimSpace(target.SitemapURL) == "" {
			return warnings, fmt.Errorf("%w: watch.targets[%d] has no sitemap_url", utils.ErrConfigValidation, i)
		}
	}

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	return warnings, nil
}

func (s *SitemapConfig) validate() (warnings []string) {
	if len(s.IndexCandidates) == 0 {
		s.IndexCandidates = append([]string(nil), DefaultIndexCandidates...)
	}
	if s.NumberedWindow < 0 {
		warnings = append(warnings, "sitemap.numbered_window cannot be negative, defaulting to 10")
	}
	if s.NumberedWindow <= 0 {
		s.NumberedWindow = 10
	}
	if s.MaxIndexDepth < 0 {
		warnings = append(warnings, "sitemap.max_index_depth cannot be negative, defaulting to 5")
	}
	if s.MaxIndexDepth <= 0 {
		s.MaxIndexDepth = 5
	}
	return warnings
}

func (r *RuleConfig) validate() (warnings []string) {
	if r.TitleMinLength <= 0 {
		r.TitleMinLength = 30
	}
	if r.TitleMaxLength <= 0 {
		r.TitleMaxLength = 60
	}
	if r.TitleMinLength > r.TitleMaxLength {
		warnings = append(warnings, fmt.Sprintf(
			"rules.title_min_length (%d) > title_max_length (%d), resetting to 30..60",
			r.TitleMinLength, r.TitleMaxLength))
		r.TitleMinLength, r.TitleMaxLength = 30, 60
	}
	if r.DescriptionMinLength <= 0 {
		r.DescriptionMinLength = 120
	}
	if r.DescriptionMaxLength <= 0 {
		r.DescriptionMaxLength = 160
	}
	if r.DescriptionMinLength > r.DescriptionMaxLength {
		warnings = append(warnings, fmt.Sprintf(
			"rules.description_min_length (%d) > description_max_length (%d), resetting to 120..160",
			r.DescriptionMinLength, r.DescriptionMaxLength))
		r.DescriptionMinLength, r.DescriptionMaxLength = 120, 160
	}
	if r.MaxDOMElements <= 0 {
		r.MaxDOMElements = 1500
	}
	if r.MaxExternalScripts <= 0 {
		r.MaxExternalScripts = 20
	}
	if r.ImageSampleSize <= 0 {
		r.ImageSampleSize = 3
	}
	if r.MaxImageBytes <= 0 {
		r.MaxImageBytes = 1_000_000
	}
	return warnings
}

func (l *LanguageConfig) validate() (warnings []string) {
	l.Default = strings.ToLower(strings.TrimSpace(l.Default))
	if l.Default == "" {
		warnings = append(warnings, "languages.default is empty, defaulting to 'pl'")
		l.Default = "pl"
	}
	if len(l.URLPatterns) == 0 {
		l.URLPatterns = append([]string(nil), DefaultURLLanguages...)
	}
	if len(l.Secondary) == 0 {
		l.Secondary = []string{"en"}
	}
	for i, code := range l.Secondary {
		l.Secondary[i] = strings.ToLower(strings.TrimSpace(code))
	}
	return warnings
}

func (s *StoreConfig) validate() error {
	switch s.Driver {
	case "":
	case "badger":
		if s.StateDir == "" {
			s.StateDir = "./auditor_state"
		}
	case "postgres":
		if s.DSN == "" {
			return fmt.Errorf("%w: store.driver 'postgres' needs store.dsn", utils.ErrConfigValidation)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", utils.ErrConfigValidation, s.Driver)
	}
	return nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 10
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
