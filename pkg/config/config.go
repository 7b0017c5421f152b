package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent          string           `yaml:"user_agent"`
	Concurrency        int              `yaml:"concurrency"`
	MaxAttempts        int              `yaml:"max_attempts"`
	RetryBackoffStep   time.Duration    `yaml:"retry_backoff_step"` // Linear: step * attempt
	PageTimeout        time.Duration    `yaml:"page_timeout"`
	SitemapTimeout     time.Duration    `yaml:"sitemap_timeout"`
	ProbeTimeout       time.Duration    `yaml:"probe_timeout"`     // HEAD probes (OG image, image sizes)
	ProbeGetTimeout    time.Duration    `yaml:"probe_get_timeout"` // GET fallback for OG image
	MaxBodyBytes       int64            `yaml:"max_body_bytes,omitempty"`
	DelayPerHost       time.Duration    `yaml:"delay_per_host,omitempty"` // 0 disables politeness delay
	Sitemap            SitemapConfig    `yaml:"sitemap"`
	Rules              RuleConfig       `yaml:"rules"`
	Languages          LanguageConfig   `yaml:"languages"`
	Reports            ReportConfig     `yaml:"reports"`
	Store              StoreConfig      `yaml:"store"`
	Server             ServerConfig     `yaml:"server"`
	Watch              WatchConfig      `yaml:"watch,omitempty"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// SitemapConfig controls sitemap resolution and probing
type SitemapConfig struct {
	IndexCandidates    []string `yaml:"index_candidates,omitempty"`
	NumberedWindow     int      `yaml:"numbered_window,omitempty"`
	MaxIndexDepth      int      `yaml:"max_index_depth,omitempty"`
	DiscoverFromRobots *bool    `yaml:"discover_from_robots,omitempty"`
	ExcludePatterns    []string `yaml:"exclude_patterns,omitempty"` // Regex patterns for page URLs to drop
}

// RuleConfig holds the thresholds used by the page rules
type RuleConfig struct {
	TitleMinLength       int   `yaml:"title_min_length"`
	TitleMaxLength       int   `yaml:"title_max_length"`
	DescriptionMinLength int   `yaml:"description_min_length"`
	DescriptionMaxLength int   `yaml:"description_max_length"`
	MaxDOMElements       int   `yaml:"max_dom_elements"`
	MaxExternalScripts   int   `yaml:"max_external_scripts"`
	ImageSampleSize      int   `yaml:"image_sample_size"`
	MaxImageBytes        int64 `yaml:"max_image_bytes"`
	CheckOGImage         *bool `yaml:"check_og_image,omitempty"`
}

// LanguageConfig drives language detection and the translation heuristic
type LanguageConfig struct {
	Default              string   `yaml:"default"`
	URLPatterns          []string `yaml:"url_patterns,omitempty"` // Checked in order as /xx/ or trailing /xx
	Secondary            []string `yaml:"secondary,omitempty"`
	TranslationHeuristic *bool    `yaml:"translation_heuristic,omitempty"`
}

// ReportConfig controls where rendered reports are written
type ReportConfig struct {
	Dir string `yaml:"dir"`
}

// StoreConfig selects the optional persistence backend
type StoreConfig struct {
	Driver   string `yaml:"driver"` // "", "badger" or "postgres"
	StateDir string `yaml:"state_dir,omitempty"`
	DSN      string `yaml:"dsn,omitempty"`
}

// ServerConfig holds the HTTP surface settings
type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit,omitempty"` // Requests per second per client IP
	RateBurst int     `yaml:"rate_burst,omitempty"`
	GinMode   string  `yaml:"gin_mode,omitempty"`

	RunRetention    time.Duration `yaml:"run_retention,omitempty"`     // Finished runs are dropped from memory after this
	MaxFinishedRuns int           `yaml:"max_finished_runs,omitempty"` // Oldest finished runs beyond this are dropped
}

// WatchConfig lists sitemaps re-audited on a schedule
type WatchConfig struct {
	Interval string        `yaml:"interval,omitempty"` // e.g. 30m, 24h, 7d
	StateDir string        `yaml:"state_dir,omitempty"`
	Targets  []WatchTarget `yaml:"targets,omitempty"`
}

// WatchTarget is one scheduled audit
type WatchTarget struct {
	SitemapURL            string `yaml:"sitemap_url"`
	CheckMultipleSitemaps bool   `yaml:"check_multiple_sitemaps,omitempty"`
	DetectLanguages       bool   `yaml:"detect_languages,omitempty"`
	DetectDuplicates      bool   `yaml:"detect_duplicates,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"` // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`
}

// Load reads a YAML config file. Defaults are not applied; call Validate.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config %s: %w", utils.ErrFilesystem, path, err)
	}
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config YAML %s: %w", utils.ErrConfigValidation, path, err)
	}
	return cfg, nil
}

// Default returns a validated config populated entirely with defaults.
func Default() *AppConfig {
	cfg := &AppConfig{}
	_, _ = cfg.Validate()
	return cfg
}

// DiscoverFromRobotsEnabled reports whether robots.txt Sitemap directives are consulted
func (c *SitemapConfig) DiscoverFromRobotsEnabled() bool {
	return c.DiscoverFromRobots == nil || *c.DiscoverFromRobots
}

// OGImageCheckEnabled reports whether OG image liveness is probed
func (c *RuleConfig) OGImageCheckEnabled() bool {
	return c.CheckOGImage == nil || *c.CheckOGImage
}

// HeuristicEnabled reports whether pages without hreflang get the path-based translation check
func (c *LanguageConfig) HeuristicEnabled() bool {
	return c.TranslationHeuristic == nil || *c.TranslationHeuristic
}
