package config

import (
	"os"
	"strconv"
)

// ApplyEnv overrides selected settings from environment variables.
// Returns warnings for values that could not be parsed.
func (c *AppConfig) ApplyEnv() (warnings []string) {
	if v := os.Getenv("SEO_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("SEO_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			warnings = append(warnings, "SEO_CONCURRENCY is not an integer, ignoring")
		} else {
			c.Concurrency = n
		}
	}
	if v := os.Getenv("SEO_REPORTS_DIR"); v != "" {
		c.Reports.Dir = v
	}
	if v := os.Getenv("SEO_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("SEO_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("SEO_LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.Server.GinMode = v
	}
	return warnings
}
