package pressfront

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// SiteConfig holds all configuration for a pressfront site.
type SiteConfig struct {
	APIBase     string `validate:"required,url"` // Content API root, e.g. https://example.com/wp-json/wp/v2
	Name        string // Site name (default "Blog")
	URL         string `validate:"omitempty,url"` // Canonical URL (default "http://localhost:3000")
	Description string // Index page description (default "Die neuesten Meldungen")
	Author      string // Author name for JSON-LD
	Locale      string `validate:"required"` // BCP 47 tag used for dates (default "de")

	Addr       string        `validate:"required"` // Listen address (default ":3000")
	APITimeout time.Duration `validate:"gte=0"`    // Upstream timeout, 0 disables it

	PostCacheTTL time.Duration `validate:"gte=0"` // Post list cache TTL, 0 disables the cache

	// MinifyHTML and Metrics are off in a zero SiteConfig passed to New;
	// LoadConfig turns both on unless MINIFY_HTML or METRICS_ENABLED say otherwise.
	MinifyHTML bool
	Metrics    bool

	AnalyticsEnabled      bool
	AnalyticsDatabasePath string // Analytics SQLite path (default "data/analytics.db")
	StatsToken            string // Bearer token for /stats/, empty disables the endpoint
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.Description == "" {
		c.Description = "Die neuesten Meldungen"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Locale == "" {
		c.Locale = "de"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
}

var validate = validator.New()

// Validate checks that required settings are present and well formed.
func (c SiteConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("pressfront: invalid config: %w", err)
	}
	return nil
}

// LoadConfig reads the site configuration from the environment and, when
// path is non-empty, from a config file. Environment variables win.
func LoadConfig(path string) (SiteConfig, error) {
	v := viper.New()

	v.SetDefault("wp_rest_base", "")
	v.SetDefault("site_name", "Blog")
	v.SetDefault("site_url", "http://localhost:3000")
	v.SetDefault("site_description", "Die neuesten Meldungen")
	v.SetDefault("site_author", "")
	v.SetDefault("site_locale", "de")
	v.SetDefault("addr", ":3000")
	v.SetDefault("api_timeout", "0s")
	v.SetDefault("post_cache_ttl", "0s")
	v.SetDefault("minify_html", true)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("analytics_enabled", false)
	v.SetDefault("analytics_database_path", "data/analytics.db")
	v.SetDefault("stats_token", "")

	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return SiteConfig{}, fmt.Errorf("pressfront: read config %s: %w", path, err)
		}
	}

	cfg := SiteConfig{
		APIBase:               v.GetString("wp_rest_base"),
		Name:                  v.GetString("site_name"),
		URL:                   v.GetString("site_url"),
		Description:           v.GetString("site_description"),
		Author:                v.GetString("site_author"),
		Locale:                v.GetString("site_locale"),
		Addr:                  v.GetString("addr"),
		APITimeout:            v.GetDuration("api_timeout"),
		PostCacheTTL:          v.GetDuration("post_cache_ttl"),
		MinifyHTML:            v.GetBool("minify_html"),
		Metrics:               v.GetBool("metrics_enabled"),
		AnalyticsEnabled:      v.GetBool("analytics_enabled"),
		AnalyticsDatabasePath: v.GetString("analytics_database_path"),
		StatsToken:            v.GetString("stats_token"),
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithUpstreamClient sets the http.Client used to reach the content API.
func WithUpstreamClient(hc *http.Client) Option {
	return func(a *App) {
		a.httpClient = hc
	}
}
