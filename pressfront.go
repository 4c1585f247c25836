// Package pressfront renders a blog from a headless WordPress-style REST API
// with Go, Echo, and templ. It provides the post list and post pages, RSS,
// sitemap, metrics, and optional page-view analytics.
//
// Users provide their own templ components via the ViewFuncs struct, and
// pressfront handles fetching, handler logic, and middleware.
package pressfront

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tdewolff/minify/v2"

	"github.com/eringen/pressfront/analytics"
)

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages.
type ViewFuncs struct {
	BlogIndex   func(posts []Post) templ.Component
	Post        func(post Post, image *Image) templ.Component
	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// App is the central pressfront application. It wires together the content
// client, cache, handlers, middleware, and user-provided templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Client  *Client
	Cache   *PostCache
	Views   ViewFuncs
	Metrics *Metrics

	registry       *prometheus.Registry
	minifier       *minify.M
	httpClient     *http.Client
	analyticsStore *analytics.Store
	stopCleanup    func()
	customRoutes   []func(*App)
	setupOnce      sync.Once
}

// New creates a new pressfront App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:     cfg,
		Echo:       echo.New(),
		Views:      views,
		registry:   newRegistry(),
		httpClient: &http.Client{Timeout: cfg.APITimeout},
	}

	for _, opt := range opts {
		opt(a)
	}

	a.Metrics = NewMetrics(a.registry)
	a.Client = NewClient(cfg.APIBase, WithHTTPClient(a.httpClient), WithMetrics(a.Metrics))
	a.Cache = NewPostCache(a.Client, cfg.PostCacheTTL, a.Metrics)
	if cfg.MinifyHTML {
		a.minifier = newMinifier()
	}

	return a
}

// Start validates the configuration, opens the analytics store if enabled,
// and starts the server.
func (a *App) Start() error {
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Config.AnalyticsEnabled {
		if err := a.OpenAnalytics(); err != nil {
			return err
		}
	}

	a.Handler()
	a.Echo.Logger.Infof("pressfront: serving %s from %s", a.Config.Addr, a.Config.APIBase)

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// OpenAnalytics opens the analytics store at Config.AnalyticsDatabasePath and
// starts its retention cleanup. Page views are recorded, and /stats/ is served
// when Config.StatsToken is set, by the Handler built after this call.
func (a *App) OpenAnalytics() error {
	if a.analyticsStore != nil {
		return nil
	}
	store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
	if err != nil {
		return fmt.Errorf("pressfront: init analytics: %w", err)
	}
	if err := analytics.InitSalt(store); err != nil {
		store.Close()
		return fmt.Errorf("pressfront: init analytics salt: %w", err)
	}
	a.analyticsStore = store
	a.stopCleanup = store.StartCleanupScheduler(365, 24*time.Hour)
	return nil
}

// Handler installs middleware and routes once and returns the Echo instance
// as an http.Handler.
func (a *App) Handler() http.Handler {
	a.setupOnce.Do(func() {
		a.setupMiddleware()
		a.setupRoutes()
		for _, fn := range a.customRoutes {
			fn(a)
		}
	})
	return a.Echo
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", handleHomeRedirect)
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/:slug/", a.handlePost)

	if a.Config.Metrics {
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: a.registry,
		}))
	}

	if a.analyticsStore != nil && a.Config.StatsToken != "" {
		analytics.NewHandler(a.analyticsStore).RegisterRoutes(e, a.Config.StatsToken)
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
		a.stopCleanup = nil
	}
	if a.analyticsStore != nil {
		return a.analyticsStore.Close()
	}
	return nil
}
