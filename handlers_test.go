package pressfront_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pressfront"
	"github.com/eringen/pressfront/analytics"
	"github.com/eringen/pressfront/views"
)

// fakeAPI serves a small content API. Media 7 exists, media 8 is gone and
// media 9 fails.
type fakeAPI struct {
	*httptest.Server
	mediaHits atomic.Int32
}

var fakePosts = map[string]string{
	"hello-world": `{"id":1,"date":"2024-03-05T10:00:00","slug":"hello-world","title":{"rendered":"Hello World"},
		"excerpt":{"rendered":"<p>First post.</p>"},"content":{"rendered":"<p>Welcome!</p>"},"featured_media":0}`,
	"with-image": `{"id":2,"date":"2024-02-01T08:30:00","slug":"with-image","title":{"rendered":"Caf&eacute; &amp; Co"},
		"excerpt":{"rendered":"<p>Second.</p>"},"content":{"rendered":"<p>Body</p>"},"featured_media":7}`,
	"gone-image": `{"id":3,"date":"2024-01-10T08:00:00","slug":"gone-image","title":{"rendered":"Gone"},
		"excerpt":{"rendered":""},"content":{"rendered":"<p>Still here</p>"},"featured_media":8}`,
	"form-post": `{"id":5,"date":"2024-01-01T08:00:00","slug":"form-post","title":{"rendered":"Form"},
		"excerpt":{"rendered":""},"content":{"rendered":"<p><input type=\"text\" disabled=\"disabled\">  two  spaces </p>"},"featured_media":0}`,
	"broken-image": `{"id":4,"date":"2024-01-01T08:00:00","slug":"broken-image","title":{"rendered":"Broken"},
		"excerpt":{"rendered":""},"content":{"rendered":""},"featured_media":9}`,
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/posts" && r.URL.Query().Has("slug"):
			if p, ok := fakePosts[r.URL.Query().Get("slug")]; ok {
				w.Write([]byte("[" + p + "]"))
				return
			}
			w.Write([]byte("[]"))
		case r.URL.Path == "/posts":
			w.Write([]byte("[" + fakePosts["hello-world"] + "," + fakePosts["with-image"] + "]"))
		case strings.HasPrefix(r.URL.Path, "/media/"):
			api.mediaHits.Add(1)
			switch r.URL.Path {
			case "/media/7":
				w.Write([]byte(`{"id":7,"guid":{"rendered":"https://cdn.example.com/cafe.jpg"},"alt_text":"A cafe",
					"media_details":{"width":1200,"height":800}}`))
			case "/media/8":
				w.WriteHeader(http.StatusNotFound)
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(api.Close)
	return api
}

func newTestApp(t *testing.T, api *fakeAPI, minify bool) *pressfront.App {
	t.Helper()
	cfg := pressfront.SiteConfig{
		APIBase:    api.URL,
		URL:        "https://blog.example.com",
		Name:       "Blog",
		Locale:     "de",
		MinifyHTML: minify,
		Metrics:    true,
	}
	return pressfront.New(cfg, views.New(cfg))
}

func get(t *testing.T, app *pressfront.App, target string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, app, httptest.NewRequest(http.MethodGet, target, nil))
}

func do(t *testing.T, app *pressfront.App, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPostPage(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	rec := get(t, app, "/blog/hello-world/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, body, "<title>Hello World</title>")
	assert.Contains(t, body, "<h1>Hello World</h1>")
	assert.Contains(t, body, `<div class="post-content"><p>Welcome!</p></div>`)
	assert.Contains(t, body, `<time datetime="2024-03-05">5.3.2024</time>`)
	assert.Contains(t, body, `<link rel="canonical" href="https://blog.example.com/blog/hello-world/">`)
	assert.NotContains(t, body, "<img")
	assert.Equal(t, int32(0), api.mediaHits.Load())
}

func TestPostPageWithImage(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	rec := get(t, app, "/blog/with-image/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "<title>Café &amp; Co</title>")
	assert.Contains(t, body, `src="https://cdn.example.com/cafe.jpg"`)
	assert.Contains(t, body, `alt="A cafe"`)
	assert.Contains(t, body, `width="1200" height="800"`)
	assert.Equal(t, int32(1), api.mediaHits.Load())
}

func TestPostPageMissingImage(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	rec := get(t, app, "/blog/gone-image/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>Still here</p>")
	assert.NotContains(t, rec.Body.String(), "<img")
}

func TestPostPageImageFailure(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	rec := get(t, app, "/blog/broken-image/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestPostPageUnknownSlug(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	rec := get(t, app, "/blog/does-not-exist/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "This page could not be found.")
	assert.Equal(t, int32(0), api.mediaHits.Load())
}

func TestUpstreamDownRendersErrorPage(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)
	api.Close()

	rec := get(t, app, "/blog/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestBlogIndex(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	rec := get(t, app, "/blog/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "<title>Blog</title>")
	assert.Contains(t, body, `<div class="blog"><h1>Blog</h1>`)
	assert.Contains(t, body, `<a href="/blog/hello-world/">Hello World</a>`)
	assert.Contains(t, body, `<a href="/blog/with-image/">Café &amp; Co</a>`)
	assert.Contains(t, body, `<div class="teaser-excerpt"><p>First post.</p></div>`)
	assert.Less(t, strings.Index(body, "hello-world"), strings.Index(body, "with-image"))
	assert.Equal(t, int32(0), api.mediaHits.Load())
}

func TestRedirects(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	tests := []struct {
		target   string
		location string
	}{
		{"/", "/blog/"},
		{"/blog", "/blog/"},
		{"/blog/hello-world", "/blog/hello-world/"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, app, tt.target)
			assert.Equal(t, http.StatusMovedPermanently, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	rec := get(t, app, "/nope/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "This page could not be found.")
}

func TestFeedAndSitemap(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	rec := get(t, app, "/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/rss+xml")
	assert.Contains(t, rec.Body.String(), "<link>https://blog.example.com/blog/hello-world/</link>")
	assert.Contains(t, rec.Body.String(), "<title>Café &amp; Co</title>")
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))

	rec = get(t, app, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<loc>https://blog.example.com/blog/</loc>")
	assert.Contains(t, body, "<loc>https://blog.example.com/blog/with-image/</loc>")
	assert.Contains(t, body, "<lastmod>2024-02-01</lastmod>")

	rec = get(t, app, "/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://blog.example.com/sitemap.xml")
}

func TestMetricsEndpoint(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, false)

	require.Equal(t, http.StatusOK, get(t, app, "/blog/").Code)

	rec := get(t, app, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pressfront_upstream_requests_total{code="200",endpoint="posts"} 1`)
	assert.Contains(t, body, "pressfront_requests_total")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestMinifiedOutput(t *testing.T) {
	api := newFakeAPI(t)
	app := newTestApp(t, api, true)

	rec := get(t, app, "/blog/form-post/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Form</h1>")
	assert.Contains(t, body, "</html>")
	assert.Contains(t, body, `<div class="post-content"><p><input type="text" disabled="disabled">  two  spaces </p></div>`)
	assert.NotContains(t, body, "pressfront:verbatim")

	rec = get(t, app, "/blog/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div class="teaser-excerpt"><p>First post.</p></div>`)
}

func TestZeroConfigDefaults(t *testing.T) {
	api := newFakeAPI(t)
	app := pressfront.New(pressfront.SiteConfig{APIBase: api.URL}, pressfront.ViewFuncs{})

	assert.Equal(t, "Blog", app.Config.Name)
	assert.Equal(t, "Die neuesten Meldungen", app.Config.Description)
	assert.Equal(t, "de", app.Config.Locale)
	assert.False(t, app.Config.MinifyHTML)
	assert.False(t, app.Config.Metrics)
}

func TestAnalyticsWiring(t *testing.T) {
	api := newFakeAPI(t)
	cfg := pressfront.SiteConfig{
		APIBase:               api.URL,
		Name:                  "Blog",
		Locale:                "de",
		AnalyticsEnabled:      true,
		AnalyticsDatabasePath: filepath.Join(t.TempDir(), "analytics.db"),
		StatsToken:            "s3cret",
	}
	app := pressfront.New(cfg, views.New(cfg))
	require.NoError(t, app.OpenAnalytics())
	t.Cleanup(func() { app.Close() })

	req := httptest.NewRequest(http.MethodGet, "/blog/hello-world/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	require.Equal(t, http.StatusOK, do(t, app, req).Code)

	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/stats/").Code)

	req = httptest.NewRequest(http.MethodGet, "/stats/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer s3cret")
	rec := do(t, app, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp analytics.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 1, resp.Stats.TotalViews)
	assert.Equal(t, []analytics.PageStat{{Path: "/blog/hello-world/", Views: 1}}, resp.Stats.TopPages)
}

func TestStatsRouteNeedsToken(t *testing.T) {
	api := newFakeAPI(t)
	cfg := pressfront.SiteConfig{
		APIBase:               api.URL,
		AnalyticsEnabled:      true,
		AnalyticsDatabasePath: filepath.Join(t.TempDir(), "analytics.db"),
	}
	app := pressfront.New(cfg, views.New(cfg))
	require.NoError(t, app.OpenAnalytics())
	t.Cleanup(func() { app.Close() })

	assert.Equal(t, http.StatusNotFound, get(t, app, "/stats/").Code)
}

func TestCustomRoutes(t *testing.T) {
	api := newFakeAPI(t)
	cfg := pressfront.SiteConfig{APIBase: api.URL}
	app := pressfront.New(cfg, views.New(cfg), pressfront.WithCustomRoutes(func(a *pressfront.App) {
		a.Echo.GET("/about/", func(c echo.Context) error {
			return c.String(http.StatusOK, "about "+a.Config.Name)
		})
	}))

	rec := get(t, app, "/about/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "about Blog", rec.Body.String())
}
