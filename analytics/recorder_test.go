package analytics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordingServer(t *testing.T) (*echo.Echo, *Store) {
	t.Helper()
	s := newTestStore(t)
	require.NoError(t, InitSalt(s))

	e := echo.New()
	e.Use(NewRecorder(s).Middleware(func(c echo.Context) bool {
		return c.Request().URL.Path == "/feed.xml"
	}))
	e.GET("/blog/:slug/", func(c echo.Context) error {
		if c.Param("slug") == "missing" {
			return echo.ErrNotFound
		}
		return c.String(http.StatusOK, "post")
	})
	e.GET("/moved/", func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, "/blog/")
	})
	e.GET("/feed.xml", func(c echo.Context) error {
		return c.String(http.StatusOK, "feed")
	})
	return e, s
}

func doRequest(e *echo.Echo, method, target string, header http.Header) {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	e.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRecorderMiddleware(t *testing.T) {
	e, s := newRecordingServer(t)
	browser := http.Header{"User-Agent": {uaChromeMac}, "Referer": {"https://www.google.com/"}}

	doRequest(e, http.MethodGet, "/blog/hello/", browser)
	doRequest(e, http.MethodGet, "/blog/missing/", browser)
	doRequest(e, http.MethodGet, "/blog/hello/", http.Header{"User-Agent": {uaGooglebot}})

	// Not recorded.
	doRequest(e, http.MethodHead, "/blog/hello/", browser)
	doRequest(e, http.MethodGet, "/moved/", browser)
	doRequest(e, http.MethodGet, "/feed.xml", browser)
	doRequest(e, http.MethodGet, "/blog/hello/", http.Header{"User-Agent": {uaChromeMac}, "Dnt": {"1"}})

	now := time.Now().UTC()
	stats, err := s.GetStats(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalViews)
	assert.Equal(t, 1, stats.NotFoundViews)
	assert.Equal(t, 1, stats.BotVisits)
	assert.Equal(t, []PageStat{{Path: "/blog/hello/", Views: 1}}, stats.TopPages)
	assert.Equal(t, []DimensionStat{{Name: "Google", Count: 1}}, stats.ReferrerStats)
	assert.Equal(t, []DimensionStat{{Name: "Chrome", Count: 1}}, stats.BrowserStats)
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))

	got := truncate("/blog/ééé/", 8)
	assert.Equal(t, "/blog/é", got)
	assert.True(t, utf8.ValidString(got))

	assert.True(t, utf8.ValidString(truncate(strings.Repeat("日本", 600), 2048)))
}
