package analytics

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler serves aggregated analytics as JSON.
type Handler struct {
	store   *Store
	limiter *rateLimiter
	now     func() time.Time
}

// NewHandler creates a new analytics handler.
// The stats endpoint is rate-limited to 30 requests per IP per minute.
func NewHandler(store *Store) *Handler {
	return &Handler{
		store:   store,
		limiter: newRateLimiter(30, time.Minute),
		now:     time.Now,
	}
}

// StatsResponse is the JSON response for the stats endpoint.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	Realtime   int    `json:"realtime_visitors"`
	PeriodDays int    `json:"period_days"`
}

// RegisterRoutes mounts GET /stats/ behind a bearer token check.
func (h *Handler) RegisterRoutes(e *echo.Echo, token string) {
	e.GET("/stats/", h.GetStats, h.requireToken(token))
}

func (h *Handler) requireToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !h.limiter.allow(c.RealIP()) {
				return c.NoContent(http.StatusTooManyRequests)
			}
			got := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}

// GetStats returns analytics statistics as JSON.
func (h *Handler) GetStats(c echo.Context) error {
	days := parsePeriod(c.QueryParam("period"))
	from, to := calcTimeRange(h.now().UTC(), days)

	stats, err := h.store.GetStats(from, to)
	if err != nil {
		c.Logger().Errorf("Failed to get stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	realtime, _ := h.store.GetRealtimeVisitors()

	return c.JSON(http.StatusOK, StatsResponse{
		Stats:      stats,
		Realtime:   realtime,
		PeriodDays: days,
	})
}

// parsePeriod maps the period query parameter to a number of days.
func parsePeriod(period string) int {
	switch period {
	case "today":
		return 1
	case "month":
		return 30
	case "year":
		return 365
	default:
		return 7
	}
}

// calcTimeRange returns the window covering the last days days, ending at
// the start of tomorrow so today's visits are included.
func calcTimeRange(now time.Time, days int) (time.Time, time.Time) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return end.AddDate(0, 0, -days), end
}
