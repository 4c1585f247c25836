package analytics

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Recorder stores a page view for each rendered page request.
type Recorder struct {
	store *Store
	now   func() time.Time
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Middleware records GET requests after the handler ran. Requests for which
// skipper returns true, and requests carrying DNT: 1, are not recorded.
func (r *Recorder) Middleware(skipper middleware.Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			req := c.Request()
			if req.Method != http.MethodGet || req.Header.Get("DNT") == "1" {
				return err
			}
			if skipper != nil && skipper(c) {
				return err
			}
			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			if status >= 300 && status < 400 {
				return err
			}
			if recErr := r.record(c, status); recErr != nil {
				c.Logger().Errorf("analytics: record visit: %v", recErr)
			}
			return err
		}
	}
}

func (r *Recorder) record(c echo.Context, status int) error {
	req := c.Request()
	ip := c.RealIP()
	ua := req.UserAgent()
	now := r.now().UTC()

	if IsBot(ua) {
		return r.store.SaveBotVisit(&BotVisit{
			BotName:   ExtractBotName(ua),
			IPHash:    HashIP(ip),
			UserAgent: truncate(ua, 512),
			Path:      truncate(req.URL.Path, 2048),
			Timestamp: now,
		})
	}

	browser, os, device := ParseUserAgent(ua)
	return r.store.SaveVisit(&Visit{
		VisitorID: GenerateVisitorID(ip, ua, now),
		IPHash:    HashIP(ip),
		Browser:   browser,
		OS:        os,
		Device:    device,
		Path:      truncate(req.URL.Path, 2048),
		Referrer:  CleanReferrer(req.Referer(), req.Host),
		Status:    status,
		Timestamp: now,
	})
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
