package pressfront

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
)

// Markers around HTML that must reach the client byte for byte. They are
// removed before the response is written.
const (
	verbatimStart = "<!--pressfront:verbatim-->"
	verbatimEnd   = "<!--/pressfront:verbatim-->"
)

// Verbatim emits html unchanged and keeps it out of HTML minification.
func Verbatim(html string) templ.Component {
	return templ.Raw(verbatimStart + html + verbatimEnd)
}

func newMinifier() *minify.M {
	m := minify.New()
	m.Add("text/html", &minhtml.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return m
}

// finishHTML strips the verbatim markers and, when m is set, minifies
// everything outside them.
func finishHTML(m *minify.M, body []byte) ([]byte, error) {
	start, end := []byte(verbatimStart), []byte(verbatimEnd)
	out := make([]byte, 0, len(body))
	for len(body) > 0 {
		shell, rest, found := bytes.Cut(body, start)
		if m != nil && len(shell) > 0 {
			min, err := m.Bytes("text/html", shell)
			if err != nil {
				return nil, err
			}
			shell = min
		}
		out = append(out, shell...)
		if !found {
			break
		}
		raw, after, _ := bytes.Cut(rest, end)
		out = append(out, raw...)
		body = after
	}
	return out, nil
}

// Render writes a templ component as an HTTP 200 HTML response.
func (a *App) Render(c echo.Context, cmp templ.Component) error {
	return a.RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
// The component is rendered to a buffer first so a failing component still
// yields a clean error response.
func (a *App) RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	var buf bytes.Buffer
	if err := cmp.Render(c.Request().Context(), &buf); err != nil {
		return err
	}
	body, err := finishHTML(a.minifier, buf.Bytes())
	if err != nil {
		c.Logger().Warnf("minify %s: %v", c.Request().URL.Path, err)
		body, _ = finishHTML(nil, buf.Bytes())
	}
	return c.HTMLBlob(code, body)
}
