package pressfront

import (
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Rendered wraps an HTML fragment that the content API has already rendered.
type Rendered struct {
	Rendered string `json:"rendered"`
}

// HTML returns the fragment as delivered by the API.
func (r Rendered) HTML() string {
	return r.Rendered
}

// Text returns the fragment with markup removed and entities decoded.
func (r Rendered) Text() string {
	return HTMLText(r.Rendered)
}

// Post is a single entry from GET /posts.
type Post struct {
	ID            int      `json:"id"`
	Date          string   `json:"date"`
	Slug          string   `json:"slug"`
	Title         Rendered `json:"title"`
	Excerpt       Rendered `json:"excerpt"`
	Content       Rendered `json:"content"`
	FeaturedMedia int      `json:"featured_media"`
}

// dateLayouts are tried in order; the API sends local time without an offset.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// PublishedAt parses Date.
func (p Post) PublishedAt() (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, p.Date); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// HasImage reports whether the post references a featured media item.
func (p Post) HasImage() bool {
	return p.FeaturedMedia != 0
}

// Link is the site-relative URL of the post page.
func (p Post) Link() string {
	return "/blog/" + PathEscape(p.Slug) + "/"
}

// Image is a media item from GET /media/<id>.
type Image struct {
	ID           int          `json:"id"`
	GUID         Rendered     `json:"guid"`
	AltText      string       `json:"alt_text"`
	MediaDetails MediaDetails `json:"media_details"`
}

// MediaDetails carries the stored pixel dimensions of a media item.
type MediaDetails struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// URL is the canonical source URL of the image.
func (i Image) URL() string {
	return i.GUID.Rendered
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}

// HTMLText extracts the visible text of an HTML fragment, collapsing runs of
// whitespace into single spaces.
func HTMLText(fragment string) string {
	if fragment == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if _, ok := blockTags[string(name)]; ok {
				b.WriteByte(' ')
			}
		}
	}
}

var blockTags = map[string]struct{}{
	"p": {}, "br": {}, "div": {}, "li": {}, "ul": {}, "ol": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"blockquote": {}, "pre": {}, "figure": {}, "figcaption": {},
	"table": {}, "tr": {}, "td": {}, "th": {}, "hr": {},
}
