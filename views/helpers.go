package views

import (
	"github.com/eringen/pressfront"
)

// imageSizes matches the content column: 90vw on narrow screens, 54rem otherwise.
const imageSizes = "(max-width: 56rem) 90vw, 54rem"

func indexMeta(cfg pressfront.SiteConfig) pressfront.PageMeta {
	return pressfront.PageMeta{
		Title:       cfg.Name,
		Description: cfg.Description,
		URL:         pressfront.BuildURL(cfg.URL, "blog"),
		OGType:      "website",
	}
}

func postMeta(cfg pressfront.SiteConfig, post pressfront.Post) pressfront.PageMeta {
	return pressfront.PageMeta{
		Title:       post.Title.Text(),
		Description: pressfront.Truncate(post.Excerpt.Text(), 160),
		URL:         pressfront.BuildURL(cfg.URL, "blog", post.Slug),
		OGType:      "article",
	}
}

// hasDate reports whether the post date parses; unparsable dates are not shown.
func hasDate(post pressfront.Post) bool {
	_, err := post.PublishedAt()
	return err == nil
}

func isoDate(post pressfront.Post) string {
	t, _ := post.PublishedAt()
	return t.Format("2006-01-02")
}

func displayDate(cfg pressfront.SiteConfig, post pressfront.Post) string {
	t, _ := post.PublishedAt()
	return FormatDate(t, cfg.Locale)
}

func hasSize(img pressfront.Image) bool {
	return img.MediaDetails.Width > 0 && img.MediaDetails.Height > 0
}
