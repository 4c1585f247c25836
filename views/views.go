// Package views holds the default templ components for pressfront pages.
package views

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

import (
	"github.com/a-h/templ"

	"github.com/eringen/pressfront"
)

// New returns the default ViewFuncs for cfg.
func New(cfg pressfront.SiteConfig) pressfront.ViewFuncs {
	return pressfront.ViewFuncs{
		BlogIndex: func(posts []pressfront.Post) templ.Component {
			return BlogIndex(cfg, posts)
		},
		Post: func(post pressfront.Post, image *pressfront.Image) templ.Component {
			return Post(cfg, post, image)
		},
		NotFound: func() templ.Component {
			return NotFound(cfg)
		},
		ServerError: func() templ.Component {
			return ServerError(cfg)
		},
	}
}
