package handlers

import (
	"github.com/ciphera-net/website/internal/nav"
	"github.com/ciphera-net/website/internal/seo"
)

// PageData is a generic view model for pages using the shared layout.
type PageData struct {
	Title     string
	Lang      string
	Theme     string
	CSRFToken string
	SEO       seo.Meta
	Analytics Analytics

	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	Languages   []string

	// Optional per-page view model payloads
	Products    any
	Product     any
	Comparison  any
	Competitors any
	Highlights  any
	Posts       any
	Post        any
	Related     any
	FAQ         any
	Contact     any
	Newsletter  any
}
