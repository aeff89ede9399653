// Package seo builds page metadata and schema.org JSON-LD payloads.
package seo

// OpenGraph holds og:* tags.
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
}

// Twitter holds twitter:* tags.
type Twitter struct {
	Card  string
	Site  string
	Image string
}

// Alternate is an hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

// Meta is the head metadata for a page.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          OpenGraph
	Twitter     Twitter
	Alternates  []Alternate
	JSONLD      []string
}
