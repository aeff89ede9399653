// Package nav builds the header navigation and breadcrumbs.
package nav

import (
	"path"
	"strings"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string
	LabelKey string
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Crumb is a breadcrumb entry. Label wins over LabelKey when set.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the primary navigation.
var Main = []Item{
	{Path: "/about", LabelKey: "nav.about"},
	{Path: "/products", LabelKey: "nav.products"},
	{Path: "/companies", LabelKey: "nav.companies"},
	{Path: "/blog", LabelKey: "nav.blog"},
	{Path: "/contact", LabelKey: "nav.contact"},
}

// sections maps top-level paths outside Main to label keys.
var sections = map[string]string{
	"/faq":        "nav.faq",
	"/comparison": "nav.comparison",
}

// Build renders navigation items with active state for currentPath.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:     it.Path,
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath),
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds entries from Home down to currentPath. labels
// overrides the text of deeper segments, keyed by full path.
func Breadcrumbs(currentPath string, labels map[string]string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean("/" + strings.TrimPrefix(currentPath, "/"))
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	href := ""
	for i, part := range parts {
		if part == "" {
			continue
		}
		href += "/" + part
		crumb := Crumb{Href: href, Active: i == len(parts)-1}
		switch {
		case labels[href] != "":
			crumb.Label = labels[href]
		case i == 0:
			crumb.LabelKey = sectionKey(href)
			crumb.Label = titleFromSegment(part)
		default:
			crumb.Label = titleFromSegment(part)
		}
		crumbs = append(crumbs, crumb)
	}
	return crumbs
}

func sectionKey(top string) string {
	for _, it := range Main {
		if it.Path == top {
			return it.LabelKey
		}
	}
	return sections[top]
}

func titleFromSegment(seg string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
