package main

import (
	"net/http"
	"net/url"

	handlersPkg "github.com/ciphera-net/website/internal/handlers"
	mw "github.com/ciphera-net/website/internal/middleware"
	"github.com/ciphera-net/website/internal/nav"
	"github.com/ciphera-net/website/internal/seo"
)

const ogImagePath = "/assets/img/og-default.png"

// newPage fills the layout fields shared by every page. crumbLabels names
// deeper breadcrumb segments such as a post title.
func (a *app) newPage(r *http.Request, titleKey, descKey string, crumbLabels map[string]string) handlersPkg.PageData {
	lang := mw.Lang(r)
	title := a.bundle.T(lang, titleKey)
	brand := a.bundle.T(lang, "brand.name")

	vm := handlersPkg.PageData{
		Title:       title,
		Lang:        lang,
		Theme:       mw.Theme(r),
		CSRFToken:   mw.CSRFToken(r),
		Path:        r.URL.Path,
		Nav:         nav.Build(r.URL.Path),
		Breadcrumbs: nav.Breadcrumbs(r.URL.Path, crumbLabels),
		Languages:   a.bundle.Supported(),
		Analytics:   a.analytics,
		Newsletter:  newsletterView{Lang: lang, CSRFToken: mw.CSRFToken(r)},
	}

	vm.SEO.Title = title + " | " + brand
	if r.URL.Path == "/" {
		vm.SEO.Title = brand + " | " + title
	}
	vm.SEO.Description = a.bundle.T(lang, descKey)
	vm.SEO.Canonical = a.absoluteURL(r.URL.Path)
	vm.SEO.OG.URL = vm.SEO.Canonical
	vm.SEO.OG.SiteName = brand
	vm.SEO.OG.Title = vm.SEO.Title
	vm.SEO.OG.Description = vm.SEO.Description
	vm.SEO.OG.Type = "website"
	vm.SEO.OG.Image = a.absoluteURL(ogImagePath)
	vm.SEO.Twitter.Card = "summary_large_image"
	vm.SEO.Twitter.Site = "@ciphera_net"
	vm.SEO.Twitter.Image = vm.SEO.OG.Image
	vm.SEO.Alternates = a.alternates(r.URL.Path)
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(a.breadcrumbSchema(lang, vm.Breadcrumbs)))
	return vm
}

// absoluteURL joins path to the configured public base URL.
func (a *app) absoluteURL(path string) string {
	return a.cfg.Site.BaseURL + path
}

func (a *app) alternates(path string) []seo.Alternate {
	out := make([]seo.Alternate, 0, len(a.bundle.Supported())+1)
	for _, lang := range a.bundle.Supported() {
		q := url.Values{"hl": {lang}}
		out = append(out, seo.Alternate{Href: a.absoluteURL(path) + "?" + q.Encode(), Hreflang: lang})
	}
	out = append(out, seo.Alternate{Href: a.absoluteURL(path), Hreflang: "x-default"})
	return out
}

func (a *app) breadcrumbSchema(lang string, crumbs []nav.Crumb) map[string]any {
	items := make([]seo.BreadcrumbItem, 0, len(crumbs))
	for _, c := range crumbs {
		name := c.Label
		if c.LabelKey != "" {
			if v, ok := a.bundle.Lookup(lang, c.LabelKey); ok {
				name = v
			}
		}
		items = append(items, seo.BreadcrumbItem{Name: name, Item: a.absoluteURL(c.Href)})
	}
	return seo.BreadcrumbList(items)
}

func (a *app) organizationSchema() map[string]any {
	return seo.Organization("Ciphera", a.cfg.Site.BaseURL, a.absoluteURL("/assets/img/logo.png"),
		"https://github.com/ciphera-net",
		"https://x.com/ciphera_net",
	)
}
