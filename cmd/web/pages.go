package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ciphera-net/website/internal/catalog"
	"github.com/ciphera-net/website/internal/cms"
	"github.com/ciphera-net/website/internal/faq"
	handlersPkg "github.com/ciphera-net/website/internal/handlers"
	mw "github.com/ciphera-net/website/internal/middleware"
	"github.com/ciphera-net/website/internal/seo"
)

// homeFAQExcerpt is how many questions the home page previews.
const homeFAQExcerpt = 4

// home renders the landing page.
func (a *app) home(w http.ResponseWriter, r *http.Request) {
	vm := a.newPage(r, "home.title", "home.description", nil)
	home := handlersPkg.BuildHomeData(a.blog.Posts())
	vm.Products = home.Products
	vm.Highlights = home.Differentiators
	vm.Posts = home.LatestPosts

	entries := faq.Flatten(a.faq.All())
	if len(entries) > homeFAQExcerpt {
		entries = entries[:homeFAQExcerpt]
	}
	vm.FAQ = entries
	vm.SEO.JSONLD = append(vm.SEO.JSONLD,
		seo.JSON(a.organizationSchema()),
		seo.JSON(seo.WebSite("Ciphera", a.cfg.Site.BaseURL)),
	)
	a.renderPage(w, r, http.StatusOK, "home", vm)
}

// about renders the company story.
func (a *app) about(w http.ResponseWriter, r *http.Request) {
	vm := a.newPage(r, "about.title", "about.description", nil)
	vm.Highlights = catalog.Differentiators()
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(a.organizationSchema()))
	a.renderPage(w, r, http.StatusOK, "about", vm)
}

// products lists the product suite.
func (a *app) products(w http.ResponseWriter, r *http.Request) {
	vm := a.newPage(r, "products.title", "products.description", nil)
	vm.Products = catalog.Products()
	a.renderPage(w, r, http.StatusOK, "products", vm)
}

// product renders a single product page.
func (a *app) product(w http.ResponseWriter, r *http.Request) {
	p, ok := catalog.FindProduct(chi.URLParam(r, "slug"))
	if !ok {
		a.notFound(w, r)
		return
	}
	vm := a.newPage(r, "products.title", "products.description", map[string]string{r.URL.Path: p.Name})
	vm.Title = p.Name
	vm.SEO.Title = p.Name + " | " + a.bundle.T(vm.Lang, "brand.name")
	vm.SEO.OG.Title = vm.SEO.Title
	vm.SEO.Description = p.Tagline
	vm.SEO.OG.Description = p.Tagline
	vm.SEO.OG.Type = "product"
	vm.Product = p
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.SoftwareApplication(p.Name, p.Description, p.URL, p.Category)))
	a.renderPage(w, r, http.StatusOK, "product", vm)
}

// companies renders the business offering.
func (a *app) companies(w http.ResponseWriter, r *http.Request) {
	vm := a.newPage(r, "companies.title", "companies.description", nil)
	vm.Highlights = map[string][]catalog.Highlight{
		"Problems":  catalog.CompanyProblems(),
		"Solutions": catalog.CompanySolutions(),
		"Services":  catalog.CompanyServices(),
	}
	a.renderPage(w, r, http.StatusOK, "companies", vm)
}

// comparison renders the feature matrix against other providers.
func (a *app) comparison(w http.ResponseWriter, r *http.Request) {
	vm := a.newPage(r, "comparison.title", "comparison.description", nil)
	vm.Competitors = catalog.Competitors()
	vm.Comparison = catalog.Comparison()
	a.renderPage(w, r, http.StatusOK, "comparison", vm)
}

// blogIndex lists posts, newest first.
func (a *app) blogIndex(w http.ResponseWriter, r *http.Request) {
	vm := a.newPage(r, "blog.title", "blog.description", nil)
	vm.Posts = a.blog.Posts()
	a.renderPage(w, r, http.StatusOK, "blog", vm)
}

// blogPost renders one post with related reading.
func (a *app) blogPost(w http.ResponseWriter, r *http.Request) {
	post, err := a.blog.Get(chi.URLParam(r, "slug"))
	if errors.Is(err, cms.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r)
		return
	}
	vm := a.newPage(r, "blog.title", "blog.description", map[string]string{r.URL.Path: post.Title})
	vm.Title = post.Title
	vm.SEO.Title = post.Title + " | " + a.bundle.T(vm.Lang, "brand.name")
	vm.SEO.OG.Title = vm.SEO.Title
	vm.SEO.Description = post.Excerpt
	vm.SEO.OG.Description = post.Excerpt
	vm.SEO.OG.Type = "article"
	vm.Post = post
	vm.Related = a.blog.Related(post.Slug, 3)
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.Article(
		post.Title, vm.SEO.Canonical, post.Excerpt, post.Author, post.Date.Format("2006-01-02"),
	)))
	a.renderPage(w, r, http.StatusOK, "post", vm)
}

// privacy renders the privacy notice linked from the contact form.
func (a *app) privacy(w http.ResponseWriter, r *http.Request) {
	vm := a.newPage(r, "privacy.title", "privacy.description", nil)
	a.renderPage(w, r, http.StatusOK, "privacy", vm)
}

// setTheme stores the theme choice. htmx callers get a refresh trigger,
// form posts are redirected back.
func (a *app) setTheme(w http.ResponseWriter, r *http.Request) {
	theme, ok := mw.ParseTheme(r.PostFormValue("theme"))
	if !ok {
		a.badRequest(w, r, "invalid_theme", "unknown theme")
		return
	}
	mw.SetTheme(w, r, theme, a.sessions.Secure())
	if mw.IsHTMX(r.Context()) {
		w.Header().Set("HX-Trigger", `{"theme:changed":"`+theme+`"}`)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	back := r.Referer()
	if back == "" || !sameOrigin(back, a.cfg.Site.BaseURL, r.Host) {
		back = "/"
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// notFound renders the custom 404 page.
func (a *app) notFound(w http.ResponseWriter, r *http.Request) {
	if mw.IsHTMX(r.Context()) {
		a.writeJSONError(w, r, http.StatusNotFound, "not_found", "not found")
		return
	}
	vm := a.newPage(r, "notfound.title", "notfound.description", nil)
	vm.SEO.Robots = "noindex"
	a.renderPage(w, r, http.StatusNotFound, "notfound", vm)
}

// serverError renders a bare 500 response; it is also the panic fallback.
func (a *app) serverError(w http.ResponseWriter, r *http.Request) {
	if mw.IsHTMX(r.Context()) {
		a.writeJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "internal server error")
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
