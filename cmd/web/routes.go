package main

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "github.com/ciphera-net/website/internal/middleware"
	"github.com/ciphera-net/website/internal/platform/observability"
)

func (a *app) routes() http.Handler {
	projectID := a.cfg.Site.GCPProjectID

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that overwrites it.
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware(projectID))
	r.Use(observability.InjectLoggerMiddleware(a.logger))
	r.Use(observability.RequestLoggerMiddleware(projectID))
	r.Use(observability.RecoveryMiddleware(a.logger, http.HandlerFunc(a.serverError)))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(a.cfg.Server.WriteTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	assets := mw.AssetsWithCache(filepath.Join(a.cfg.Site.PublicDir, "assets"), a.cfg.Site.DevMode)
	r.Handle("/assets/*", http.StripPrefix("/assets", assets))

	r.Group(func(r chi.Router) {
		r.Use(a.pageMiddleware)

		r.Get("/", a.home)
		r.Get("/about", a.about)
		r.Get("/products", a.products)
		r.Get("/products/{slug}", a.product)
		r.Get("/companies", a.companies)
		r.Get("/comparison", a.comparison)
		r.Get("/blog", a.blogIndex)
		r.Get("/blog/{slug}", a.blogPost)
		r.Get("/faq", a.faqPage)
		r.Get("/privacy", a.privacy)
		r.Post("/theme", a.setTheme)

		r.Route("/contact", func(r chi.Router) {
			r.Get("/", a.contactPage)
			r.Get("/status", a.contactStatus)
			r.Post("/input/{field}", a.contactInput)
			r.Post("/validate/{field}", a.contactValidate)
			r.Post("/attachment", a.contactAttach)
			r.Post("/attachment/remove", a.contactDetach)
			r.Post("/verification", a.contactVerification)
			r.Post("/consent", a.contactConsent)
			r.Post("/leave", a.contactLeave)
			r.With(a.limiter.Middleware).Post("/", a.contactSubmit)
		})
		r.With(a.limiter.Middleware).Post("/newsletter", a.newsletterSignup)
	})

	r.NotFound(a.pageMiddleware(http.HandlerFunc(a.notFound)).ServeHTTP)
	return r
}

// pageMiddleware is the per-visitor stack shared by HTML routes.
func (a *app) pageMiddleware(next http.Handler) http.Handler {
	h := mw.CSRF(a.sessions.Secure())(next)
	h = mw.Locale(a.bundle)(h)
	h = mw.HTMX(h)
	return a.sessions.Middleware(h)
}
