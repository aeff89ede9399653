package main

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ciphera-net/website/internal/faq"
	mw "github.com/ciphera-net/website/internal/middleware"
	"github.com/ciphera-net/website/internal/seo"
	"github.com/ciphera-net/website/internal/telemetry"
)

// faqView is the model of the search form and its results.
type faqView struct {
	Lang       string
	Query      string
	Category   string
	Categories []faq.Category
	Results    []faq.Category
	Total      int
	Matches    int
}

func (a *app) buildFAQView(r *http.Request) faqView {
	all := a.faq.All()
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if _, ok := faq.Find(all, category); !ok {
		category = ""
	}
	results := faq.Filter(all, query, category)
	return faqView{
		Lang:       mw.Lang(r),
		Query:      query,
		Category:   category,
		Categories: all,
		Results:    results,
		Total:      faq.Count(all),
		Matches:    faq.Count(results),
	}
}

// faqPage renders the FAQ. htmx searches receive only the results fragment
// and push the filtered URL.
func (a *app) faqPage(w http.ResponseWriter, r *http.Request) {
	view := a.buildFAQView(r)
	if view.Query != "" {
		a.events.Track(telemetry.EventFAQSearch)
	}

	if mw.IsHTMX(r.Context()) {
		w.Header().Set("HX-Push-Url", faqURL(view.Query, view.Category))
		a.renderFragment(w, r, http.StatusOK, "frag_faq_results", view)
		return
	}

	vm := a.newPage(r, "faq.title", "faq.description", nil)
	vm.FAQ = view
	qa := make([]seo.QA, 0, view.Total)
	for _, e := range faq.Flatten(view.Categories) {
		qa = append(qa, seo.QA{Question: e.Question, Answer: e.Answer})
	}
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.FAQPage(qa)))
	a.renderPage(w, r, http.StatusOK, "faq", vm)
}

func faqURL(query, category string) string {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if category != "" {
		q.Set("category", category)
	}
	if len(q) == 0 {
		return "/faq"
	}
	return "/faq?" + q.Encode()
}
