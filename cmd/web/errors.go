package main

import (
	"net/http"
	"net/url"
	"strings"

	mw "github.com/ciphera-net/website/internal/middleware"
	"github.com/ciphera-net/website/internal/platform/httpx"
)

func (a *app) writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	httpx.WriteError(r.Context(), w, httpx.NewError(code, msg, status))
}

// badRequest answers htmx and JSON callers with the error envelope and
// browsers with plain text.
func (a *app) badRequest(w http.ResponseWriter, r *http.Request, code, msg string) {
	if mw.IsHTMX(r.Context()) || wantsJSON(r) {
		a.writeJSONError(w, r, http.StatusBadRequest, code, msg)
		return
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// sameOrigin reports whether ref points at the site itself.
func sameOrigin(ref, baseURL, host string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(u.Path, "//")
	}
	if base, err := url.Parse(baseURL); err == nil && base.Host == u.Host {
		return true
	}
	return u.Host == host
}
