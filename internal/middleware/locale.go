package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ciphera-net/website/internal/i18n"
)

const localeCookie = "hl"

// Locale resolves the preferred language from ?hl=, the hl cookie or
// Accept-Language, and remembers it in the session.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyLocaleFB, bundle.Fallback()))
			s := GetSession(r)
			if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("hl"))); q != "" && bundle.IsSupported(q) {
				if s.Locale != q {
					s.Locale = q
					s.MarkDirty()
				}
				http.SetCookie(w, &http.Cookie{Name: localeCookie, Value: q, Path: "/", SameSite: http.SameSiteLaxMode})
			} else if s.Locale == "" || !bundle.IsSupported(s.Locale) {
				if c, err := r.Cookie(localeCookie); err == nil && bundle.IsSupported(c.Value) {
					s.Locale = strings.ToLower(c.Value)
				} else {
					s.Locale = bundle.Resolve(r.Header.Get("Accept-Language"))
				}
				s.MarkDirty()
			}
			w.Header().Set("Content-Language", s.Locale)
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r)
		})
	}
}

// Lang returns the request language, falling back to the bundle default
// and finally "en".
func Lang(r *http.Request) string {
	if s := GetSession(r); s.Locale != "" {
		return s.Locale
	}
	if fb, ok := r.Context().Value(ctxKeyLocaleFB).(string); ok && fb != "" {
		return fb
	}
	return "en"
}
