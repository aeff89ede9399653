package middleware

import (
	"net/http"
	"strings"
)

const themeCookie = "theme"

// Themes lists the accepted theme values.
var Themes = []string{"light", "dark", "system"}

// ParseTheme normalizes v, reporting whether it is a known theme.
func ParseTheme(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, t := range Themes {
		if t == v {
			return v, true
		}
	}
	return "", false
}

// Theme returns the visitor's theme, "system" when unset.
func Theme(r *http.Request) string {
	if s := GetSession(r); s.Theme != "" {
		return s.Theme
	}
	if c, err := r.Cookie(themeCookie); err == nil {
		if t, ok := ParseTheme(c.Value); ok {
			return t
		}
	}
	return "system"
}

// SetTheme stores the theme in the session and a readable cookie so the
// page script can apply it before first paint.
func SetTheme(w http.ResponseWriter, r *http.Request, theme string, secure bool) {
	s := GetSession(r)
	if s.Theme != theme {
		s.Theme = theme
		s.MarkDirty()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    theme,
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   365 * 24 * 60 * 60,
	})
}
