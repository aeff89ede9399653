package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"mime"
	"net/http"
	"time"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfFormField  = "_csrf"

	// MaxFormBytes caps request bodies of form posts, attachments included.
	MaxFormBytes = 6 << 20
	// multipartMemory is how much of a multipart body is kept in memory.
	multipartMemory = 8 << 20
)

// CSRF issues the double-submit cookie and verifies that unsafe requests
// echo the session token in the X-CSRF-Token header or the _csrf field.
func CSRF(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSession(r)
			token := s.CSRFToken
			if token == "" {
				token = newCSRFToken()
				s.CSRFToken = token
				s.MarkDirty()
			}

			if c, err := r.Cookie(csrfCookieName); err != nil || c.Value != token {
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
					Expires:  time.Now().Add(24 * time.Hour),
				})
			}

			if !isSafeMethod(r.Method) {
				presented := r.Header.Get(csrfHeader)
				if presented == "" {
					presented = formToken(w, r)
				}
				if !tokensMatch(presented, token) {
					writeError(w, r, http.StatusForbidden, "csrf_invalid", "invalid CSRF token")
					return
				}
				if c, err := r.Cookie(csrfCookieName); err != nil || !tokensMatch(c.Value, token) {
					writeError(w, r, http.StatusForbidden, "csrf_invalid", "invalid CSRF token")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CSRFToken returns the session token for templates.
func CSRFToken(r *http.Request) string {
	return GetSession(r).CSRFToken
}

// formToken parses the body far enough to read the _csrf field. Multipart
// bodies are capped at MaxFormBytes; handlers reuse the parsed form.
func formToken(w http.ResponseWriter, r *http.Request) string {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, MaxFormBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return ""
		}
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, MaxFormBytes)
		if err := r.ParseForm(); err != nil {
			return ""
		}
	default:
		return ""
	}
	return r.PostFormValue(csrfFormField)
}

func tokensMatch(a, b string) bool {
	return a != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func newCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
