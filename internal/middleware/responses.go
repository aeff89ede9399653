package middleware

import (
	"net/http"

	"github.com/ciphera-net/website/internal/platform/httpx"
)

// writeError answers htmx and JSON clients with the error envelope and
// browsers with plain text.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if IsHTMX(r.Context()) || r.Header.Get("Accept") == "application/json" {
		httpx.WriteError(r.Context(), w, httpx.NewError(code, msg, status))
		return
	}
	http.Error(w, msg, status)
}
