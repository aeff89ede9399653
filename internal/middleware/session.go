package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	defaultSessionCookie = "ciphera_session"
	sessionLifetime      = 30 * 24 * time.Hour
)

// SessionData is persisted inside the signed session cookie.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	Theme     string    `json:"theme,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	dirty bool
}

// MarkDirty flags the session for writing at the end of the request.
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// Sessions signs and verifies session cookies.
type Sessions struct {
	key    []byte
	name   string
	secure bool
}

// NewSessions builds a session codec. An empty key generates a
// process-local one, which only suits development.
func NewSessions(hashKey, cookieName string, secure bool) (*Sessions, error) {
	key := []byte(hashKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	if len(key) < 16 {
		return nil, errors.New("session: hash key must be at least 16 bytes")
	}
	name := strings.TrimSpace(cookieName)
	if name == "" {
		name = defaultSessionCookie
	}
	return &Sessions{key: key, name: name, secure: secure}, nil
}

// CookieName returns the session cookie name.
func (m *Sessions) CookieName() string { return m.name }

// Secure reports whether cookies carry the Secure flag.
func (m *Sessions) Secure() bool { return m.secure }

// Middleware loads or initializes the session and stores it on the request
// context. The cookie is rewritten just before the first write when the
// session changed.
func (m *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := m.read(r)
		if sd.ID == "" {
			now := time.Now().UTC()
			sd.ID = randID()
			sd.CreatedAt = now
			sd.UpdatedAt = now
			sd.CSRFToken = newCSRFToken()
			sd.dirty = true
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sd)
		rw := newBeforeWriteRecorder(w, func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				m.write(w, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(ctx))
		if !rw.wrote && (sd.dirty || !fromCookie) {
			m.write(w, sd)
		}
	})
}

// GetSession returns the request's session. Outside the middleware it
// returns an empty, detached session.
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(ctxKeySession).(*SessionData); ok {
		return sd
	}
	return &SessionData{}
}

func (m *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	payloadPart, sigPart, ok := strings.Cut(c.Value, ".")
	if !ok {
		return &SessionData{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return &SessionData{}, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return &SessionData{}, false
	}
	if !hmac.Equal(sig, m.sign(payload)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payload, &sd); err != nil {
		return &SessionData{}, false
	}
	if !sd.CreatedAt.IsZero() && time.Since(sd.CreatedAt) > sessionLifetime {
		return &SessionData{}, false
	}
	return &sd, true
}

func (m *Sessions) write(w http.ResponseWriter, sd *SessionData) {
	payload, _ := json.Marshal(sd)
	value := base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(m.sign(payload))
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionLifetime),
	})
	sd.dirty = false
}

func (m *Sessions) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, m.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
