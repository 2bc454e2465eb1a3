package auth

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the session cookie.
const CookieName = "token"

// LoadSession attaches a *Session to every request.
//
// A missing, expired, forged or revoked token leaves the caller anonymous
// instead of failing the request: anonymous callers may still query, and
// operations that need an identity report NotAuthenticated themselves.
func LoadSession(m *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *Session
			if token := tokenFromRequest(r); token != "" {
				if c, err := m.Authenticate(r.Context(), token); err == nil {
					sess = NewSession(&c)
				}
			}
			if sess == nil {
				sess = NewSession(nil)
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireAuth rejects anonymous requests with 401. It must run after
// LoadSession.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tokenFromRequest prefers the cookie and falls back to a bearer header
// for non-browser clients.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// WriteSessionCookie applies the session's pending cookie change to w.
// It must be called before the response body is written.
func WriteSessionCookie(w http.ResponseWriter, s *Session, secure bool) {
	if s == nil {
		return
	}
	u := s.PendingCookie()
	switch {
	case u.Set:
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    u.Token,
			Path:     "/",
			Expires:  u.ExpiresAt,
			MaxAge:   int(time.Until(u.ExpiresAt).Seconds()),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	case u.Clear:
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
