package auth

import (
	"context"
	"sync"
	"time"
)

// Session is the request-scoped view of who the caller is.
//
// LoadSession puts one into every request context: anonymous when the
// request carried no valid token. Operations read the identity from it
// instead of any global state, and login/logout record their outcome on it
// so the transport can update the cookie once the request is done.
//
// GraphQL query fields resolve concurrently, hence the mutex.
type Session struct {
	mu       sync.Mutex
	claims   *Claims
	token    string // set when a new token was issued during this request
	ended    bool
	modified bool
}

// NewSession returns a session for the given claims; nil means anonymous.
func NewSession(c *Claims) *Session {
	return &Session{claims: c}
}

// UserID returns the authenticated user, if any.
func (s *Session) UserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims == nil {
		return "", false
	}
	return s.claims.UserID, true
}

// Claims returns the claims of the active token, if any.
func (s *Session) Claims() (Claims, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims == nil {
		return Claims{}, false
	}
	return *s.claims, true
}

func (s *Session) establish(token string, c Claims) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = &c
	s.token = token
	s.ended = false
	s.modified = true
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = nil
	s.token = ""
	s.ended = true
	s.modified = true
}

// CookieUpdate describes what the transport must do with the session cookie.
type CookieUpdate struct {
	Set       bool
	Clear     bool
	Token     string
	ExpiresAt time.Time
}

// PendingCookie reports the cookie change this request produced, if any.
func (s *Session) PendingCookie() CookieUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.modified:
		return CookieUpdate{}
	case s.ended:
		return CookieUpdate{Clear: true}
	default:
		return CookieUpdate{Set: true, Token: s.token, ExpiresAt: s.claims.ExpiresAt}
	}
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the request session or nil outside a request
// (CLI commands, background jobs).
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// UserIDFromContext extracts the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	s := SessionFromContext(ctx)
	if s == nil {
		return "", false
	}
	return s.UserID()
}
