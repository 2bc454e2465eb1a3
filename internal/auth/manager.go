package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoSession is returned when Begin or End runs outside a request.
var ErrNoSession = errors.New("auth: no session in context")

// ErrTokenRevoked is returned by Authenticate for logged-out tokens.
var ErrTokenRevoked = errors.New("auth: token revoked")

// RevocationStore remembers token IDs that were logged out.
type RevocationStore interface {
	// Revoke marks tokenID as unusable until the given time.
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// SessionManager ties tokens to request sessions.
type SessionManager struct {
	tokens  *TokenService
	revoked RevocationStore
}

func NewSessionManager(tokens *TokenService, revoked RevocationStore) *SessionManager {
	return &SessionManager{tokens: tokens, revoked: revoked}
}

// Authenticate validates a raw token and checks it was not logged out.
func (m *SessionManager) Authenticate(ctx context.Context, token string) (Claims, error) {
	c, err := m.tokens.Validate(token)
	if err != nil {
		return Claims{}, err
	}
	revoked, err := m.revoked.IsRevoked(ctx, c.TokenID)
	if err != nil {
		return Claims{}, fmt.Errorf("auth: checking revocation: %w", err)
	}
	if revoked {
		return Claims{}, ErrTokenRevoked
	}
	return c, nil
}

// Begin issues a fresh token for userID into the request session. A token
// that was already active in this session is revoked first.
func (m *SessionManager) Begin(ctx context.Context, userID string) error {
	s := SessionFromContext(ctx)
	if s == nil {
		return ErrNoSession
	}
	if prev, ok := s.Claims(); ok {
		if err := m.revoked.Revoke(ctx, prev.TokenID, prev.ExpiresAt); err != nil {
			return fmt.Errorf("auth: revoking previous token: %w", err)
		}
	}
	token, c, err := m.tokens.Generate(userID)
	if err != nil {
		return err
	}
	s.establish(token, c)
	return nil
}

// End revokes the active token, if any, and marks the session as logged out.
func (m *SessionManager) End(ctx context.Context) error {
	s := SessionFromContext(ctx)
	if s == nil {
		return ErrNoSession
	}
	if c, ok := s.Claims(); ok {
		if err := m.revoked.Revoke(ctx, c.TokenID, c.ExpiresAt); err != nil {
			return fmt.Errorf("auth: revoking token: %w", err)
		}
	}
	s.end()
	return nil
}
