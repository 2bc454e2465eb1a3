// Package auth handles session tokens, password hashing, the request-scoped
// session and GitHub sign-in.
//
// HOW A SESSION WORKS:
//  1. createUser / login succeed → SessionManager.Begin signs a JWT
//  2. The GraphQL handler sends it back as an HttpOnly cookie named "token"
//  3. Every later request carries the cookie (or an Authorization: Bearer header)
//  4. LoadSession validates it and puts a *Session into the request context
//  5. Resolvers ask the Session who the caller is
//
// JWTs are stateless, so logout records the token's ID (jti) in a
// RevocationStore until the token would have expired anyway.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "needley"

	// DefaultSessionTTL is used when the configured TTL is zero.
	DefaultSessionTTL = 24 * time.Hour

	minSecretLength = 16
)

// ErrTokenExpired lets callers tell an expired session from a forged one.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and validates session JWTs (HS256).
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService requires a secret of at least 16 characters.
// A ttl of zero means DefaultSessionTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	if ttl < 0 {
		return nil, errors.New("auth: session TTL must not be negative")
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens issued by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Claims is what a valid token says about its holder.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a token for userID with the service's TTL.
func (s *TokenService) Generate(userID string) (string, Claims, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration issues a token with a custom lifetime. Tests use a
// negative duration to produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, Claims, error) {
	if userID == "" {
		return "", Claims{}, errors.New("auth: cannot issue a token without a subject")
	}
	jti, err := uuid.NewV7()
	if err != nil {
		return "", Claims{}, fmt.Errorf("auth: generating token id: %w", err)
	}

	now := time.Now()
	exp := now.Add(d)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("auth: signing token: %w", err)
	}

	// NumericDate has second precision; report what the token actually says.
	return signed, Claims{UserID: userID, TokenID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Validate parses tokenStr and returns its claims.
//
// WithValidMethods pins HS256 so a token claiming "alg: none" or an RSA
// algorithm is rejected before the key function runs.
func (s *TokenService) Validate(tokenStr string) (Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Claims{}, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Claims{}, errors.New("auth: token has no subject")
	}
	if c.ID == "" {
		return Claims{}, errors.New("auth: token has no id")
	}

	return Claims{UserID: c.Subject, TokenID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}
