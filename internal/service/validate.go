// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Transport (GraphQL / HTTP / CLI) → parses requests, writes responses
//	Service                           → validates, enforces rules, orchestrates
//	Repository                        → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, so tests pass
// hand-written fakes and the CLI reuses exactly the same rules as the API.
//
// WHO IS CALLING?
// The caller's identity travels in ctx as an *auth.Session (see
// auth.UserIDFromContext). Services never read cookies or headers.
package service

import (
	"context"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/auth"
)

// Validation constants.
const (
	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MaxNicknameLength = 20
	MaxAvatarLength   = 200
	MaxTitleLength    = 100
	MaxContentLength  = 100000 // bytes
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// SessionController starts and ends the caller's session.
// *auth.SessionManager satisfies it.
type SessionController interface {
	Begin(ctx context.Context, userID string) error
	End(ctx context.Context) error
}

func validateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username", "username must be 150 characters or fewer")
	}
	if !usernamePattern.MatchString(username) {
		return apperror.ValidationFailed("username", "username may contain only letters, digits and @/./+/-/_")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return apperror.ValidationFailed("email", "email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "enter a valid email address")
	}
	return nil
}

func validateNickname(nickname string) error {
	if nickname == "" {
		return apperror.ValidationFailed("nickname", "nickname is required")
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return apperror.ValidationFailed("nickname", "nickname must be 20 characters or fewer")
	}
	return nil
}

// validateAvatar accepts an empty value (no avatar) or an absolute
// http(s) URL.
func validateAvatar(avatar string) error {
	if avatar == "" {
		return nil
	}
	if len(avatar) > MaxAvatarLength {
		return apperror.ValidationFailed("avatar", "avatar URL must be 200 characters or fewer")
	}
	u, err := url.ParseRequestURI(avatar)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.ValidationFailed("avatar", "enter a valid URL")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}
	return nil
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
