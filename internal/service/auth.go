package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/auth"
	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
)

// AuthService logs callers in and out.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	sessions  SessionController
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	sessions SessionController,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		sessions:  sessions,
		logger:    logger,
		now:       time.Now,
	}
}

// Login checks the password and, on success, makes the caller that user.
//
// An unknown username and a wrong password both fail with
// apperror.ErrInvalidCredentials, and no session is started.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	username = trim(username)
	if username == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			s.logger.Info("login failed", slog.String("username", username), slog.String("reason", "unknown user"))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed", slog.String("username", username), slog.String("reason", "bad password"))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	if err := s.sessions.Begin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("service/auth: starting session for %s: %w", user.ID, err)
	}
	s.recordLogin(ctx, user)

	s.logger.Info("user logged in", slog.String("id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// recordLogin stamps last_login. A failure here does not undo the login.
func (s *AuthService) recordLogin(ctx context.Context, user *model.User) {
	at := s.now().UTC().Truncate(time.Microsecond)
	if err := s.users.RecordLogin(ctx, user.ID, at); err != nil {
		s.logger.Warn("recording last login failed", slog.String("id", user.ID), slog.String("error", err.Error()))
		return
	}
	user.LastLogin = &at
}

// Logout ends the caller's session. Anonymous callers are a no-op.
func (s *AuthService) Logout(ctx context.Context) error {
	userID, _ := auth.UserIDFromContext(ctx)
	if err := s.sessions.End(ctx); err != nil {
		return fmt.Errorf("service/auth: ending session: %w", err)
	}
	if userID != "" {
		s.logger.Info("user logged out", slog.String("id", userID))
	}
	return nil
}

// CurrentUser returns the caller, or nil for anonymous callers. A session
// whose user has since been deleted also counts as anonymous.
func (s *AuthService) CurrentUser(ctx context.Context) (*model.User, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/auth: fetching current user: %w", err)
	}
	return user, nil
}

// LoginWithGitHub signs the caller in with a GitHub identity, creating the
// account on first use.
//
// New accounts take the GitHub login as username and nickname. When that
// username is taken locally, "-<githubID>" is appended. Such accounts have
// no password.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	if gh == nil || gh.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
		if avatar := githubAvatar(gh); avatar != user.Profile.Avatar {
			user.Profile.Avatar = avatar
			if err := s.users.UpdateProfile(ctx, &user.Profile); err != nil {
				return nil, fmt.Errorf("service/auth: refreshing profile of %s: %w", user.ID, err)
			}
		}
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.createGitHubUser(ctx, gh)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up github user %d: %w", gh.ID, err)
	}

	if err := s.sessions.Begin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("service/auth: starting session for %s: %w", user.ID, err)
	}
	s.recordLogin(ctx, user)

	s.logger.Info("user authenticated via GitHub",
		slog.String("id", user.ID),
		slog.Int64("githubID", gh.ID),
	)
	return user, nil
}

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	username := truncateRunes(gh.Login, MaxUsernameLength)
	taken, err := s.users.ExistsByUsernameOrEmail(ctx, username, "")
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking username %q: %w", username, err)
	}
	if taken {
		username = fmt.Sprintf("%s-%d", truncateRunes(gh.Login, MaxUsernameLength-21), gh.ID)
	}

	email := gh.Email
	if email != "" {
		if taken, err := s.users.ExistsByUsernameOrEmail(ctx, "", email); err != nil {
			return nil, fmt.Errorf("service/auth: checking email: %w", err)
		} else if taken {
			// The address belongs to a password account; do not link silently.
			email = ""
		}
	}

	id := gh.ID
	user := &model.User{
		Username: username,
		Email:    email,
		GitHubID: &id,
		Profile: model.Profile{
			Nickname: truncateRunes(gh.Login, MaxNicknameLength),
			Avatar:   githubAvatar(gh),
		},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating github user %d: %w", gh.ID, err)
	}
	return user, nil
}

// githubAvatar keeps the avatar only when it would pass registration rules.
func githubAvatar(gh *auth.GitHubUser) string {
	if validateAvatar(gh.AvatarURL) != nil {
		return ""
	}
	return gh.AvatarURL
}
