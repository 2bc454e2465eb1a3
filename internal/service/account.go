package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/auth"
	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
)

// AccountService handles registration and read access to users/profiles.
type AccountService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	sessions  SessionController
	logger    *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	sessions SessionController,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		passwords: passwords,
		sessions:  sessions,
		logger:    logger,
	}
}

// RegisterInput is everything needed to open an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Nickname string
	Avatar   string // optional
}

// Register validates input and creates the user with its profile.
//
// A username or email that is already taken fails with
// apperror.ErrDuplicateIdentity and creates nothing. The pre-check gives a
// clean error in the common case; the UNIQUE constraints in the store
// catch two registrations racing each other.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = trim(in.Username)
	in.Email = trim(in.Email)
	in.Nickname = trim(in.Nickname)
	in.Avatar = trim(in.Avatar)

	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validateNickname(in.Nickname); err != nil {
		return nil, err
	}
	if err := validateAvatar(in.Avatar); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("service/account: checking identity: %w", err)
	}
	if taken {
		return nil, apperror.DuplicateIdentity(in.Username)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Profile: model.Profile{
			Nickname: in.Nickname,
			Avatar:   in.Avatar,
		},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateIdentity) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// SignUp registers the user and logs the caller in as that user.
func (s *AccountService) SignUp(ctx context.Context, in RegisterInput) (*model.User, error) {
	user, err := s.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Begin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("service/account: starting session for %s: %w", user.ID, err)
	}
	return user, nil
}

// Get returns a user by ID.
func (s *AccountService) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user id is required")
	}
	return s.users.GetByID(ctx, id)
}

// GetByUsername returns a user by exact username.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	username = trim(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	return s.users.GetByUsername(ctx, username)
}

// GetProfile returns a profile by its own ID.
func (s *AccountService) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "profile id is required")
	}
	return s.users.GetProfileByID(ctx, id)
}

// List returns one page of users. The filter may only use
// repository.UserFields.
func (s *AccountService) List(ctx context.Context, opts repository.ListOptions) (*repository.Page[model.User], error) {
	if err := repository.UserFields.ValidateOptions(opts); err != nil {
		return nil, err
	}
	return s.users.List(ctx, opts)
}

// Delete removes a user together with their profile and articles.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperror.ValidationFailed("id", "user id is required")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("id", id))
	return nil
}
