package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores users together with their one-to-one profiles.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.github_id, u.last_login,
	u.created_at, u.updated_at,
	p.id, p.user_id, p.nickname, p.avatar, p.created_at, p.updated_at`

const userFrom = `users u JOIN profiles p ON p.user_id = u.id`

var userList = listQuery{
	selectCols: userColumns,
	from:       userFrom,
	key:        "u.id",
	columns: map[string]string{
		"username":  "u.username",
		"nickname":  "p.nickname",
		"createdAt": "u.created_at",
		"updatedAt": "u.updated_at",
		"lastLogin": "u.last_login",
	},
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u                                    model.User
		email                                sql.NullString
		githubID, lastLogin                  sql.NullInt64
		created, updated, pCreated, pUpdated int64
	)
	err := row.Scan(
		&u.ID, &u.Username, &email, &u.PasswordHash, &githubID, &lastLogin,
		&created, &updated,
		&u.Profile.ID, &u.Profile.UserID, &u.Profile.Nickname, &u.Profile.Avatar,
		&pCreated, &pUpdated,
	)
	if err != nil {
		return model.User{}, err
	}
	u.Email = email.String
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	if lastLogin.Valid {
		t := fromUnix(lastLogin.Int64)
		u.LastLogin = &t
	}
	u.CreatedAt = fromUnix(created)
	u.UpdatedAt = fromUnix(updated)
	u.Profile.CreatedAt = fromUnix(pCreated)
	u.Profile.UpdatedAt = fromUnix(pUpdated)
	return u, nil
}

// Create inserts a user and its profile atomically.
//
// The generated IDs and timestamps are written back into user, so after
// Create returns the caller holds the canonical record.
//
// A UNIQUE violation (username, email or github_id) becomes
// apperror.DuplicateIdentity. This is the real guard against two concurrent
// registrations racing past the service-level existence check.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	ts := now()
	user.ID = xid.New().String()
	user.CreatedAt = ts
	user.UpdatedAt = ts
	user.Profile.ID = xid.New().String()
	user.Profile.UserID = user.ID
	user.Profile.CreatedAt = ts
	user.Profile.UpdatedAt = ts

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning user transaction: %w", err)
	}
	defer tx.Rollback()

	var githubID sql.NullInt64
	if user.GitHubID != nil {
		githubID = sql.NullInt64{Int64: *user.GitHubID, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		nullString(user.Email),
		user.PasswordHash,
		githubID,
		toUnix(user.CreatedAt),
		toUnix(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateIdentity(user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, nickname, avatar, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Profile.ID,
		user.Profile.UserID,
		user.Profile.Nickname,
		user.Profile.Avatar,
		toUnix(user.Profile.CreatedAt),
		toUnix(user.Profile.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting profile for user %s: %w", user.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user %s: %w", user.ID, err)
	}
	return nil
}

func (db *UserDB) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM `+userFrom+` WHERE `+where, arg))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := db.getOne(ctx, "u.id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByUsername looks a user up by exact username.
func (db *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := db.getOne(ctx, "u.username = ?", username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username %q: %w", username, err)
	}
	return u, nil
}

// GetByGitHubID returns the account linked to a GitHub user ID.
func (db *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := db.getOne(ctx, "u.github_id = ?", githubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

// ExistsByUsernameOrEmail reports whether the username or the (non-empty)
// email is already registered.
func (db *UserDB) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ? OR (email IS NOT NULL AND email = ?)`,
		username, nullString(email),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking identity %q: %w", username, err)
	}
	return n > 0, nil
}

// GetProfileByID retrieves a profile by its own ID.
func (db *UserDB) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	var (
		p                model.Profile
		created, updated int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, nickname, avatar, created_at, updated_at FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.UserID, &p.Nickname, &p.Avatar, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	p.CreatedAt = fromUnix(created)
	p.UpdatedAt = fromUnix(updated)
	return &p, nil
}

// UpdateProfile overwrites nickname and avatar.
func (db *UserDB) UpdateProfile(ctx context.Context, p *model.Profile) error {
	p.UpdatedAt = now()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE profiles SET nickname = ?, avatar = ?, updated_at = ? WHERE id = ?`,
		p.Nickname, p.Avatar, toUnix(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %s: %w", p.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("profile", p.ID)
	}
	return nil
}

// RecordLogin stamps last_login.
func (db *UserDB) RecordLogin(ctx context.Context, id string, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, toUnix(at), id)
	if err != nil {
		return fmt.Errorf("sqlite: recording login for %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// List returns one page of users in primary-key (creation) order.
func (db *UserDB) List(ctx context.Context, opts repository.ListOptions) (*repository.Page[model.User], error) {
	page, err := listPage(ctx, db.conn, userList, opts, scanUser)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	return page, nil
}

// Delete removes a user. The profile and all of the user's articles go
// with it through ON DELETE CASCADE.
func (db *UserDB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
