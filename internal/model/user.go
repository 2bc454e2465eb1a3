// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// PasswordHash is empty for accounts created through GitHub sign-in; those
// accounts cannot log in with a password. GitHubID is nil for accounts that
// registered with a password.
//
// Every User has exactly one Profile, loaded alongside it by the repository.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"` // empty when unknown (hidden GitHub email)
	PasswordHash string     `json:"-"`
	GitHubID     *int64     `json:"githubId,omitempty"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Profile      Profile    `json:"profile"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Profile holds the public display identity of a User.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Nickname  string    `json:"nickname"`
	Avatar    string    `json:"avatar,omitempty"` // absolute URL, empty when unset
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
