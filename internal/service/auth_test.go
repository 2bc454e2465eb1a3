package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/auth"
)

func newTestAuthService(t *testing.T) (*AuthService, *AccountService, *fakeUserRepo, *fakeSessions) {
	t.Helper()
	users := newFakeUserRepo()
	sessions := &fakeSessions{}
	passwords := testPasswords()
	authSvc := NewAuthService(users, passwords, sessions, testLogger())
	accounts := NewAccountService(users, passwords, sessions, testLogger())
	return authSvc, accounts, users, sessions
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	svc, accounts, users, sessions := newTestAuthService(t)
	registered, err := accounts.Register(context.Background(), aliceInput())
	require.NoError(t, err)

	fixed := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	user, err := svc.Login(anonymous(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, []string{registered.ID}, sessions.begun)

	require.NotNil(t, user.LastLogin)
	assert.True(t, fixed.Equal(*user.LastLogin))
	assert.True(t, fixed.Equal(*users.users[registered.ID].LastLogin))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, accounts, _, sessions := newTestAuthService(t)
	_, err := accounts.Register(context.Background(), aliceInput())
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "nope"},
		{"unknown user", "mallory", "pw"},
		{"empty password", "alice", ""},
		{"empty username", "", "pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(anonymous(), tt.username, tt.password)
			assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
		})
	}
	assert.Empty(t, sessions.begun, "no session is established on failure")
}

func TestLogin_InvalidCredentials_PasswordLongerThanStored(t *testing.T) {
	svc, accounts, _, sessions := newTestAuthService(t)
	pw := strings.Repeat("a", auth.MaxPasswordBytes)
	in := aliceInput()
	in.Password = pw
	_, err := accounts.Register(context.Background(), in)
	require.NoError(t, err)

	user, err := svc.Login(anonymous(), "alice", pw+"WRONG-SUFFIX")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	assert.Nil(t, user)
	assert.Empty(t, sessions.begun)

	_, err = svc.Login(anonymous(), "alice", pw)
	require.NoError(t, err)
	assert.Len(t, sessions.begun, 1)
}

func TestLogin_PasswordlessAccountCannotLogIn(t *testing.T) {
	svc, _, _, sessions := newTestAuthService(t)
	_, err := svc.LoginWithGitHub(anonymous(), &auth.GitHubUser{ID: 7, Login: "octo"})
	require.NoError(t, err)
	sessions.begun = nil

	_, err = svc.Login(anonymous(), "octo", "")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	_, err = svc.Login(anonymous(), "octo", "anything")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	assert.Empty(t, sessions.begun)
}

func TestLogin_RecordLoginFailureDoesNotFailLogin(t *testing.T) {
	svc, accounts, users, _ := newTestAuthService(t)
	_, err := accounts.Register(context.Background(), aliceInput())
	require.NoError(t, err)
	users.recordLoginErr = errors.New("disk full")

	user, err := svc.Login(anonymous(), "alice", "pw")
	require.NoError(t, err)
	assert.Nil(t, user.LastLogin)
}

func TestLogin_SessionFailure(t *testing.T) {
	svc, accounts, _, sessions := newTestAuthService(t)
	_, err := accounts.Register(context.Background(), aliceInput())
	require.NoError(t, err)
	sessions.beginErr = auth.ErrNoSession

	_, err = svc.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

// =========================================================================
// LOGOUT / CURRENT USER TESTS
// =========================================================================

func TestLogout(t *testing.T) {
	svc, _, _, sessions := newTestAuthService(t)
	require.NoError(t, svc.Logout(asUser("user-01")))
	assert.Equal(t, 1, sessions.ended)
}

func TestCurrentUser(t *testing.T) {
	svc, accounts, _, _ := newTestAuthService(t)
	u, err := accounts.Register(context.Background(), aliceInput())
	require.NoError(t, err)

	me, err := svc.CurrentUser(asUser(u.ID))
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, "alice", me.Username)

	me, err = svc.CurrentUser(anonymous())
	require.NoError(t, err)
	assert.Nil(t, me)

	me, err = svc.CurrentUser(asUser("deleted-user"))
	require.NoError(t, err)
	assert.Nil(t, me)
}

// =========================================================================
// GITHUB TESTS
// =========================================================================

func TestLoginWithGitHub_CreatesThenReuses(t *testing.T) {
	svc, _, users, sessions := newTestAuthService(t)
	gh := &auth.GitHubUser{ID: 42, Login: "octocat", Email: "octo@github.com", AvatarURL: "https://avatars.example/42"}

	first, err := svc.LoginWithGitHub(anonymous(), gh)
	require.NoError(t, err)
	assert.Equal(t, "octocat", first.Username)
	assert.Equal(t, "octocat", first.Profile.Nickname)
	assert.Equal(t, "https://avatars.example/42", first.Profile.Avatar)
	assert.False(t, first.HasPassword())

	gh.AvatarURL = "https://avatars.example/42?v=2"
	second, err := svc.LoginWithGitHub(anonymous(), gh)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "https://avatars.example/42?v=2", users.users[first.ID].Profile.Avatar)
	assert.Equal(t, []string{first.ID, first.ID}, sessions.begun)
}

func TestLoginWithGitHub_UsernameTaken(t *testing.T) {
	svc, accounts, _, _ := newTestAuthService(t)
	in := aliceInput()
	in.Username = "octocat"
	in.Email = "octo@github.com"
	_, err := accounts.Register(context.Background(), in)
	require.NoError(t, err)

	user, err := svc.LoginWithGitHub(anonymous(), &auth.GitHubUser{ID: 42, Login: "octocat", Email: "octo@github.com"})
	require.NoError(t, err)
	assert.Equal(t, "octocat-42", user.Username)
	assert.Empty(t, user.Email, "an email owned by another account is not linked")
}

func TestLoginWithGitHub_LongLoginTruncatesNickname(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	user, err := svc.LoginWithGitHub(anonymous(), &auth.GitHubUser{ID: 1, Login: "a-very-long-github-login-name"})
	require.NoError(t, err)
	assert.Equal(t, "a-very-long-github-l", user.Profile.Nickname)
}

func TestLoginWithGitHub_Nil(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	_, err := svc.LoginWithGitHub(anonymous(), nil)
	assert.Error(t, err)
}
