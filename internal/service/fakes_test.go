package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/auth"
	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository. Using a fake
// (not a mock framework) keeps the behaviour visible in one place.
type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int

	// set to a non-nil error to simulate a database failure
	createErr      error
	recordLoginErr error
	lastOpts       repository.ListOptions
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Username == u.Username || (u.Email != "" && existing.Email == u.Email) {
			return apperror.DuplicateIdentity(u.Username)
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%02d", f.nextID)
	u.Profile.ID = "profile-" + u.ID
	u.Profile.UserID = u.ID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (f *fakeUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username || (email != "" && u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) GetProfileByID(_ context.Context, id string) (*model.Profile, error) {
	for _, u := range f.users {
		if u.Profile.ID == id {
			p := u.Profile
			return &p, nil
		}
	}
	return nil, apperror.NotFound("profile", id)
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, p *model.Profile) error {
	u, ok := f.users[p.UserID]
	if !ok {
		return apperror.NotFound("profile", p.ID)
	}
	u.Profile = *p
	return nil
}

func (f *fakeUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	if f.recordLoginErr != nil {
		return f.recordLoginErr
	}
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.LastLogin = &at
	return nil
}

// List ignores the filter except for nickname icontains, which is all the
// service tests need.
func (f *fakeUserRepo) List(_ context.Context, opts repository.ListOptions) (*repository.Page[model.User], error) {
	f.lastOpts = opts
	var items []model.User
	for _, u := range f.users {
		keep := true
		for _, c := range opts.Filter {
			if c.Field == "nickname" && c.Op == repository.OpIContains {
				keep = keep && strings.Contains(strings.ToLower(u.Profile.Nickname), strings.ToLower(c.Value.(string)))
			}
		}
		if keep {
			items = append(items, *u)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &repository.Page[model.User]{Items: items, TotalCount: len(items)}, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

// fakeArticleRepo is an in-memory repository.ArticleRepository.
type fakeArticleRepo struct {
	articles  map[string]*model.Article
	nextID    int
	createErr error
	lastOpts  repository.ListOptions
}

var _ repository.ArticleRepository = (*fakeArticleRepo)(nil)

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{articles: make(map[string]*model.Article)}
}

func (f *fakeArticleRepo) Create(_ context.Context, a *model.Article) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	a.ID = fmt.Sprintf("article-%02d", f.nextID)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	copied := *a
	f.articles[a.ID] = &copied
	return nil
}

func (f *fakeArticleRepo) GetByID(_ context.Context, id string) (*model.Article, error) {
	a, ok := f.articles[id]
	if !ok {
		return nil, apperror.NotFound("article", id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeArticleRepo) List(_ context.Context, opts repository.ListOptions) (*repository.Page[model.Article], error) {
	f.lastOpts = opts
	var items []model.Article
	for _, a := range f.articles {
		items = append(items, *a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &repository.Page[model.Article]{Items: items, TotalCount: len(items)}, nil
}

func (f *fakeArticleRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.articles[id]; !ok {
		return apperror.NotFound("article", id)
	}
	delete(f.articles, id)
	return nil
}

// fakeSessions records which users were logged in or out.
type fakeSessions struct {
	begun    []string
	ended    int
	beginErr error
}

func (f *fakeSessions) Begin(_ context.Context, userID string) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.begun = append(f.begun, userID)
	return nil
}

func (f *fakeSessions) End(_ context.Context) error {
	f.ended++
	return nil
}

// testLogger discards output so test runs stay quiet.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testPasswords uses the minimum bcrypt cost.
func testPasswords() *auth.PasswordService {
	return auth.NewPasswordServiceForTest(4)
}

// asUser returns a context whose session identity is userID.
func asUser(userID string) context.Context {
	return auth.WithSession(context.Background(), auth.NewSession(&auth.Claims{
		UserID:    userID,
		TokenID:   "test-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}))
}

// anonymous returns a context with an anonymous session.
func anonymous() context.Context {
	return auth.WithSession(context.Background(), auth.NewSession(nil))
}
