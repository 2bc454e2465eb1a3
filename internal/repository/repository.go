package repository

import (
	"context"
	"time"

	"github.com/sakif/needley/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListOptions selects one page of a filtered collection.
//
// First/After page forward, Last/Before page backward. After and Before are
// primary keys (cursors are decoded by the API layer). A nil First or Last
// is unset; an explicit zero asks for an empty page.
type ListOptions struct {
	Filter Filter
	First  *int
	After  string
	Last   *int
	Before string
}

// PageSize returns a pointer to n for ListOptions.First and Last.
func PageSize(n int) *int { return &n }

// Backward reports whether the page is taken from the end of the range.
func (o ListOptions) Backward() bool {
	return o.Last != nil && o.First == nil
}

// Limit is the clamped page size.
func (o ListOptions) Limit() int {
	n := o.First
	if o.Backward() {
		n = o.Last
	}
	switch {
	case n == nil:
		return DefaultListLimit
	case *n < 0:
		return 0
	case *n > MaxListLimit:
		return MaxListLimit
	}
	return *n
}

// Page is one slice of a collection in primary-key order.
type Page[T any] struct {
	Items           []T
	HasNextPage     bool
	HasPreviousPage bool
	TotalCount      int
}

type UserRepository interface {
	// Create inserts the user and its profile in one transaction.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// ExistsByUsernameOrEmail reports whether either value is already taken.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, opts ListOptions) (*Page[model.User], error)
	Delete(ctx context.Context, id string) error
}

type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	GetByID(ctx context.Context, id string) (*model.Article, error)
	List(ctx context.Context, opts ListOptions) (*Page[model.Article], error)
	Delete(ctx context.Context, id string) error
}
