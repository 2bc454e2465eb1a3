package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/repository"
)

func newTestArticleService() (*ArticleService, *fakeArticleRepo) {
	repo := newFakeArticleRepo()
	return NewArticleService(repo, testLogger()), repo
}

// =========================================================================
// POST TESTS
// =========================================================================

func TestPost_BindsAuthorFromSession(t *testing.T) {
	svc, repo := newTestArticleService()

	a, err := svc.Post(asUser("user-01"), "Hello", "World")
	require.NoError(t, err)

	assert.Equal(t, "user-01", a.AuthorID)
	assert.Equal(t, "Hello", a.Title)
	assert.Equal(t, "World", a.Content)
	assert.Equal(t, "hello", a.Slug)
	assert.Len(t, repo.articles, 1)
}

func TestPost_NotAuthenticated(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"anonymous session", anonymous()},
		{"no session at all", context.Background()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestArticleService()

			_, err := svc.Post(tt.ctx, "Hello", "World")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
			assert.Equal(t, NotAuthenticatedPostMessage, err.Error())
			assert.Empty(t, repo.articles, "no article may be created")
		})
	}
}

func TestPost_UnauthenticatedBeatsValidation(t *testing.T) {
	svc, _ := newTestArticleService()
	_, err := svc.Post(anonymous(), "", "")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestPost_Validation(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		content   string
		wantField string
	}{
		{"empty title", "   ", "x", "title"},
		{"title too long", strings.Repeat("t", 101), "x", "title"},
		{"content too long", "ok", strings.Repeat("c", MaxContentLength+1), "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestArticleService()
			_, err := svc.Post(asUser("user-01"), tt.title, tt.content)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Empty(t, repo.articles)
		})
	}
}

func TestPost_TitleLimitCountsRunes(t *testing.T) {
	svc, _ := newTestArticleService()
	_, err := svc.Post(asUser("user-01"), strings.Repeat("ü", 100), "")
	assert.NoError(t, err)
}

func TestPost_EmptyContentAllowed(t *testing.T) {
	svc, _ := newTestArticleService()
	a, err := svc.Post(asUser("user-01"), "Title only", "")
	require.NoError(t, err)
	assert.Equal(t, "", a.Content)
}

func TestPost_StoreErrorSurfaces(t *testing.T) {
	svc, repo := newTestArticleService()
	repo.createErr = apperror.NotFound("user", "user-01")

	_, err := svc.Post(asUser("user-01"), "Hello", "World")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestArticleList_ValidatesFilter(t *testing.T) {
	svc, _ := newTestArticleService()
	_, err := svc.List(context.Background(), repository.ListOptions{
		Filter: repository.Filter{}.Where("nickname", repository.OpExact, "x"),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestListByAuthor_PrependsAuthorCondition(t *testing.T) {
	svc, repo := newTestArticleService()
	_, err := svc.ListByAuthor(context.Background(), "user-01", repository.ListOptions{
		Filter: repository.Filter{}.Where("title", repository.OpIContains, "go"),
	})
	require.NoError(t, err)
	require.Len(t, repo.lastOpts.Filter, 2)
	assert.Equal(t, repository.Condition{Field: "author", Op: repository.OpExact, Value: "user-01"}, repo.lastOpts.Filter[0])
}

func TestArticleGet_NotFound(t *testing.T) {
	svc, _ := newTestArticleService()
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
