package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestArticleCreate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "alice", "Alice")

	a := &model.Article{AuthorID: u.ID, Title: "Hello", Slug: "hello", Content: "World"}
	require.NoError(t, db.Articles().Create(ctx, a))
	assert.NotEmpty(t, a.ID)

	got, err := db.Articles().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.AuthorID)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "hello", got.Slug)
	assert.Equal(t, "World", got.Content)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
}

func TestArticleCreate_UnknownAuthor(t *testing.T) {
	db := newTestDB(t)
	err := db.Articles().Create(context.Background(), &model.Article{AuthorID: "ghost", Title: "t"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestArticleCreate_TitleTooLongRejectedByStore(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice", "Alice")

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	err := db.Articles().Create(context.Background(), &model.Article{AuthorID: u.ID, Title: string(long)})
	assert.Error(t, err)
}

func TestArticleGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Articles().GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// LIST / FILTER TESTS
// =========================================================================

func TestArticleList_CreatedAtLT(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "alice", "Alice")

	early := createTestArticle(t, db, u.ID, "early", "")
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)
	createTestArticle(t, db, u.ID, "late", "")

	page, err := db.Articles().List(ctx, repository.ListOptions{
		Filter: repository.Filter{}.Where("createdAt", repository.OpLT, cutoff),
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, early.ID, page.Items[0].ID)

	// lt is strict: an article's own timestamp does not match itself.
	page, err = db.Articles().List(ctx, repository.ListOptions{
		Filter: repository.Filter{}.Where("createdAt", repository.OpLT, early.CreatedAt),
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = db.Articles().List(ctx, repository.ListOptions{
		Filter: repository.Filter{}.Where("createdAt", repository.OpExact, early.CreatedAt),
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, early.ID, page.Items[0].ID)
}

func TestArticleList_CreatedAtGT(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice", "Alice")

	createTestArticle(t, db, u.ID, "early", "")
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)
	late := createTestArticle(t, db, u.ID, "late", "")

	page, err := db.Articles().List(context.Background(), repository.ListOptions{
		Filter: repository.Filter{}.Where("createdAt", repository.OpGT, cutoff),
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, late.ID, page.Items[0].ID)
}

func TestArticleList_AuthorAndTitle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")

	a1 := createTestArticle(t, db, alice.ID, "Go tips", "")
	createTestArticle(t, db, alice.ID, "Rust notes", "")
	createTestArticle(t, db, bob.ID, "More GO", "")

	page, err := db.Articles().List(ctx, repository.ListOptions{
		Filter: repository.Filter{}.
			Where("author", repository.OpExact, alice.ID).
			Where("title", repository.OpIContains, "go"),
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a1.ID, page.Items[0].ID)

	page, err = db.Articles().List(ctx, repository.ListOptions{
		Filter: repository.Filter{}.Where("title", repository.OpIContains, "go"),
	})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestArticleList_ContentExact(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice", "Alice")
	createTestArticle(t, db, u.ID, "a", "World")
	createTestArticle(t, db, u.ID, "b", "world")

	page, err := db.Articles().List(context.Background(), repository.ListOptions{
		Filter: repository.Filter{}.Where("content", repository.OpExact, "World"),
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a", page.Items[0].Title)
}

func TestArticleList_StoredOrderFollowsCreation(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "ordered", "Ordered")

	var want []string
	for i := 0; i < 50; i++ {
		want = append(want, createTestArticle(t, db, author.ID, "t", "c").ID)
	}

	page, err := db.Articles().List(context.Background(), repository.ListOptions{First: repository.PageSize(repository.MaxListLimit)})
	require.NoError(t, err)
	var got []string
	for _, a := range page.Items {
		got = append(got, a.ID)
	}
	assert.Equal(t, want, got)
}

func TestArticleDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "alice", "Alice")
	a := createTestArticle(t, db, u.ID, "gone", "")

	require.NoError(t, db.Articles().Delete(ctx, a.ID))
	assert.ErrorIs(t, db.Articles().Delete(ctx, a.ID), apperror.ErrNotFound)
}
