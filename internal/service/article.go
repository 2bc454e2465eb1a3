package service

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/auth"
	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
)

// NotAuthenticatedPostMessage is returned to anonymous callers of Post.
const NotAuthenticatedPostMessage = "Please login before posting your article."

// ArticleService handles posting and reading articles.
type ArticleService struct {
	articles repository.ArticleRepository
	logger   *slog.Logger
}

func NewArticleService(articles repository.ArticleRepository, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		articles: articles,
		logger:   logger,
	}
}

// Post creates an article authored by the caller.
//
// The order is fixed: check the session, bind the author, insert. There is
// no way to post on someone else's behalf; the author always comes from
// the session in ctx. Anonymous callers get apperror.ErrUnauthenticated
// and nothing is written.
func (s *ArticleService) Post(ctx context.Context, title, content string) (*model.Article, error) {
	authorID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, apperror.NotAuthenticated(NotAuthenticatedPostMessage)
	}

	title = trim(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title", fmt.Sprintf("title must be %d characters or fewer", MaxTitleLength))
	}
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content", "content is too long")
	}

	article := &model.Article{
		AuthorID: authorID,
		Title:    title,
		Slug:     slug.Make(title),
		Content:  content,
	}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("service/article: creating article: %w", err)
	}

	s.logger.Info("article posted",
		slog.String("id", article.ID),
		slog.String("author", authorID),
		slog.String("slug", article.Slug),
	)
	return article, nil
}

// Get returns an article by ID.
func (s *ArticleService) Get(ctx context.Context, id string) (*model.Article, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "article id is required")
	}
	return s.articles.GetByID(ctx, id)
}

// List returns one page of articles. The filter may only use
// repository.ArticleFields.
func (s *ArticleService) List(ctx context.Context, opts repository.ListOptions) (*repository.Page[model.Article], error) {
	if err := repository.ArticleFields.ValidateOptions(opts); err != nil {
		return nil, err
	}
	return s.articles.List(ctx, opts)
}

// ListByAuthor pages through one user's articles.
func (s *ArticleService) ListByAuthor(ctx context.Context, authorID string, opts repository.ListOptions) (*repository.Page[model.Article], error) {
	opts.Filter = append(repository.Filter{}.Where("author", repository.OpExact, authorID), opts.Filter...)
	return s.List(ctx, opts)
}

// Delete removes an article. Used by administrative tooling.
func (s *ArticleService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperror.ValidationFailed("id", "article id is required")
	}
	if err := s.articles.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("article deleted", slog.String("id", id))
	return nil
}
