package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
)

var _ repository.ArticleRepository = (*ArticleDB)(nil)

// ArticleDB stores articles.
type ArticleDB struct {
	conn *sql.DB
}

const articleColumns = `a.id, a.author_id, a.title, a.slug, a.content, a.created_at, a.updated_at`

var articleList = listQuery{
	selectCols: articleColumns,
	from:       "articles a",
	key:        "a.id",
	columns: map[string]string{
		"author":    "a.author_id",
		"title":     "a.title",
		"content":   "a.content",
		"slug":      "a.slug",
		"createdAt": "a.created_at",
		"updatedAt": "a.updated_at",
	},
}

func scanArticle(row rowScanner) (model.Article, error) {
	var (
		a                model.Article
		created, updated int64
	)
	if err := row.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Slug, &a.Content, &created, &updated); err != nil {
		return model.Article{}, err
	}
	a.CreatedAt = fromUnix(created)
	a.UpdatedAt = fromUnix(updated)
	return a, nil
}

// Create inserts a new article. The author must exist; a foreign key
// violation is reported as apperror.ErrNotFound for the author.
func (db *ArticleDB) Create(ctx context.Context, article *model.Article) error {
	ts := now()
	article.ID = xid.New().String()
	article.CreatedAt = ts
	article.UpdatedAt = ts

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO articles (id, author_id, title, slug, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		article.ID,
		article.AuthorID,
		article.Title,
		article.Slug,
		article.Content,
		toUnix(article.CreatedAt),
		toUnix(article.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", article.AuthorID)
		}
		return fmt.Errorf("sqlite: creating article: %w", err)
	}
	return nil
}

// GetByID retrieves a single article by ID.
func (db *ArticleDB) GetByID(ctx context.Context, id string) (*model.Article, error) {
	a, err := scanArticle(db.conn.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("article", id)
		}
		return nil, fmt.Errorf("sqlite: getting article %s: %w", id, err)
	}
	return &a, nil
}

// List returns one page of articles in primary-key (creation) order.
func (db *ArticleDB) List(ctx context.Context, opts repository.ListOptions) (*repository.Page[model.Article], error) {
	page, err := listPage(ctx, db.conn, articleList, opts, scanArticle)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing articles: %w", err)
	}
	return page, nil
}

// Delete removes an article by ID.
func (db *ArticleDB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting article %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("article", id)
	}
	return nil
}
