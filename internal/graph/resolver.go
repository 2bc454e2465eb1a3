package graph

import (
	"context"
	"log/slog"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/repository"
	"github.com/sakif/needley/internal/service"
)

// Resolver is the root of both the query and the mutation type.
type Resolver struct {
	accounts *service.AccountService
	auth     *service.AuthService
	articles *service.ArticleService
	logger   *slog.Logger
}

func NewResolver(
	accounts *service.AccountService,
	authService *service.AuthService,
	articles *service.ArticleService,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		accounts: accounts,
		auth:     authService,
		articles: articles,
		logger:   logger,
	}
}

type idArgs struct {
	ID graphql.ID
}

func (r *Resolver) Node(ctx context.Context, args idArgs) (*nodeResolver, error) {
	kind, pk, err := decodeID(args.ID, "id")
	if err != nil {
		return nil, r.toGraphQLError(ctx, "node", err)
	}
	var node interface{ ID() graphql.ID }
	switch kind {
	case kindUser:
		user, err := r.accounts.Get(ctx, pk)
		if err != nil {
			return nil, r.toGraphQLError(ctx, "node", err)
		}
		node = &userResolver{r: r, user: user}
	case kindProfile:
		profile, err := r.accounts.GetProfile(ctx, pk)
		if err != nil {
			return nil, r.toGraphQLError(ctx, "node", err)
		}
		node = &profileResolver{profile: profile}
	case kindArticle:
		article, err := r.articles.Get(ctx, pk)
		if err != nil {
			return nil, r.toGraphQLError(ctx, "node", err)
		}
		node = &articleResolver{r: r, article: article}
	default:
		return nil, r.toGraphQLError(ctx, "node", apperror.NotFound("node", string(args.ID)))
	}
	return &nodeResolver{node: node}, nil
}

// Me is null for anonymous callers rather than an error.
func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	user, err := r.auth.CurrentUser(ctx)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "me", err)
	}
	if user == nil {
		return nil, nil
	}
	return &userResolver{r: r, user: user}, nil
}

func (r *Resolver) User(ctx context.Context, args idArgs) (*userResolver, error) {
	pk, err := primaryKey(args.ID, kindUser, "id", "user")
	if err != nil {
		return nil, r.toGraphQLError(ctx, "user", err)
	}
	user, err := r.accounts.Get(ctx, pk)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "user", err)
	}
	return &userResolver{r: r, user: user}, nil
}

func (r *Resolver) Profile(ctx context.Context, args idArgs) (*profileResolver, error) {
	pk, err := primaryKey(args.ID, kindProfile, "id", "profile")
	if err != nil {
		return nil, r.toGraphQLError(ctx, "profile", err)
	}
	profile, err := r.accounts.GetProfile(ctx, pk)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "profile", err)
	}
	return &profileResolver{profile: profile}, nil
}

type allUsersArgs struct {
	First             *int32
	After             *string
	Last              *int32
	Before            *string
	Username          *string
	UsernameIcontains *string
	Nickname          *string
	NicknameIcontains *string
	CreatedAt         *graphql.Time
	CreatedAtLt       *graphql.Time
	CreatedAtGt       *graphql.Time
	UpdatedAt         *graphql.Time
	UpdatedAtLt       *graphql.Time
	UpdatedAtGt       *graphql.Time
	LastLogin         *graphql.Time
	LastLoginLt       *graphql.Time
	LastLoginGt       *graphql.Time
}

func (a allUsersArgs) filter() repository.Filter {
	var b filterBuilder
	b.str("username", repository.OpExact, a.Username)
	b.str("username", repository.OpIContains, a.UsernameIcontains)
	b.str("nickname", repository.OpExact, a.Nickname)
	b.str("nickname", repository.OpIContains, a.NicknameIcontains)
	b.time("createdAt", repository.OpExact, a.CreatedAt)
	b.time("createdAt", repository.OpLT, a.CreatedAtLt)
	b.time("createdAt", repository.OpGT, a.CreatedAtGt)
	b.time("updatedAt", repository.OpExact, a.UpdatedAt)
	b.time("updatedAt", repository.OpLT, a.UpdatedAtLt)
	b.time("updatedAt", repository.OpGT, a.UpdatedAtGt)
	b.time("lastLogin", repository.OpExact, a.LastLogin)
	b.time("lastLogin", repository.OpLT, a.LastLoginLt)
	b.time("lastLogin", repository.OpGT, a.LastLoginGt)
	return b.filter
}

func (r *Resolver) AllUsers(ctx context.Context, args allUsersArgs) (*userConnectionResolver, error) {
	page := pageArgs{First: args.First, After: args.After, Last: args.Last, Before: args.Before}
	opts, err := page.options(kindUser, args.filter())
	if err != nil {
		return nil, r.toGraphQLError(ctx, "allUsers", err)
	}
	users, err := r.accounts.List(ctx, opts)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "allUsers", err)
	}
	return &userConnectionResolver{r: r, page: users}, nil
}

func (r *Resolver) Article(ctx context.Context, args idArgs) (*articleResolver, error) {
	pk, err := primaryKey(args.ID, kindArticle, "id", "article")
	if err != nil {
		return nil, r.toGraphQLError(ctx, "article", err)
	}
	article, err := r.articles.Get(ctx, pk)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "article", err)
	}
	return &articleResolver{r: r, article: article}, nil
}

type allArticlesArgs struct {
	First            *int32
	After            *string
	Last             *int32
	Before           *string
	Author           *graphql.ID
	Title            *string
	TitleIcontains   *string
	Content          *string
	ContentIcontains *string
	Slug             *string
	SlugIcontains    *string
	CreatedAt        *graphql.Time
	CreatedAtLt      *graphql.Time
	CreatedAtGt      *graphql.Time
	UpdatedAt        *graphql.Time
	UpdatedAtLt      *graphql.Time
	UpdatedAtGt      *graphql.Time
}

func (a allArticlesArgs) filter() (repository.Filter, error) {
	var b filterBuilder
	if a.Author != nil {
		pk, err := primaryKey(*a.Author, kindUser, "author", "user")
		if err != nil {
			return nil, err
		}
		b.str("author", repository.OpExact, &pk)
	}
	b.str("title", repository.OpExact, a.Title)
	b.str("title", repository.OpIContains, a.TitleIcontains)
	b.str("content", repository.OpExact, a.Content)
	b.str("content", repository.OpIContains, a.ContentIcontains)
	b.str("slug", repository.OpExact, a.Slug)
	b.str("slug", repository.OpIContains, a.SlugIcontains)
	b.time("createdAt", repository.OpExact, a.CreatedAt)
	b.time("createdAt", repository.OpLT, a.CreatedAtLt)
	b.time("createdAt", repository.OpGT, a.CreatedAtGt)
	b.time("updatedAt", repository.OpExact, a.UpdatedAt)
	b.time("updatedAt", repository.OpLT, a.UpdatedAtLt)
	b.time("updatedAt", repository.OpGT, a.UpdatedAtGt)
	return b.filter, nil
}

func (r *Resolver) AllArticles(ctx context.Context, args allArticlesArgs) (*articleConnectionResolver, error) {
	filter, err := args.filter()
	if err != nil {
		return nil, r.toGraphQLError(ctx, "allArticles", err)
	}
	page := pageArgs{First: args.First, After: args.After, Last: args.Last, Before: args.Before}
	opts, err := page.options(kindArticle, filter)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "allArticles", err)
	}
	articles, err := r.articles.List(ctx, opts)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "allArticles", err)
	}
	return &articleConnectionResolver{r: r, page: articles}, nil
}
