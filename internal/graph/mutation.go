package graph

import (
	"context"

	"github.com/sakif/needley/internal/service"
)

type createUserArgs struct {
	Username string
	Email    string
	Password string
	Nickname string
	Avatar   *string
}

type createUserPayload struct {
	user *userResolver
}

func (p *createUserPayload) User() *userResolver { return p.user }

// CreateUser registers an account and starts a session for it.
func (r *Resolver) CreateUser(ctx context.Context, args createUserArgs) (*createUserPayload, error) {
	in := service.RegisterInput{
		Username: args.Username,
		Email:    args.Email,
		Password: args.Password,
		Nickname: args.Nickname,
	}
	if args.Avatar != nil {
		in.Avatar = *args.Avatar
	}
	user, err := r.accounts.SignUp(ctx, in)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "createUser", err)
	}
	return &createUserPayload{user: &userResolver{r: r, user: user}}, nil
}

type loginArgs struct {
	Username string
	Password string
}

type loginPayload struct {
	me *userResolver
}

func (p *loginPayload) Me() *userResolver { return p.me }

func (r *Resolver) Login(ctx context.Context, args loginArgs) (*loginPayload, error) {
	user, err := r.auth.Login(ctx, args.Username, args.Password)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "login", err)
	}
	return &loginPayload{me: &userResolver{r: r, user: user}}, nil
}

type logoutPayload struct{}

func (logoutPayload) Ok() bool { return true }

// Logout is idempotent; anonymous callers get ok=true too.
func (r *Resolver) Logout(ctx context.Context) (*logoutPayload, error) {
	if err := r.auth.Logout(ctx); err != nil {
		return nil, r.toGraphQLError(ctx, "logout", err)
	}
	return &logoutPayload{}, nil
}

type postArticleArgs struct {
	Title   string
	Content string
}

type postArticlePayload struct {
	article *articleResolver
}

func (p *postArticlePayload) Article() *articleResolver { return p.article }

func (r *Resolver) PostArticle(ctx context.Context, args postArticleArgs) (*postArticlePayload, error) {
	article, err := r.articles.Post(ctx, args.Title, args.Content)
	if err != nil {
		return nil, r.toGraphQLError(ctx, "postArticle", err)
	}
	return &postArticlePayload{article: &articleResolver{r: r, article: article}}, nil
}
