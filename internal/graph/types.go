package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/sakif/needley/internal/model"
)

type userResolver struct {
	r    *Resolver
	user *model.User
}

func (u *userResolver) ID() graphql.ID {
	return globalID(kindUser, u.user.ID)
}

func (u *userResolver) Username() string {
	return u.user.Username
}

func (u *userResolver) Profile() *profileResolver {
	return &profileResolver{profile: &u.user.Profile}
}

func (u *userResolver) CreatedAt() graphql.Time {
	return gqlTime(u.user.CreatedAt)
}

func (u *userResolver) UpdatedAt() graphql.Time {
	return gqlTime(u.user.UpdatedAt)
}

func (u *userResolver) LastLogin() *graphql.Time {
	if u.user.LastLogin == nil {
		return nil
	}
	t := gqlTime(*u.user.LastLogin)
	return &t
}

// Articles lists the user's articles, oldest first.
func (u *userResolver) Articles(ctx context.Context, args pageArgs) (*articleConnectionResolver, error) {
	opts, err := args.options(kindArticle, nil)
	if err != nil {
		return nil, u.r.toGraphQLError(ctx, "User.articles", err)
	}
	page, err := u.r.articles.ListByAuthor(ctx, u.user.ID, opts)
	if err != nil {
		return nil, u.r.toGraphQLError(ctx, "User.articles", err)
	}
	return &articleConnectionResolver{r: u.r, page: page}, nil
}

type profileResolver struct {
	profile *model.Profile
}

func (p *profileResolver) ID() graphql.ID {
	return globalID(kindProfile, p.profile.ID)
}

func (p *profileResolver) Nickname() string {
	return p.profile.Nickname
}

func (p *profileResolver) Avatar() *string {
	if p.profile.Avatar == "" {
		return nil
	}
	return &p.profile.Avatar
}

type articleResolver struct {
	r       *Resolver
	article *model.Article
}

func (a *articleResolver) ID() graphql.ID {
	return globalID(kindArticle, a.article.ID)
}

func (a *articleResolver) Title() string   { return a.article.Title }
func (a *articleResolver) Slug() string    { return a.article.Slug }
func (a *articleResolver) Content() string { return a.article.Content }

func (a *articleResolver) Author(ctx context.Context) (*userResolver, error) {
	user, err := a.r.accounts.Get(ctx, a.article.AuthorID)
	if err != nil {
		return nil, a.r.toGraphQLError(ctx, "Article.author", err)
	}
	return &userResolver{r: a.r, user: user}, nil
}

func (a *articleResolver) CreatedAt() graphql.Time {
	return gqlTime(a.article.CreatedAt)
}

func (a *articleResolver) UpdatedAt() graphql.Time {
	return gqlTime(a.article.UpdatedAt)
}

// nodeResolver backs the Node interface; graphql-go picks the concrete
// type through the To<Type> methods.
type nodeResolver struct {
	node interface{ ID() graphql.ID }
}

func (n *nodeResolver) ID() graphql.ID {
	return n.node.ID()
}

func (n *nodeResolver) ToUser() (*userResolver, bool) {
	u, ok := n.node.(*userResolver)
	return u, ok
}

func (n *nodeResolver) ToArticle() (*articleResolver, bool) {
	a, ok := n.node.(*articleResolver)
	return a, ok
}

func (n *nodeResolver) ToProfile() (*profileResolver, bool) {
	p, ok := n.node.(*profileResolver)
	return p, ok
}
