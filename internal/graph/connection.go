package graph

import (
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
)

// pageArgs are the Relay connection arguments shared by every list field.
type pageArgs struct {
	First  *int32
	After  *string
	Last   *int32
	Before *string
}

// options turns connection arguments into repository options, decoding
// cursors of the given node kind.
func (a pageArgs) options(kind string, filter repository.Filter) (repository.ListOptions, error) {
	opts := repository.ListOptions{Filter: filter}
	if a.First != nil {
		opts.First = repository.PageSize(int(*a.First))
	}
	if a.Last != nil {
		opts.Last = repository.PageSize(int(*a.Last))
	}
	var err error
	if opts.After, err = decodeCursor(a.After, kind, "after"); err != nil {
		return opts, err
	}
	if opts.Before, err = decodeCursor(a.Before, kind, "before"); err != nil {
		return opts, err
	}
	return opts, nil
}

// filterBuilder collects the optional filter arguments that were supplied.
type filterBuilder struct {
	filter repository.Filter
}

func (b *filterBuilder) str(field string, op repository.Operator, v *string) {
	if v != nil {
		b.filter = b.filter.Where(field, op, *v)
	}
}

func (b *filterBuilder) time(field string, op repository.Operator, v *graphql.Time) {
	if v != nil {
		b.filter = b.filter.Where(field, op, v.Time)
	}
}

type pageInfoResolver struct {
	hasNext     bool
	hasPrevious bool
	start       *string
	end         *string
}

func newPageInfo(hasNext, hasPrevious bool, cursors []string) *pageInfoResolver {
	p := &pageInfoResolver{hasNext: hasNext, hasPrevious: hasPrevious}
	if len(cursors) > 0 {
		p.start = &cursors[0]
		p.end = &cursors[len(cursors)-1]
	}
	return p
}

func (p *pageInfoResolver) HasNextPage() bool     { return p.hasNext }
func (p *pageInfoResolver) HasPreviousPage() bool { return p.hasPrevious }
func (p *pageInfoResolver) StartCursor() *string  { return p.start }
func (p *pageInfoResolver) EndCursor() *string    { return p.end }

type userConnectionResolver struct {
	r    *Resolver
	page *repository.Page[model.User]
}

type userEdgeResolver struct {
	cursor string
	node   *userResolver
}

func (e *userEdgeResolver) Cursor() string      { return e.cursor }
func (e *userEdgeResolver) Node() *userResolver { return e.node }

func (c *userConnectionResolver) Edges() []*userEdgeResolver {
	edges := make([]*userEdgeResolver, len(c.page.Items))
	for i := range c.page.Items {
		u := &c.page.Items[i]
		edges[i] = &userEdgeResolver{
			cursor: encodeCursor(kindUser, u.ID),
			node:   &userResolver{r: c.r, user: u},
		}
	}
	return edges
}

func (c *userConnectionResolver) PageInfo() *pageInfoResolver {
	cursors := make([]string, len(c.page.Items))
	for i, u := range c.page.Items {
		cursors[i] = encodeCursor(kindUser, u.ID)
	}
	return newPageInfo(c.page.HasNextPage, c.page.HasPreviousPage, cursors)
}

func (c *userConnectionResolver) TotalCount() int32 {
	return int32(c.page.TotalCount)
}

type articleConnectionResolver struct {
	r    *Resolver
	page *repository.Page[model.Article]
}

type articleEdgeResolver struct {
	cursor string
	node   *articleResolver
}

func (e *articleEdgeResolver) Cursor() string         { return e.cursor }
func (e *articleEdgeResolver) Node() *articleResolver { return e.node }

func (c *articleConnectionResolver) Edges() []*articleEdgeResolver {
	edges := make([]*articleEdgeResolver, len(c.page.Items))
	for i := range c.page.Items {
		a := &c.page.Items[i]
		edges[i] = &articleEdgeResolver{
			cursor: encodeCursor(kindArticle, a.ID),
			node:   &articleResolver{r: c.r, article: a},
		}
	}
	return edges
}

func (c *articleConnectionResolver) PageInfo() *pageInfoResolver {
	cursors := make([]string, len(c.page.Items))
	for i, a := range c.page.Items {
		cursors[i] = encodeCursor(kindArticle, a.ID)
	}
	return newPageInfo(c.page.HasNextPage, c.page.HasPreviousPage, cursors)
}

func (c *articleConnectionResolver) TotalCount() int32 {
	return int32(c.page.TotalCount)
}

func gqlTime(t time.Time) graphql.Time {
	return graphql.Time{Time: t}
}
