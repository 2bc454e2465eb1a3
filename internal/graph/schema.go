// Package graph exposes users, profiles and articles as a GraphQL API.
//
// The schema lives in schema.graphql and is bound to resolvers by
// graph-gophers/graphql-go through reflection on method names: the field
// allUsers resolves through (*Resolver).AllUsers, createdAt_lt fills the
// CreatedAtLt argument field, and so on. ParseSchema fails at startup if a
// field has no matching method, so a schema/resolver mismatch never ships.
package graph

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	graphql "github.com/graph-gophers/graphql-go"
)

//go:embed schema.graphql
var schemaSDL string

// SDL returns the schema document served by the API.
func SDL() string {
	return schemaSDL
}

// NewSchema parses the schema and binds it to r. maxDepth <= 0 disables
// the query depth limit.
func NewSchema(r *Resolver, maxDepth int) (*graphql.Schema, error) {
	opts := []graphql.SchemaOpt{
		graphql.Logger(panicLogger{logger: r.logger}),
		graphql.MaxParallelism(10),
	}
	if maxDepth > 0 {
		opts = append(opts, graphql.MaxDepth(maxDepth))
	}
	schema, err := graphql.ParseSchema(schemaSDL, r, opts...)
	if err != nil {
		return nil, fmt.Errorf("graph: parsing schema: %w", err)
	}
	return schema, nil
}

// panicLogger routes resolver panics to slog instead of the standard logger.
type panicLogger struct {
	logger *slog.Logger
}

func (l panicLogger) LogPanic(ctx context.Context, value interface{}) {
	l.logger.ErrorContext(ctx, "graphql resolver panic", slog.Any("panic", value))
}
