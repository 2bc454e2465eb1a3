package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/sakif/needley/internal/auth"
)

// maxRequestBytes caps a GraphQL request body.
const maxRequestBytes = 1 << 20

// graphqlRequest is the standard GraphQL-over-HTTP POST body.
type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// GraphQLHandler serves POST /graphql.
//
// RESPONSE COOKIES:
// Mutations like login and logout change the session while resolvers run,
// but they never see the ResponseWriter. They record the change on the
// request's *auth.Session and this handler turns it into a Set-Cookie
// header after Exec returns and before the body is written.
type GraphQLHandler struct {
	schema        *graphql.Schema
	secureCookies bool
	logger        *slog.Logger
}

func NewGraphQLHandler(schema *graphql.Schema, secureCookies bool, logger *slog.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		schema:        schema,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleQuery executes one GraphQL operation.
//
// HTTP: POST /graphql
//
// Errors from the operation itself (validation, resolver errors) come back
// with 200 in the "errors" array, as GraphQL clients expect. Only a body that
// is not a GraphQL request at all gets a 4xx.
func (h *GraphQLHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeGraphQLError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.logger.Warn("invalid GraphQL request body", slog.String("error", err.Error()))
		writeGraphQLError(w, http.StatusBadRequest, "request body must be a JSON GraphQL request")
		return
	}
	if req.Query == "" {
		writeGraphQLError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	resp := h.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)

	auth.WriteSessionCookie(w, auth.SessionFromContext(r.Context()), h.secureCookies)
	writeJSON(w, http.StatusOK, resp)
}

// writeGraphQLError answers in GraphQL's error shape so clients can parse
// transport-level failures the same way as execution errors.
func writeGraphQLError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"errors": []map[string]string{{"message": message}},
	})
}
