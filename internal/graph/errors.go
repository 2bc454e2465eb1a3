package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/needley/internal/apperror"
)

// Error codes reported in extensions.code.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL"
)

// resolverError is what clients see. graphql-go copies Extensions() into
// the error entry of the response.
type resolverError struct {
	message string
	code    string
	field   string
}

func (e *resolverError) Error() string {
	return e.message
}

func (e *resolverError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.code}
	if e.field != "" {
		ext["field"] = e.field
	}
	return ext
}

var codes = []struct {
	sentinel error
	code     string
}{
	{apperror.ErrValidation, CodeValidation},
	{apperror.ErrNotFound, CodeNotFound},
	{apperror.ErrDuplicateIdentity, CodeDuplicateIdentity},
	{apperror.ErrInvalidCredentials, CodeInvalidCredentials},
	{apperror.ErrUnauthenticated, CodeNotAuthenticated},
	{apperror.ErrForbidden, CodeForbidden},
}

// toGraphQLError maps domain errors to client errors. Anything that is not
// an *apperror.AppError is logged and replaced by a generic message so
// driver or filesystem details never reach the client.
func (r *Resolver) toGraphQLError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, c := range codes {
			if errors.Is(err, c.sentinel) {
				return &resolverError{message: appErr.Message, code: c.code, field: appErr.Field}
			}
		}
	}
	r.logger.ErrorContext(ctx, "graphql operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return &resolverError{message: "internal server error", code: CodeInternal}
}
