package handler

// RESPONSE HELPERS:
// Every REST-style endpoint (auth, health, /api/me) answers through these
// two functions so the JSON shape stays the same everywhere:
//   {"error": "not_found", "message": "user not found with id abc123"}
//
// The GraphQL endpoint is the exception: GraphQL reports errors inside the
// response body with status 200, so it only uses writeJSON.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/needley/internal/apperror"
)

// ErrorResponse is the standard error format returned by the REST endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set BEFORE the body is written; after the
// first Write any header change is silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps domain sentinels to HTTP statuses.
var statusFor = []struct {
	sentinel  error
	status    int
	errorType string
}{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
	{apperror.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrDuplicateIdentity, http.StatusConflict, "conflict"},
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// errors.As walks the wrap chain, so a service error like
// fmt.Errorf("service/account: %w", apperror.NotFound(...)) still maps to 404.
// Anything that is not an *apperror.AppError becomes a generic 500: raw
// messages may contain SQL or file paths.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, m := range statusFor {
			if errors.Is(err, m.sentinel) {
				writeJSON(w, m.status, ErrorResponse{Error: m.errorType, Message: appErr.Message})
				return
			}
		}
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
