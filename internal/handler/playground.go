// Package handler contains the HTTP handlers of the needley server.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Chi accepts plain http.HandlerFunc values, so every handler here is a
// method with that signature on a struct that carries its dependencies.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, body, headers, cookies)
// 2. Call the service layer or the GraphQL schema
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic; they are the glue between
// HTTP and the services.
package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/graphiql.html
var templateFS embed.FS

// PlaygroundHandler serves the GraphiQL IDE on GET /graphql.
// The template is parsed once at startup and reused for every request.
type PlaygroundHandler struct {
	templates *template.Template
	endpoint  string
	logger    *slog.Logger
}

// NewPlaygroundHandler parses the embedded GraphiQL page. endpoint is the
// URL the IDE sends queries to.
func NewPlaygroundHandler(endpoint string, logger *slog.Logger) (*PlaygroundHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/graphiql.html")
	if err != nil {
		return nil, err
	}

	return &PlaygroundHandler{
		templates: tmpl,
		endpoint:  endpoint,
		logger:    logger,
	}, nil
}

// HandlePlayground renders the IDE page.
func (h *PlaygroundHandler) HandlePlayground(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":    "needley GraphiQL",
		"Endpoint": h.endpoint,
	}

	// Set content type header BEFORE writing the body
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates.ExecuteTemplate(w, "graphiql.html", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("template", "graphiql.html"),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
