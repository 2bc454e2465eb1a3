// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects storage, services,
// the GraphQL schema, handlers and middleware, and decides which URL maps
// to which handler. main.go stays minimal and only starts the server.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config
//	  → sqlite.DB (users + articles)       → AccountService, AuthService, ArticleService
//	  → revocation store (memory or Redis) → SessionManager
//	  → graph.Resolver → graphql.Schema    → GraphQLHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"

	"github.com/sakif/needley/internal/auth"
	"github.com/sakif/needley/internal/config"
	"github.com/sakif/needley/internal/graph"
	"github.com/sakif/needley/internal/handler"
	"github.com/sakif/needley/internal/middleware"
	sqliteRepo "github.com/sakif/needley/internal/repository/sqlite"
	"github.com/sakif/needley/internal/service"
	"github.com/sakif/needley/internal/sessionstore"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and, when configured, the Redis
// client. Close releases both; Start calls it during graceful shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client // nil when revocations live in memory
}

// New opens storage, builds the service graph and registers routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if generated, err := cfg.EnsureJWTSecret(); err != nil {
		return nil, err
	} else if generated {
		logger.Warn("JWT_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close() // Clean up DB (and Redis) if wiring fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// revocationStore picks Redis when an address is configured so that a
// logout is honoured by every server instance; otherwise memory.
func (s *Server) revocationStore() (auth.RevocationStore, error) {
	if s.config.Redis.Addr == "" {
		return sessionstore.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := sessionstore.Dial(ctx, s.config.Redis.Addr, s.config.Redis.Password, s.config.Redis.DB)
	if err != nil {
		return nil, err
	}
	s.redis = client
	s.logger.Info("token revocations stored in Redis", slog.String("addr", s.config.Redis.Addr))
	return sessionstore.NewRedis(client, sessionstore.DefaultPrefix), nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /graphql               → GraphiQL IDE (when enabled)
// POST   /graphql               → GraphQL API
// GET    /auth/github/login     → start GitHub sign-in
// GET    /auth/github/callback  → finish GitHub sign-in
// POST   /auth/logout           → revoke token, clear cookie
// GET    /api/me                → current user (auth required)
// GET    /healthz               → database reachability
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. LoadSession: attaches the caller's session (possibly anonymous)
// 5. Logger: logs each request; runs inside LoadSession to see the user
func (s *Server) setupRoutes() error {
	// === Sessions ===
	revoked, err := s.revocationStore()
	if err != nil {
		return fmt.Errorf("creating revocation store: %w", err)
	}
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	sessions := auth.NewSessionManager(tokens, revoked)
	passwords := auth.NewPasswordService()

	// === Services ===
	// Each service receives repository interfaces, never the concrete DB.
	accounts := service.NewAccountService(s.db.Users(), passwords, sessions, s.logger)
	authService := service.NewAuthService(s.db.Users(), passwords, sessions, s.logger)
	articles := service.NewArticleService(s.db.Articles(), s.logger)

	// === GraphQL ===
	schema, err := graph.NewSchema(graph.NewResolver(accounts, authService, articles, s.logger), s.config.GraphQL.MaxDepth)
	if err != nil {
		return err
	}
	graphqlHandler := handler.NewGraphQLHandler(schema, s.config.SecureCookies, s.logger)

	var github handler.GitHubExchanger
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	} else {
		s.logger.Info("GitHub sign-in disabled; set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET to enable it")
	}
	authHandler := handler.NewAuthHandler(github, authService, s.config.SecureCookies, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.LoadSession(sessions))
	s.router.Use(middleware.Logger(s.logger))

	// === Routes ===
	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Post("/graphql", graphqlHandler.HandleQuery)
	if s.config.GraphQL.Playground {
		playground, err := handler.NewPlaygroundHandler("/graphql", s.logger)
		if err != nil {
			return fmt.Errorf("creating playground handler: %w", err)
		}
		s.router.Get("/graphql", playground.HandlePlayground)
	}

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/me", authHandler.HandleMe)
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and the Redis client.
func (s *Server) Close() error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("closing redis client", slog.String("error", err.Error()))
		}
	}
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database (flushes WAL, releases file lock) and Redis
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/graphql", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
