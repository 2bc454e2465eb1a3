// Package main is the entry point for the needley GraphQL server.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (.env, optional YAML file, environment)
// 2. Create the logger
// 3. Start the server
//
// All actual logic lives in imported packages (internal/server, internal/graph, etc.).
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sakif/needley/internal/config"
	"github.com/sakif/needley/internal/server"
)

func main() {
	// === 1. LOAD .env ===
	// A missing .env is normal in production, where the environment is
	// set by the process manager.
	envLoaded := godotenv.Load() == nil

	// === 2. READ CONFIGURATION ===
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SET UP LOGGING ===
	level, _ := cfg.SlogLevel() // validated by Load
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if !envLoaded {
		logger.Debug(".env not loaded, continuing with environment variables")
	}

	// === 4. DATABASE DIRECTORY ===
	// os.MkdirAll is like `mkdir -p`; it is a no-op if the directory exists.
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
