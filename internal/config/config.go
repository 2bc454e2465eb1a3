// Package config loads server settings.
//
// Sources, later ones winning:
//  1. Defaults()
//  2. the YAML file named by CONFIG_FILE, if any
//  3. environment variables (a .env file is loaded into the environment by main)
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"` // empty keeps revocations in memory
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type GraphQLConfig struct {
	Playground bool `yaml:"playground"`
	MaxDepth   int  `yaml:"max_depth"`
}

type Config struct {
	Port          int           `yaml:"port"`
	DBPath        string        `yaml:"db_path"`
	LogLevel      string        `yaml:"log_level"`
	JWTSecret     string        `yaml:"jwt_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`
	GitHub        GitHubConfig  `yaml:"github"`
	Redis         RedisConfig   `yaml:"redis"`
	GraphQL       GraphQLConfig `yaml:"graphql"`
}

func Defaults() Config {
	return Config{
		Port:       8080,
		DBPath:     "data/needley.db",
		LogLevel:   "info",
		SessionTTL: 24 * time.Hour,
		GraphQL: GraphQLConfig{
			Playground: true,
			MaxDepth:   12,
		},
	}
}

// Load reads the optional YAML file at path and applies environment
// overrides on top.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", key, v)
		}
		*dst = n
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not a boolean", key, v)
		}
		*dst = b
		return nil
	}

	str("DB_PATH", &c.DBPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("JWT_SECRET", &c.JWTSecret)
	str("GITHUB_CLIENT_ID", &c.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &c.GitHub.ClientSecret)
	str("GITHUB_CALLBACK_URL", &c.GitHub.CallbackURL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)

	if v := getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SESSION_TTL=%q is not a duration", v)
		}
		c.SessionTTL = d
	}
	return errors.Join(
		integer("PORT", &c.Port),
		integer("REDIS_DB", &c.Redis.DB),
		integer("GRAPHQL_MAX_DEPTH", &c.GraphQL.MaxDepth),
		boolean("SECURE_COOKIES", &c.SecureCookies),
		boolean("GRAPHQL_PLAYGROUND", &c.GraphQL.Playground),
	)
}

func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("config: db_path is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("config: session_ttl must be positive"))
	}
	if c.GraphQL.MaxDepth < 0 {
		errs = append(errs, errors.New("config: graphql max_depth must not be negative"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if (c.GitHub.ClientID == "") != (c.GitHub.ClientSecret == "") {
		errs = append(errs, errors.New("config: GitHub client id and secret must be set together"))
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return level, nil
}

func (c Config) GitHubEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}

// EnsureJWTSecret fills an empty secret with random bytes and reports
// whether it did. Tokens signed with a generated secret die with the process.
func (c *Config) EnsureJWTSecret() (bool, error) {
	if c.JWTSecret != "" {
		return false, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return false, fmt.Errorf("config: generating JWT secret: %w", err)
	}
	c.JWTSecret = hex.EncodeToString(buf)
	return true, nil
}
