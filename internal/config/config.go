// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL of this API server.
	BaseURL string

	// ClientURL is the public URL of the client application. Magic-link
	// and password-reset links in outbound email point here.
	ClientURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds PostgreSQL connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds token signing and expiration settings.
	Auth AuthConfig

	// Mail holds outbound SMTP settings.
	Mail MailConfig
}

// DatabaseConfig holds PostgreSQL connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so container
// orchestrators can manage each independently. If DATABASE_URL is set, it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the PostgreSQL address in host:port format (default: "localhost:5432").
	// If no port is specified, 5432 is appended automatically.
	Host string

	// User is the PostgreSQL username (default: "vidora").
	User string

	// Password is the PostgreSQL password (default: "vidora").
	Password string

	// Name is the database name (default: "vidora").
	Name string

	// SSLMode is the libpq sslmode parameter (default: "disable").
	SSLMode string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the lib/pq connection string. If DATABASE_URL was set, it is
// returned as-is. Otherwise the URL is built from the individual fields,
// escaping user and password so special characters survive.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		ensurePort(d.Host, "5432"),
		d.Name,
		d.SSLMode,
	)
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :5432) or DB_HOST=mydb:5433 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	// JWTSecret is the HMAC signing secret for all issued tokens.
	JWTSecret string

	// SessionTokenTTL is how long login session tokens stay valid.
	SessionTokenTTL time.Duration

	// ActionTokenTTL is how long short-lived action tokens (email
	// verification, password reset) stay valid.
	ActionTokenTTL time.Duration
}

// MailConfig holds outbound SMTP settings for verification and reset email.
type MailConfig struct {
	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port (587 for STARTTLS, 465 for SSL).
	Port int

	// Username authenticates against the SMTP server. Empty disables auth.
	Username string

	// Password is the SMTP password.
	Password string

	// FromName is the display name on outbound mail.
	FromName string

	// FromAddress is the sender address on outbound mail.
	FromAddress string

	// Encryption is the transport mode: "starttls", "ssl", or "none".
	Encryption string
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:       getEnv("ENV", "development"),
		Port:      getEnvInt("PORT", 8080),
		BaseURL:   getEnv("BASE_URL", "http://localhost:8080"),
		ClientURL: getEnv("CLIENT_URL", "http://localhost:5173"),
		LogLevel:  getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:5432"),
			User:            getEnv("DB_USER", "vidora"),
			Password:        getEnv("DB_PASSWORD", "vidora"),
			Name:            getEnv("DB_NAME", "vidora"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			SessionTokenTTL: getEnvDuration("SESSION_TOKEN_TTL", 240*time.Hour),
			ActionTokenTTL:  getEnvDuration("ACTION_TOKEN_TTL", 15*time.Minute),
		},

		Mail: MailConfig{
			Host:        getEnv("EMAIL_HOST", "localhost"),
			Port:        getEnvInt("EMAIL_PORT", 587),
			Username:    getEnv("EMAIL_USER", ""),
			Password:    getEnv("EMAIL_PASSWORD", ""),
			FromName:    getEnv("EMAIL_NAME", "Vidora"),
			FromAddress: getEnv("EMAIL_FROM", getEnv("EMAIL_USER", "no-reply@localhost")),
			Encryption:  getEnv("EMAIL_ENCRYPTION", "starttls"),
		},
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if len(cfg.Auth.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "240h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
