// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// MongoURI is the connection string for the document store.
	MongoURI string
	// MongoDatabase is the database name within the document store.
	MongoDatabase string
	// MongoConnectTimeout is the timeout for establishing the initial connection.
	MongoConnectTimeout time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// OwnerTokenExpireHours is the default lifetime of owner-scoped tokens.
	OwnerTokenExpireHours int
	// DomainTokenExpireHours is the default lifetime of domain-scoped tokens.
	DomainTokenExpireHours int
	// TokenSweepInterval is the period of the expired-token sweep job.
	TokenSweepInterval time.Duration

	// HeartbeatTimeout is how long after the last heartbeat an account
	// is still considered online.
	HeartbeatTimeout time.Duration

	// RateLimitTokenEnabled indicates whether rate limiting for the token endpoint is enabled.
	RateLimitTokenEnabled bool
	// RateLimitTokenRequestsPerSec is the number of requests allowed per second for the token endpoint.
	RateLimitTokenRequestsPerSec float64
	// RateLimitTokenBurst is the burst size for the token endpoint rate limiting.
	RateLimitTokenBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// ShutdownTimeout is the deadline for graceful server shutdown.
	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 9400),

		// Document store configuration
		MongoURI:            env.GetString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:       env.GetString("MONGO_DATABASE", "directory"),
		MongoConnectTimeout: env.GetDuration("MONGO_CONNECT_TIMEOUT_SECONDS", 10, time.Second),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Tokens
		OwnerTokenExpireHours:  env.GetInt("AUTH_OWNER_TOKEN_EXPIRE_HOURS", 12),
		DomainTokenExpireHours: env.GetInt("AUTH_DOMAIN_TOKEN_EXPIRE_HOURS", 8760),
		TokenSweepInterval:     env.GetDuration("AUTH_TOKEN_SWEEP_INTERVAL_MINUTES", 5, time.Minute),

		// Heartbeats
		HeartbeatTimeout: env.GetDuration("HEARTBEAT_SECONDS_UNTIL_OFFLINE", 300, time.Second),

		// Rate Limiting for Token Endpoint (IP-based, unauthenticated)
		RateLimitTokenEnabled:        env.GetBool("RATE_LIMIT_TOKEN_ENABLED", true),
		RateLimitTokenRequestsPerSec: env.GetFloat64("RATE_LIMIT_TOKEN_REQUESTS_PER_SEC", 5.0),
		RateLimitTokenBurst:          env.GetInt("RATE_LIMIT_TOKEN_BURST", 10),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", true),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "directory"),
		MetricsPort:      env.GetInt("METRICS_PORT", 9401),

		// Shutdown
		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 30, time.Second),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
