package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 9400, cfg.ServerPort)
				assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
				assert.Equal(t, "directory", cfg.MongoDatabase)
				assert.Equal(t, 10*time.Second, cfg.MongoConnectTimeout)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, 12, cfg.OwnerTokenExpireHours)
				assert.Equal(t, 8760, cfg.DomainTokenExpireHours)
				assert.Equal(t, 5*time.Minute, cfg.TokenSweepInterval)
				assert.Equal(t, 300*time.Second, cfg.HeartbeatTimeout)
				assert.True(t, cfg.RateLimitTokenEnabled)
				assert.Equal(t, 5.0, cfg.RateLimitTokenRequestsPerSec)
				assert.Equal(t, 10, cfg.RateLimitTokenBurst)
				assert.True(t, cfg.MetricsEnabled)
				assert.Equal(t, "directory", cfg.MetricsNamespace)
				assert.Equal(t, 9401, cfg.MetricsPort)
				assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST": "localhost",
				"SERVER_PORT": "9090",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
			},
		},
		{
			name: "load custom document store configuration",
			envVars: map[string]string{
				"MONGO_URI":                     "mongodb://db.example.com:27017",
				"MONGO_DATABASE":                "testdb",
				"MONGO_CONNECT_TIMEOUT_SECONDS": "5",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mongodb://db.example.com:27017", cfg.MongoURI)
				assert.Equal(t, "testdb", cfg.MongoDatabase)
				assert.Equal(t, 5*time.Second, cfg.MongoConnectTimeout)
			},
		},
		{
			name: "load custom token configuration",
			envVars: map[string]string{
				"AUTH_OWNER_TOKEN_EXPIRE_HOURS":     "24",
				"AUTH_DOMAIN_TOKEN_EXPIRE_HOURS":    "48",
				"AUTH_TOKEN_SWEEP_INTERVAL_MINUTES": "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 24, cfg.OwnerTokenExpireHours)
				assert.Equal(t, 48, cfg.DomainTokenExpireHours)
				assert.Equal(t, 10*time.Minute, cfg.TokenSweepInterval)
			},
		},
		{
			name: "load custom heartbeat configuration",
			envVars: map[string]string{
				"HEARTBEAT_SECONDS_UNTIL_OFFLINE": "60",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.HeartbeatTimeout)
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			// Load configuration
			cfg := Load()

			// Validate
			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "debug", cfg.GetGinMode())

	cfg.LogLevel = "info"
	assert.Equal(t, "release", cfg.GetGinMode())
}
