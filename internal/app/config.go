package app

import (
	"os"
	"strconv"
	"time"

	"github.com/quollsec/sessiond/internal/authority"
)

type Config struct {
	Issuer     string        // Required: issuer claim for tokens (default: sessiond)
	AccessTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token / session lifetime (default: 168h)

	APIKeyHash string // Optional: argon2id hash guarding the issue endpoint; empty disables it

	KeyStorageMode string // Optional: key storage mode (ephemeral, persistent) (default: ephemeral)
	MasterKeyPath  string // Optional: path to master encryption key file (for persistent keys)
	DatabaseFile   string // Optional: path to SQLite database file (default: ./sessiond.db)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:     getEnvOrDefault("SESSION_ISSUER", "sessiond"),
		AccessTTL:  getEnvDurationOrDefault("SESSION_ACCESS_TTL", authority.DefaultAccessTTL),
		RefreshTTL: getEnvDurationOrDefault("SESSION_REFRESH_TTL", authority.DefaultRefreshTTL),

		// Hash of the key trusted identity services present on X-API-Key.
		// Generated offline; the plaintext key is never configured here.
		APIKeyHash: os.Getenv("SESSION_API_KEY_HASH"),

		KeyStorageMode: getEnvOrDefault("SESSION_KEY_STORAGE_MODE", "ephemeral"),
		MasterKeyPath:  os.Getenv("SESSION_MASTER_KEY_PATH"),
		DatabaseFile:   getEnvOrDefault("SESSION_DATABASE_FILE", "sessiond.db"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
