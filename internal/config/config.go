// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	RequestTimeout time.Duration
}

// StorageConfig holds the durable-state and upload settings
type StorageConfig struct {
	DataDir        string // users.json, conversations.json, last_seen.json live here
	PublicDir      string // static root; uploaded blobs live under PublicDir/uploads
	UploadMaxBytes int64
}

// RetentionConfig controls the message expiry sweep
type RetentionConfig struct {
	MessageTTL    time.Duration
	SweepInterval time.Duration
}

// Config holds the complete application configuration
type Config struct {
	Server    *ServerConfig
	Storage   *StorageConfig
	Retention *RetentionConfig
	Debug     bool
}

// DefaultConfig provides default settings for every section
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			RequestTimeout: 5 * time.Second,
		},
		Storage: &StorageConfig{
			DataDir:        "data",
			PublicDir:      "public",
			UploadMaxBytes: 50 * 1024 * 1024,
		},
		Retention: &RetentionConfig{
			MessageTTL:    24 * time.Hour,
			SweepInterval: time.Hour,
		},
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() *Config {
	// Silent failure if no .env exists, which is fine
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}
	if d := getDuration("REQUEST_TIMEOUT"); d > 0 {
		cfg.Server.RequestTimeout = d
	}

	cfg.Storage.DataDir = getEnvOrDefault("DATA_DIR", cfg.Storage.DataDir)
	cfg.Storage.PublicDir = getEnvOrDefault("PUBLIC_DIR", cfg.Storage.PublicDir)
	if maxStr := os.Getenv("UPLOAD_MAX_BYTES"); maxStr != "" {
		if max, err := strconv.ParseInt(maxStr, 10, 64); err == nil && max > 0 {
			cfg.Storage.UploadMaxBytes = max
		}
	}

	if d := getDuration("MESSAGE_TTL"); d > 0 {
		cfg.Retention.MessageTTL = d
	}
	if d := getDuration("SWEEP_INTERVAL"); d > 0 {
		cfg.Retention.SweepInterval = d
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return 0
}
