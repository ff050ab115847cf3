// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for the job store (always absolute)
	Port         int
	DevMode      bool
	LogLevel     string
	BackendsFile string // Optional YAML backend catalog; built-in defaults when empty

	// Pipeline defaults
	DefaultShots int           // Shots used when a request does not specify any
	WorkerCount  int           // Bounded worker pool size
	WaitTimeout  time.Duration // Default deadline for awaiting a job
	JobRetention time.Duration // Terminal jobs older than this are garbage collected

	Archive *ArchiveConfig
}

// ArchiveConfig holds S3-compatible archive storage configuration.
// Archiving is disabled unless endpoint, bucket and credentials are set.
type ArchiveConfig struct {
	Enabled         bool
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory and resolve to absolute path
	dataDir := getEnv("QUANTA_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		Port:         getEnvAsInt("QUANTA_PORT", 8090),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		BackendsFile: getEnv("QUANTA_BACKENDS_FILE", ""),
		DefaultShots: getEnvAsInt("QUANTA_DEFAULT_SHOTS", 1024),
		WorkerCount:  getEnvAsInt("QUANTA_WORKERS", 4),
		WaitTimeout:  getEnvAsDuration("QUANTA_WAIT_TIMEOUT", 2*time.Minute),
		JobRetention: getEnvAsDuration("QUANTA_JOB_RETENTION", 24*time.Hour),
		Archive:      loadArchiveConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DefaultShots <= 0 {
		return fmt.Errorf("default shots must be positive, got %d", c.DefaultShots)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %s", c.WaitTimeout)
	}
	return nil
}

func loadArchiveConfig() *ArchiveConfig {
	cfg := &ArchiveConfig{
		Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
		Bucket:          getEnv("ARCHIVE_BUCKET", ""),
		AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
		Region:          getEnv("ARCHIVE_REGION", "auto"),
	}

	cfg.Enabled = cfg.Endpoint != "" && cfg.Bucket != "" &&
		cfg.AccessKeyID != "" && cfg.SecretAccessKey != ""

	return cfg
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
