// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/qvalidate/internal/reliability"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the results database (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// BlueQubit backend
	BlueQubitToken   string
	BlueQubitBaseURL string
	BlueQubitDevice  string

	// Sweep parameters
	Shots       int
	SweepStart  float64
	SweepEnd    float64
	SweepPoints int
	MaxAttempts int
	Backoff     time.Duration
	Workers     int

	// Scheduling
	RunSchedule    string // cron schedule for automatic runs, empty disables
	BackupSchedule string // cron schedule for backups, empty disables

	// Backup storage
	Backup BackupConfig
}

// BackupConfig holds object storage settings for backups.
type BackupConfig struct {
	Enabled       bool
	RetentionDays int
	S3            reliability.S3Config
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QVALIDATE_DATA_DIR", "")
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
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		BlueQubitToken:   getEnv("BLUEQUBIT_API_TOKEN", ""),
		BlueQubitBaseURL: getEnv("BLUEQUBIT_BASE_URL", ""),
		BlueQubitDevice:  getEnv("BLUEQUBIT_DEVICE", "quantum"),

		Shots:       getEnvAsInt("SHOTS", 1000),
		SweepStart:  getEnvAsFloat("SWEEP_START", 0.1),
		SweepEnd:    getEnvAsFloat("SWEEP_END", 2.0),
		SweepPoints: getEnvAsInt("SWEEP_POINTS", 8),
		MaxAttempts: getEnvAsInt("MAX_ATTEMPTS", 3),
		Backoff:     time.Duration(getEnvAsInt("RETRY_BACKOFF_SECONDS", 5)) * time.Second,
		Workers:     getEnvAsInt("SWEEP_WORKERS", 2),

		RunSchedule:    getEnv("RUN_SCHEDULE", ""),
		BackupSchedule: getEnv("BACKUP_SCHEDULE", ""),

		Backup: BackupConfig{
			Enabled:       getEnvAsBool("BACKUP_ENABLED", false),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
			S3: reliability.S3Config{
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				Region:          getEnv("S3_REGION", ""),
				Bucket:          getEnv("S3_BUCKET", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Shots < 1 {
		return fmt.Errorf("SHOTS must be positive, got %d", c.Shots)
	}
	if c.SweepPoints < 1 {
		return fmt.Errorf("SWEEP_POINTS must be positive, got %d", c.SweepPoints)
	}
	if c.SweepEnd < c.SweepStart {
		return fmt.Errorf("SWEEP_END (%.3f) must not be below SWEEP_START (%.3f)", c.SweepEnd, c.SweepStart)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be positive, got %d", c.MaxAttempts)
	}
	if c.Backup.Enabled && c.Backup.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when backups are enabled")
	}
	return nil
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
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
