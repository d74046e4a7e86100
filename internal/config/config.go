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
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Market data provider (price fetch collaborator)
	MarketDataBaseURL string
	MarketDataKey     string
	MarketDataSecret  string

	// Background jobs
	PriceRefreshEnabled  bool
	PriceRefreshInterval time.Duration
	SnapshotEnabled      bool
	SnapshotInterval     time.Duration

	// Live quotes older than this are reported as stale on the dashboard
	PriceFreshnessMaxAge time.Duration

	// Computed dashboards are cached for this long before being rebuilt
	DashboardCacheTTL time.Duration

	// S3 backups (disabled when bucket is empty)
	BackupBucket string
	BackupPrefix string
	BackupRegion string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FOLIOTRACK_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		MarketDataBaseURL: getEnv("MARKET_DATA_BASE_URL", "https://data.alpaca.markets"),
		MarketDataKey:     getEnv("MARKET_DATA_API_KEY", ""),
		MarketDataSecret:  getEnv("MARKET_DATA_API_SECRET", ""),

		PriceRefreshEnabled:  getEnvAsBool("PRICE_REFRESH_ENABLED", true),
		PriceRefreshInterval: getEnvAsDuration("PRICE_REFRESH_INTERVAL", 60*time.Second),
		SnapshotEnabled:      getEnvAsBool("SNAPSHOT_ENABLED", true),
		SnapshotInterval:     getEnvAsDuration("SNAPSHOT_INTERVAL", 15*time.Minute),

		PriceFreshnessMaxAge: getEnvAsDuration("PRICE_FRESHNESS_MAX_AGE", 5*time.Minute),
		DashboardCacheTTL:    getEnvAsDuration("DASHBOARD_CACHE_TTL", 30*time.Second),

		BackupBucket: getEnv("BACKUP_S3_BUCKET", ""),
		BackupPrefix: getEnv("BACKUP_S3_PREFIX", "foliotrack"),
		BackupRegion: getEnv("BACKUP_S3_REGION", "eu-central-1"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.PriceFreshnessMaxAge <= 0 {
		return fmt.Errorf("price freshness max age must be positive")
	}

	// Note: market data credentials optional - the price refresh job logs and
	// skips when they are missing, cached prices keep serving the dashboard.

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
