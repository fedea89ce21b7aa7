package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          int
	LogLevel      string
	DevMode       bool
	DataDir       string // directory of per-symbol history databases
	CacheDBPath   string // price-series cache database
	CacheTTLHours int    // cached series older than this are refetched
	ProfilesFile  string // optional YAML risk-profile overrides
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnvAsInt("PORT", 8001),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		DataDir:       getEnv("DATA_DIR", "./data"),
		CacheDBPath:   getEnv("CACHE_DB_PATH", "./data/cache.db"),
		CacheTTLHours: getEnvAsInt("CACHE_TTL_HOURS", 24),
		ProfilesFile:  getEnv("RISK_PROFILES_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.CacheTTLHours <= 0 {
		return fmt.Errorf("CACHE_TTL_HOURS must be positive")
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
