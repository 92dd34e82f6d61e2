package config

import (
	"os"
	"strconv"

	"github.com/tavern-app/tavern/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all application configuration
type Config struct {
	// Database configuration; DBPath is the SQLite file, ":memory:" works.
	DBPath string

	// Logging
	LogLevel string

	// Account defaults
	BioPlaceholder string
	BcryptCost     int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:         getEnv("TAVERN_DB_PATH", "tavern.db"),
		LogLevel:       getEnv("TAVERN_LOG_LEVEL", "info"),
		BioPlaceholder: getEnv("TAVERN_BIO_PLACEHOLDER", models.DefaultBio),
		BcryptCost:     getEnvAsInt("TAVERN_BCRYPT_COST", bcrypt.DefaultCost),
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
