// Package config provides configuration for the orchestrator.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// External collaborators
	GenAIURL     string
	GenAIAPIKey  string
	PredictorURL string

	// External call settings
	UpstreamTimeout time.Duration
	PredictionTopK  int

	// Knowledge base
	KBSeedPath string

	// Logging
	LogLevel string
}

// Load loads configuration from the environment, with .env autoload.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:     getEnv("DATABASE_URL", "file:orchestrator.db?cache=shared&mode=rwc"),
		GenAIURL:        getEnv("GENAI_URL", "http://localhost:8085/v1beta/models/generate"),
		GenAIAPIKey:     getEnv("GENAI_API_KEY", ""),
		PredictorURL:    getEnv("PREDICTOR_URL", "http://127.0.0.1:8000"),
		UpstreamTimeout: time.Duration(getEnvInt("UPSTREAM_TIMEOUT_MS", 30000)) * time.Millisecond,
		PredictionTopK:  getEnvInt("PREDICTION_TOP_K", 5),
		KBSeedPath:      getEnv("KB_SEED_PATH", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
