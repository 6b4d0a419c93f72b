// Package config loads environment-driven settings for the simulation
// server, following the common .env + typed-default pattern.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the simulation server.
type Config struct {
	Port string

	// Kernel defaults. Only DefaultTotalSteps and DefaultSeed are read, and
	// only for a SCENARIO_PATH scenario that leaves them zero; API init
	// requests do not consult any of these fields.
	DefaultTotalSteps      int
	DefaultSeed            int64
	DefaultUseGameTheory   bool
	DefaultControlInboxSize int
	DefaultEventBufferSize int

	// PriorityOracle backend settings: "rule" (default) or "grpc". They are
	// loaded but not read; sessions always use the rule-based oracle.
	OracleBackend string
	OracleAddr    string

	// Durable ledger mirror (optional; empty disables it).
	AuditDBPath string

	// Auth
	JWTSecret string

	// Scenario loading
	ScenarioPath string
}

// Load reads environment variables (optionally via a .env file) into Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		DefaultTotalSteps:       getEnvInt("DEFAULT_TOTAL_STEPS", 100),
		DefaultSeed:             getEnvInt64("DEFAULT_SEED", 42),
		DefaultUseGameTheory:    getEnv("DEFAULT_USE_GAME_THEORY", "true") == "true",
		DefaultControlInboxSize: getEnvInt("CONTROL_INBOX_SIZE", 16),
		DefaultEventBufferSize:  getEnvInt("EVENT_BUFFER_SIZE", 256),
		OracleBackend:           getEnv("ORACLE_BACKEND", "rule"),
		OracleAddr:              getEnv("ORACLE_ADDR", "localhost:50061"),
		AuditDBPath:             getEnv("AUDIT_DB_PATH", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		ScenarioPath:            getEnv("SCENARIO_PATH", ""),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}
