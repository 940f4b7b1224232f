package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the remote session service settings, sourced from the
// environment with sensible defaults for local development.
type Config struct {
	Port          string
	LogLevel      string
	DatabaseURL   string
	MigrationsDir string
}

func Load() Config {
	cfg := Config{
		Port:          envOrDefault("TIMETRACK_PORT", "8080"),
		LogLevel:      envOrDefault("TIMETRACK_LOG_LEVEL", "info"),
		DatabaseURL:   envOrDefault("TIMETRACK_DATABASE_URL", "file:timetrack.db"),
		MigrationsDir: envOrDefault("TIMETRACK_MIGRATIONS_DIR", "migrations"),
	}
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}
	return cfg
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func IntOrDefault(v string, fallback int) int {
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && i > 0 {
		return i
	}
	return fallback
}
