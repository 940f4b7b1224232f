package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClientConfig holds the tracker CLI settings, read from
// ~/.timetrack/config.yaml (override with TIMETRACK_CONFIG). A missing file
// just means defaults.
type ClientConfig struct {
	APIURL                string `yaml:"api_url"`
	DataDir               string `yaml:"data_dir"`
	AutoSync              bool   `yaml:"auto_sync"`
	SyncIntervalSeconds   int    `yaml:"sync_interval_seconds"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	LogLevel              string `yaml:"log_level"`
}

func LoadClient() (ClientConfig, error) {
	cfg := ClientConfig{
		APIURL:                "http://localhost:8080",
		AutoSync:              true,
		SyncIntervalSeconds:   30,
		RequestTimeoutSeconds: 10,
		LogLevel:              "warn",
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.DataDir = filepath.Join(home, ".timetrack")
	} else {
		cfg.DataDir = ".timetrack"
	}

	path := strings.TrimSpace(os.Getenv("TIMETRACK_CONFIG"))
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return applyClientEnv(cfg), nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return applyClientEnv(cfg), nil
}

func applyClientEnv(cfg ClientConfig) ClientConfig {
	if v := strings.TrimSpace(os.Getenv("TIMETRACK_API_URL")); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TIMETRACK_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if cfg.SyncIntervalSeconds <= 0 {
		cfg.SyncIntervalSeconds = 30
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = 10
	}
	return cfg
}

// DatabasePath is where the client keeps its local sqlite database.
func (c ClientConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "timetrack.db")
}
