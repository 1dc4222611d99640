// Package config loads runtime configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime settings. Every field has a usable default so
// the binary runs with no config file at all.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	DBPath   string `yaml:"db_path"`

	CompanyName  string `yaml:"company_name"`
	CompanyEmail string `yaml:"company_email"`

	SessionTTLHours int `yaml:"session_ttl_hours"`

	// NotifyIntervalMinutes controls the low-stock / overdue-order
	// background scan frequency.
	NotifyIntervalMinutes int `yaml:"notify_interval_minutes"`
}

// SessionTTL returns the session lifetime as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// NotifyInterval returns the notifier scan interval as a duration.
func (c Config) NotifyInterval() time.Duration {
	return time.Duration(c.NotifyIntervalMinutes) * time.Minute
}

// Load reads the YAML file at path (if path is non-empty), applies
// MFGOPS_* environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPAddr:              ":9000",
		DBPath:                "mfgops.db",
		CompanyName:           "Your Company",
		CompanyEmail:          "admin@example.com",
		SessionTTLHours:       24,
		NotifyIntervalMinutes: 5,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.HTTPAddr = getEnv("MFGOPS_HTTP_ADDR", cfg.HTTPAddr)
	cfg.DBPath = getEnv("MFGOPS_DB_PATH", cfg.DBPath)
	cfg.CompanyName = getEnv("MFGOPS_COMPANY_NAME", cfg.CompanyName)
	cfg.CompanyEmail = getEnv("MFGOPS_COMPANY_EMAIL", cfg.CompanyEmail)

	ttl, err := getEnvInt("MFGOPS_SESSION_TTL_HOURS", cfg.SessionTTLHours)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MFGOPS_SESSION_TTL_HOURS: %w", err)
	}
	cfg.SessionTTLHours = ttl

	interval, err := getEnvInt("MFGOPS_NOTIFY_INTERVAL_MIN", cfg.NotifyIntervalMinutes)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MFGOPS_NOTIFY_INTERVAL_MIN: %w", err)
	}
	cfg.NotifyIntervalMinutes = interval

	if cfg.HTTPAddr == "" {
		return Config{}, fmt.Errorf("http_addr must not be empty")
	}
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("db_path must not be empty")
	}
	if cfg.SessionTTLHours <= 0 {
		return Config{}, fmt.Errorf("session_ttl_hours must be > 0")
	}
	if cfg.NotifyIntervalMinutes <= 0 {
		return Config{}, fmt.Errorf("notify_interval_minutes must be > 0")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
