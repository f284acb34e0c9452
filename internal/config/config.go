// Package config loads the server configuration from an optional YAML
// file with environment variable fallbacks.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"fairshare/internal/mailer"
)

// Duration decodes YAML values like "24h" or "90m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the server configuration.
type Config struct {
	Addr      string            `yaml:"addr"`
	DBPath    string            `yaml:"db_path"`
	JWTSecret string            `yaml:"jwt_secret"`
	TokenTTL  Duration          `yaml:"token_ttl"`
	BaseURL   string            `yaml:"base_url"`
	SMTP      mailer.SMTPConfig `yaml:"smtp"`
}

// Load builds the configuration: values from the YAML file named by
// FAIRSHARE_CONFIG win, environment variables fill fields the file left
// unset, and built-in defaults cover the rest.
func Load() (Config, error) {
	var cfg Config

	if path := os.Getenv("FAIRSHARE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Addr = orEnv(cfg.Addr, "FAIRSHARE_ADDR", ":8080")
	cfg.DBPath = orEnv(cfg.DBPath, "DB_PATH", "./data/bills.db")
	cfg.BaseURL = orEnv(cfg.BaseURL, "FAIRSHARE_BASE_URL", "http://localhost:8080")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = Duration(24 * time.Hour)
	}

	if cfg.SMTP.Host == "" {
		cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	}
	if cfg.SMTP.Port == 0 {
		if port, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
			cfg.SMTP.Port = port
		}
	}
	if cfg.SMTP.Username == "" {
		cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	}
	if cfg.SMTP.Password == "" {
		cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = os.Getenv("SMTP_FROM")
	}

	if cfg.JWTSecret == "" {
		return cfg, errors.New("jwt secret required (set JWT_SECRET or jwt_secret)")
	}
	return cfg, nil
}

func orEnv(current, key, fallback string) string {
	if current != "" {
		return current
	}
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
