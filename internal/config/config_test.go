package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults with secret from env", func(t *testing.T) {
		t.Setenv("FAIRSHARE_CONFIG", "")
		t.Setenv("JWT_SECRET", "test-secret")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Addr != ":8080" {
			t.Errorf("Addr = %q, want :8080", cfg.Addr)
		}
		if cfg.DBPath != "./data/bills.db" {
			t.Errorf("DBPath = %q", cfg.DBPath)
		}
		if time.Duration(cfg.TokenTTL) != 24*time.Hour {
			t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
		}
		if cfg.JWTSecret != "test-secret" {
			t.Errorf("JWTSecret = %q", cfg.JWTSecret)
		}
		if cfg.SMTP.Enabled() {
			t.Error("SMTP enabled without a host")
		}
	})

	t.Run("missing secret fails", func(t *testing.T) {
		t.Setenv("FAIRSHARE_CONFIG", "")
		t.Setenv("JWT_SECRET", "")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for missing jwt secret")
		}
	})

	t.Run("file value equal to default still beats env", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		data := []byte(`
addr: ":8080"
jwt_secret: file-secret
`)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("FAIRSHARE_CONFIG", path)
		t.Setenv("FAIRSHARE_ADDR", ":3000")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Addr != ":8080" {
			t.Errorf("Addr = %q, want file value :8080", cfg.Addr)
		}
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		data := []byte(`
addr: ":9090"
db_path: /tmp/fairshare.db
jwt_secret: file-secret
token_ttl: 1h
base_url: https://bills.example.com
smtp:
  host: mail.example.com
  port: 587
  from: noreply@example.com
`)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("FAIRSHARE_CONFIG", path)
		t.Setenv("JWT_SECRET", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Addr != ":9090" {
			t.Errorf("Addr = %q, want :9090", cfg.Addr)
		}
		if cfg.JWTSecret != "file-secret" {
			t.Errorf("JWTSecret = %q", cfg.JWTSecret)
		}
		if time.Duration(cfg.TokenTTL) != time.Hour {
			t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL)
		}
		if cfg.BaseURL != "https://bills.example.com" {
			t.Errorf("BaseURL = %q", cfg.BaseURL)
		}
		if !cfg.SMTP.Enabled() {
			t.Error("SMTP should be enabled from file")
		}
	})
}
