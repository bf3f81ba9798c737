package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected default addr :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeoutSeconds != 15 {
		t.Errorf("Expected default read timeout 15, got %d", cfg.Server.ReadTimeoutSeconds)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("Expected default max open conns 10, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Auth.SessionTTLHours != 12 {
		t.Errorf("Expected default session TTL 12h, got %d", cfg.Auth.SessionTTLHours)
	}
	if cfg.Archive.Prefix != "spend-uploads" {
		t.Errorf("Expected default archive prefix, got %q", cfg.Archive.Prefix)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %q", cfg.Logging.Level)
	}
}

func TestLoad_FromFile(t *testing.T) {
	content := `
server:
  addr: ":9090"
  read_timeout_seconds: 30
database:
  dsn: "postgres://app@localhost:5432/cloudspend?sslmode=disable"
  max_open_conns: 25
auth:
  session_ttl_hours: 2
  secure_cookies: true
archive:
  bucket: "spend-archive"
logging:
  level: "debug"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Expected addr :9090, got %q", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeoutSeconds != 30 {
		t.Errorf("Expected read timeout 30, got %d", cfg.Server.ReadTimeoutSeconds)
	}
	// Unset values still get defaults
	if cfg.Server.WriteTimeoutSeconds != 15 {
		t.Errorf("Expected default write timeout 15, got %d", cfg.Server.WriteTimeoutSeconds)
	}
	if cfg.Database.DSN != "postgres://app@localhost:5432/cloudspend?sslmode=disable" {
		t.Errorf("Unexpected DSN: %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Expected max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Auth.SessionTTLHours != 2 {
		t.Errorf("Expected session TTL 2h, got %d", cfg.Auth.SessionTTLHours)
	}
	if !cfg.Auth.SecureCookies {
		t.Error("Expected secure cookies enabled")
	}
	if cfg.Archive.Bucket != "spend-archive" {
		t.Errorf("Expected archive bucket, got %q", cfg.Archive.Bucket)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %q", cfg.Logging.Level)
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("CLOUDSPEND_TEST_DSN", "postgres://secret@db:5432/spend")

	content := "database:\n  dsn: \"${CLOUDSPEND_TEST_DSN}\"\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.DSN != "postgres://secret@db:5432/spend" {
		t.Errorf("Expected env-expanded DSN, got %q", cfg.Database.DSN)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("Expected error for missing config file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a mapping"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}
