package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("Unexpected API URL: %s", cfg.APIURL)
	}
	if cfg.SessionBackend != SessionBackendFile {
		t.Errorf("Unexpected session backend: %s", cfg.SessionBackend)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Unexpected timeout: %s", cfg.Timeout)
	}
	if cfg.DefaultPeriod != 3 {
		t.Errorf("Unexpected default period: %d", cfg.DefaultPeriod)
	}
	if cfg.DefaultInvestment.String() != "1000000" {
		t.Errorf("Unexpected default investment: %s", cfg.DefaultInvestment)
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STRATLAB_API_URL", "https://api.example.com/")
	t.Setenv("STRATLAB_SESSION_BACKEND", "SQLite")
	t.Setenv("STRATLAB_DATA_DIR", "/var/lib/stratlab")

	cfg, err := Load(Overrides{DataDir: "/tmp/override"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "https://api.example.com" {
		t.Errorf("Trailing slash not trimmed: %s", cfg.APIURL)
	}
	if cfg.SessionBackend != SessionBackendSQLite {
		t.Errorf("Unexpected session backend: %s", cfg.SessionBackend)
	}
	if cfg.DataDir != "/tmp/override" {
		t.Errorf("Flag did not override env: %s", cfg.DataDir)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := "api_url: http://backend:9000\ndefault_period: 5\ndefault_investment: \"250000.50\"\n"
	if err := os.WriteFile(filepath.Join(dir, "stratlab.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "http://backend:9000" {
		t.Errorf("Config file not read: %s", cfg.APIURL)
	}
	if cfg.DefaultPeriod != 5 {
		t.Errorf("Unexpected default period: %d", cfg.DefaultPeriod)
	}
	if cfg.DefaultInvestment.String() != "250000.5" {
		t.Errorf("Unexpected default investment: %s", cfg.DefaultInvestment)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("STRATLAB_SESSION_BACKEND", "redis")
	if _, err := Load(Overrides{}); err == nil {
		t.Error("Expected error for unknown session backend")
	}

	t.Setenv("STRATLAB_SESSION_BACKEND", "file")
	t.Setenv("STRATLAB_DEFAULT_PERIOD", "12")
	if _, err := Load(Overrides{}); err == nil {
		t.Error("Expected error for out-of-range period")
	}

	t.Setenv("STRATLAB_DEFAULT_PERIOD", "3")
	t.Setenv("STRATLAB_DEFAULT_INVESTMENT", "lots")
	if _, err := Load(Overrides{}); err == nil {
		t.Error("Expected error for invalid investment")
	}
}
