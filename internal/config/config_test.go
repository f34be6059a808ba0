package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.BaseURL != "http://localhost:8000/api/v1" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:8000/api/v1")
	}
	if cfg.FX.RatesURL != "" {
		t.Errorf("FX.RatesURL = %q, want empty (public source only)", cfg.FX.RatesURL)
	}
	if cfg.State.DBPath == "" {
		t.Error("State.DBPath should have a default")
	}
	if cfg.Metrics.ListenAddr != "127.0.0.1:9187" {
		t.Errorf("Metrics.ListenAddr = %q, want %q", cfg.Metrics.ListenAddr, "127.0.0.1:9187")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
base_url = "https://bills.example.com/api/v1"

[fx]
rates_url = "https://rates.example.com/latest"

[state]
db_path = "/tmp/cb-test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "https://bills.example.com/api/v1" {
		t.Errorf("API.BaseURL = %q, want file value", cfg.API.BaseURL)
	}
	if cfg.FX.RatesURL != "https://rates.example.com/latest" {
		t.Errorf("FX.RatesURL = %q, want file value", cfg.FX.RatesURL)
	}
	if cfg.State.DBPath != "/tmp/cb-test.db" {
		t.Errorf("State.DBPath = %q, want file value", cfg.State.DBPath)
	}
	// Unset sections keep their defaults.
	if cfg.Metrics.ListenAddr != "127.0.0.1:9187" {
		t.Errorf("Metrics.ListenAddr = %q, want default", cfg.Metrics.ListenAddr)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed on missing file: %v", err)
	}
	if cfg.API.BaseURL != DefaultConfig().API.BaseURL {
		t.Errorf("missing file should yield defaults, got %q", cfg.API.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COSTBUDDY_API_BASE", "https://env.example.com/api/v1")
	t.Setenv("COSTBUDDY_METRICS_ADDR", "0.0.0.0:9999")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com/api/v1" {
		t.Errorf("API.BaseURL = %q, want env override", cfg.API.BaseURL)
	}
	if cfg.Metrics.ListenAddr != "0.0.0.0:9999" {
		t.Errorf("Metrics.ListenAddr = %q, want env override", cfg.Metrics.ListenAddr)
	}
}
