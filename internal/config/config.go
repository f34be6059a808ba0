// Package config loads client configuration from a TOML file with
// environment-variable overrides.
//
// The default location is ~/.costbuddy/config.toml. A missing file is not
// an error; defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the client configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	FX      FXConfig      `toml:"fx"`
	State   StateConfig   `toml:"state"`
	Metrics MetricsConfig `toml:"metrics"`
}

// APIConfig configures the backend connection.
type APIConfig struct {
	// BaseURL is the backend base URL including the versioned prefix.
	BaseURL string `toml:"base_url"`
}

// FXConfig configures the currency rate source.
type FXConfig struct {
	// RatesURL is an optional custom rate endpoint tried before the
	// public fallback source.
	RatesURL string `toml:"rates_url"`
}

// StateConfig configures local state persistence.
type StateConfig struct {
	// DBPath is the SQLite state database path.
	DBPath string `toml:"db_path"`
}

// MetricsConfig configures the watch-mode metrics endpoint.
type MetricsConfig struct {
	// ListenAddr is the address the /metrics endpoint binds in watch
	// mode, e.g. "127.0.0.1:9187".
	ListenAddr string `toml:"listen_addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API:     APIConfig{BaseURL: "http://localhost:8000/api/v1"},
		State:   StateConfig{DBPath: defaultDBPath()},
		Metrics: MetricsConfig{ListenAddr: "127.0.0.1:9187"},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".costbuddy", "config.toml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./costbuddy.db"
	}
	return filepath.Join(home, ".costbuddy", "state.db")
}

// Load reads the config file at path (DefaultPath when empty), applies
// defaults for unset fields and environment overrides on top. A missing
// file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers environment variables over file/default values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("COSTBUDDY_API_BASE"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("COSTBUDDY_FX_RATES_URL"); v != "" {
		cfg.FX.RatesURL = v
	}
	if v := os.Getenv("COSTBUDDY_STATE_DB"); v != "" {
		cfg.State.DBPath = v
	}
	if v := os.Getenv("COSTBUDDY_METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}
}
