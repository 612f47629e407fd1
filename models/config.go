// Package models defines data structures shared across driftwatch commands.
package models

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds service connection settings. Values are resolved in order:
// CLI flags, then DRIFTWATCH_* environment variables, then the config file.
type Config struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	RequestTimeout string `yaml:"request_timeout,omitempty"` // per-request, default 30s
	PollBudget     string `yaml:"poll_budget,omitempty"`     // overall polling budget, default 60s
}

// DefaultConfigPath is the config file location used when --config is not set.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".driftwatch.yaml"
	}
	return filepath.Join(home, ".driftwatch.yaml")
}

// LoadConfig reads the YAML config file and applies environment overrides.
// A missing file is not an error; env vars alone are enough to run.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if v := os.Getenv("DRIFTWATCH_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("DRIFTWATCH_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.driftwatch.dev/v1"
	}

	return cfg, nil
}
