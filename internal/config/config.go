// Package config loads the collector's YAML configuration and resolves the
// Slack API token.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Slack    SlackConfig   `yaml:"slack"`
	Collect  CollectConfig `yaml:"collect"`
	LogLevel string        `yaml:"log_level"`
}

// SlackConfig configures the Slack API client.
type SlackConfig struct {
	// Token is the API token; when empty the SLACK_API_TOKEN environment
	// variable is used instead.
	Token           string  `yaml:"token,omitempty"`
	RateLimitPerMin float64 `yaml:"rate_limit_per_minute"`
	Burst           int     `yaml:"burst"`
}

// CollectConfig holds default collection parameters, overridable per run via
// CLI flags.
type CollectConfig struct {
	Limit           int `yaml:"limit"`
	MinThreadLength int `yaml:"min_thread_length"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	return &Config{
		Slack: SlackConfig{
			RateLimitPerMin: 50,
			Burst:           5,
		},
		Collect: CollectConfig{
			Limit:           100,
			MinThreadLength: 1,
		},
		LogLevel: "info",
	}
}

// DefaultConfigPath returns ~/.slackthreads/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".slackthreads", "config.yaml")
}

// Load reads the config file at path. A missing file yields Defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ResolveToken returns the configured token, falling back to the
// SLACK_API_TOKEN environment variable.
func (c *Config) ResolveToken() string {
	if c.Slack.Token != "" {
		return c.Slack.Token
	}
	return os.Getenv("SLACK_API_TOKEN")
}
