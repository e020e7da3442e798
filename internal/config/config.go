// Package config provides configuration management for persistkit.
//
// Config file locations (priority order):
//  1. $PERSISTKIT_CONFIG
//  2. ./persistkit.yaml
//  3. ~/.config/persistkit/config.yaml
//  4. /etc/persistkit/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"persistkit/internal/resilience"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		Database: DatabaseConfig{Provider: "sqlite", DSN: "./persistkit.db"},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Provider == "" {
		c.Database.Provider = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Provider == "sqlite" {
		c.Database.DSN = "./persistkit.db"
	}
}

// EffectiveRetryPolicy returns the retry policy with overrides applied
func (c *Config) EffectiveRetryPolicy() resilience.Policy {
	base := resilience.DefaultPolicy()

	if c.Retry == nil {
		return base
	}

	// Apply overrides
	if c.Retry.Enabled != nil {
		base.Enabled = *c.Retry.Enabled
	}
	if c.Retry.MaxAttempts != nil {
		base.MaxAttempts = *c.Retry.MaxAttempts
	}
	if c.Retry.InitialDelay != nil {
		base.InitialDelay = c.Retry.InitialDelay.Duration()
	}
	if c.Retry.MaxDelay != nil {
		base.MaxDelay = c.Retry.MaxDelay.Duration()
	}
	if c.Retry.BackoffMultiplier != nil {
		base.BackoffMultiplier = *c.Retry.BackoffMultiplier
	}

	return base
}

// EffectiveCommandTimeout returns the per-command timeout, 0 for unbounded
func (c *Config) EffectiveCommandTimeout() time.Duration {
	if c.Command.Timeout == nil {
		return 0
	}
	return c.Command.Timeout.Duration()
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	p := c.EffectiveRetryPolicy()

	summary := fmt.Sprintf("Database: %s (%s)\n", c.Database.Provider, c.Database.DSN)
	summary += fmt.Sprintf("Retry: enabled=%t attempts=%d initial=%s max=%s multiplier=%g",
		p.Enabled, p.MaxAttempts, p.InitialDelay, p.MaxDelay, p.BackoffMultiplier)
	if t := c.EffectiveCommandTimeout(); t > 0 {
		summary += fmt.Sprintf("\nCommand timeout: %s", t)
	}

	return summary
}
