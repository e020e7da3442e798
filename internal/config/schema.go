package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Retry    *RetryOverride `yaml:"retry,omitempty"`
	Command  CommandConfig  `yaml:"command"`
}

// DatabaseConfig holds storage engine settings
type DatabaseConfig struct {
	Provider string `yaml:"provider"` // sqlite, postgres
	DSN      string `yaml:"dsn"`
}

// CommandConfig bounds individual storage commands
type CommandConfig struct {
	Timeout *Duration `yaml:"timeout,omitempty"` // nil = unbounded
}

// RetryOverride allows overriding retry policy defaults. Only set fields
// override; the rest keep their defaults.
type RetryOverride struct {
	Enabled           *bool     `yaml:"enabled,omitempty"`
	MaxAttempts       *int      `yaml:"max_attempts,omitempty"`
	InitialDelay      *Duration `yaml:"initial_delay,omitempty"`
	MaxDelay          *Duration `yaml:"max_delay,omitempty"`
	BackoffMultiplier *float64  `yaml:"backoff_multiplier,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
