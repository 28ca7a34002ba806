// Package config loads and validates the application configuration from
// YAML, with .env files and STATEBRIDGE_* environment variables layered on
// top in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Migration   MigrationConfig   `yaml:"migration"`
	Permissions PermissionsConfig `yaml:"permissions"`
	Journal     JournalConfig     `yaml:"journal"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Daemon      DaemonConfig      `yaml:"daemon"`
}

// StorageConfig locates the durable key-value cell.
type StorageConfig struct {
	Path string `yaml:"path" env:"STATEBRIDGE_STORAGE_PATH"`
}

// MigrationConfig tunes the per-phase retry policy.
type MigrationConfig struct {
	MaxRetries        int              `yaml:"max_retries" env:"STATEBRIDGE_MIGRATION_MAX_RETRIES"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff,omitempty" env:"STATEBRIDGE_MIGRATION_RETRY_BACKOFF"`
	RetryInitialDelay string           `yaml:"retry_initial_delay,omitempty" env:"STATEBRIDGE_MIGRATION_RETRY_INITIAL_DELAY"`
	RetryMaxDelay     string           `yaml:"retry_max_delay,omitempty" env:"STATEBRIDGE_MIGRATION_RETRY_MAX_DELAY"`
}

// PermissionsConfig tunes the permission cache.
type PermissionsConfig struct {
	Staleness       string `yaml:"staleness,omitempty" env:"STATEBRIDGE_PERMISSIONS_STALENESS"`
	RequestThrottle string `yaml:"request_throttle,omitempty" env:"STATEBRIDGE_PERMISSIONS_REQUEST_THROTTLE"`
}

// JournalConfig controls migration event persistence and the optional NATS
// mirror of the event stream.
type JournalConfig struct {
	Path        string `yaml:"path" env:"STATEBRIDGE_JOURNAL_PATH"`
	NATSURL     string `yaml:"nats_url,omitempty" env:"STATEBRIDGE_NATS_URL"`
	NATSSubject string `yaml:"nats_subject,omitempty" env:"STATEBRIDGE_NATS_SUBJECT"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty" env:"STATEBRIDGE_LOG_LEVEL"`
	Format LogFormat `yaml:"format,omitempty" env:"STATEBRIDGE_LOG_FORMAT"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"STATEBRIDGE_METRICS_ENABLED"`
	Listen  string `yaml:"listen,omitempty" env:"STATEBRIDGE_METRICS_LISTEN"`
}

// DaemonConfig tunes background maintenance.
type DaemonConfig struct {
	SweepInterval string `yaml:"sweep_interval,omitempty" env:"STATEBRIDGE_DAEMON_SWEEP_INTERVAL"`
}

// Load reads the configuration file and applies environment overrides.
// A missing file is an error; a missing .env is not.
func Load(configPath string) (*Config, error) {
	for _, envPath := range []string{".env.local", ".env"} {
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Storage.Path == "" {
		c.Storage.Path = "statebridge.db"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = c.Storage.Path
	}
	if c.Journal.NATSSubject == "" {
		c.Journal.NATSSubject = "statebridge.migration"
	}
	if c.Migration.RetryBackoff == "" {
		c.Migration.RetryBackoff = RetryBackoffLinear
	} else {
		c.Migration.RetryBackoff = NormalizeRetryBackoff(string(c.Migration.RetryBackoff))
		if c.Migration.RetryBackoff == "" {
			c.Migration.RetryBackoff = RetryBackoffLinear
		}
	}
	if c.Migration.RetryInitialDelay == "" {
		c.Migration.RetryInitialDelay = "1s"
	}
	if c.Migration.RetryMaxDelay == "" {
		c.Migration.RetryMaxDelay = "30s"
	}
	if c.Permissions.Staleness == "" {
		c.Permissions.Staleness = "1h"
	}
	if c.Permissions.RequestThrottle == "" {
		c.Permissions.RequestThrottle = "24h"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	} else {
		c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	} else {
		c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9464"
	}
	if c.Daemon.SweepInterval == "" {
		c.Daemon.SweepInterval = "15m"
	}
}

// Validate checks the fields that cannot be repaired by defaulting. All
// problems are reported at once.
func (c *Config) Validate() error {
	var errs []error
	fields := []struct {
		name  string
		value string
	}{
		{"migration.retry_initial_delay", c.Migration.RetryInitialDelay},
		{"migration.retry_max_delay", c.Migration.RetryMaxDelay},
		{"permissions.staleness", c.Permissions.Staleness},
		{"permissions.request_throttle", c.Permissions.RequestThrottle},
		{"daemon.sweep_interval", c.Daemon.SweepInterval},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(f.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", f.name, f.value))
		}
	}
	if c.Migration.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("migration.max_retries cannot be negative"))
	}
	if _, err := retryBackoffNormalizer.normalizeStrict(string(c.Migration.RetryBackoff)); err != nil {
		errs = append(errs, fmt.Errorf("migration.retry_backoff: %w", err))
	}
	return errors.Join(errs...)
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// RetryInitial returns the parsed initial retry delay.
func (c *Config) RetryInitial() time.Duration { return mustDuration(c.Migration.RetryInitialDelay) }

// RetryMax returns the parsed retry delay cap.
func (c *Config) RetryMax() time.Duration { return mustDuration(c.Migration.RetryMaxDelay) }

// PermissionStaleness returns the parsed permission cache freshness window.
func (c *Config) PermissionStaleness() time.Duration { return mustDuration(c.Permissions.Staleness) }

// PermissionThrottle returns the parsed request throttle interval.
func (c *Config) PermissionThrottle() time.Duration {
	return mustDuration(c.Permissions.RequestThrottle)
}

// SweepInterval returns the parsed daemon sweep interval.
func (c *Config) SweepInterval() time.Duration { return mustDuration(c.Daemon.SweepInterval) }
