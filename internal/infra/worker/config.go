// Package worker holds the long-running worker's operational configuration
// and its health endpoint.
package worker

import (
	"fmt"
	"time"

	"veritas-scraper/pkg/config"
)

// Config controls the worker process: how often cycles run, how long one
// cycle may take, and where the operational HTTP endpoints listen.
type Config struct {
	// Interval is the pause between pipeline cycles.
	Interval time.Duration

	// CycleTimeout caps one full cycle; a stuck cycle is cancelled so the
	// schedule recovers on its own.
	CycleTimeout time.Duration

	// HealthPort serves the liveness and readiness probes.
	HealthPort int

	// MetricsPort serves the Prometheus metrics endpoint.
	MetricsPort int
}

// DefaultConfig returns production defaults: a 15-minute cycle with a
// 30-minute ceiling.
func DefaultConfig() Config {
	return Config{
		Interval:     900 * time.Second,
		CycleTimeout: 30 * time.Minute,
		HealthPort:   9091,
		MetricsPort:  9090,
	}
}

// LoadConfigFromEnv loads the worker configuration from environment
// variables, falling back to defaults for missing or invalid values.
//
// Environment variables:
//   - CYCLE_INTERVAL: duration, e.g. "15m" (default 900s)
//   - CYCLE_TIMEOUT: duration (default 30m)
//   - WORKER_HEALTH_PORT: 1024-65535 (default 9091)
//   - METRICS_PORT: 1024-65535 (default 9090)
func LoadConfigFromEnv() Config {
	defaults := DefaultConfig()
	cfg := Config{
		Interval:     config.GetEnvDuration("CYCLE_INTERVAL", defaults.Interval),
		CycleTimeout: config.GetEnvDuration("CYCLE_TIMEOUT", defaults.CycleTimeout),
		HealthPort:   config.GetEnvInt("WORKER_HEALTH_PORT", defaults.HealthPort),
		MetricsPort:  config.GetEnvInt("METRICS_PORT", defaults.MetricsPort),
	}
	if err := cfg.Validate(); err != nil {
		return defaults
	}
	return cfg
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.CycleTimeout <= 0 {
		return fmt.Errorf("cycle timeout must be positive, got %s", c.CycleTimeout)
	}
	if c.HealthPort < 1024 || c.HealthPort > 65535 {
		return fmt.Errorf("health port out of range: %d", c.HealthPort)
	}
	if c.MetricsPort < 1024 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics port out of range: %d", c.MetricsPort)
	}
	return nil
}
