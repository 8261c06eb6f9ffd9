package reps

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy selects the timer ticking implementation.
type Strategy string

const (
	// StrategyWorker runs ticking on a dedicated background goroutine
	// that owns the timer counters (the delegated strategy).
	StrategyWorker Strategy = "worker"

	// StrategyLoop re-arms a per-interval callback per active timer
	// (the cooperative fallback).
	StrategyLoop Strategy = "loop"
)

// Config holds configuration for an App.
type Config struct {
	// TickInterval is the timer tick granularity. One second unless
	// shortened for tests.
	TickInterval time.Duration `yaml:"tick_interval"`

	// Strategy selects the ticking implementation. The scheduler falls
	// back from worker to loop on its own if the worker degrades.
	Strategy Strategy `yaml:"strategy"`

	// HTTPAddr is the listen address for the optional HTTP surface.
	HTTPAddr string `yaml:"http_addr"`

	// APIKey protects the HTTP surface when non-empty.
	APIKey string `yaml:"api_key"`

	// StoreDriver names the store backend (memory, sqlite, postgres,
	// redis, badger, bun, mongo).
	StoreDriver string `yaml:"store_driver"`

	// StoreDSN is the backend-specific connection string.
	StoreDSN string `yaml:"store_dsn"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval: 1 * time.Second,
		Strategy:     StrategyWorker,
		HTTPAddr:     ":8484",
		StoreDriver:  "memory",
		LogLevel:     "info",
	}
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive", ErrValidation)
	}
	switch c.Strategy {
	case StrategyWorker, StrategyLoop:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrValidation, c.Strategy)
	}
	return nil
}

// LoadConfig reads a YAML config file and applies REPS_* environment
// variable overrides on top:
//
//	REPS_TICK_INTERVAL, REPS_STRATEGY, REPS_HTTP_ADDR, REPS_API_KEY,
//	REPS_STORE_DRIVER, REPS_STORE_DSN, REPS_LOG_LEVEL
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPS_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TickInterval = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			cfg.TickInterval = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("REPS_STRATEGY"); v != "" {
		cfg.Strategy = Strategy(v)
	}
	if v := os.Getenv("REPS_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("REPS_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("REPS_STORE_DRIVER"); v != "" {
		cfg.StoreDriver = v
	}
	if v := os.Getenv("REPS_STORE_DSN"); v != "" {
		cfg.StoreDSN = v
	}
	if v := os.Getenv("REPS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
