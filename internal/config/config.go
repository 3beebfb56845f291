// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top.
// - External errors are wrapped in ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds how many analyses may wait for a worker.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analyses executed at once.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// RunParallelism sets how many candidates one analysis scores at once.
	RunParallelism int `koanf:"run_parallelism"`

	// ProgressEvery emits a progress event after this many candidates.
	ProgressEvery int `koanf:"progress_every"`

	// EventBuffer is the capacity of each run's event channel.
	EventBuffer int `koanf:"event_buffer"`

	// DefaultResolution is used when a request does not name one.
	DefaultResolution int `koanf:"default_resolution"`

	// MaxResolution and MaxCandidates cap what a request may ask for.
	MaxResolution int `koanf:"max_resolution"`
	MaxCandidates int `koanf:"max_candidates"`

	// DTWWindow is the Sakoe-Chiba band half-width; 0 disables it.
	DTWWindow int `koanf:"dtw_window"`

	// DTWSlopePenalty is added to every non-diagonal DTW step.
	DTWSlopePenalty float64 `koanf:"dtw_slope_penalty"`

	// MaxRequestBytes limits request bodies.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		QueueSize:         256,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        4096,
		RunParallelism:    1,
		ProgressEvery:     1,
		EventBuffer:       64,
		DefaultResolution: 64,
		MaxResolution:     2048,
		MaxCandidates:     10_000,
		DTWWindow:         0,
		DTWSlopePenalty:   0,
		MaxRequestBytes:   32 << 20,
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"queue_size", c.QueueSize},
		{"worker_count", c.WorkerCount},
		{"dedupe_size", c.DedupeSize},
		{"run_parallelism", c.RunParallelism},
		{"progress_every", c.ProgressEvery},
		{"default_resolution", c.DefaultResolution},
		{"max_resolution", c.MaxResolution},
		{"max_candidates", c.MaxCandidates},
	}
	for _, p := range positive {
		if p.value < 1 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.name, p.value)
		}
	}

	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventBuffer < 0:
		return fmt.Errorf("%w: event_buffer must not be negative, got %d", ErrInvalidConfig, c.EventBuffer)
	case c.DefaultResolution > c.MaxResolution:
		return fmt.Errorf("%w: default_resolution %d exceeds max_resolution %d", ErrInvalidConfig, c.DefaultResolution, c.MaxResolution)
	case c.DTWWindow < 0:
		return fmt.Errorf("%w: dtw_window must not be negative, got %d", ErrInvalidConfig, c.DTWWindow)
	case c.DTWSlopePenalty < 0:
		return fmt.Errorf("%w: dtw_slope_penalty must not be negative, got %v", ErrInvalidConfig, c.DTWSlopePenalty)
	case c.MaxRequestBytes < 1:
		return fmt.Errorf("%w: max_request_bytes must be positive, got %d", ErrInvalidConfig, c.MaxRequestBytes)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
