// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and QUICKSHOP_* environment variables on top.
// - Errors are wrapped with this package's sentinel kinds.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MaxUploadBytes caps the size of an uploaded CSV body.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// UploadRatePerSecond limits uploads across all sessions; 0 disables it.
	UploadRatePerSecond float64 `koanf:"upload_rate_per_second"`

	// UploadBurst is the number of uploads allowed above the steady rate.
	UploadBurst int `koanf:"upload_burst"`

	// MaxSessions bounds the in-memory session store; the least recently
	// used session is evicted once it is full.
	MaxSessions int `koanf:"max_sessions"`

	// SessionIdleTTLSeconds removes sessions untouched for this long.
	SessionIdleTTLSeconds int `koanf:"session_idle_ttl_seconds"`

	// SweepIntervalSeconds is how often idle sessions are swept.
	SweepIntervalSeconds int `koanf:"sweep_interval_seconds"`

	// SamplePath optionally points at a CSV that replaces the bundled sample.
	SamplePath string `koanf:"sample_path"`

	// WatchSample reloads SamplePath when it changes on disk.
	WatchSample bool `koanf:"watch_sample"`

	// MaxReportedErrors caps how many row coercion errors are returned to clients.
	MaxReportedErrors int `koanf:"max_reported_errors"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		MaxUploadBytes:        10 << 20,
		UploadRatePerSecond:   5,
		UploadBurst:           10,
		MaxSessions:           1_000,
		SessionIdleTTLSeconds: 1_800,
		SweepIntervalSeconds:  60,
		MaxReportedErrors:     20,
	}
}

// SessionIdleTTL returns SessionIdleTTLSeconds as a duration.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLSeconds) * time.Second
}

// SweepInterval returns SweepIntervalSeconds as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
