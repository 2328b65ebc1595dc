package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "QUICKSHOP_"
	EnvFile   = "QUICKSHOP_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if QUICKSHOP_CONFIG is set
//  3. env (prefix QUICKSHOP_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// QUICKSHOP_MAX_UPLOAD_BYTES -> max_upload_bytes; underscores are kept so
	// keys stay flat and match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.UploadRatePerSecond < 0:
		return fmt.Errorf("%w: upload_rate_per_second must not be negative", ErrInvalidConfig)
	case c.UploadRatePerSecond > 0 && c.UploadBurst <= 0:
		return fmt.Errorf("%w: upload_burst must be positive when uploads are rate limited", ErrInvalidConfig)
	case c.MaxSessions < 0:
		return fmt.Errorf("%w: max_sessions must not be negative", ErrInvalidConfig)
	case c.WatchSample && c.SamplePath == "":
		return fmt.Errorf("%w: watch_sample requires sample_path", ErrInvalidConfig)
	}
	return nil
}
