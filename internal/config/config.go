// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

// Package config loads session kit configuration from defaults, an optional
// YAML file, and command-line flags, in that order of precedence.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the root configuration for the session kit.
type Config struct {
	API      APIConfig      `koanf:"api"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Portal   PortalConfig   `koanf:"portal"`
	Retry    RetryConfig    `koanf:"retry"`
	Logging  LoggingConfig  `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// APIConfig configures the REST API client.
type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// RealtimeConfig configures the realtime (websocket) client.
type RealtimeConfig struct {
	URL                  string        `koanf:"url"`
	HandshakeTimeout     time.Duration `koanf:"handshake_timeout"`
	MaxReconnectAttempts uint64        `koanf:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `koanf:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `koanf:"reconnect_max_delay"`
}

// PortalConfig carries the origin-classification inputs: the current origin
// and the configured portal domains.
type PortalConfig struct {
	// Origin is the origin this process represents, e.g. "https://ludora.app".
	Origin string `koanf:"origin"`
	// StudentDomain is the exact hostname of the student portal.
	StudentDomain string `koanf:"student_domain"`
	// FrontendURL is the teacher-portal frontend URL.
	FrontendURL string `koanf:"frontend_url"`
}

// RetryConfig bounds the auth strategy retry loop.
type RetryConfig struct {
	MaxAttempts uint64        `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig configures the observability endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "https://api.ludora.app",
			Timeout: 15 * time.Second,
		},
		Realtime: RealtimeConfig{
			URL:                  "wss://api.ludora.app/ws",
			HandshakeTimeout:     10 * time.Second,
			MaxReconnectAttempts: 5,
			ReconnectBaseDelay:   500 * time.Millisecond,
			ReconnectMaxDelay:    10 * time.Second,
		},
		Portal: PortalConfig{
			Origin:        "https://ludora.app",
			StudentDomain: "play.ludora.app",
			FrontendURL:   "https://ludora.app",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   250 * time.Millisecond,
			MaxDelay:    4 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9100",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and an optional
// flag set. Either path or flags may be empty/nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAG_LOAD_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("api.base_url is required")
	}
	if c.Realtime.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("realtime.url is required")
	}
	if c.Portal.StudentDomain == "" {
		return oops.Code("CONFIG_INVALID").Errorf("portal.student_domain is required")
	}
	if c.Retry.MaxAttempts == 0 {
		return oops.Code("CONFIG_INVALID").Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BaseDelay <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("retry.base_delay must be positive")
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").Errorf("logging.format must be 'json' or 'text', got %q", c.Logging.Format)
	}
	return nil
}
