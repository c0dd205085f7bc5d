// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludora/sessionkit/internal/config"
	"github.com/ludora/sessionkit/pkg/errutil"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.ludora.app", cfg.API.BaseURL)
	assert.Equal(t, uint64(3), cfg.Retry.MaxAttempts)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessionkit.yaml")
	data := []byte(`
api:
  base_url: https://staging-api.ludora.app
  timeout: 5s
portal:
  student_domain: play.staging.ludora.app
retry:
  max_attempts: 2
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://staging-api.ludora.app", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "play.staging.ludora.app", cfg.Portal.StudentDomain)
	assert.Equal(t, uint64(2), cfg.Retry.MaxAttempts)
	// Untouched keys keep defaults.
	assert.Equal(t, "wss://api.ludora.app/ws", cfg.Realtime.URL)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessionkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: text\n"), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("logging.format", "", "log format")
	fs.String("portal.origin", "", "origin")
	require.NoError(t, fs.Parse([]string{"--logging.format=json", "--portal.origin=https://play.ludora.app"}))

	cfg, err := config.Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "https://play.ludora.app", cfg.Portal.Origin)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/sessionkit.yaml", nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_FILE_LOAD_FAILED")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*config.Config) {},
		},
		{
			name:    "missing api base url",
			mutate:  func(c *config.Config) { c.API.BaseURL = "" },
			wantErr: "api.base_url is required",
		},
		{
			name:    "zero retry attempts",
			mutate:  func(c *config.Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "retry.max_attempts",
		},
		{
			name:    "bad log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
