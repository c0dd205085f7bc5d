// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

// Package settings loads the platform's global configuration. The server
// keeps settings as a singleton-row collection; the first row is the active
// configuration.
package settings

import (
	"context"
	"log/slog"
	"time"
)

// Snapshot is the active global configuration row.
type Snapshot struct {
	ID                 string          `json:"id"`
	StudentsAccessMode string          `json:"students_access_mode"`
	MaintenanceMode    bool            `json:"maintenance_mode"`
	FeatureFlags       map[string]bool `json:"feature_flags"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Public is the subset of settings safe for unauthenticated callers.
type Public struct {
	StudentsAccessMode string `json:"students_access_mode"`
}

// Fetcher retrieves the raw settings collection.
type Fetcher interface {
	Settings(ctx context.Context) ([]Snapshot, error)
}

// Loader fetches the active settings snapshot.
type Loader struct {
	fetch  Fetcher
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger falls back to slog.Default.
func NewLoader(fetch Fetcher, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetch: fetch, logger: logger}
}

// Load returns the active settings snapshot, or nil if the collection could
// not be fetched or is empty. It never returns an error: downstream policy
// resolution must always be able to proceed with its safe defaults, so
// failures are logged here and swallowed. Retries are the strategy
// executor's concern, not this layer's.
func (l *Loader) Load(ctx context.Context) *Snapshot {
	rows, err := l.fetch.Settings(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "settings fetch failed, proceeding without snapshot", "error", err)
		return nil
	}
	if len(rows) == 0 {
		l.logger.WarnContext(ctx, "settings collection is empty, proceeding without snapshot")
		return nil
	}
	snap := rows[0]
	return &snap
}
