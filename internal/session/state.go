// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package session

import (
	"github.com/ludora/sessionkit/internal/identity"
	"github.com/ludora/sessionkit/internal/settings"
)

// State is a read-only snapshot of the session layer. Listeners receive
// copies; mutating a snapshot has no effect on the manager.
type State struct {
	// Loading is true while an initialization run is in flight.
	Loading bool
	// Initialized is true once the first run has completed (in any outcome).
	Initialized bool
	// Identity is the resolved entity; identity.None() for anonymous visitors.
	Identity identity.Identity
	// Settings is the active settings snapshot, nil when the fetch failed.
	Settings *settings.Snapshot
}

// Authenticated reports whether an entity is present.
func (s State) Authenticated() bool {
	return s.Identity.Authenticated()
}

// AuthType returns the identity discriminant.
func (s State) AuthType() identity.Kind {
	return s.Identity.Kind()
}
