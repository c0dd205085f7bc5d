// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package session

import (
	"log/slog"

	"github.com/ludora/sessionkit/internal/ids"
)

// Listener receives auth state snapshots on every transition.
type Listener func(State)

// AddListener registers a listener and returns its unsubscribe function.
// If initialization has already completed, the listener is invoked
// immediately with the current snapshot, so late subscribers never miss the
// initial event.
func (m *Manager) AddListener(fn Listener) (unsubscribe func()) {
	id := ids.New()

	m.mu.Lock()
	m.listeners[id] = fn
	replay := m.state.Initialized
	st := m.state
	m.mu.Unlock()

	if replay {
		invokeListener(m.logger, fn, st)
	}

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// notify fans the current state out to all listeners. The registry is
// snapshotted before iterating, so a listener adding or removing
// registrations from within its callback cannot skip or double-invoke
// anyone in this pass.
func (m *Manager) notify() {
	m.mu.Lock()
	st := m.state
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		invokeListener(m.logger, fn, st)
	}
}

// invokeListener isolates one callback: a panicking listener must not take
// down the notification pass.
func invokeListener(logger *slog.Logger, fn Listener, st State) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("auth listener panicked", "panic", r)
		}
	}()
	fn(st)
}
