// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package main

import (
	"strings"
	"testing"

	"github.com/ludora/sessionkit/internal/identity"
	"github.com/ludora/sessionkit/internal/session"
)

func TestRunLogout(t *testing.T) {
	mgr := &fakeManager{
		state: session.State{
			Initialized: true,
			Identity:    identity.ForPlayer(&identity.Player{ID: "p1"}),
		},
	}

	cmd, buf := newTestCmd(t)
	if err := runLogout(cmd, fakeDeps(mgr)); err != nil {
		t.Fatalf("runLogout() error = %v", err)
	}

	if mgr.initCalls != 1 {
		t.Errorf("initCalls = %d, want 1 (logout resolves first)", mgr.initCalls)
	}
	if mgr.logoutCalls != 1 {
		t.Errorf("logoutCalls = %d, want 1", mgr.logoutCalls)
	}
	if !strings.Contains(buf.String(), "Logged out") {
		t.Errorf("output = %q, want a logged-out confirmation", buf.String())
	}
	if mgr.state.Authenticated() {
		t.Error("state still authenticated after logout")
	}
}

func TestRunLogout_InitializeFailurePropagates(t *testing.T) {
	mgr := &fakeManager{initErr: errStub("offline")}

	cmd, _ := newTestCmd(t)
	if err := runLogout(cmd, fakeDeps(mgr)); err == nil {
		t.Fatal("expected initialization failure to propagate")
	}
	if mgr.logoutCalls != 0 {
		t.Errorf("logoutCalls = %d, want 0", mgr.logoutCalls)
	}
}
