// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ludora/sessionkit/internal/api"
	"github.com/ludora/sessionkit/internal/config"
	"github.com/ludora/sessionkit/internal/identity"
	"github.com/ludora/sessionkit/internal/realtime"
	"github.com/ludora/sessionkit/internal/session"
)

// fakeManager implements SessionManager for command tests.
type fakeManager struct {
	state   session.State
	initErr error

	initCalls   int
	logoutCalls int

	gotToken string
	gotCode  string
	loginErr error

	// logoutState is adopted by Logout; defaults to anonymous.
	logoutState *session.State
}

func (f *fakeManager) Initialize(_ context.Context, _ bool) (session.State, error) {
	f.initCalls++
	if f.initErr != nil {
		return session.State{Initialized: true}, f.initErr
	}
	return f.state, nil
}

func (f *fakeManager) LoginFirebase(_ context.Context, idToken string) (session.State, error) {
	f.gotToken = idToken
	if f.loginErr != nil {
		return session.State{}, f.loginErr
	}
	return f.state, nil
}

func (f *fakeManager) LoginPlayer(_ context.Context, privacyCode string) (session.State, error) {
	f.gotCode = privacyCode
	if f.loginErr != nil {
		return session.State{}, f.loginErr
	}
	return f.state, nil
}

func (f *fakeManager) Logout(_ context.Context) session.State {
	f.logoutCalls++
	if f.logoutState != nil {
		f.state = *f.logoutState
	} else {
		f.state = session.State{Initialized: true, Identity: identity.None()}
	}
	return f.state
}

func (f *fakeManager) State() session.State { return f.state }

func (f *fakeManager) NeedsOnboarding() bool {
	u, ok := f.state.Identity.User()
	return ok && !u.OnboardingCompleted
}

// fakeDeps wires a fake manager into a Deps value.
func fakeDeps(mgr *fakeManager) Deps {
	return Deps{
		ManagerFactory: func(config.Config, *slog.Logger) (SessionManager, *api.Client, error) {
			return mgr, nil, nil
		},
	}
}

// fakeRealtime implements RealtimeClient.
type fakeRealtime struct {
	connectCalls int
	connectErr   error
	subscribed   []string
	closed       bool
}

func (f *fakeRealtime) Connect(context.Context) error {
	f.connectCalls++
	return f.connectErr
}

func (f *fakeRealtime) Subscribe(event string, _ realtime.Handler) func() {
	f.subscribed = append(f.subscribed, event)
	return func() {}
}

func (f *fakeRealtime) Status() realtime.Status { return realtime.StatusConnected }

func (f *fakeRealtime) Close() error {
	f.closed = true
	return nil
}

// fakeObsServer implements ObservabilityServer.
type fakeObsServer struct {
	started bool
	stopped bool
}

func (f *fakeObsServer) Start() (<-chan error, error) {
	f.started = true
	return make(chan error), nil
}

func (f *fakeObsServer) Stop(context.Context) error {
	f.stopped = true
	return nil
}

func (f *fakeObsServer) Addr() string { return "127.0.0.1:0" }

// newTestCmd builds a command carrying the config flags and a context, with
// output captured in the returned buffer.
func newTestCmd(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}
	registerConfigFlags(cmd.Flags())
	cmd.SetContext(context.Background())

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

func TestDepsFillDefaults(t *testing.T) {
	d := Deps{}.fill()

	if d.ManagerFactory == nil {
		t.Error("ManagerFactory not defaulted")
	}
	if d.RealtimeFactory == nil {
		t.Error("RealtimeFactory not defaulted")
	}
	if d.ObservabilityServerFactory == nil {
		t.Error("ObservabilityServerFactory not defaulted")
	}
}

func TestDepsFillKeepsOverrides(t *testing.T) {
	mgr := &fakeManager{}
	d := fakeDeps(mgr).fill()

	got, _, err := d.ManagerFactory(config.Default(), nil)
	if err != nil {
		t.Fatalf("ManagerFactory() error = %v", err)
	}
	if got != SessionManager(mgr) {
		t.Error("override was replaced by default")
	}
}

func TestBuildManagerWiring(t *testing.T) {
	mgr, client, err := buildManager(config.Default(), slog.Default())
	if err != nil {
		t.Fatalf("buildManager() error = %v", err)
	}
	if mgr == nil {
		t.Fatal("manager is nil")
	}
	if client == nil {
		t.Fatal("client is nil")
	}
	if client.Jar() == nil {
		t.Error("client has no cookie jar")
	}
}

func TestJarOfNilClient(t *testing.T) {
	if jarOf(nil) != http.CookieJar(nil) {
		t.Error("jarOf(nil) should be nil")
	}
}

func TestBuildResolverNilClient(t *testing.T) {
	r := buildResolver(config.Default(), nil, slog.Default())
	if r == nil {
		t.Fatal("resolver is nil")
	}
	// Must not panic without a settings fetcher.
	_ = r.Resolve(context.Background())
}
