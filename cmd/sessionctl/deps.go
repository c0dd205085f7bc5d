// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ludora/sessionkit/internal/api"
	"github.com/ludora/sessionkit/internal/config"
	"github.com/ludora/sessionkit/internal/observability"
	"github.com/ludora/sessionkit/internal/portal"
	"github.com/ludora/sessionkit/internal/realtime"
	"github.com/ludora/sessionkit/internal/session"
	"github.com/ludora/sessionkit/internal/settings"
)

// Deps contains injectable dependencies for the CLI commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// ManagerFactory builds the session stack from a loaded config.
	// Default: buildManager
	ManagerFactory func(cfg config.Config, logger *slog.Logger) (SessionManager, *api.Client, error)

	// RealtimeFactory creates a realtime client.
	// Default: realtime.NewClient
	RealtimeFactory func(cfg config.RealtimeConfig, portals realtime.PortalResolver, jar http.CookieJar, logger *slog.Logger) (RealtimeClient, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// SessionManager interface wraps the methods used from session.Manager.
type SessionManager interface {
	Initialize(ctx context.Context, forceRefresh bool) (session.State, error)
	LoginFirebase(ctx context.Context, idToken string) (session.State, error)
	LoginPlayer(ctx context.Context, privacyCode string) (session.State, error)
	Logout(ctx context.Context) session.State
	State() session.State
	NeedsOnboarding() bool
}

// RealtimeClient interface wraps the methods used from realtime.Client.
type RealtimeClient interface {
	Connect(ctx context.Context) error
	Subscribe(event string, h realtime.Handler) func()
	Status() realtime.Status
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

func defaultDeps() Deps {
	return Deps{
		ManagerFactory: buildManager,
		RealtimeFactory: func(cfg config.RealtimeConfig, portals realtime.PortalResolver, jar http.CookieJar, logger *slog.Logger) (RealtimeClient, error) {
			return realtime.NewClient(cfg, portals, jar, logger)
		},
		ObservabilityServerFactory: func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		},
	}
}

// fill replaces nil factories with defaults.
func (d Deps) fill() Deps {
	def := defaultDeps()
	if d.ManagerFactory == nil {
		d.ManagerFactory = def.ManagerFactory
	}
	if d.RealtimeFactory == nil {
		d.RealtimeFactory = def.RealtimeFactory
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = def.ObservabilityServerFactory
	}
	return d
}

// buildManager assembles the production session stack: one REST client
// shared by the settings loader, the portal resolver, and the manager.
func buildManager(cfg config.Config, logger *slog.Logger) (SessionManager, *api.Client, error) {
	client, err := api.NewClient(cfg.API, logger)
	if err != nil {
		return nil, nil, err
	}

	resolver := portal.NewResolver(cfg.Portal, client, logger)
	loader := settings.NewLoader(client, logger)

	mgr, err := session.NewManager(session.Deps{
		API:      client,
		Portals:  resolver,
		Settings: loader,
		Online:   func() bool { return !forceOffline },
		Retry:    cfg.Retry,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return mgr, client, nil
}

// buildResolver builds the portal resolver the realtime client dials with.
// Nil clients (from test doubles) degrade to origin-only classification.
func buildResolver(cfg config.Config, client *api.Client, logger *slog.Logger) realtime.PortalResolver {
	var fetch portal.PublicSettingsFetcher
	if client != nil {
		fetch = client
	}
	return portal.NewResolver(cfg.Portal, fetch, logger)
}

// jarOf returns the client's cookie jar, tolerating nil test doubles.
func jarOf(client *api.Client) http.CookieJar {
	if client == nil {
		return nil
	}
	return client.Jar()
}
