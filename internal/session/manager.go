// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

// Package session is the dual-portal authentication core: it resolves the
// portal context, executes the ordered authentication strategy with bounded
// retry, holds the current auth state, and fans state transitions out to
// subscribers.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/ludora/sessionkit/internal/api"
	"github.com/ludora/sessionkit/internal/config"
	"github.com/ludora/sessionkit/internal/identity"
	"github.com/ludora/sessionkit/internal/observability"
	"github.com/ludora/sessionkit/internal/portal"
	"github.com/ludora/sessionkit/internal/settings"
	"github.com/ludora/sessionkit/pkg/errutil"
)

// API is the slice of the REST client the session layer depends on.
type API interface {
	Me(ctx context.Context, withCredentials bool) (*identity.User, error)
	Verify(ctx context.Context, idToken string) (*identity.User, error)
	Logout(ctx context.Context) error
	PlayerMe(ctx context.Context) (*identity.Player, error)
	PlayerLogin(ctx context.Context, privacyCode string) (*identity.Player, error)
	PlayerLogout(ctx context.Context) error
}

// PortalResolver resolves the current portal context.
type PortalResolver interface {
	Resolve(ctx context.Context) portal.Context
	ResolveLocal() portal.Context
}

// SettingsLoader loads the active settings snapshot.
type SettingsLoader interface {
	Load(ctx context.Context) *settings.Snapshot
}

// Connectivity reports whether the network is reachable. The default always
// reports true; embedders with a real connectivity signal inject their own.
type Connectivity func() bool

// Deps contains the manager's injectable dependencies.
type Deps struct {
	API      API
	Portals  PortalResolver
	Settings SettingsLoader
	// Online is optional; nil means "always online".
	Online Connectivity
	// Retry is optional; the zero value takes the built-in defaults.
	Retry config.RetryConfig
	// Logger is optional; nil falls back to slog.Default.
	Logger *slog.Logger
}

// Manager owns the auth state machine. Construct one per running
// application and share it; there is deliberately no package-level instance.
type Manager struct {
	api     API
	portals PortalResolver
	loader  SettingsLoader
	online  Connectivity
	retry   config.RetryConfig
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	listeners map[string]Listener
	flight    *flight
}

// flight is one in-progress initialization, shared by all concurrent callers.
type flight struct {
	done  chan struct{}
	state State
	err   error
}

// NewManager creates a Manager.
func NewManager(deps Deps) (*Manager, error) {
	if deps.API == nil {
		return nil, oops.Code("SESSION_INVALID_DEPS").Errorf("api client is required")
	}
	if deps.Portals == nil {
		return nil, oops.Code("SESSION_INVALID_DEPS").Errorf("portal resolver is required")
	}
	if deps.Settings == nil {
		return nil, oops.Code("SESSION_INVALID_DEPS").Errorf("settings loader is required")
	}
	online := deps.Online
	if online == nil {
		online = func() bool { return true }
	}
	rc := deps.Retry
	if rc.MaxAttempts == 0 {
		rc = config.Default().Retry
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		api:       deps.API,
		portals:   deps.Portals,
		loader:    deps.Settings,
		online:    online,
		retry:     rc,
		logger:    logger,
		state:     State{Loading: true},
		listeners: make(map[string]Listener),
	}, nil
}

// State returns the current auth state snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// NeedsOnboarding reports whether the current full-session user still has
// onboarding to complete. Always false for player sessions and anonymous
// visitors.
func (m *Manager) NeedsOnboarding() bool {
	u, ok := m.State().Identity.User()
	if !ok {
		return false
	}
	return identity.NeedsOnboarding(u)
}

// Initialize resolves the session: loads settings, derives the portal
// strategy, and executes it. A second call while one is in flight waits on
// the same run instead of starting a duplicate. Once initialized with an
// entity present, subsequent calls return the cached state unless
// forceRefresh is set.
func (m *Manager) Initialize(ctx context.Context, forceRefresh bool) (State, error) {
	m.mu.Lock()
	if !forceRefresh && m.state.Initialized && m.state.Identity.Authenticated() {
		st := m.state
		m.mu.Unlock()
		return st, nil
	}
	if fl := m.flight; fl != nil {
		m.mu.Unlock()
		select {
		case <-fl.done:
			return fl.state, fl.err
		case <-ctx.Done():
			// The shared run keeps going for the other callers; only this
			// caller bails.
			return m.State(), ctx.Err()
		}
	}
	fl := &flight{done: make(chan struct{})}
	m.flight = fl
	m.mu.Unlock()

	st, err := m.run(ctx)

	m.mu.Lock()
	m.flight = nil
	m.mu.Unlock()

	fl.state, fl.err = st, err
	close(fl.done)
	return st, err
}

// run performs one initialization pass. Whatever happens, the state does not
// stay stuck in loading and listeners hear about the transition.
func (m *Manager) run(ctx context.Context) (State, error) {
	m.mu.Lock()
	m.state.Loading = true
	m.mu.Unlock()
	m.notify()

	st, err := m.resolveAndExecute(ctx)
	if err != nil {
		m.mu.Lock()
		m.state.Loading = false
		st = m.state
		m.mu.Unlock()
		m.notify()
		return st, err
	}
	return st, nil
}

func (m *Manager) resolveAndExecute(ctx context.Context) (State, error) {
	// The offline check runs before any fetch so a known-offline client
	// never burns transport timeouts on settings or portal resolution.
	if !m.online() {
		pc := m.portals.ResolveLocal()
		if !portal.StrategyFor(pc).AllowAnonymous {
			return State{}, oops.Code("AUTH_OFFLINE").
				With("portal", pc.Portal).
				Errorf("offline and no cached session")
		}
		m.logger.InfoContext(ctx, "offline, settling into anonymous state", "portal", pc.Portal)
		return m.finish(identity.None(), nil), nil
	}

	snap := m.loader.Load(ctx)
	pc := m.portals.Resolve(ctx)
	strat := portal.StrategyFor(pc)

	id, err := m.executeStrategy(ctx, strat, pc)
	if err != nil {
		// An unreachable network is only fatal when the strategy demands a
		// full session.
		if strat.AllowAnonymous && api.IsTransient(err) {
			m.logger.WarnContext(ctx, "auth checks unreachable, settling into anonymous state", "error", err)
			return m.finish(identity.None(), snap), nil
		}
		return State{}, err
	}
	return m.finish(id, snap), nil
}

// executeStrategy runs the ordered method list, retrying the whole pass on
// transient network failures with capped exponential backoff. A pass where
// every method simply misses is not an error: the session settles into
// anonymous.
func (m *Manager) executeStrategy(ctx context.Context, strat portal.Strategy, pc portal.Context) (identity.Identity, error) {
	backoff := retry.WithCappedDuration(m.retry.MaxDelay, retry.NewExponential(m.retry.BaseDelay))
	backoff = retry.WithMaxRetries(m.retry.MaxAttempts-1, backoff)

	resolved := identity.None()
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		id, tryErr := m.tryMethods(ctx, strat, pc)
		if tryErr != nil {
			if api.IsTransient(tryErr) {
				observability.RecordAuthRetry()
				return retry.RetryableError(tryErr)
			}
			return tryErr
		}
		resolved = id
		return nil
	})
	if err != nil {
		return identity.None(), oops.Code("AUTH_STRATEGY_FAILED").
			With("portal", strat.Portal).
			With("max_attempts", m.retry.MaxAttempts).
			Wrap(err)
	}
	return resolved, nil
}

// tryMethods attempts each method in strategy order; first success wins.
func (m *Manager) tryMethods(ctx context.Context, strat portal.Strategy, pc portal.Context) (identity.Identity, error) {
	for _, method := range strat.Methods {
		id, reason, err := m.check(ctx, method, pc)
		if err != nil {
			observability.RecordAuthAttempt(string(method), "error")
			return identity.None(), err
		}
		if id.Authenticated() {
			observability.RecordAuthAttempt(string(method), "success")
			return id, nil
		}
		observability.RecordAuthAttempt(string(method), "failure")
		m.logger.DebugContext(ctx, "auth method missed", "method", method, "reason", reason)
	}
	return identity.None(), nil
}

// check dispatches one method. Only transient transport failures surface as
// errors (to drive the retry loop); everything else is a miss with a reason.
func (m *Manager) check(ctx context.Context, method portal.Method, pc portal.Context) (identity.Identity, string, error) {
	switch method {
	case portal.MethodFirebase:
		return m.checkFirebase(ctx, pc)
	case portal.MethodPlayer:
		return m.checkPlayer(ctx)
	default:
		return identity.None(), "unknown method", nil
	}
}

func (m *Manager) checkFirebase(ctx context.Context, pc portal.Context) (identity.Identity, string, error) {
	withCreds := pc.Policy != portal.WithoutCredentials
	user, err := m.api.Me(ctx, withCreds)
	if err != nil {
		if api.IsTransient(err) {
			return identity.None(), "", err
		}
		return identity.None(), err.Error(), nil
	}
	if user == nil {
		return identity.None(), "no session", nil
	}

	// Invite-only mode avoids requiring identity from regular students, so a
	// resolved full session is only accepted for a non-impersonated admin.
	if pc.Portal == portal.Student && pc.AccessMode == portal.InviteOnly {
		if user.Role != identity.RoleAdmin || user.Impersonated {
			return identity.None(), "full session not accepted in invite-only mode", nil
		}
	}
	return identity.ForUser(user), "", nil
}

func (m *Manager) checkPlayer(ctx context.Context) (identity.Identity, string, error) {
	player, err := m.api.PlayerMe(ctx)
	if err != nil {
		if api.IsTransient(err) {
			return identity.None(), "", err
		}
		return identity.None(), err.Error(), nil
	}
	if player == nil {
		return identity.None(), "no player session", nil
	}
	return identity.ForPlayer(player), "", nil
}

// LoginFirebase verifies a Firebase ID token and adopts the resulting
// identity. After verification it re-fetches the canonical record to pick up
// server-computed fields; if that enrichment fails, the partial identity from
// the verification response is kept.
func (m *Manager) LoginFirebase(ctx context.Context, idToken string) (State, error) {
	user, err := m.api.Verify(ctx, idToken)
	if err != nil {
		return m.State(), oops.Code("AUTH_LOGIN_FAILED").With("method", "firebase").Wrap(err)
	}

	if canonical, cerr := m.api.Me(ctx, true); cerr == nil && canonical != nil {
		user = canonical
	} else if cerr != nil {
		m.logger.WarnContext(ctx, "canonical identity fetch failed, keeping verification response", "error", cerr)
	}

	return m.adopt(identity.ForUser(user)), nil
}

// LoginPlayer opens an anonymous session from a privacy code and adopts it,
// with the same canonical re-fetch and partial fallback as LoginFirebase.
func (m *Manager) LoginPlayer(ctx context.Context, privacyCode string) (State, error) {
	player, err := m.api.PlayerLogin(ctx, privacyCode)
	if err != nil {
		return m.State(), oops.Code("AUTH_LOGIN_FAILED").With("method", "player").Wrap(err)
	}

	if canonical, cerr := m.api.PlayerMe(ctx); cerr == nil && canonical != nil {
		player = canonical
	} else if cerr != nil {
		m.logger.WarnContext(ctx, "canonical player fetch failed, keeping login response", "error", cerr)
	}

	return m.adopt(identity.ForPlayer(player)), nil
}

// Logout ends the current session. The remote call is best effort; local
// state is cleared and listeners notified even when it fails.
func (m *Manager) Logout(ctx context.Context) State {
	var err error
	switch m.State().Identity.Kind() {
	case identity.KindUser:
		err = m.api.Logout(ctx)
	case identity.KindPlayer:
		err = m.api.PlayerLogout(ctx)
	case identity.KindNone:
		// nothing to terminate remotely
	}
	if err != nil {
		errutil.LogError(m.logger, "remote logout failed", err)
	}
	return m.adopt(identity.None())
}

// Reset returns the manager to its pre-initialization state. Test/teardown
// path; listeners are kept.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.state = State{Loading: true}
	m.mu.Unlock()
}

// adopt installs an identity, marks the session initialized, and notifies.
func (m *Manager) adopt(id identity.Identity) State {
	m.mu.Lock()
	m.state.Identity = id
	m.state.Initialized = true
	m.state.Loading = false
	st := m.state
	m.mu.Unlock()
	m.notify()
	return st
}

// finish installs the outcome of an initialization run.
func (m *Manager) finish(id identity.Identity, snap *settings.Snapshot) State {
	m.mu.Lock()
	m.state = State{
		Loading:     false,
		Initialized: true,
		Identity:    id,
		Settings:    snap,
	}
	st := m.state
	m.mu.Unlock()
	m.notify()
	return st
}
