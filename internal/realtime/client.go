// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

// Package realtime maintains the bidirectional lobby-update channel. It
// negotiates credentials with the same portal-derived policy as the REST
// layer, reconnects with bounded exponential backoff, and fans inbound
// messages out to per-event subscriber registries.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/ludora/sessionkit/internal/config"
	"github.com/ludora/sessionkit/internal/ids"
	"github.com/ludora/sessionkit/internal/observability"
	"github.com/ludora/sessionkit/internal/portal"
)

// Status is the connection lifecycle state.
type Status string

// Connection states.
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusFailed       Status = "failed"
)

// Handler receives envelopes for a subscribed event.
type Handler func(Envelope)

// PortalResolver resolves the portal context for credential negotiation.
// The realtime layer resolves independently of the session manager: the
// channel may be opened before identity resolution completes.
type PortalResolver interface {
	Resolve(ctx context.Context) portal.Context
}

// joinMessage is sent after connecting to enter the lobby broadcast channel.
type joinMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// connFlight tracks a single in-flight connection attempt so overlapping
// Connect calls collapse into one dial.
type connFlight struct {
	done chan struct{}
	err  error
}

// Client is the realtime connection negotiator.
type Client struct {
	cfg     config.RealtimeConfig
	portals PortalResolver
	jar     http.CookieJar
	logger  *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	status   Status
	closed   bool
	flight   *connFlight
	handlers map[string]map[string]Handler
}

// NewClient creates a realtime client. jar is the REST client's cookie jar,
// so with-credentials dials present the same session; it may be nil for
// credential-less deployments.
func NewClient(cfg config.RealtimeConfig, portals PortalResolver, jar http.CookieJar, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, oops.Code("REALTIME_CONFIG_INVALID").Errorf("realtime URL is required")
	}
	if portals == nil {
		return nil, oops.Code("REALTIME_CONFIG_INVALID").Errorf("portal resolver is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:      cfg,
		portals:  portals,
		jar:      jar,
		logger:   logger,
		status:   StatusDisconnected,
		handlers: make(map[string]map[string]Handler),
	}, nil
}

// Status returns the current connection state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscribe registers a handler for an event and returns its unsubscribe
// function. Registrations are independent: removing one never disturbs
// other subscribers of the same event.
func (c *Client) Subscribe(event string, h Handler) (unsubscribe func()) {
	id := ids.New()

	c.mu.Lock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[string]Handler)
	}
	c.handlers[event][id] = h
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers[event], id)
		if len(c.handlers[event]) == 0 {
			delete(c.handlers, event)
		}
		c.mu.Unlock()
	}
}

// Connect opens the channel using the currently-resolved credential policy.
// A no-op if already connected. Overlapping calls, including calls that race
// the background reconnect loop, collapse into a single dial and share its
// result.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return oops.Code("REALTIME_CLOSED").Errorf("client is closed")
	}
	if c.status == StatusConnected {
		c.mu.Unlock()
		return nil
	}
	if fl := c.flight; fl != nil {
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.err
		case <-ctx.Done():
			return oops.Code("REALTIME_CANCELED").Wrap(ctx.Err())
		}
	}
	fl := &connFlight{done: make(chan struct{})}
	c.flight = fl
	if c.status != StatusReconnecting {
		c.status = StatusConnecting
	}
	c.mu.Unlock()

	err := c.dialAndAdopt(ctx)

	c.mu.Lock()
	c.flight = nil
	if err != nil && c.status == StatusConnecting {
		c.status = StatusDisconnected
	}
	c.mu.Unlock()

	fl.err = err
	close(fl.done)
	return err
}

func (c *Client) dialAndAdopt(ctx context.Context) error {
	pc := c.portals.Resolve(ctx)
	conn, err := c.dialPolicy(ctx, pc.Policy)
	if err != nil {
		return err
	}
	return c.adopt(conn)
}

// Close tears the connection down and stops any reconnection in progress.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.status = StatusDisconnected
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close() //nolint:wrapcheck // caller only needs close success
	}
	return nil
}

// dialPolicy dispatches to a connection strategy by credential policy.
// try_both attempts with credentials first and silently falls back; a
// failure in the fallback attempt propagates.
func (c *Client) dialPolicy(ctx context.Context, policy portal.CredentialPolicy) (*websocket.Conn, error) {
	switch policy {
	case portal.WithCredentials:
		return c.dial(ctx, true)
	case portal.WithoutCredentials:
		return c.dial(ctx, false)
	default: // try_both, and any unknown policy degrades to it
		conn, err := c.dial(ctx, true)
		if err == nil {
			return conn, nil
		}
		c.logger.DebugContext(ctx, "credentialed dial failed, retrying without credentials", "error", err)
		return c.dial(ctx, false)
	}
}

func (c *Client) dial(ctx context.Context, withCredentials bool) (*websocket.Conn, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	if withCredentials {
		dialer.Jar = c.jar
	}

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close() //nolint:errcheck // handshake response body
	}
	if err != nil {
		return nil, oops.Code("REALTIME_DIAL_FAILED").
			With("url", c.cfg.URL).
			With("with_credentials", withCredentials).
			Wrap(err)
	}
	return conn, nil
}

// adopt installs a live connection: joins the lobby channel, announces the
// connect event, and starts the read loop. Any previously installed
// connection is closed so at most one read loop feeds subscribers.
func (c *Client) adopt(conn *websocket.Conn) error {
	if err := conn.WriteJSON(joinMessage{Type: "join", Channel: LobbyChannel}); err != nil {
		conn.Close() //nolint:errcheck,gosec // already failing
		return oops.Code("REALTIME_JOIN_FAILED").With("channel", LobbyChannel).Wrap(err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close() //nolint:errcheck,gosec // closed while adopting
		return oops.Code("REALTIME_CLOSED").Errorf("client is closed")
	}
	old := c.conn
	c.conn = conn
	c.status = StatusConnected
	c.mu.Unlock()

	if old != nil {
		old.Close() //nolint:errcheck,gosec // superseded connection
	}

	c.emit(EventConnect, Envelope{Type: EventConnect})
	go c.readLoop(conn)
	return nil
}

// readLoop pumps inbound messages until the connection drops. Every valid
// envelope fires twice: under the generic event name and under the
// type-derived sub-event name.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		env, derr := decodeEnvelope(data)
		if derr != nil {
			c.logger.Warn("dropping invalid lobby message", "error", derr)
			continue
		}

		observability.RecordRealtimeEvent(env.Type)
		c.emit(EventLobbyUpdate, env)
		c.emit(EventLobbyUpdate+":"+env.Type, env)
	}
}

// handleDisconnect announces the drop and drives the bounded reconnect loop.
// Exhausting the reconnect budget fires reconnect_failed to subscribers
// rather than surfacing an error; there is no caller left to throw to.
func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		// deliberate teardown, or a superseded connection
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.status = StatusReconnecting
	c.mu.Unlock()

	c.logger.Warn("realtime connection lost, reconnecting", "error", cause)
	c.emit(EventDisconnect, Envelope{Type: EventDisconnect})

	// WithMaxRetries counts retries after the first attempt, so the budget
	// of attempts maps to attempts-1 retries.
	attempts := c.cfg.MaxReconnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithCappedDuration(c.cfg.ReconnectMaxDelay, retry.NewExponential(c.cfg.ReconnectBaseDelay))
	backoff = retry.WithMaxRetries(attempts-1, backoff)

	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		observability.RecordRealtimeReconnect()
		if connectErr := c.Connect(ctx); connectErr != nil {
			return retry.RetryableError(connectErr)
		}
		return nil
	})
	if err != nil {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.status = StatusFailed
		c.mu.Unlock()
		c.logger.Error("realtime reconnection attempts exhausted", "error", err)
		c.emit(EventReconnectFailed, Envelope{Type: EventReconnectFailed})
	}
}

// emit fans an envelope out to the event's subscribers. The registry is
// snapshotted first so handlers can subscribe/unsubscribe from within their
// callbacks.
func (c *Client) emit(event string, env Envelope) {
	c.mu.Lock()
	fns := make([]Handler, 0, len(c.handlers[event]))
	for _, h := range c.handlers[event] {
		fns = append(fns, h)
	}
	c.mu.Unlock()

	for _, h := range fns {
		c.invoke(h, env)
	}
}

// invoke isolates one handler so a panicking subscriber cannot stall the
// read loop or starve other subscribers.
func (c *Client) invoke(h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("realtime handler panicked", "event", env.Type, "panic", r)
		}
	}()
	h(env)
}
