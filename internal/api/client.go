// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

// Package api is the typed REST client for the Ludora backend. It owns the
// transport boundary: every failure leaving this package is classified as
// transient, permanent, or application (see Kind), and "no session" on the
// identity endpoints is an ordinary nil result, never an error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/samber/oops"

	"github.com/ludora/sessionkit/internal/config"
	"github.com/ludora/sessionkit/internal/identity"
	"github.com/ludora/sessionkit/internal/settings"
)

// Client talks to the Ludora REST API.
type Client struct {
	base *url.URL
	// withCreds carries the session cookie jar; noCreds shares transport
	// settings but never sends or stores cookies.
	withCreds *http.Client
	noCreds   *http.Client
	jar       http.CookieJar
	logger    *slog.Logger
}

// NewClient creates a Client for the given API configuration.
func NewClient(cfg config.APIConfig, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, oops.Code("API_CONFIG_INVALID").With("base_url", cfg.BaseURL).Wrap(err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, oops.Code("API_COOKIE_JAR_FAILED").Wrap(err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		base:      base,
		withCreds: &http.Client{Jar: jar, Timeout: timeout},
		noCreds:   &http.Client{Timeout: timeout},
		jar:       jar,
		logger:    logger,
	}, nil
}

// Jar exposes the session cookie jar so the realtime dialer can present the
// same credentials.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Me returns the current full-session identity, or nil if no session exists.
// withCredentials controls whether the session cookie is sent.
func (c *Client) Me(ctx context.Context, withCredentials bool) (*identity.User, error) {
	var user identity.User
	found, err := c.getIdentity(ctx, "/auth/me", withCredentials, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// Verify exchanges a Firebase ID token for a session and returns the partial
// user object from the verification response.
func (c *Client) Verify(ctx context.Context, idToken string) (*identity.User, error) {
	var user identity.User
	body := map[string]string{"idToken": idToken}
	if err := c.do(ctx, http.MethodPost, "/auth/verify", body, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout terminates the full session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true)
}

// PlayerMe returns the current anonymous player session, or nil if none.
func (c *Client) PlayerMe(ctx context.Context) (*identity.Player, error) {
	var player identity.Player
	found, err := c.getIdentity(ctx, "/players/me", true, &player)
	if err != nil || !found {
		return nil, err
	}
	return &player, nil
}

// PlayerLogin opens an anonymous session from a privacy code.
func (c *Client) PlayerLogin(ctx context.Context, privacyCode string) (*identity.Player, error) {
	var player identity.Player
	body := map[string]string{"privacy_code": privacyCode}
	if err := c.do(ctx, http.MethodPost, "/players/login", body, &player, true); err != nil {
		return nil, err
	}
	return &player, nil
}

// PlayerLogout terminates the anonymous session.
func (c *Client) PlayerLogout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/players/logout", nil, nil, true)
}

// Settings fetches the full settings collection.
func (c *Client) Settings(ctx context.Context) ([]settings.Snapshot, error) {
	var rows []settings.Snapshot
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &rows, true); err != nil {
		return nil, err
	}
	return rows, nil
}

// PublicSettings fetches the unauthenticated settings subset.
func (c *Client) PublicSettings(ctx context.Context) (*settings.Public, error) {
	var pub settings.Public
	if err := c.do(ctx, http.MethodGet, "/settings/public", nil, &pub, false); err != nil {
		return nil, err
	}
	return &pub, nil
}

// getIdentity performs a "who am I" GET where 401 and 404 mean "no session",
// reported as found=false with a nil error.
func (c *Client) getIdentity(ctx context.Context, path string, withCredentials bool, out any) (found bool, err error) {
	err = c.do(ctx, http.MethodGet, path, nil, out, withCredentials)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// do performs one request. body and out may be nil. The returned error is
// always a *Error carrying its classification.
func (c *Client) do(ctx context.Context, method, path string, body, out any, withCredentials bool) error {
	u := c.base.JoinPath(path)

	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindApplication, Endpoint: path, Err: err}
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return &Error{Kind: KindApplication, Endpoint: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.withCreds
	if !withCredentials {
		client = c.noCreds
	}

	resp, err := client.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api transport failure", "endpoint", path, "error", err)
		return &Error{Kind: KindTransient, Endpoint: path, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-side close

	if resp.StatusCode >= 400 {
		return &Error{
			Kind:     classifyStatus(resp.StatusCode),
			Endpoint: path,
			Status:   resp.StatusCode,
			Err:      oops.Errorf("unexpected status %s", resp.Status),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindApplication, Endpoint: path, Status: resp.StatusCode, Err: err}
		}
	}
	return nil
}
