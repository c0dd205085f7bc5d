// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludora/sessionkit/internal/api"
	"github.com/ludora/sessionkit/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*api.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(config.APIConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
	require.NoError(t, err)
	return client, srv
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := api.NewClient(config.APIConfig{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL is required")
}

func TestMe_Success(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id": "u1", "email": "teacher@ludora.app", "role": "teacher",
		})
	}))

	user, err := client.Me(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "teacher", user.Role)
}

func TestMe_AbsenceIsNotAnError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound} {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		user, err := client.Me(context.Background(), true)
		assert.NoError(t, err, "status %d", status)
		assert.Nil(t, user, "status %d", status)
	}
}

func TestDo_ClassifiesServerErrorsTransient(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Me(context.Background(), true)
	require.Error(t, err)
	assert.True(t, api.IsTransient(err))
	assert.Equal(t, api.KindTransient, api.KindOf(err))
}

func TestDo_ClassifiesClientErrorsPermanent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.PlayerLogin(context.Background(), "BADCODE")
	require.Error(t, err)
	assert.Equal(t, api.KindPermanent, api.KindOf(err))
}

func TestDo_ClassifiesDecodeErrorsApplication(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json")) //nolint:errcheck
	}))

	_, err := client.Me(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, api.KindApplication, api.KindOf(err))
}

func TestDo_TransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening anymore

	client, err := api.NewClient(config.APIConfig{BaseURL: srv.URL, Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = client.PlayerMe(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsTransient(err))
}

func TestCredentialPolicy_CookieHandling(t *testing.T) {
	var sawCookie []bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/players/login":
			http.SetCookie(w, &http.Cookie{Name: "ludora_session", Value: "abc"})
			w.Write([]byte(`{"id":"p1"}`)) //nolint:errcheck
		default:
			_, err := r.Cookie("ludora_session")
			sawCookie = append(sawCookie, err == nil)
			w.Write([]byte(`{}`)) //nolint:errcheck
		}
	}))

	// Login stores the session cookie in the shared jar.
	_, err := client.PlayerLogin(context.Background(), "CODE")
	require.NoError(t, err)

	// with-credentials requests present the cookie...
	_, err = client.Me(context.Background(), true)
	require.NoError(t, err)
	// ...no-credentials requests do not.
	_, err = client.PublicSettings(context.Background())
	require.NoError(t, err)

	require.Len(t, sawCookie, 2)
	assert.True(t, sawCookie[0], "with-credentials call should carry the session cookie")
	assert.False(t, sawCookie[1], "no-credentials call must not carry the session cookie")
}

func TestSettings_DecodesCollection(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/settings", r.URL.Path)
		w.Write([]byte(`[{"id":"s1","students_access_mode":"invite_only"}]`)) //nolint:errcheck
	}))

	rows, err := client.Settings(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "invite_only", rows[0].StudentsAccessMode)
}

func TestVerify_SendsIDToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok-123", body["idToken"])
		w.Write([]byte(`{"id":"u9","email":"new@ludora.app"}`)) //nolint:errcheck
	}))

	user, err := client.Verify(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "u9", user.ID)
}
