// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) API {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, DefaultEndpoints())
}

func TestSignIn(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/client/sign-in", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Casedesk-Client"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

		if creds["email"] != "agent@example.com" || creds["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Session{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			UserID:       "user-1",
		})
	}))

	s, err := api.SignIn(context.Background(), "agent@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "access-1", s.AccessToken)
	assert.Equal(t, "refresh-1", s.RefreshToken)
	assert.Equal(t, "user-1", s.UserID)

	_, err = api.SignIn(context.Background(), "agent@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSignInNetworkFailure(t *testing.T) {
	// A closed server makes every request a transport failure.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	api := New(srv.URL, DefaultEndpoints())

	_, err := api.SignIn(context.Background(), "agent@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestSignInMissingAccessToken(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Session{UserID: "user-1"})
	}))

	_, err := api.SignIn(context.Background(), "agent@example.com", "hunter2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestGetSession(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/client/session", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"user_id": "user-1"})
	}))

	id, err := api.GetSession(context.Background(), "access-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	_, err = api.GetSession(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshSession(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/client/refresh", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refresh_token"] != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Session{
			AccessToken:  "access-2",
			RefreshToken: "refresh-2",
			UserID:       "user-1",
		})
	}))

	s, err := api.RefreshSession(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", s.AccessToken)

	_, err = api.RefreshSession(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetProfile(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/client/profile", r.URL.Path)
		json.NewEncoder(w).Encode(Profile{
			UserID:      "user-1",
			Email:       "agent@example.com",
			DisplayName: "Agent One",
			Role:        "agent",
			Locale:      "en",
			CompanyID:   "co-1",
		})
	}))

	p, err := api.GetProfile(context.Background(), "access-1")
	require.NoError(t, err)
	assert.Equal(t, "Agent One", p.DisplayName)
	assert.Equal(t, "agent", p.Role)
}

func TestImpersonateForbiddenForNonAdmins(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := api.Impersonate(context.Background(), "access-1", "user-2")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSignOutIgnoresBody(t *testing.T) {
	called := false
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.Equal(t, "/api/client/sign-out", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, api.SignOut(context.Background(), "access-1"))
	assert.True(t, called)
}

func TestGetVersion(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/version", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"version": "1.4.2"})
	}))

	v, err := api.GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", v)
}

func TestWatchSessionDeliversEventsAndStopsOnCancel(t *testing.T) {
	delivered := false
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/client/events", r.URL.Path)
		if delivered {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		delivered = true
		json.NewEncoder(w).Encode(map[string]any{
			"cursor": "c1",
			"events": []Event{{Kind: EventSignedOut, UserID: "user-1", At: time.Now()}},
		})
	}))

	ctx, cancel := context.WithCancel(context.Background())
	events := api.WatchSession(ctx, "access-1")

	select {
	case ev, ok := <-events:
		require.True(t, ok)
		assert.Equal(t, EventSignedOut, ev.Kind)
		assert.Equal(t, "user-1", ev.UserID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel must close after cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
