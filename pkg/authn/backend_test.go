package authn

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafops/grafana-console/pkg/observability"
)

func newBackend(t *testing.T, handler http.Handler) *BackendClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewBackendClient(srv.URL, 2*time.Second, logger)
}

func TestBackendLogin(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != "alice" || req.Password != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(loginResponse{
			Token: "backend-tok",
			User: Profile{
				ID: 7, Username: "alice", Email: "alice@example.com",
				Role: "admin", Organization: "org-a",
			},
		})
	}))

	profile, token, err := backend.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "backend-tok", token)
	assert.Equal(t, "org-a", profile.Organization)

	_, _, err = backend.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestBackendLoginMissingToken(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(loginResponse{User: Profile{Username: "alice"}})
	}))

	_, _, err := backend.Login(context.Background(), "alice", "s3cret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token")
}

func TestBackendMe(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer backend-tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Profile{ID: 7, Username: "alice", Role: "viewer"})
	}))

	profile, err := backend.Me(context.Background(), "backend-tok")
	require.NoError(t, err)
	assert.Equal(t, int64(7), profile.ID)

	_, err = backend.Me(context.Background(), "stale-tok")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestBackendServerError(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, _, err := backend.Login(context.Background(), "alice", "s3cret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
