package policy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		FactsURL:    srv.URL,
		PDPURL:      srv.URL,
		APIKey:      "test-key",
		Project:     "proj",
		Environment: "env",
	}, srv.Client())
}

func TestUserExists(t *testing.T) {
	t.Run("known principal", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/proj/env/users/alice@example.com", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"key":"alice@example.com"}`))
		})
		exists, err := client.UserExists(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("unknown principal is a clean no", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		exists, err := client.UserExists(context.Background(), "bob@example.com")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("server failure maps to transient", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := client.UserExists(context.Background(), "bob@example.com")
		assert.ErrorIs(t, err, ErrTransient)
	})

	t.Run("bad credentials map to unauthorized", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := client.UserExists(context.Background(), "bob@example.com")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("sends role assignment in create payload", func(t *testing.T) {
		var got createUserPayload
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/proj/env/users", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusCreated)
		})
		err := client.CreateUser(context.Background(), User{Key: "bob@example.com", Email: "bob@example.com"}, "editor")
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", got.Key)
		require.Len(t, got.RoleAssignments, 1)
		assert.Equal(t, "editor", got.RoleAssignments[0].Role)
		assert.Equal(t, Tenant, got.RoleAssignments[0].Tenant)
	})

	t.Run("duplicate create maps to conflict", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})
		err := client.CreateUser(context.Background(), User{Key: "bob@example.com"}, "editor")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestAssignRole(t *testing.T) {
	var got roleAssignment
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/proj/env/users/bob@example.com/roles", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, client.AssignRole(context.Background(), "bob@example.com", "viewer"))
	assert.Equal(t, "viewer", got.Role)
	assert.Equal(t, Tenant, got.Tenant)
}

func TestUnassignRole(t *testing.T) {
	t.Run("removes held role", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusOK)
		})
		require.NoError(t, client.UnassignRole(context.Background(), "bob@example.com", "editor"))
	})

	t.Run("role not held maps to not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		err := client.UnassignRole(context.Background(), "bob@example.com", "editor")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCheck(t *testing.T) {
	t.Run("decodes allow decision", func(t *testing.T) {
		var got checkPayload
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/allowed", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"allow":true}`))
		})
		allowed, err := client.Check(context.Background(), "alice@example.com", "edit")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, "alice@example.com", got.User.Key)
		assert.Equal(t, "edit", got.Action)
		assert.Equal(t, ResourceDocument, got.Resource.Type)
	})

	t.Run("clean deny is not an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"allow":false}`))
		})
		allowed, err := client.Check(context.Background(), "eve@example.com", "view")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("unreachable decision point maps to transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()
		client := NewClient(Config{FactsURL: srv.URL, PDPURL: srv.URL, APIKey: "k", Project: "p", Environment: "e"}, nil)
		_, err := client.Check(context.Background(), "alice@example.com", "view")
		assert.ErrorIs(t, err, ErrTransient)
	})
}
