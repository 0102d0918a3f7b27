package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersResponse = `[
	{
		"id": "user_2",
		"full_name": "Bob Builder",
		"profile_image_url": "https://img/bob",
		"email_addresses": [{"email_address": "bob@example.com"}]
	},
	{
		"id": "user_1",
		"full_name": "Alice Atkins",
		"profile_image_url": "https://img/alice",
		"email_addresses": [{"email_address": "alice@example.com"}]
	},
	{
		"id": "user_3",
		"full_name": "No Mail",
		"email_addresses": []
	}
]`

func TestGetUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "Bearer sk_dir", r.Header.Get("Authorization"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(usersResponse))
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "sk_dir", srv.Client())

	users, err := client.GetUsers(context.Background(),
		[]string{"alice@example.com", "ghost@example.com", "bob@example.com"})
	require.NoError(t, err)
	require.Len(t, users, 3)

	// Requested order, not provider order.
	assert.Equal(t, "Alice Atkins", users[0].Name)
	assert.Equal(t, "user_1", users[0].ID)
	assert.Equal(t, "https://img/alice", users[0].Avatar)

	// Unknown emails still get a renderable stub.
	assert.Equal(t, "ghost@example.com", users[1].Email)
	assert.Equal(t, "ghost@example.com", users[1].Name)
	assert.Empty(t, users[1].ID)

	assert.Equal(t, "Bob Builder", users[2].Name)
}

func TestGetUsersUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "bad", srv.Client())

	_, err := client.GetUsers(context.Background(), []string{"alice@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
