package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDecodesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/me", r.URL.Path)
		assert.Equal(t, "Bearer sess_abc", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(User{ID: "u1", Username: "alice", Role: "user"})
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "sess_abc")

	var me User
	require.NoError(t, c.Get(context.Background(), "/api/v1/users/me", &me))
	assert.Equal(t, "alice", me.Username)
}

func TestClientReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"Operation not permitted"}}`))
	}))
	defer server.Close()

	err := NewClient(server.URL, "").Post(context.Background(), "/api/v1/scores/x/sync", nil, nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)
	assert.Equal(t, "Operation not permitted (FORBIDDEN)", err.Error())
}

func TestClientNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewClient(server.URL, "").Get(context.Background(), "/", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestWebSocketURL(t *testing.T) {
	u, err := NewClient("http://localhost:8080", "").WebSocketURL("/api/v1/ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/v1/ws", u)

	u, err = NewClient("https://quiz.example.com/", "").WebSocketURL("/api/v1/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://quiz.example.com/api/v1/ws", u)
}

func TestTokenFileRoundTrip(t *testing.T) {
	c := &Config{TokenFile: filepath.Join(t.TempDir(), "nested", "token")}

	require.NoError(t, c.LoadToken())
	assert.Empty(t, c.Token)

	require.NoError(t, c.SaveToken("sess_xyz"))

	loaded := &Config{TokenFile: c.TokenFile}
	require.NoError(t, loaded.LoadToken())
	assert.Equal(t, "sess_xyz", loaded.Token)

	require.NoError(t, loaded.ClearToken())
	require.NoError(t, loaded.ClearToken())
	assert.Empty(t, loaded.Token)
}
