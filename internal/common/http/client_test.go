package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["msg"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"b-1"}`))
	}))
	defer server.Close()

	c := NewClient(2*time.Second).WithHeader("X-API-Key", "secret")

	var out struct {
		ID string `json:"id"`
	}
	err := c.PostJSON(context.Background(), server.URL, map[string]string{"msg": "hello"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "b-1", out.ID)
}

func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slot taken", http.StatusConflict)
	}))
	defer server.Close()

	err := NewClient(time.Second).GetJSON(context.Background(), server.URL, nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "slot taken")
}

func TestClient_WithHeaderDoesNotMutateParent(t *testing.T) {
	parent := NewClient(time.Second)
	child := parent.WithHeader("X-A", "1")

	assert.Empty(t, parent.headers)
	assert.Equal(t, "1", child.headers["X-A"])
}
