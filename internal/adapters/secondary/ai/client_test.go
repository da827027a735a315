package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&Config{BaseURL: srv.URL, APIKey: "key", Model: "test-model", Timeout: time.Second}, logger.Discard())
}

func TestComplete_ReturnsFirstChoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "Поздравь Машу", req.Messages[1].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  С днём рождения!  "}}]}`))
	})

	text, err := c.Complete(context.Background(), "Поздравь Машу")

	require.NoError(t, err)
	assert.Equal(t, "С днём рождения!", text)
}

func TestComplete_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})

	_, err := c.Complete(context.Background(), "hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestComplete_EmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Complete(context.Background(), "hi")

	assert.Error(t, err)
}

func TestComplete_DisabledWithoutKey(t *testing.T) {
	c := NewClient(&Config{}, logger.Discard())

	_, err := c.Complete(context.Background(), "hi")

	assert.ErrorIs(t, err, ErrDisabled)
}
