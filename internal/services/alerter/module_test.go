package alerter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
)

type recordingClient struct {
	messages []string
	err      error
}

func (c *recordingClient) SendAlert(_ context.Context, message string) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, message)
	return nil
}

func TestService_SuppressesDuplicatesWithinWindow(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC))
	client := &recordingClient{}
	svc := New(client, 5*time.Minute, clk, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.NoError(t, svc.SendAlert(ctx, "job failed"))
	require.NoError(t, svc.SendAlert(ctx, "job failed"))
	require.NoError(t, svc.SendAlert(ctx, "other"))

	clk.Set(clk.Now().Add(5 * time.Minute))
	require.NoError(t, svc.SendAlert(ctx, "job failed"))

	assert.Equal(t, []string{"job failed", "other", "job failed"}, client.messages)
}

func TestService_FailedSendIsNotRemembered(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC))
	client := &recordingClient{err: errors.New("telegram down")}
	svc := New(client, time.Minute, clk, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.Error(t, svc.SendAlert(context.Background(), "boom"))

	client.err = nil
	require.NoError(t, svc.SendAlert(context.Background(), "boom"))
	assert.Equal(t, []string{"boom"}, client.messages)
}

func TestService_NilClient(t *testing.T) {
	svc := New(nil, 0, clock.Real(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, svc.SendAlert(context.Background(), "x"))
}
