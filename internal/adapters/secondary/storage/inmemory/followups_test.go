package inmemory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUps_NewTaskCancelsPrevious(t *testing.T) {
	f := NewFollowUps()
	t.Cleanup(f.Shutdown)

	firstCancelled := make(chan struct{})
	first := f.Start(context.Background(), 1, func(ctx context.Context) {
		<-ctx.Done()
		close(firstCancelled)
	})

	release := make(chan struct{})
	second := f.Start(context.Background(), 1, func(ctx context.Context) {
		<-release
	})

	select {
	case <-firstCancelled:
	case <-time.After(time.Second):
		t.Fatal("previous follow-up was not cancelled")
	}
	assert.False(t, f.IsLatest(1, first))
	assert.True(t, f.IsLatest(1, second))

	close(release)
	require.Eventually(t, func() bool { return !f.IsLatest(1, second) }, time.Second, 5*time.Millisecond)
}

func TestFollowUps_UsersIndependent(t *testing.T) {
	f := NewFollowUps()

	var cancelled atomic.Int32
	for _, user := range []int64{1, 2} {
		f.Start(context.Background(), user, func(ctx context.Context) {
			<-ctx.Done()
			cancelled.Add(1)
		})
	}

	f.Cancel(1)
	require.Eventually(t, func() bool { return cancelled.Load() == 1 }, time.Second, 5*time.Millisecond)

	f.Shutdown()
	assert.Equal(t, int32(2), cancelled.Load())
}

func TestFollowUps_OutlivesRequestContext(t *testing.T) {
	f := NewFollowUps()
	t.Cleanup(f.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	f.Start(ctx, 1, func(ctx context.Context) {
		time.Sleep(20 * time.Millisecond)
		done <- ctx.Err()
	})
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("follow-up did not finish")
	}
}
