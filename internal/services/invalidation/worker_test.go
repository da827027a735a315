package invalidation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/redis"
	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
)

func setupCache(t *testing.T) (*redisAdapter.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisAdapter.NewClient(rdb), mr
}

func TestInvalidator_MarkEventDropsMarksAndResults(t *testing.T) {
	c, mr := setupCache(t)
	for _, k := range []string{
		"marks:1:2024-09-02", "marks_subject:1:77", "results:1:quarter:1",
		"homework:1:2024-09-02", "marks:2:2024-09-02",
	} {
		require.NoError(t, mr.Set(k, "x"))
	}

	inv := NewInvalidator(c, logger.Discard())
	require.NoError(t, inv.Apply(context.Background(), queue.Invalidation{UserID: 1, EventType: domain.EventCreateMark}))

	assert.False(t, mr.Exists("marks:1:2024-09-02"))
	assert.False(t, mr.Exists("marks_subject:1:77"))
	assert.False(t, mr.Exists("results:1:quarter:1"))
	assert.True(t, mr.Exists("homework:1:2024-09-02"))
	assert.True(t, mr.Exists("marks:2:2024-09-02"))
}

func TestInvalidator_HandleMessage(t *testing.T) {
	c, mr := setupCache(t)
	require.NoError(t, mr.Set("homework:5:2024-09-02", "x"))
	inv := NewInvalidator(c, logger.Discard())

	err := inv.HandleMessage(context.Background(), "5", []byte(`{"user_id":5,"event_type":"update_homework"}`))
	require.NoError(t, err)
	assert.False(t, mr.Exists("homework:5:2024-09-02"))

	assert.Error(t, inv.HandleMessage(context.Background(), "5", []byte(`not json`)))
}

func TestWorker_AppliesQueuedTasks(t *testing.T) {
	applied := make(chan queue.Invalidation, 2)
	w := NewWorker(ApplierFunc(func(ctx context.Context, task queue.Invalidation) error {
		applied <- task
		return nil
	}), 4, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	w.Enqueue(ctx, queue.Invalidation{UserID: 1, EventType: domain.EventCreateMark})

	select {
	case task := <-applied:
		assert.Equal(t, int64(1), task.UserID)
	case <-time.After(time.Second):
		t.Fatal("task was not applied")
	}
}

func TestWorker_EnqueueNeverBlocks(t *testing.T) {
	w := NewWorker(ApplierFunc(func(ctx context.Context, task queue.Invalidation) error {
		return errors.New("unused")
	}), 1, logger.Discard())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			w.Enqueue(context.Background(), queue.Invalidation{UserID: int64(i), EventType: domain.EventUpdateHomework})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
	assert.Len(t, w.tasks, 1)
}
