package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
)

func setupTestCache(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewClient(rdb), mr
}

func TestClient_GetMissAndExpiry(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "absent")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, c.SetEx(ctx, "marks:42:2025-03-11", time.Minute, "payload"))
	val, err := c.Get(ctx, "marks:42:2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, "payload", val)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "marks:42:2025-03-11")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestClient_DeletePatternForMarkEvent(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	keys := []string{
		cache.Key(cache.ViewMarks, 42, "2025-03-11"),
		cache.Key(cache.ViewMarksSubject, 42, "7"),
		cache.Key(cache.ViewResults, 42, "quarters", "2"),
		cache.Key(cache.ViewHomework, 42, "2025-03-11"),
		cache.Key(cache.ViewMarks, 43, "2025-03-11"),
	}
	for _, k := range keys {
		require.NoError(t, c.SetEx(ctx, k, time.Hour, "x"))
	}

	var total int64
	for _, p := range cache.InvalidationPatterns(42, domain.EventCreateMark) {
		n, err := c.DeletePattern(ctx, p)
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, int64(3), total)

	left, err := c.Scan(ctx, "*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		cache.Key(cache.ViewHomework, 42, "2025-03-11"),
		cache.Key(cache.ViewMarks, 43, "2025-03-11"),
	}, left)
}

func TestClient_DeletePatternManyKeys(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	for i := 0; i < 1200; i++ {
		require.NoError(t, c.SetEx(ctx, cache.Key(cache.ViewHomework, 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("2006-01-02")), time.Hour, "x"))
	}

	n, err := c.DeletePattern(ctx, "homework*:1:*")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), n)

	n, err = c.DeletePattern(ctx, "homework*:1:*")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClient_DeleteNoKeys(t *testing.T) {
	c, _ := setupTestCache(t)
	assert.NoError(t, c.Delete(context.Background()))
}
