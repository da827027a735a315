package invalidation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
)

// Applier выполняет задачу сброса кэша: локально или публикацией в kafka
type Applier interface {
	Apply(ctx context.Context, task queue.Invalidation) error
}

// ApplierFunc функция как Applier
type ApplierFunc func(ctx context.Context, task queue.Invalidation) error

func (f ApplierFunc) Apply(ctx context.Context, task queue.Invalidation) error {
	return f(ctx, task)
}

// Invalidator удаляет ключи по шаблонам события
type Invalidator struct {
	cache cache.Cache
	log   *slog.Logger
}

func NewInvalidator(c cache.Cache, log *slog.Logger) *Invalidator {
	return &Invalidator{cache: c, log: log}
}

func (i *Invalidator) Apply(ctx context.Context, task queue.Invalidation) error {
	for _, pattern := range cache.InvalidationPatterns(task.UserID, task.EventType) {
		deleted, err := i.cache.DeletePattern(ctx, pattern)
		if err != nil {
			return fmt.Errorf("invalidate %s: %w", pattern, err)
		}
		metrics.CacheInvalidations.WithLabelValues(task.EventType).Add(float64(deleted))
		i.log.Debug("cache invalidated",
			"user_id", task.UserID,
			"event_type", task.EventType,
			"pattern", pattern,
			"deleted", deleted)
	}
	return nil
}

// HandleMessage обработчик сообщений топика invalidations
func (i *Invalidator) HandleMessage(ctx context.Context, key string, value []byte) error {
	var task queue.Invalidation
	if err := json.Unmarshal(value, &task); err != nil {
		i.log.Warn("malformed invalidation message", "key", key, "error", err)
		return fmt.Errorf("decode invalidation: %w", err)
	}
	return i.Apply(ctx, task)
}
