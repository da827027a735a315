package invalidation

import (
	"context"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
)

const (
	DefaultQueueSize = 1024
	applyTimeout     = 5 * time.Second
)

// Worker очередь задач сброса кэша. Enqueue не блокирует вызывающего:
// при переполнении задача отбрасывается, кэш доживёт до ttl
type Worker struct {
	tasks   chan queue.Invalidation
	applier Applier
	log     *slog.Logger
}

func NewWorker(applier Applier, size int, log *slog.Logger) *Worker {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Worker{
		tasks:   make(chan queue.Invalidation, size),
		applier: applier,
		log:     log,
	}
}

func (w *Worker) Enqueue(ctx context.Context, task queue.Invalidation) {
	select {
	case w.tasks <- task:
	default:
		metrics.InvalidationsDropped.Inc()
		w.log.Warn("invalidation queue is full, task dropped",
			"user_id", task.UserID,
			"event_type", task.EventType)
	}
}

// Run разбирает очередь до отмены контекста
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("invalidation worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("invalidation worker stopped", "pending", len(w.tasks))
			return nil
		case task := <-w.tasks:
			w.apply(ctx, task)
		}
	}
}

func (w *Worker) apply(ctx context.Context, task queue.Invalidation) {
	ctx, cancel := context.WithTimeout(ctx, applyTimeout)
	defer cancel()

	if err := w.applier.Apply(ctx, task); err != nil {
		w.log.Warn("failed to apply invalidation",
			"user_id", task.UserID,
			"event_type", task.EventType,
			"error", err)
	}
}
