package queue

import "context"

// Invalidation задача на сброс кэша после события
type Invalidation struct {
	UserID    int64  `json:"user_id"`
	EventType string `json:"event_type"`
}

// IInvalidationQueue очередь задач сброса кэша. Enqueue не блокирует, потеря сообщения допустима
type IInvalidationQueue interface {
	Enqueue(ctx context.Context, task Invalidation)
}
