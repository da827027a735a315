package repository

import (
	"context"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
)

// IEventRepo журнал показанных уведомлений МЭШ
type IEventRepo interface {
	ListByStudent(ctx context.Context, studentID int64) ([]domain.Event, error)
	// InsertBatchTx вставляет события, дубликаты по ключу пропускаются. Возвращает реально вставленные
	InsertBatchTx(ctx context.Context, tx persistence.Querier, events []domain.Event) ([]domain.Event, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error
}

// INotificationRepo напоминания бота
type INotificationRepo interface {
	// Create false, если напоминание с тем же DedupKey уже создано
	Create(ctx context.Context, n *domain.BotNotification) (bool, error)
	// ListPending ещё не отправленные, по времени создания
	ListPending(ctx context.Context, userID int64) ([]domain.BotNotification, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	DeleteOlderThan(ctx context.Context, userID int64, before time.Time) (int64, error)
}
