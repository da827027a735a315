package notificationRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
)

const tableName = "bot_notifications"

type Repository struct {
	db  persistence.Persistence
	Log *slog.Logger
}

func New(db persistence.Persistence, log *slog.Logger) ports.INotificationRepo {
	return &Repository{db: db, Log: log}
}

// Create false, если напоминание с тем же dedup_key уже есть
func (r *Repository) Create(ctx context.Context, n *domain.BotNotification) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, type, text, dedup_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, type, dedup_key) WHERE dedup_key <> '' DO NOTHING
		RETURNING id, created_at`, tableName)
	row := r.db.QueryRow(ctx, query, n.UserID, n.Type, n.Text, n.DedupKey)
	if err := row.Scan(&n.ID, &n.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		r.Log.Error("failed to create bot notification", "error", err, "user_id", n.UserID)
		return false, fmt.Errorf("failed to create bot notification: %w", err)
	}
	return true, nil
}

func (r *Repository) ListPending(ctx context.Context, userID int64) ([]domain.BotNotification, error) {
	var list []domain.BotNotification
	query := fmt.Sprintf(`
		SELECT id, user_id, type, text, dedup_key, sent_at, created_at
		FROM %s
		WHERE user_id = $1 AND sent_at IS NULL
		ORDER BY created_at, id`, tableName)
	if err := r.db.Select(ctx, &list, query, userID); err != nil {
		r.Log.Error("failed to list pending bot notifications", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list pending bot notifications: %w", err)
	}
	return list, nil
}

func (r *Repository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET sent_at = $2 WHERE id = $1 AND sent_at IS NULL`, tableName)
	if err := r.db.Exec(ctx, query, id, at); err != nil {
		r.Log.Error("failed to mark bot notification sent", "error", err, "id", id)
		return fmt.Errorf("failed to mark bot notification sent: %w", err)
	}
	return nil
}

func (r *Repository) DeleteOlderThan(ctx context.Context, userID int64, before time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND created_at < $2`, tableName)
	deleted, err := r.db.ExecWithResult(ctx, query, userID, before)
	if err != nil {
		r.Log.Error("failed to delete old bot notifications", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to delete old bot notifications: %w", err)
	}
	if deleted > 0 {
		r.Log.Debug("old bot notifications deleted", "user_id", userID, "deleted", deleted)
	}
	return deleted, nil
}
