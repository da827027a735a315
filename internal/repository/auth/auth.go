package authRepo

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

type authColumns struct {
	TableName       string
	UserID          string
	AuthMethod      string
	TokenExpiredAt  string
	TokenForRefresh string
	ClientID        string
	ClientSecret    string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns authColumns
}

// New создаёт репозиторий данных авторизации
func New(db persistence.Persistence, log *slog.Logger) ports.IAuthRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: authColumns{
			TableName:       "auth_data",
			UserID:          "user_id",
			AuthMethod:      "auth_method",
			TokenExpiredAt:  "token_expired_at",
			TokenForRefresh: "token_for_refresh",
			ClientID:        "client_id",
			ClientSecret:    "client_secret",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s",
		r.columns.UserID,
		r.columns.AuthMethod,
		r.columns.TokenExpiredAt,
		r.columns.TokenForRefresh,
		r.columns.ClientID,
		r.columns.ClientSecret)
}

func (r *Repository) Get(ctx context.Context, userID int64) (*domain.AuthData, error) {
	var auth domain.AuthData
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID)
	if err := r.db.Get(ctx, &auth, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("auth data %d: %w", userID, domain.ErrNotFound)
		}
		r.Log.Error("failed to get auth data", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get auth data: %w", err)
	}
	return &auth, nil
}

// ListByMethod нужен при старте для восстановления задач обновления
func (r *Repository) ListByMethod(ctx context.Context, method domain.AuthMethod) ([]domain.AuthData, error) {
	var list []domain.AuthData
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.AuthMethod)
	if err := r.db.Select(ctx, &list, query, string(method)); err != nil {
		r.Log.Error("failed to list auth data", "error", err, "auth_method", method)
		return nil, fmt.Errorf("failed to list auth data: %w", err)
	}
	return list, nil
}

// UpsertTx полностью заменяет строку: смена способа входа чистит refresh-тройку
func (r *Repository) UpsertTx(ctx context.Context, tx persistence.Querier, auth *domain.AuthData) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s`,
		r.columns.TableName,
		r.allColumns(),
		r.columns.UserID,
		r.columns.AuthMethod, r.columns.AuthMethod,
		r.columns.TokenExpiredAt, r.columns.TokenExpiredAt,
		r.columns.TokenForRefresh, r.columns.TokenForRefresh,
		r.columns.ClientID, r.columns.ClientID,
		r.columns.ClientSecret, r.columns.ClientSecret)
	err := tx.Exec(ctx, query,
		auth.UserID,
		string(auth.AuthMethod),
		auth.TokenExpiredAt,
		auth.TokenForRefresh,
		auth.ClientID,
		auth.ClientSecret)
	if err != nil {
		r.Log.Error("failed to upsert auth data",
			"error", err,
			"user_id", auth.UserID,
			"auth_method", auth.AuthMethod)
		return fmt.Errorf("failed to upsert auth data: %w", err)
	}
	r.Log.Debug("auth data upserted", "user_id", auth.UserID, "auth_method", auth.AuthMethod)
	return nil
}

func (r *Repository) UpdateRefreshTx(ctx context.Context, tx persistence.Querier, userID int64, refreshToken string, expiredAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2 WHERE %s = $3`,
		r.columns.TableName,
		r.columns.TokenForRefresh,
		r.columns.TokenExpiredAt,
		r.columns.UserID)
	rowsAffected, err := tx.ExecWithResult(ctx, query, refreshToken, expiredAt, userID)
	if err != nil {
		r.Log.Error("failed to update refresh token", "error", err, "user_id", userID)
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("auth data %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}
