package repository

import (
	"context"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
)

// IUserRepo пользователи и их авторизация
type IUserRepo interface {
	GetByID(ctx context.Context, userID int64) (*domain.User, error)
	Upsert(ctx context.Context, user *domain.User) error
	ListAll(ctx context.Context) ([]domain.User, error)
	ListActive(ctx context.Context) ([]domain.User, error)
	SetActive(ctx context.Context, userID int64, active bool) error
	Delete(ctx context.Context, userID int64) error

	UpsertTx(ctx context.Context, tx persistence.Querier, user *domain.User) error
	UpdateTokenTx(ctx context.Context, tx persistence.Querier, userID int64, token string) error

	WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error
}

// IAuthRepo AuthData, одна строка на пользователя
type IAuthRepo interface {
	Get(ctx context.Context, userID int64) (*domain.AuthData, error)
	ListByMethod(ctx context.Context, method domain.AuthMethod) ([]domain.AuthData, error)
	UpsertTx(ctx context.Context, tx persistence.Querier, auth *domain.AuthData) error
	UpdateRefreshTx(ctx context.Context, tx persistence.Querier, userID int64, refreshToken string, expiredAt time.Time) error
}

// ISettingsRepo пользовательские настройки
type ISettingsRepo interface {
	Get(ctx context.Context, userID int64) (*domain.Settings, error)
	Update(ctx context.Context, settings *domain.Settings) error
	CreateDefaultTx(ctx context.Context, tx persistence.Querier, userID int64) error
}
