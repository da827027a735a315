package repository

import (
	"context"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

type ITextbookRepo interface {
	UpsertGdz(ctx context.Context, gdz *domain.Gdz) error
	GetGdz(ctx context.Context, userID, subjectID int64) (*domain.Gdz, error)
	ListGdz(ctx context.Context, userID int64) ([]domain.Gdz, error)
	DeleteGdz(ctx context.Context, userID, subjectID int64) error

	UpsertBook(ctx context.Context, book *domain.StudentBook) error
	GetBook(ctx context.Context, userID, subjectID int64) (*domain.StudentBook, error)
	DeleteBook(ctx context.Context, userID, subjectID int64) error
}

// ICatalogRepo upsert по первичному ключу для каталогов
type ICatalogRepo interface {
	UpsertSettingDefinition(ctx context.Context, def *domain.SettingDefinition) error
	ListSettingDefinitions(ctx context.Context) ([]domain.SettingDefinition, error)
}
