package catalogRepo

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
)

const tableName = "setting_definitions"

type Repository struct {
	db  persistence.Persistence
	Log *slog.Logger
}

func New(db persistence.Persistence, log *slog.Logger) ports.ICatalogRepo {
	return &Repository{db: db, Log: log}
}

func (r *Repository) UpsertSettingDefinition(ctx context.Context, def *domain.SettingDefinition) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, title, description, category, default_value)
		VALUES (:key, :title, :description, :category, :default_value)
		ON CONFLICT (key) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			default_value = EXCLUDED.default_value`, tableName)
	if err := r.db.NamedExec(ctx, query, def); err != nil {
		r.Log.Error("failed to upsert setting definition", "error", err, "key", def.Key)
		return fmt.Errorf("failed to upsert setting definition: %w", err)
	}
	return nil
}

func (r *Repository) ListSettingDefinitions(ctx context.Context) ([]domain.SettingDefinition, error) {
	var defs []domain.SettingDefinition
	query := fmt.Sprintf(`SELECT key, title, description, category, default_value FROM %s ORDER BY category, key`, tableName)
	if err := r.db.Select(ctx, &defs, query); err != nil {
		r.Log.Error("failed to list setting definitions", "error", err)
		return nil, fmt.Errorf("failed to list setting definitions: %w", err)
	}
	return defs, nil
}
