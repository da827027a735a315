package settingsRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
)

const tableName = "settings"

// flagColumns порядок совпадает с аргументами в flags()
var flagColumns = []string{
	"enable_new_mark_notification",
	"enable_homework_notification",
	"skip_empty_days_homeworks",
	"skip_empty_days_schedule",
	"next_day_if_lessons_end_homeworks",
	"next_day_if_lessons_end_schedule",
	"use_cache",
	"experimental_features",
	"enable_homework_done_function",
}

func flags(s *domain.Settings) []interface{} {
	return []interface{}{
		s.EnableNewMarkNotification,
		s.EnableHomeworkNotification,
		s.SkipEmptyDaysHomeworks,
		s.SkipEmptyDaysSchedule,
		s.NextDayIfLessonsEndHomeworks,
		s.NextDayIfLessonsEndSchedule,
		s.UseCache,
		s.ExperimentalFeatures,
		s.EnableHomeworkDoneFunction,
	}
}

type Repository struct {
	db  persistence.Persistence
	Log *slog.Logger
}

func New(db persistence.Persistence, log *slog.Logger) ports.ISettingsRepo {
	return &Repository{db: db, Log: log}
}

func (r *Repository) Get(ctx context.Context, userID int64) (*domain.Settings, error) {
	var settings domain.Settings
	query := fmt.Sprintf(`SELECT user_id, %s FROM %s WHERE user_id = $1`,
		strings.Join(flagColumns, ", "),
		tableName)
	if err := r.db.Get(ctx, &settings, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settings %d: %w", userID, domain.ErrNotFound)
		}
		r.Log.Error("failed to get settings", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}

func (r *Repository) Update(ctx context.Context, settings *domain.Settings) error {
	set := ""
	for i, col := range flagColumns {
		if i > 0 {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, i+1)
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE user_id = $%d`, tableName, set, len(flagColumns)+1)

	args := append(flags(settings), settings.UserID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, args...)
	if err != nil {
		r.Log.Error("failed to update settings", "error", err, "user_id", settings.UserID)
		return fmt.Errorf("failed to update settings: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("settings %d: %w", settings.UserID, domain.ErrNotFound)
	}
	r.Log.Debug("settings updated", "user_id", settings.UserID)
	return nil
}

// CreateDefaultTx создаёт настройки по умолчанию, существующие не трогает
func (r *Repository) CreateDefaultTx(ctx context.Context, tx persistence.Querier, userID int64) error {
	placeholders := "$1"
	for i := range flagColumns {
		placeholders += fmt.Sprintf(", $%d", i+2)
	}
	query := fmt.Sprintf(`INSERT INTO %s (user_id, %s) VALUES (%s) ON CONFLICT (user_id) DO NOTHING`,
		tableName,
		strings.Join(flagColumns, ", "),
		placeholders)

	args := append([]interface{}{userID}, flags(domain.DefaultSettings(userID))...)
	if err := tx.Exec(ctx, query, args...); err != nil {
		r.Log.Error("failed to create default settings", "error", err, "user_id", userID)
		return fmt.Errorf("failed to create default settings: %w", err)
	}
	return nil
}
