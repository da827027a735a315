package gdzRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
)

const (
	gdzTable   = "gdz"
	booksTable = "student_books"
)

type Repository struct {
	db  persistence.Persistence
	Log *slog.Logger
}

// New решебники и учебники, обе таблицы с ключом (user_id, subject_id)
func New(db persistence.Persistence, log *slog.Logger) ports.ITextbookRepo {
	return &Repository{db: db, Log: log}
}

func (r *Repository) UpsertGdz(ctx context.Context, gdz *domain.Gdz) error {
	query := fmt.Sprintf(`INSERT INTO %s (user_id, subject_id, subject_name, url)
		VALUES (:user_id, :subject_id, :subject_name, :url)
		ON CONFLICT (user_id, subject_id) DO UPDATE SET subject_name = EXCLUDED.subject_name, url = EXCLUDED.url`, gdzTable)
	if err := r.db.NamedExec(ctx, query, gdz); err != nil {
		r.Log.Error("failed to upsert gdz", "error", err, "user_id", gdz.UserID, "subject_id", gdz.SubjectID)
		return fmt.Errorf("failed to upsert gdz: %w", err)
	}
	return nil
}

func (r *Repository) GetGdz(ctx context.Context, userID, subjectID int64) (*domain.Gdz, error) {
	var gdz domain.Gdz
	query := fmt.Sprintf(`SELECT user_id, subject_id, subject_name, url FROM %s WHERE user_id = $1 AND subject_id = $2`, gdzTable)
	if err := r.db.Get(ctx, &gdz, query, userID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("gdz: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to get gdz", "error", err, "user_id", userID, "subject_id", subjectID)
		return nil, fmt.Errorf("failed to get gdz: %w", err)
	}
	return &gdz, nil
}

func (r *Repository) ListGdz(ctx context.Context, userID int64) ([]domain.Gdz, error) {
	var list []domain.Gdz
	query := fmt.Sprintf(`SELECT user_id, subject_id, subject_name, url FROM %s WHERE user_id = $1 ORDER BY subject_name`, gdzTable)
	if err := r.db.Select(ctx, &list, query, userID); err != nil {
		r.Log.Error("failed to list gdz", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list gdz: %w", err)
	}
	return list, nil
}

func (r *Repository) DeleteGdz(ctx context.Context, userID, subjectID int64) error {
	return r.delete(ctx, gdzTable, userID, subjectID)
}

func (r *Repository) UpsertBook(ctx context.Context, book *domain.StudentBook) error {
	query := fmt.Sprintf(`INSERT INTO %s (user_id, subject_id, subject_name, object_key)
		VALUES (:user_id, :subject_id, :subject_name, :object_key)
		ON CONFLICT (user_id, subject_id) DO UPDATE SET subject_name = EXCLUDED.subject_name, object_key = EXCLUDED.object_key`, booksTable)
	if err := r.db.NamedExec(ctx, query, book); err != nil {
		r.Log.Error("failed to upsert student book", "error", err, "user_id", book.UserID, "subject_id", book.SubjectID)
		return fmt.Errorf("failed to upsert student book: %w", err)
	}
	return nil
}

func (r *Repository) GetBook(ctx context.Context, userID, subjectID int64) (*domain.StudentBook, error) {
	var book domain.StudentBook
	query := fmt.Sprintf(`SELECT user_id, subject_id, subject_name, object_key FROM %s WHERE user_id = $1 AND subject_id = $2`, booksTable)
	if err := r.db.Get(ctx, &book, query, userID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("student book: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to get student book", "error", err, "user_id", userID, "subject_id", subjectID)
		return nil, fmt.Errorf("failed to get student book: %w", err)
	}
	return &book, nil
}

func (r *Repository) DeleteBook(ctx context.Context, userID, subjectID int64) error {
	return r.delete(ctx, booksTable, userID, subjectID)
}

func (r *Repository) delete(ctx context.Context, table string, userID, subjectID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND subject_id = $2`, table)
	deleted, err := r.db.ExecWithResult(ctx, query, userID, subjectID)
	if err != nil {
		r.Log.Error("failed to delete row", "error", err, "table", table, "user_id", userID, "subject_id", subjectID)
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%s: %w", table, domain.ErrNotFound)
	}
	return nil
}
