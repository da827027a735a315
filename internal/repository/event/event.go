package eventRepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
)

type eventColumns struct {
	TableName   string
	ID          string
	StudentID   string
	EventType   string
	Date        string
	TeacherID   string
	SubjectName string
	CreatedAt   string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns eventColumns
}

// New создаёт репозиторий журнала событий МЭШ
func New(db persistence.Persistence, log *slog.Logger) ports.IEventRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: eventColumns{
			TableName:   "events",
			ID:          "id",
			StudentID:   "student_id",
			EventType:   "event_type",
			Date:        "date",
			TeacherID:   "teacher_id",
			SubjectName: "subject_name",
			CreatedAt:   "created_at",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.StudentID,
		r.columns.EventType,
		r.columns.Date,
		r.columns.TeacherID,
		r.columns.SubjectName,
		r.columns.CreatedAt)
}

// ListByStudent все события ученика, из них строится множество уже показанных
func (r *Repository) ListByStudent(ctx context.Context, studentID int64) ([]domain.Event, error) {
	var events []domain.Event
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.StudentID)
	if err := r.db.Select(ctx, &events, query, studentID); err != nil {
		r.Log.Error("failed to list events", "error", err, "student_id", studentID)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// InsertBatchTx одна вставка на пачку. Конфликт по events_dedup_key пропускается,
// RETURNING отдаёт только реально вставленные строки
func (r *Repository) InsertBatchTx(ctx context.Context, tx persistence.Querier, events []domain.Event) ([]domain.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*5)
	for i, e := range events {
		n := i * 5
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5))
		args = append(args, e.StudentID, e.EventType, domain.CanonicalDate(e.Date), e.TeacherID, e.SubjectName)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s) VALUES %s
		ON CONFLICT ON CONSTRAINT events_dedup_key DO NOTHING
		RETURNING %s`,
		r.columns.TableName,
		r.columns.StudentID,
		r.columns.EventType,
		r.columns.Date,
		r.columns.TeacherID,
		r.columns.SubjectName,
		strings.Join(values, ", "),
		r.allColumns())

	var inserted []domain.Event
	if err := tx.Select(ctx, &inserted, query, args...); err != nil {
		r.Log.Error("failed to insert events", "error", err, "count", len(events))
		return nil, fmt.Errorf("failed to insert events: %w", err)
	}

	r.Log.Debug("events inserted", "requested", len(events), "inserted", len(inserted))
	return inserted, nil
}

// DeleteOlderThan чистка журнала по created_at
func (r *Repository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`,
		r.columns.TableName,
		r.columns.CreatedAt)
	deleted, err := r.db.ExecWithResult(ctx, query, before)
	if err != nil {
		r.Log.Error("failed to prune events", "error", err, "before", before)
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return deleted, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.db.WithTransaction(ctx, fn)
}
