package userRepo

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

type userColumns struct {
	TableName  string
	UserID     string
	ChatID     string
	FirstName  string
	Active     string
	ProfileID  string
	Role       string
	PersonID   string
	StudentID  string
	ContractID string
	Token      string
	Birthday   string
	CreatedAt  string
	UpdatedAt  string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns userColumns
}

// New создаёт новый репозиторий для работы с пользователями
func New(db persistence.Persistence, log *slog.Logger) ports.IUserRepo {
	cols := userColumns{
		TableName:  "users",
		UserID:     "user_id",
		ChatID:     "chat_id",
		FirstName:  "first_name",
		Active:     "active",
		ProfileID:  "profile_id",
		Role:       "role",
		PersonID:   "person_id",
		StudentID:  "student_id",
		ContractID: "contract_id",
		Token:      "token",
		Birthday:   "birthday",
		CreatedAt:  "created_at",
		UpdatedAt:  "updated_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (13 колонок)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.UserID,
		r.columns.ChatID,
		r.columns.FirstName,
		r.columns.Active,
		r.columns.ProfileID,
		r.columns.Role,
		r.columns.PersonID,
		r.columns.StudentID,
		r.columns.ContractID,
		r.columns.Token,
		r.columns.Birthday,
		r.columns.CreatedAt,
		r.columns.UpdatedAt)
}

// GetByID получает пользователя по telegram id
func (r *Repository) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	var user domain.User
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID)
	err := r.db.Get(ctx, &user, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("user not found", "user_id", userID)
			return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		r.Log.Error("failed to get user by id",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

func (r *Repository) upsertQuery() string {
	return fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s,
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s,
			%s = EXCLUDED.%s, %s = COALESCE(EXCLUDED.%s, %s.%s), %s = NOW()`,
		r.columns.TableName,
		r.columns.UserID,
		r.columns.ChatID,
		r.columns.FirstName,
		r.columns.Active,
		r.columns.ProfileID,
		r.columns.Role,
		r.columns.PersonID,
		r.columns.StudentID,
		r.columns.ContractID,
		r.columns.Token,
		r.columns.Birthday,
		r.columns.UserID,
		r.columns.ChatID, r.columns.ChatID,
		r.columns.FirstName, r.columns.FirstName,
		r.columns.Active, r.columns.Active,
		r.columns.ProfileID, r.columns.ProfileID,
		r.columns.Role, r.columns.Role,
		r.columns.PersonID, r.columns.PersonID,
		r.columns.StudentID, r.columns.StudentID,
		r.columns.ContractID, r.columns.ContractID,
		r.columns.Token, r.columns.Token,
		r.columns.Birthday, r.columns.Birthday, r.columns.TableName, r.columns.Birthday,
		r.columns.UpdatedAt)
}

func (r *Repository) upsert(ctx context.Context, q persistence.Querier, user *domain.User) error {
	err := q.Exec(ctx, r.upsertQuery(),
		user.UserID,
		user.ChatID,
		user.FirstName,
		user.Active,
		user.ProfileID,
		user.Role,
		user.PersonID,
		user.StudentID,
		user.ContractID,
		user.Token,
		user.Birthday)
	if err != nil {
		r.Log.Error("failed to upsert user",
			"error", err,
			"user_id", user.UserID)
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	r.Log.Debug("user upserted successfully", "user_id", user.UserID, "active", user.Active)
	return nil
}

// Upsert создаёт пользователя или обновляет профиль существующего
func (r *Repository) Upsert(ctx context.Context, user *domain.User) error {
	return r.upsert(ctx, r.db, user)
}

// UpsertTx то же в рамках транзакции
func (r *Repository) UpsertTx(ctx context.Context, tx persistence.Querier, user *domain.User) error {
	return r.upsert(ctx, tx, user)
}

func (r *Repository) list(ctx context.Context, where string, args ...interface{}) ([]domain.User, error) {
	var users []domain.User
	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY %s`,
		r.allColumns(),
		r.columns.TableName,
		where,
		r.columns.UserID)
	if err := r.db.Select(ctx, &users, query, args...); err != nil {
		r.Log.Error("failed to list users", "error", err, "where", where)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListAll все пользователи (для поздравлений)
func (r *Repository) ListAll(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, "")
}

// ListActive пользователи с рабочим токеном
func (r *Repository) ListActive(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, fmt.Sprintf("WHERE %s = $1", r.columns.Active), true)
}

// SetActive меняет флаг active, токен не трогается
func (r *Repository) SetActive(ctx context.Context, userID int64, active bool) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2`,
		r.columns.TableName,
		r.columns.Active,
		r.columns.UpdatedAt,
		r.columns.UserID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, active, userID)
	if err != nil {
		r.Log.Error("failed to set user active flag",
			"error", err,
			"user_id", userID,
			"active", active)
		return fmt.Errorf("failed to set user active flag: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	r.Log.Debug("user active flag updated", "user_id", userID, "active", active)
	return nil
}

// UpdateTokenTx новый access token после обновления
func (r *Repository) UpdateTokenTx(ctx context.Context, tx persistence.Querier, userID int64, token string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2`,
		r.columns.TableName,
		r.columns.Token,
		r.columns.UpdatedAt,
		r.columns.UserID)
	rowsAffected, err := tx.ExecWithResult(ctx, query, token, userID)
	if err != nil {
		r.Log.Error("failed to update user token",
			"error", err,
			"user_id", userID)
		return fmt.Errorf("failed to update user token: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

// Delete удаляет пользователя, связанные строки уходят каскадом
func (r *Repository) Delete(ctx context.Context, userID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		r.columns.TableName,
		r.columns.UserID)
	if err := r.db.Exec(ctx, query, userID); err != nil {
		r.Log.Error("failed to delete user",
			"error", err,
			"user_id", userID)
		return fmt.Errorf("failed to delete user: %w", err)
	}
	r.Log.Info("user deleted", "user_id", userID)
	return nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.db.WithTransaction(ctx, fn)
}
