package paymentRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ports "github.com/admin/tg-bots/learnify-bot/internal/ports/repository"

	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type paymentColumns struct {
	TableName    string
	ID           string
	UserID       string
	Amount       string
	Currency     string
	Status       string
	PlanID       string
	Kind         string
	GiftTo       string
	ChargeID     string
	Metadata     string
	CreatedAt    string
	SucceededAt  string
	FailedAt     string
	ErrorMessage string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns paymentColumns
}

// New создаёт новый репозиторий для работы с платежами
func New(db persistence.Persistence, log *slog.Logger) ports.IPaymentRepo {
	cols := paymentColumns{
		TableName:    "payments",
		ID:           "id",
		UserID:       "user_id",
		Amount:       "amount",
		Currency:     "currency",
		Status:       "status",
		PlanID:       "plan_id",
		Kind:         "kind",
		GiftTo:       "gift_to",
		ChargeID:     "telegram_payment_charge_id",
		Metadata:     "metadata",
		CreatedAt:    "created_at",
		SucceededAt:  "succeeded_at",
		FailedAt:     "failed_at",
		ErrorMessage: "error_message",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (14 полей)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.Amount,
		r.columns.Currency,
		r.columns.Status,
		r.columns.PlanID,
		r.columns.Kind,
		r.columns.GiftTo,
		r.columns.ChargeID,
		r.columns.Metadata,
		r.columns.CreatedAt,
		r.columns.SucceededAt,
		r.columns.FailedAt,
		r.columns.ErrorMessage,
	)
}

// Create создаёт новый платёж
func (r *Repository) Create(ctx context.Context, payment *domain.Payment) error {
	metadataValue, err := payment.Metadata.Value()
	if err != nil {
		r.Log.Error("failed to marshal payment metadata",
			"error", err,
			"payment_id", payment.ID,
		)
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.columns.TableName,
		r.allColumns(),
	)

	err = r.db.Exec(ctx, query,
		payment.ID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		string(payment.Status),
		payment.PlanID,
		string(payment.Kind),
		payment.GiftTo,
		payment.TelegramPaymentChargeID,
		metadataValue,
		payment.CreatedAt,
		payment.SucceededAt,
		payment.FailedAt,
		payment.ErrorMessage,
	)
	if err != nil {
		r.Log.Error("failed to create payment",
			"error", err,
			"payment_id", payment.ID,
			"user_id", payment.UserID,
		)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	r.Log.Debug("payment created successfully",
		"payment_id", payment.ID,
		"user_id", payment.UserID,
		"amount", payment.Amount,
	)
	return nil
}

func (r *Repository) getBy(ctx context.Context, column string, value interface{}) (*domain.Payment, error) {
	var payment domain.Payment

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		column,
	)

	err := r.db.Get(ctx, &payment, query, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("payment not found", column, value)
			return nil, fmt.Errorf("payment not found: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to get payment",
			"error", err,
			column, value,
		)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

// GetByID получает платёж по ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return r.getBy(ctx, r.columns.ID, id)
}

// GetByChargeID платёж по telegram_payment_charge_id, нужен для возврата
func (r *Repository) GetByChargeID(ctx context.Context, chargeID string) (*domain.Payment, error) {
	return r.getBy(ctx, r.columns.ChargeID, chargeID)
}

// UpdateStatus обновляет статус платежа, at пишется в колонку соответствующую статусу
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, at time.Time, errorMessage *string) error {
	var succeededAt, failedAt *time.Time
	switch status {
	case domain.PaymentStatusSucceeded:
		succeededAt = &at
	case domain.PaymentStatusFailed:
		failedAt = &at
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = COALESCE($2, %s), %s = COALESCE($3, %s), %s = COALESCE($4, %s) WHERE %s = $5`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.SucceededAt, r.columns.SucceededAt,
		r.columns.FailedAt, r.columns.FailedAt,
		r.columns.ErrorMessage, r.columns.ErrorMessage,
		r.columns.ID,
	)

	err := r.db.Exec(ctx, query, string(status), succeededAt, failedAt, errorMessage, id)
	if err != nil {
		r.Log.Error("failed to update payment status",
			"error", err,
			"payment_id", id,
			"status", status,
		)
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	r.Log.Debug("payment status updated successfully",
		"payment_id", id,
		"status", status,
	)
	return nil
}

// MarkSucceededTx переводит pending платёж в succeeded. Повторная обработка того же
// платежа или чужой charge_id дают PaymentDisputeError
func (r *Repository) MarkSucceededTx(ctx context.Context, tx persistence.Querier, id uuid.UUID, chargeID string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = $3 WHERE %s = $4 AND %s = $5`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.ChargeID,
		r.columns.SucceededAt,
		r.columns.ID,
		r.columns.Status,
	)

	rowsAffected, err := tx.ExecWithResult(ctx, query,
		string(domain.PaymentStatusSucceeded), chargeID, at, id, string(domain.PaymentStatusPending))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.Log.Warn("duplicate telegram charge id", "payment_id", id, "charge_id", chargeID)
			return &domain.PaymentDisputeError{Reason: "charge already recorded"}
		}
		r.Log.Error("failed to mark payment succeeded",
			"error", err,
			"payment_id", id,
		)
		return fmt.Errorf("failed to mark payment succeeded: %w", err)
	}
	if rowsAffected == 0 {
		r.Log.Warn("payment is not pending", "payment_id", id)
		return &domain.PaymentDisputeError{Reason: "payment is not pending"}
	}
	return nil
}
