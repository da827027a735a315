package premiumRepo

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

const (
	plansTable         = "premium_subscription_plans"
	subscriptionsTable = "premium_subscriptions"
	transactionsTable  = "transactions"
)

type Repository struct {
	db  persistence.Persistence
	Log *slog.Logger
}

// New тарифы, подписки и журнал транзакций в одном репозитории: они меняются в одной транзакции
func New(db persistence.Persistence, log *slog.Logger) ports.IPremiumRepo {
	return &Repository{db: db, Log: log}
}

func (r *Repository) GetPlan(ctx context.Context, id string) (*domain.PremiumSubscriptionPlan, error) {
	var plan domain.PremiumSubscriptionPlan
	query := fmt.Sprintf(`SELECT id, title, description, price, duration_days FROM %s WHERE id = $1`, plansTable)
	if err := r.db.Get(ctx, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan %q: %w", id, domain.ErrNotFound)
		}
		r.Log.Error("failed to get plan", "error", err, "plan_id", id)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (r *Repository) ListPlans(ctx context.Context) ([]domain.PremiumSubscriptionPlan, error) {
	var plans []domain.PremiumSubscriptionPlan
	query := fmt.Sprintf(`SELECT id, title, description, price, duration_days FROM %s ORDER BY price`, plansTable)
	if err := r.db.Select(ctx, &plans, query); err != nil {
		r.Log.Error("failed to list plans", "error", err)
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// UpsertPlan upsert по первичному ключу, используется сидированием каталога
func (r *Repository) UpsertPlan(ctx context.Context, plan *domain.PremiumSubscriptionPlan) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, title, description, price, duration_days)
		VALUES (:id, :title, :description, :price, :duration_days)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			duration_days = EXCLUDED.duration_days`, plansTable)
	if err := r.db.NamedExec(ctx, query, plan); err != nil {
		r.Log.Error("failed to upsert plan", "error", err, "plan_id", plan.ID)
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}

func (r *Repository) getSubscription(ctx context.Context, q persistence.Querier, userID int64, lock bool) (*domain.PremiumSubscription, error) {
	var sub domain.PremiumSubscription
	query := fmt.Sprintf(`SELECT user_id, plan_id, expires_at, is_active FROM %s WHERE user_id = $1`, subscriptionsTable)
	if lock {
		query += " FOR UPDATE"
	}
	if err := q.Get(ctx, &sub, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.Log.Error("failed to get subscription", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// GetSubscription nil без ошибки, если подписки нет
func (r *Repository) GetSubscription(ctx context.Context, userID int64) (*domain.PremiumSubscription, error) {
	return r.getSubscription(ctx, r.db, userID, false)
}

// GetSubscriptionTx читает строку с блокировкой до конца транзакции
func (r *Repository) GetSubscriptionTx(ctx context.Context, tx persistence.Querier, userID int64) (*domain.PremiumSubscription, error) {
	return r.getSubscription(ctx, tx, userID, true)
}

func (r *Repository) UpsertSubscriptionTx(ctx context.Context, tx persistence.Querier, sub *domain.PremiumSubscription) error {
	query := fmt.Sprintf(`INSERT INTO %s (user_id, plan_id, expires_at, is_active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			expires_at = EXCLUDED.expires_at,
			is_active = EXCLUDED.is_active`, subscriptionsTable)
	if err := tx.Exec(ctx, query, sub.UserID, sub.PlanID, sub.ExpiresAt, sub.IsActive); err != nil {
		r.Log.Error("failed to upsert subscription", "error", err, "user_id", sub.UserID)
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	r.Log.Debug("subscription upserted", "user_id", sub.UserID, "plan_id", sub.PlanID, "expires_at", sub.ExpiresAt)
	return nil
}

// DeactivateExpired снимает флаг с истёкших подписок, возвращает затронутых пользователей
func (r *Repository) DeactivateExpired(ctx context.Context, now time.Time) ([]int64, error) {
	var userIDs []int64
	query := fmt.Sprintf(`UPDATE %s SET is_active = FALSE WHERE is_active AND expires_at <= $1 RETURNING user_id`, subscriptionsTable)
	if err := r.db.Select(ctx, &userIDs, query, now); err != nil {
		r.Log.Error("failed to deactivate expired subscriptions", "error", err)
		return nil, fmt.Errorf("failed to deactivate expired subscriptions: %w", err)
	}
	return userIDs, nil
}

func (r *Repository) balance(ctx context.Context, q persistence.Querier, userID int64) (int64, error) {
	var balance int64
	query := fmt.Sprintf(`SELECT COALESCE(SUM(CASE WHEN type = $1 THEN amount ELSE -amount END), 0)
		FROM %s WHERE user_id = $2`, transactionsTable)
	if err := q.Get(ctx, &balance, query, string(domain.TransactionCredit), userID); err != nil {
		r.Log.Error("failed to get balance", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Balance sum(credit) - sum(debit)
func (r *Repository) Balance(ctx context.Context, userID int64) (int64, error) {
	return r.balance(ctx, r.db, userID)
}

func (r *Repository) BalanceTx(ctx context.Context, tx persistence.Querier, userID int64) (int64, error) {
	return r.balance(ctx, tx, userID)
}

func (r *Repository) AddTransactionTx(ctx context.Context, tx persistence.Querier, t *domain.Transaction) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, type, amount, kind, plan_id, payment_id, telegram_payment_charge_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, transactionsTable)
	err := tx.Exec(ctx, query,
		t.ID,
		t.UserID,
		string(t.Type),
		t.Amount,
		t.Kind,
		t.PlanID,
		t.PaymentID,
		t.TelegramPaymentChargeID,
		t.CreatedAt)
	if err != nil {
		r.Log.Error("failed to add transaction",
			"error", err,
			"user_id", t.UserID,
			"type", t.Type,
			"amount", t.Amount)
		return fmt.Errorf("failed to add transaction: %w", err)
	}
	return nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.db.WithTransaction(ctx, fn)
}
