package repository

import (
	"context"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	"github.com/google/uuid"
)

// IPaymentRepo интерфейс для работы с платежами в БД
type IPaymentRepo interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByChargeID(ctx context.Context, chargeID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, at time.Time, errorMessage *string) error
	MarkSucceededTx(ctx context.Context, tx persistence.Querier, id uuid.UUID, chargeID string, at time.Time) error
}

// IPremiumRepo тарифы, подписки и журнал транзакций
type IPremiumRepo interface {
	GetPlan(ctx context.Context, id string) (*domain.PremiumSubscriptionPlan, error)
	ListPlans(ctx context.Context) ([]domain.PremiumSubscriptionPlan, error)
	UpsertPlan(ctx context.Context, plan *domain.PremiumSubscriptionPlan) error

	GetSubscription(ctx context.Context, userID int64) (*domain.PremiumSubscription, error)
	GetSubscriptionTx(ctx context.Context, tx persistence.Querier, userID int64) (*domain.PremiumSubscription, error)
	UpsertSubscriptionTx(ctx context.Context, tx persistence.Querier, sub *domain.PremiumSubscription) error
	DeactivateExpired(ctx context.Context, now time.Time) ([]int64, error)

	Balance(ctx context.Context, userID int64) (int64, error)
	BalanceTx(ctx context.Context, tx persistence.Querier, userID int64) (int64, error)
	AddTransactionTx(ctx context.Context, tx persistence.Querier, t *domain.Transaction) error

	WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error
}
