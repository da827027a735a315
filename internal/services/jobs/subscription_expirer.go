package jobs

import (
	"context"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
	paymentUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/payment"
)

const subscriptionExpirerName = "subscription_expirer"

// SubscriptionExpirer гасит истёкшие подписки, каждый день в 03:00 по Мск
type SubscriptionExpirer struct {
	payment *paymentUsecase.Service
}

func NewSubscriptionExpirer(payment *paymentUsecase.Service) *SubscriptionExpirer {
	return &SubscriptionExpirer{payment: payment}
}

func (j *SubscriptionExpirer) Name() string {
	return subscriptionExpirerName
}

func (j *SubscriptionExpirer) Trigger() jobs.Trigger {
	return jobs.DailyTrigger{Hour: 3, Location: domain.MesLocation}
}

func (j *SubscriptionExpirer) Run(ctx context.Context) error {
	_, err := j.payment.ExpireSubscriptions(ctx)
	return err
}
