package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
)

// RefundPayment ручной возврат по telegram_payment_charge_id.
// Повторный возврат и неизвестный платёж дают *domain.PaymentDisputeError.
// Журнал откатывается: цена тарифа возвращается на баланс, оплата списывается
func (s *Service) RefundPayment(ctx context.Context, chargeID string) (*domain.Payment, error) {
	payment, err := s.PaymentRepo.GetByChargeID(ctx, chargeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.PaymentDisputeError{Reason: "payment not found"}
		}
		return nil, err
	}
	if payment.Status == domain.PaymentStatusRefunded {
		return nil, &domain.PaymentDisputeError{Reason: "already refunded"}
	}
	if payment.Status != domain.PaymentStatusSucceeded {
		return nil, &domain.PaymentDisputeError{Reason: fmt.Sprintf("payment is %s", payment.Status)}
	}

	if err := s.PaymentProvider.Refund(ctx, payment.UserID, chargeID); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	err = s.PremiumRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		if payment.PlanID != nil {
			plan, err := s.PremiumRepo.GetPlan(ctx, *payment.PlanID)
			if err != nil {
				return fmt.Errorf("get plan: %w", err)
			}
			if err := s.PremiumRepo.AddTransactionTx(ctx, tx, &domain.Transaction{
				ID:        uuid.New(),
				UserID:    payment.UserID,
				Type:      domain.TransactionCredit,
				Amount:    plan.Price,
				Kind:      "refund",
				PlanID:    payment.PlanID,
				PaymentID: &payment.ID,
				CreatedAt: now,
			}); err != nil {
				return err
			}
			if err := s.revokeTx(ctx, tx, payment, plan); err != nil {
				return err
			}
		}
		return s.PremiumRepo.AddTransactionTx(ctx, tx, &domain.Transaction{
			ID:                      uuid.New(),
			UserID:                  payment.UserID,
			Type:                    domain.TransactionDebit,
			Amount:                  payment.Amount,
			Kind:                    "refund",
			PaymentID:               &payment.ID,
			TelegramPaymentChargeID: &chargeID,
			CreatedAt:               now,
		})
	})
	if err != nil {
		// звёзды уже вернулись, журнал разошёлся с Telegram
		s.Log.Error("refund ledger update failed", "payment_id", payment.ID, "error", err)
		if s.AlerterService != nil {
			_ = s.AlerterService.SendAlert(ctx, fmt.Sprintf("⚠️ Refund ledger update failed for payment %s: %v", payment.ID, err))
		}
	}

	if err := s.PaymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusRefunded, now, nil); err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	payment.Status = domain.PaymentStatusRefunded
	metrics.Payments.WithLabelValues(string(payment.Kind), string(domain.PaymentStatusRefunded)).Inc()
	s.Log.Info("payment refunded by admin", "payment_id", payment.ID, "user_id", payment.UserID, "amount", payment.Amount)
	return payment, nil
}

// revokeTx укорачивает подписку получателя на длительность тарифа
func (s *Service) revokeTx(ctx context.Context, tx persistence.Transaction, payment *domain.Payment, plan *domain.PremiumSubscriptionPlan) error {
	beneficiary := payment.UserID
	if payment.Kind == domain.PurchaseGift && payment.GiftTo != nil {
		beneficiary = *payment.GiftTo
	}
	sub, err := s.PremiumRepo.GetSubscriptionTx(ctx, tx, beneficiary)
	if err != nil || sub == nil {
		return err
	}
	sub.ExpiresAt = sub.ExpiresAt.Add(-plan.Duration())
	if !sub.ExpiresAt.After(s.Clock.Now()) {
		sub.IsActive = false
	}
	return s.PremiumRepo.UpsertSubscriptionTx(ctx, tx, sub)
}

// ExpireSubscriptions гасит истёкшие подписки и сообщает владельцам
func (s *Service) ExpireSubscriptions(ctx context.Context) (int, error) {
	ids, err := s.PremiumRepo.DeactivateExpired(ctx, s.Clock.Now())
	if err != nil {
		return 0, fmt.Errorf("deactivate expired subscriptions: %w", err)
	}
	for _, id := range ids {
		user, err := s.UserRepo.GetByID(ctx, id)
		if err != nil {
			s.Log.Warn("subscription owner lookup failed", "user_id", id, "error", err)
			continue
		}
		s.send(ctx, user.ChatID, "⌛ Подписка закончилась. Продлить можно командой /premium")
	}
	if len(ids) > 0 {
		s.Log.Info("subscriptions expired", "count", len(ids))
	}
	return len(ids), nil
}
