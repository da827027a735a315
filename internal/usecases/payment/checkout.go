package payment

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/google/uuid"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
)

// HandlePreCheckoutQuery проверяет платёж перед списанием звёзд.
// Возвращает true если платёж подтверждён, false если отклонён
func (s *Service) HandlePreCheckoutQuery(ctx context.Context, q *domain.PreCheckoutQuery) (bool, error) {
	reason := s.checkPreCheckout(ctx, q)
	if reason != "" {
		s.Log.Warn("pre_checkout_query rejected",
			"query_id", q.ID,
			"payload", q.InvoicePayload,
			"reason", reason,
		)
		if err := s.PaymentProvider.ConfirmPreCheckout(ctx, q.ID, false, &reason); err != nil {
			return false, fmt.Errorf("failed to reject pre_checkout_query: %w", err)
		}
		return false, nil
	}

	if err := s.PaymentProvider.ConfirmPreCheckout(ctx, q.ID, true, nil); err != nil {
		return false, fmt.Errorf("failed to confirm pre_checkout_query: %w", err)
	}
	s.Log.Info("pre_checkout_query confirmed", "query_id", q.ID, "payload", q.InvoicePayload)
	return true, nil
}

// checkPreCheckout текст отказа для пользователя или пустая строка
func (s *Service) checkPreCheckout(ctx context.Context, q *domain.PreCheckoutQuery) string {
	id, err := uuid.Parse(q.InvoicePayload)
	if err != nil {
		return "Платёж не найден"
	}
	payment, err := s.PaymentRepo.GetByID(ctx, id)
	if err != nil {
		return "Платёж не найден"
	}

	switch {
	case q.From == nil || payment.UserID != q.From.ID:
		return "Платёж не принадлежит вам"
	case payment.Amount != q.TotalAmount:
		return "Сумма платежа не совпадает"
	case payment.Currency != q.Currency:
		return "Валюта платежа не совпадает"
	case payment.Status != domain.PaymentStatusPending:
		return "Платёж уже обработан"
	}

	if payment.PlanID != nil {
		if _, err := s.PremiumRepo.GetPlan(ctx, *payment.PlanID); err != nil {
			return "Тариф больше недоступен"
		}
	}
	return ""
}

// HandleSuccessfulPayment зачисляет оплату и выдаёт тариф одной транзакцией.
// Если тариф пропал или выдача не удалась, звёзды возвращаются автоматически
func (s *Service) HandleSuccessfulPayment(ctx context.Context, userID, chatID int64, sp *domain.SuccessfulPayment) error {
	paymentID, err := uuid.Parse(sp.InvoicePayload)
	if err != nil {
		return fmt.Errorf("%w: bad invoice payload %q", domain.ErrValidation, sp.InvoicePayload)
	}

	payment, err := s.PaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if payment.UserID != userID {
		return fmt.Errorf("payment user mismatch: payment belongs to %d, but user is %d", payment.UserID, userID)
	}
	if payment.Status != domain.PaymentStatusPending {
		s.Log.Warn("payment already processed", "payment_id", paymentID, "status", payment.Status)
		return nil
	}

	var plan *domain.PremiumSubscriptionPlan
	if payment.PlanID != nil {
		plan, err = s.PremiumRepo.GetPlan(ctx, *payment.PlanID)
		if err != nil {
			return s.autoRefund(ctx, payment, chatID, sp.TelegramPaymentChargeID, fmt.Errorf("plan %q: %w", *payment.PlanID, err))
		}
	}

	chargeID := sp.TelegramPaymentChargeID
	now := s.Clock.Now()
	err = s.PremiumRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		if err := s.PaymentRepo.MarkSucceededTx(ctx, tx, payment.ID, chargeID, now); err != nil {
			return err
		}
		if err := s.PremiumRepo.AddTransactionTx(ctx, tx, &domain.Transaction{
			ID:                      uuid.New(),
			UserID:                  payment.UserID,
			Type:                    domain.TransactionCredit,
			Amount:                  sp.TotalAmount,
			Kind:                    string(payment.Kind),
			PlanID:                  payment.PlanID,
			PaymentID:               &payment.ID,
			TelegramPaymentChargeID: &chargeID,
			CreatedAt:               now,
		}); err != nil {
			return fmt.Errorf("credit payment: %w", err)
		}
		if plan == nil {
			return nil
		}
		return s.grantTx(ctx, tx, payment.UserID, plan, payment.Kind, payment.GiftTo, &payment.ID, &chargeID)
	})
	if err != nil {
		var dispute *domain.PaymentDisputeError
		if errors.As(err, &dispute) {
			s.Log.Warn("payment already processed", "payment_id", paymentID, "reason", dispute.Reason)
			return nil
		}
		return s.autoRefund(ctx, payment, chatID, chargeID, err)
	}

	metrics.Payments.WithLabelValues(string(payment.Kind), string(domain.PaymentStatusSucceeded)).Inc()
	s.Log.Info("payment processed successfully",
		"payment_id", paymentID,
		"user_id", userID,
		"kind", payment.Kind,
		"amount", sp.TotalAmount,
	)

	if plan == nil {
		s.send(ctx, chatID, fmt.Sprintf("✅ Баланс пополнен на %d ⭐", sp.TotalAmount))
		return nil
	}
	s.notifyGranted(ctx, chatID, plan, payment.Kind, payment.GiftTo)
	return nil
}

// autoRefund возвращает звёзды, помечает платёж и поднимает алерт
func (s *Service) autoRefund(ctx context.Context, payment *domain.Payment, chatID int64, chargeID string, cause error) error {
	s.Log.Error("failed to grant product after payment, refunding",
		"error", cause,
		"payment_id", payment.ID,
		"user_id", payment.UserID,
	)

	refundErr := s.PaymentProvider.Refund(ctx, payment.UserID, chargeID)
	status := domain.PaymentStatusRefunded
	if refundErr != nil {
		status = domain.PaymentStatusFailed
	}
	if err := s.PaymentRepo.UpdateStatus(ctx, payment.ID, status, s.Clock.Now(), stringPtr(cause.Error())); err != nil {
		s.Log.Error("failed to update payment status", "payment_id", payment.ID, "error", err)
	}
	metrics.Payments.WithLabelValues(string(payment.Kind), string(status)).Inc()

	if s.AlerterService != nil {
		alertMsg := fmt.Sprintf("⚠️ <b>Payment grant failed</b>\n\nPayment ID: %s\nUser ID: %d\nCharge ID: %s\nError: %s\nRefund: %v",
			payment.ID, payment.UserID, html.EscapeString(chargeID), html.EscapeString(cause.Error()), refundErr == nil)
		_ = s.AlerterService.SendAlert(ctx, alertMsg)
	}

	if refundErr != nil {
		return fmt.Errorf("grant failed (%v) and refund failed: %w", cause, refundErr)
	}
	s.send(ctx, chatID, "⚠️ Не удалось активировать покупку, звёзды возвращены.")
	return nil
}
