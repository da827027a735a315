package telegram

import (
	"context"
	"fmt"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

// handlePreCheckout pre_checkout_query от Telegram (платежи Stars)
func (s *Service) handlePreCheckout(ctx context.Context, query *domain.PreCheckoutQuery) error {
	if query.From == nil {
		s.Log.Error("pre_checkout_query has no from")
		return fmt.Errorf("invalid pre_checkout_query")
	}

	confirmed, err := s.Payment.HandlePreCheckoutQuery(ctx, query)
	if err != nil {
		return domain.WrapBusinessError(fmt.Errorf("failed to handle pre_checkout_query: %w", err))
	}
	if !confirmed {
		s.Log.Info("pre_checkout_query rejected", "query_id", query.ID, "user_id", query.From.ID)
	}
	return nil
}

// handleSuccessfulPayment successful_payment: зачисление и выдача тарифа
func (s *Service) handleSuccessfulPayment(ctx context.Context, message *domain.Message) error {
	sp := message.SuccessfulPayment
	s.Log.Info("successful_payment received",
		"user_id", message.From.ID,
		"amount", sp.TotalAmount,
		"currency", sp.Currency,
		"charge_id", sp.TelegramPaymentChargeID,
	)

	if err := s.Payment.HandleSuccessfulPayment(ctx, message.From.ID, message.Chat.ID, sp); err != nil {
		s.fail(ctx, nil, message.Chat.ID, err)
		return domain.WrapBusinessError(fmt.Errorf("failed to handle successful_payment: %w", err))
	}
	return nil
}
