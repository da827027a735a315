package payment

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/google/uuid"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	paymentPort "github.com/admin/tg-bots/learnify-bot/internal/ports/payment"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
)

// Purchase итог BuyPlan: либо выставлен invoice, либо тариф уже оплачен с баланса
type Purchase struct {
	Payment *domain.Payment // nil если invoice не понадобился
	Paid    bool
	Due     int64
}

func (s *Service) Plans(ctx context.Context) ([]domain.PremiumSubscriptionPlan, error) {
	return s.PremiumRepo.ListPlans(ctx)
}

func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.PremiumRepo.Balance(ctx, userID)
}

// Subscription активная подписка или nil
func (s *Service) Subscription(ctx context.Context, userID int64) (*domain.PremiumSubscription, error) {
	sub, err := s.PremiumRepo.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !sub.ActiveAt(s.Clock.Now()) {
		return nil, nil
	}
	return sub, nil
}

// BuyPlan покупка тарифа себе или в подарок. Invoice выставляется на price - balance,
// если баланса хватает, тариф списывается сразу
func (s *Service) BuyPlan(ctx context.Context, user *domain.User, planID string, kind domain.PurchaseKind, giftTo *int64) (*Purchase, error) {
	if kind != domain.PurchaseMyself && kind != domain.PurchaseGift {
		return nil, fmt.Errorf("%w: unsupported purchase kind %q", domain.ErrValidation, kind)
	}
	if kind == domain.PurchaseGift {
		if giftTo == nil || *giftTo == user.UserID {
			return nil, fmt.Errorf("%w: gift needs another recipient", domain.ErrValidation)
		}
		if _, err := s.UserRepo.GetByID(ctx, *giftTo); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: gift recipient %d is unknown", domain.ErrValidation, *giftTo)
			}
			return nil, err
		}
	}

	plan, err := s.PremiumRepo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: plan %q not found", domain.ErrValidation, planID)
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}

	balance, err := s.PremiumRepo.Balance(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	due := plan.Price - balance
	if due <= 0 {
		if err := s.PremiumRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
			return s.grantTx(ctx, tx, user.UserID, plan, kind, giftTo, nil, nil)
		}); err != nil {
			return nil, fmt.Errorf("grant plan from balance: %w", err)
		}
		metrics.Payments.WithLabelValues(string(kind), "balance").Inc()
		s.notifyGranted(ctx, user.ChatID, plan, kind, giftTo)
		return &Purchase{Paid: true}, nil
	}

	payment := &domain.Payment{
		ID:        uuid.New(),
		UserID:    user.UserID,
		Amount:    due,
		Currency:  domain.CurrencyStars,
		Status:    domain.PaymentStatusPending,
		PlanID:    &plan.ID,
		Kind:      kind,
		GiftTo:    giftTo,
		Metadata:  domain.PaymentMetadata{"price": plan.Price, "balance": balance},
		CreatedAt: s.Clock.Now(),
	}
	if err := s.invoice(ctx, user.ChatID, payment, plan.Title, plan.Description); err != nil {
		return nil, err
	}
	return &Purchase{Payment: payment, Due: due}, nil
}

// TopUp пополнение баланса без покупки тарифа
func (s *Service) TopUp(ctx context.Context, user *domain.User, amount int64) (*domain.Payment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: top up amount must be positive", domain.ErrValidation)
	}
	payment := &domain.Payment{
		ID:        uuid.New(),
		UserID:    user.UserID,
		Amount:    amount,
		Currency:  domain.CurrencyStars,
		Status:    domain.PaymentStatusPending,
		Kind:      domain.PurchaseTopUp,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.invoice(ctx, user.ChatID, payment, "Пополнение баланса", fmt.Sprintf("%d звёзд на баланс", amount)); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) invoice(ctx context.Context, chatID int64, payment *domain.Payment, title, description string) error {
	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	_, err := s.PaymentProvider.CreateInvoice(ctx, paymentPort.CreateInvoiceRequest{
		ChatID:      chatID,
		Title:       title,
		Description: description,
		Amount:      payment.Amount,
		Currency:    domain.CurrencyStars,
		Payload:     payment.Payload(),
	})
	if err != nil {
		_ = s.PaymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusFailed, s.Clock.Now(), stringPtr("failed to create invoice"))
		metrics.Payments.WithLabelValues(string(payment.Kind), string(domain.PaymentStatusFailed)).Inc()
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	s.Log.Info("invoice sent",
		"payment_id", payment.ID,
		"user_id", payment.UserID,
		"kind", payment.Kind,
		"amount", payment.Amount,
	)
	return nil
}

// grantTx списывает цену тарифа и продлевает подписку получателя:
// expires_at = max(now, текущий expires_at) + длительность
func (s *Service) grantTx(
	ctx context.Context,
	tx persistence.Transaction,
	payerID int64,
	plan *domain.PremiumSubscriptionPlan,
	kind domain.PurchaseKind,
	giftTo *int64,
	paymentID *uuid.UUID,
	chargeID *string,
) error {
	now := s.Clock.Now()

	if err := s.PremiumRepo.AddTransactionTx(ctx, tx, &domain.Transaction{
		ID:                      uuid.New(),
		UserID:                  payerID,
		Type:                    domain.TransactionDebit,
		Amount:                  plan.Price,
		Kind:                    string(kind),
		PlanID:                  &plan.ID,
		PaymentID:               paymentID,
		TelegramPaymentChargeID: chargeID,
		CreatedAt:               now,
	}); err != nil {
		return fmt.Errorf("debit plan price: %w", err)
	}

	beneficiary := payerID
	if kind == domain.PurchaseGift && giftTo != nil {
		beneficiary = *giftTo
	}

	current, err := s.PremiumRepo.GetSubscriptionTx(ctx, tx, beneficiary)
	if err != nil {
		return fmt.Errorf("get subscription: %w", err)
	}
	start := now
	if current.ActiveAt(now) {
		start = current.ExpiresAt
	}

	return s.PremiumRepo.UpsertSubscriptionTx(ctx, tx, &domain.PremiumSubscription{
		UserID:    beneficiary,
		PlanID:    plan.ID,
		ExpiresAt: start.Add(plan.Duration()),
		IsActive:  true,
	})
}

func (s *Service) notifyGranted(ctx context.Context, chatID int64, plan *domain.PremiumSubscriptionPlan, kind domain.PurchaseKind, giftTo *int64) {
	text := fmt.Sprintf("✅ Тариф <b>%s</b> активирован на %d дн.", html.EscapeString(plan.Title), plan.DurationDays)
	if kind == domain.PurchaseGift {
		text = fmt.Sprintf("🎁 Подарок отправлен: тариф <b>%s</b> на %d дн.", html.EscapeString(plan.Title), plan.DurationDays)
		if giftTo != nil {
			s.notifyRecipient(ctx, *giftTo, plan)
		}
	}
	s.send(ctx, chatID, text)
}

func (s *Service) notifyRecipient(ctx context.Context, userID int64, plan *domain.PremiumSubscriptionPlan) {
	recipient, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		s.Log.Warn("gift recipient lookup failed", "user_id", userID, "error", err)
		return
	}
	s.send(ctx, recipient.ChatID, fmt.Sprintf("🎁 Вам подарили тариф <b>%s</b> на %d дн.", html.EscapeString(plan.Title), plan.DurationDays))
}

func (s *Service) send(ctx context.Context, chatID int64, text string) {
	if err := s.Outbound.Send(ctx, domain.OutgoingMessage{ChatID: chatID, Text: text}); err != nil {
		s.Log.Warn("failed to send payment notification", "chat_id", chatID, "error", err)
	}
}
