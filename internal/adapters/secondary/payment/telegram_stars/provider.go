package telegram_stars

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	paymentPort "github.com/admin/tg-bots/learnify-bot/internal/ports/payment"
)

// Provider реализует IPaymentProvider для Telegram Stars
type Provider struct {
	client *telegram.Client
	log    *slog.Logger
}

func NewProvider(client *telegram.Client, log *slog.Logger) *Provider {
	return &Provider{
		client: client,
		log:    log,
	}
}

// CreateInvoice отправляет invoice в звёздах одной позицией
func (p *Provider) CreateInvoice(ctx context.Context, req paymentPort.CreateInvoiceRequest) (*paymentPort.CreateInvoiceResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = domain.CurrencyStars
	}

	messageID, err := p.client.SendInvoice(ctx, telegram.SendInvoiceRequest{
		ChatID:      req.ChatID,
		Title:       req.Title,
		Description: req.Description,
		Payload:     req.Payload,
		Currency:    currency,
		Prices:      []telegram.LabeledPrice{{Label: req.Title, Amount: req.Amount}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}

	// Для Telegram Stars invoice_id = message_id
	return &paymentPort.CreateInvoiceResult{
		InvoiceID: strconv.FormatInt(messageID, 10),
	}, nil
}

func (p *Provider) ConfirmPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage *string) error {
	if err := p.client.AnswerPreCheckoutQuery(ctx, queryID, ok, errorMessage); err != nil {
		return fmt.Errorf("failed to answer pre_checkout_query: %w", err)
	}
	return nil
}

// Refund повторный возврат превращается в PaymentDisputeError
func (p *Provider) Refund(ctx context.Context, userID int64, chargeID string) error {
	err := p.client.RefundStarPayment(ctx, userID, chargeID)
	if err == nil {
		return nil
	}

	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) && apiErr.IsAlreadyRefunded() {
		return &domain.PaymentDisputeError{Reason: "already refunded"}
	}
	return fmt.Errorf("failed to refund star payment: %w", err)
}
