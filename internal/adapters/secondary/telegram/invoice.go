package telegram

import (
	"context"
	"fmt"
)

// LabeledPrice представляет цену в invoice
type LabeledPrice struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"` // для Stars - количество звёзд
}

// SendInvoiceRequest запрос на отправку invoice в звёздах
// Документация: https://core.telegram.org/bots/api#sendinvoice
type SendInvoiceRequest struct {
	ChatID      int64          `json:"chat_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Payload     string         `json:"payload"`
	Currency    string         `json:"currency"` // "XTR" для Stars
	Prices      []LabeledPrice `json:"prices"`
}

// SendInvoice отправляет invoice, возвращает message_id
func (c *Client) SendInvoice(ctx context.Context, req SendInvoiceRequest) (int64, error) {
	var sent SentMessage
	if err := c.call(ctx, "sendInvoice", req, &sent); err != nil {
		return 0, fmt.Errorf("send invoice [chat_id=%d]: %w", req.ChatID, err)
	}

	c.log.Debug("invoice sent successfully",
		"chat_id", req.ChatID,
		"message_id", sent.MessageID,
	)
	return sent.MessageID, nil
}

// AnswerPreCheckoutQuery подтверждает или отклоняет платёж
// Документация: https://core.telegram.org/bots/api#answerprecheckoutquery
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage *string) error {
	req := struct {
		PreCheckoutQueryID string  `json:"pre_checkout_query_id"`
		OK                 bool    `json:"ok"`
		ErrorMessage       *string `json:"error_message,omitempty"`
	}{queryID, ok, errorMessage}

	if err := c.call(ctx, "answerPreCheckoutQuery", req, nil); err != nil {
		return fmt.Errorf("answer pre_checkout_query [query_id=%s]: %w", queryID, err)
	}

	c.log.Debug("pre_checkout_query answered", "query_id", queryID, "ok", ok)
	return nil
}

// RefundStarPayment возвращает звёзды пользователю
// Документация: https://core.telegram.org/bots/api#refundstarpayment
func (c *Client) RefundStarPayment(ctx context.Context, userID int64, chargeID string) error {
	req := struct {
		UserID                  int64  `json:"user_id"`
		TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
	}{userID, chargeID}

	if err := c.call(ctx, "refundStarPayment", req, nil); err != nil {
		return fmt.Errorf("refund star payment [user_id=%d]: %w", userID, err)
	}

	c.log.Info("star payment refunded", "user_id", userID, "charge_id", chargeID)
	return nil
}
