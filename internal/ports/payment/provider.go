package payment

import (
	"context"
)

// IPaymentProvider интерфейс для платёжного провайдера (Telegram Stars)
// Use case зависит только от этого интерфейса, не зная деталей реализации
type IPaymentProvider interface {
	// CreateInvoice отправляет invoice пользователю
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResult, error)

	// ConfirmPreCheckout отвечает на pre_checkout_query
	ConfirmPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage *string) error

	// Refund возвращает звёзды по telegram_payment_charge_id
	Refund(ctx context.Context, userID int64, chargeID string) error
}

// CreateInvoiceRequest запрос на создание invoice
type CreateInvoiceRequest struct {
	ChatID      int64
	Title       string
	Description string
	Amount      int64  // количество звёзд
	Currency    string // "XTR" для Stars
	Payload     string // payment_id
}

// CreateInvoiceResult результат создания invoice
type CreateInvoiceResult struct {
	InvoiceID string // message_id отправленного invoice
}
