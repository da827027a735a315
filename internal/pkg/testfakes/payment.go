package testfakes

import (
	"context"
	"strconv"
	"sync"

	paymentPort "github.com/admin/tg-bots/learnify-bot/internal/ports/payment"
)

// PreCheckoutAnswer ответ на pre_checkout_query
type PreCheckoutAnswer struct {
	QueryID string
	OK      bool
	Reason  string
}

// PaymentProvider запоминает invoice, ответы и возвраты
type PaymentProvider struct {
	mu         sync.Mutex
	Invoices   []paymentPort.CreateInvoiceRequest
	Answers    []PreCheckoutAnswer
	Refunds    []string
	InvoiceErr error
	RefundErr  error
}

func (p *PaymentProvider) CreateInvoice(ctx context.Context, req paymentPort.CreateInvoiceRequest) (*paymentPort.CreateInvoiceResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.InvoiceErr != nil {
		return nil, p.InvoiceErr
	}
	p.Invoices = append(p.Invoices, req)
	return &paymentPort.CreateInvoiceResult{InvoiceID: strconv.Itoa(len(p.Invoices))}, nil
}

func (p *PaymentProvider) ConfirmPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage *string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := PreCheckoutAnswer{QueryID: queryID, OK: ok}
	if errorMessage != nil {
		a.Reason = *errorMessage
	}
	p.Answers = append(p.Answers, a)
	return nil
}

func (p *PaymentProvider) Refund(ctx context.Context, userID int64, chargeID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RefundErr != nil {
		return p.RefundErr
	}
	p.Refunds = append(p.Refunds, chargeID)
	return nil
}

var _ paymentPort.IPaymentProvider = (*PaymentProvider)(nil)
