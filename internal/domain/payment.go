package domain

import (
	"database/sql/driver"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const CurrencyStars = "XTR"

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // создан, ожидает оплаты
	PaymentStatusSucceeded PaymentStatus = "succeeded" // успешно оплачен
	PaymentStatusFailed    PaymentStatus = "failed"    // оплата не прошла
	PaymentStatusRefunded  PaymentStatus = "refunded"  // возврат звёзд
)

// PurchaseKind на что тратятся звёзды
type PurchaseKind string

const (
	PurchaseMyself PurchaseKind = "myself"
	PurchaseGift   PurchaseKind = "gift"
	PurchaseTopUp  PurchaseKind = "topup"
)

func (k PurchaseKind) IsValid() bool {
	switch k {
	case PurchaseMyself, PurchaseGift, PurchaseTopUp:
		return true
	}
	return false
}

// PaymentMetadata метаданные платежа (JSONB) с поддержкой sql.Scanner
type PaymentMetadata map[string]interface{}

// Scan реализует sql.Scanner для сканирования JSONB из БД
func (m *PaymentMetadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	}

	if len(raw) == 0 {
		*m = make(PaymentMetadata)
		return nil
	}

	return json.Unmarshal(raw, m)
}

// Value реализует driver.Valuer для сохранения в БД
func (m PaymentMetadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Payment платёж звёздами
type Payment struct {
	ID                      uuid.UUID       `json:"id" db:"id"`
	UserID                  int64           `json:"user_id" db:"user_id"`
	Amount                  int64           `json:"amount" db:"amount"` // сколько звёзд в invoice
	Currency                string          `json:"currency" db:"currency"`
	Status                  PaymentStatus   `json:"status" db:"status"`
	PlanID                  *string         `json:"plan_id,omitempty" db:"plan_id"`
	Kind                    PurchaseKind    `json:"kind" db:"kind"`
	GiftTo                  *int64          `json:"gift_to,omitempty" db:"gift_to"`
	TelegramPaymentChargeID *string         `json:"telegram_payment_charge_id,omitempty" db:"telegram_payment_charge_id"`
	Metadata                PaymentMetadata `json:"metadata,omitempty" db:"metadata"`
	CreatedAt               time.Time       `json:"created_at" db:"created_at"`
	SucceededAt             *time.Time      `json:"succeeded_at,omitempty" db:"succeeded_at"`
	FailedAt                *time.Time      `json:"failed_at,omitempty" db:"failed_at"`
	ErrorMessage            *string         `json:"error_message,omitempty" db:"error_message"`
}

// Payload строка, которая уходит в invoice и возвращается в pre_checkout_query
func (p *Payment) Payload() string {
	return p.ID.String()
}

// TransactionType направление движения по балансу
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Transaction запись журнала, баланс = sum(credit) - sum(debit)
type Transaction struct {
	ID                      uuid.UUID       `json:"id" db:"id"`
	UserID                  int64           `json:"user_id" db:"user_id"`
	Type                    TransactionType `json:"type" db:"type"`
	Amount                  int64           `json:"amount" db:"amount"`
	Kind                    string          `json:"kind" db:"kind"`
	PlanID                  *string         `json:"plan_id,omitempty" db:"plan_id"`
	PaymentID               *uuid.UUID      `json:"payment_id,omitempty" db:"payment_id"`
	TelegramPaymentChargeID *string         `json:"telegram_payment_charge_id,omitempty" db:"telegram_payment_charge_id"`
	CreatedAt               time.Time       `json:"created_at" db:"created_at"`
}

// PremiumSubscriptionPlan тариф, price в звёздах
type PremiumSubscriptionPlan struct {
	ID           string `json:"id" db:"id"`
	Title        string `json:"title" db:"title"`
	Description  string `json:"description" db:"description"`
	Price        int64  `json:"price" db:"price"`
	DurationDays int    `json:"duration_days" db:"duration_days"`
}

func (p *PremiumSubscriptionPlan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// PremiumSubscription не больше одной строки на пользователя
type PremiumSubscription struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	PlanID    string    `json:"plan_id" db:"plan_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IsActive  bool      `json:"is_active" db:"is_active"`
}

func (s *PremiumSubscription) ActiveAt(now time.Time) bool {
	return s != nil && s.IsActive && s.ExpiresAt.After(now)
}
