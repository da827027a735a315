package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrCacheMiss  = errors.New("cache miss")
	ErrValidation = errors.New("validation failed")
	ErrNoToken    = errors.New("no token returned")
)

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}

// UpstreamError ошибка МЭШ с http статусом
type UpstreamError struct {
	StatusCode int
	Method     string
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mes %s failed [status=%d]: %v", e.Method, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("mes %s failed [status=%d]: %s", e.Method, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ErrorKind класс ошибки, по которому выбирается реакция бота
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUnauthorized
	KindTimeout
	KindUpstream
	KindValidation
	KindPaymentDispute
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnauthorized:
		return "unauthorized"
	case KindTimeout:
		return "timeout"
	case KindUpstream:
		return "upstream"
	case KindValidation:
		return "validation"
	case KindPaymentDispute:
		return "payment_dispute"
	default:
		return "internal"
	}
}

// PaymentDisputeError спор по платежу: возврат уже сделан, тариф не найден и т.п.
type PaymentDisputeError struct {
	Reason string
}

func (e *PaymentDisputeError) Error() string {
	return "payment dispute: " + e.Reason
}

// Classify сводит ошибку к ErrorKind
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		switch {
		case upstream.StatusCode == http.StatusUnauthorized || upstream.StatusCode == http.StatusForbidden:
			return KindUnauthorized
		case upstream.StatusCode == http.StatusRequestTimeout:
			return KindTimeout
		case upstream.StatusCode >= 500:
			return KindUpstream
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dispute *PaymentDisputeError
	if errors.As(err, &dispute) {
		return KindPaymentDispute
	}

	if errors.Is(err, ErrValidation) {
		return KindValidation
	}

	if upstream != nil {
		return KindUpstream
	}

	return KindInternal
}

func IsUnauthorized(err error) bool {
	return Classify(err) == KindUnauthorized
}
