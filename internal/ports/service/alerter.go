package service

import "context"

// IAlerterService доставка служебных сообщений администраторам.
// Реализации не должны блокировать вызывающего дольше ctx.
type IAlerterService interface {
	SendAlert(ctx context.Context, message string) error
}
