package service

import (
	"context"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

// IOutbound узкий интерфейс отправки сообщений пользователю
type IOutbound interface {
	Send(ctx context.Context, msg domain.OutgoingMessage) error
}
