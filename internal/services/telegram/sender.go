package telegram

import (
	"context"
	"errors"
	"fmt"

	tgClient "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
	viewsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/views"
)

var _ service.IOutbound = (*Service)(nil)

// Send реализует service.IOutbound для usecase и фоновых задач
func (s *Service) Send(ctx context.Context, msg domain.OutgoingMessage) error {
	_, err := s.send(ctx, msg)
	return err
}

func (s *Service) send(ctx context.Context, msg domain.OutgoingMessage) (int64, error) {
	messageID, err := s.Bot.SendMessage(ctx, msg)
	if err != nil {
		var apiErr *tgClient.APIError
		if errors.As(err, &apiErr) && apiErr.IsBlocked() {
			s.Log.Info("user blocked the bot", "chat_id", msg.ChatID)
		} else {
			s.Log.Error("failed to send message", "error", err, "chat_id", msg.ChatID)
		}
		return 0, fmt.Errorf("failed to send message: %w", err)
	}

	s.Log.Debug("message sent successfully", "chat_id", msg.ChatID, "message_id", messageID)
	return messageID, nil
}

func (s *Service) reply(ctx context.Context, chatID int64, text string, kb *domain.Keyboard) {
	_, _ = s.send(ctx, domain.OutgoingMessage{ChatID: chatID, Text: text, Keyboard: kb})
}

// edit заменяет текст сообщения, при неудаче отправляет новое
func (s *Service) edit(ctx context.Context, chatID, messageID int64, text string, kb *domain.Keyboard) {
	if messageID != 0 {
		err := s.Bot.EditMessageText(ctx, chatID, messageID, text, kb)
		if err == nil {
			return
		}
		s.Log.Debug("edit failed, sending new message", "chat_id", chatID, "error", err)
	}
	s.reply(ctx, chatID, text, kb)
}

// fail показывает пользователю понятную ошибку. Отказ МЭШ в авторизации гасит сессию
func (s *Service) fail(ctx context.Context, user *domain.User, chatID int64, err error) {
	text, kind := viewsUsecase.MapError(err)
	if kind == domain.KindNone {
		return
	}

	if kind == domain.KindUnauthorized && user != nil && s.Tokens != nil {
		if derr := s.Tokens.DeactivateAndPrompt(ctx, user.UserID); derr != nil {
			s.Log.Error("failed to deactivate user", "user_id", user.UserID, "error", derr)
		}
		return
	}

	if kind == domain.KindInternal {
		s.Log.Error("request failed", "chat_id", chatID, "error", err)
	} else {
		s.Log.Warn("request failed", "chat_id", chatID, "kind", kind.String(), "error", err)
	}
	s.reply(ctx, chatID, text, nil)
}
