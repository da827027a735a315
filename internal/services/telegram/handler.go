package telegram

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	authUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/auth"
)

const (
	msgNeedLogin     = "🔐 Сначала войдите в аккаунт МЭШ."
	msgNeedChannel   = "📢 Чтобы пользоваться ботом, подпишитесь на наш канал и повторите команду."
	msgUnknown       = "🤔 Не понял. Выберите действие в меню или отправьте /help."
	msgCanceled      = "Действие отменено."
	msgDocumentUnexp = "📎 Чтобы загрузить учебник, выберите предмет в /subjects."
)

// HandleUpdate точка входа для поллера и вебхука
func (s *Service) HandleUpdate(ctx context.Context, update *domain.Update) error {
	if update == nil {
		return fmt.Errorf("update is nil")
	}

	switch {
	case update.PreCheckoutQuery != nil:
		return s.handlePreCheckout(ctx, update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		return s.HandleCallback(ctx, update.CallbackQuery, update.UpdateID)
	case update.Message != nil:
		return s.HandleMessage(ctx, update.Message, update.UpdateID)
	}
	return nil
}

// HandleMessage роутинг входящего сообщения: оплата, документ, команда или ответ в диалоге
func (s *Service) HandleMessage(ctx context.Context, message *domain.Message, updateID int64) error {
	if message == nil {
		return fmt.Errorf("message is nil")
	}

	if message.From == nil || message.From.IsBot {
		s.Log.Debug("ignoring message from bot", "update_id", updateID)
		return nil
	}

	if message.Chat == nil || message.Chat.Type != "private" {
		s.Log.Warn("ignoring message from group/chat", "update_id", updateID)
		return nil
	}

	if message.SuccessfulPayment != nil {
		return s.handleSuccessfulPayment(ctx, message)
	}

	if !s.allowed(ctx, message.From.ID, message.Chat.ID) {
		return nil
	}

	in := incoming{
		identity: authUsecase.Identity{
			UserID:    message.From.ID,
			ChatID:    message.Chat.ID,
			FirstName: message.From.FirstName,
		},
	}

	if message.Document != nil {
		return s.handleDocument(ctx, in, message.Document)
	}

	if message.Text == nil {
		return nil
	}
	text := strings.TrimSpace(*message.Text)

	if IsCommand(text) {
		in.args = commandArgs(text)
		return s.handleCommand(ctx, in, ParseCommand(text))
	}
	if command, ok := menuCommands[text]; ok {
		s.endDialog(ctx, in.identity.UserID)
		return s.handleCommand(ctx, in, command)
	}

	if d := s.loadDialog(ctx, in.identity.UserID); d != nil {
		return s.handleDialog(ctx, in, d, text)
	}

	s.reply(ctx, in.identity.ChatID, msgUnknown, nil)
	return nil
}

// incoming кто прислал обновление и аргументы команды
type incoming struct {
	identity  authUsecase.Identity
	args      string
	messageID int64 // сообщение с клавиатурой, для callback
}

func (s *Service) isAdmin(userID int64) bool {
	return slices.Contains(s.Options.AdminIDs, userID)
}

// allowed проверка обязательной подписки на канал. Ошибка Bot API не блокирует пользователя
func (s *Service) allowed(ctx context.Context, userID, chatID int64) bool {
	if s.Options.ChannelID == "" || s.isAdmin(userID) {
		return true
	}
	member, err := s.Bot.IsChannelMember(ctx, s.Options.ChannelID, userID)
	if err != nil {
		s.Log.Warn("failed to check channel membership", "user_id", userID, "error", err)
		return true
	}
	if !member {
		s.reply(ctx, chatID, msgNeedChannel, nil)
	}
	return member
}

// activeUser пользователь с действующей сессией МЭШ, иначе приглашение войти
func (s *Service) activeUser(ctx context.Context, in incoming) (*domain.User, bool) {
	user, err := s.UserRepo.GetByID(ctx, in.identity.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.Log.Error("failed to load user", "user_id", in.identity.UserID, "error", err)
			s.fail(ctx, nil, in.identity.ChatID, err)
			return nil, false
		}
		s.reply(ctx, in.identity.ChatID, msgNeedLogin, loginKeyboard())
		return nil, false
	}
	if !user.Active {
		s.reply(ctx, in.identity.ChatID, msgNeedLogin, loginKeyboard())
		return nil, false
	}
	return user, true
}

func ParseCommand(text string) string {
	text = strings.TrimPrefix(text, "/")

	if idx := strings.Index(text, " "); idx != -1 {
		text = text[:idx]
	}

	if idx := strings.Index(text, "@"); idx != -1 {
		text = text[:idx]
	}

	return text
}

func IsCommand(text string) bool {
	return len(text) > 0 && text[0] == '/'
}

// commandArgs всё после имени команды
func commandArgs(text string) string {
	if idx := strings.Index(text, " "); idx != -1 {
		return strings.TrimSpace(text[idx+1:])
	}
	return ""
}
