package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	textbooksUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/textbooks"
)

// handleLoginChoice выбор способа входа
func (s *Service) handleLoginChoice(ctx context.Context, in incoming, method string) {
	uid, chatID := in.identity.UserID, in.identity.ChatID
	switch method {
	case "password":
		s.ask(ctx, uid, &dialog{Step: stepLogin})
		s.reply(ctx, chatID, "Введите логин от mos.ru", nil)
	case "token":
		s.ask(ctx, uid, &dialog{Step: stepToken})
		s.reply(ctx, chatID, "Отправьте токен МЭШ", nil)
	case "qr":
		s.endDialog(ctx, uid)
		s.startQR(ctx, in)
	default:
		s.reply(ctx, chatID, "Как будем входить в МЭШ?", loginKeyboard())
	}
}

// startQR вход по QR идёт до пяти минут, поэтому ждёт в отдельной задаче
func (s *Service) startQR(ctx context.Context, in incoming) {
	chatID := in.identity.ChatID
	s.FollowUps.Start(ctx, in.identity.UserID, func(ctx context.Context) {
		user, err := s.Auth.LoginWithQR(ctx, in.identity, func(payload string) error {
			_, err := s.send(ctx, domain.OutgoingMessage{
				ChatID: chatID,
				Text: fmt.Sprintf("📷 Откройте ссылку на устройстве, где вы вошли в mos.ru, и подтвердите вход:\n%s\n\nКод действует 5 минут.",
					html.EscapeString(payload)),
			})
			return err
		})
		if err != nil {
			if ctx.Err() != nil && domain.Classify(err) != domain.KindTimeout {
				return
			}
			s.fail(ctx, nil, chatID, err)
			return
		}
		s.welcome(ctx, user)
	})
}

func (s *Service) welcome(ctx context.Context, user *domain.User) {
	s.reply(ctx, user.ChatID, fmt.Sprintf("✅ Вход выполнен, %s!", html.EscapeString(user.FirstName)), mainKeyboard())
}

// handleDialog ответ пользователя на вопрос бота
func (s *Service) handleDialog(ctx context.Context, in incoming, d *dialog, text string) error {
	uid, chatID := in.identity.UserID, in.identity.ChatID

	switch d.Step {
	case stepLogin:
		s.ask(ctx, uid, &dialog{Step: stepPassword, Login: text})
		s.reply(ctx, chatID, "Введите пароль", nil)

	case stepPassword:
		s.endDialog(ctx, uid)
		if err := s.Auth.StartPassword(ctx, in.identity, d.Login, text); err != nil {
			s.fail(ctx, nil, chatID, err)
			return nil
		}
		s.ask(ctx, uid, &dialog{Step: stepCode})
		s.reply(ctx, chatID, "📱 Введите код из SMS", nil)

	case stepCode:
		user, err := s.Auth.ConfirmSMS(ctx, in.identity, text)
		if err != nil {
			if domain.Classify(err) == domain.KindValidation {
				s.reply(ctx, chatID, "Код состоит только из цифр, попробуйте ещё раз", nil)
				return nil
			}
			s.endDialog(ctx, uid)
			s.fail(ctx, nil, chatID, err)
			return nil
		}
		s.endDialog(ctx, uid)
		s.welcome(ctx, user)

	case stepToken:
		s.endDialog(ctx, uid)
		user, err := s.Auth.LoginWithToken(ctx, in.identity, text)
		if err != nil {
			s.fail(ctx, nil, chatID, err)
			return nil
		}
		s.welcome(ctx, user)

	case stepGdz:
		s.endDialog(ctx, uid)
		if text == "-" {
			if err := s.Textbooks.DeleteGdz(ctx, uid, d.SubjectID); err != nil {
				s.fail(ctx, nil, chatID, err)
				return nil
			}
			s.reply(ctx, chatID, "🗑 Ссылка удалена", nil)
			return nil
		}
		if _, err := s.Textbooks.SetGdz(ctx, uid, d.SubjectID, d.SubjectName, text); err != nil {
			s.fail(ctx, nil, chatID, err)
			return nil
		}
		s.reply(ctx, chatID, "✅ Решебник сохранён", nil)

	case stepGift:
		s.endDialog(ctx, uid)
		recipient, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			s.reply(ctx, chatID, "Нужен числовой telegram id. Начните заново через /premium", nil)
			return nil
		}
		user, ok := s.activeUser(ctx, in)
		if !ok {
			return nil
		}
		s.buy(ctx, in, user, d.PlanID, domain.PurchaseGift, &recipient)

	case stepTopUp:
		s.endDialog(ctx, uid)
		user, ok := s.activeUser(ctx, in)
		if !ok {
			return nil
		}
		s.topUp(ctx, in, user, text)

	case stepBook:
		s.reply(ctx, chatID, "📕 Пришлите учебник файлом или отправьте /cancel", nil)

	default:
		s.endDialog(ctx, uid)
		s.reply(ctx, chatID, msgUnknown, nil)
	}
	return nil
}

func (s *Service) topUp(ctx context.Context, in incoming, user *domain.User, raw string) {
	amount, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || amount <= 0 {
		s.reply(ctx, in.identity.ChatID, "Укажите целое число звёзд больше нуля", nil)
		return
	}
	if _, err := s.Payment.TopUp(ctx, user, amount); err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
	}
}

// handleDocument загрузка учебника, если бот его ждёт
func (s *Service) handleDocument(ctx context.Context, in incoming, doc *domain.Document) error {
	uid, chatID := in.identity.UserID, in.identity.ChatID

	d := s.loadDialog(ctx, uid)
	if d == nil || d.Step != stepBook {
		s.reply(ctx, chatID, msgDocumentUnexp, nil)
		return nil
	}
	if doc.FileSize > textbooksUsecase.MaxBookSize {
		s.reply(ctx, chatID, "Файл больше 20 МБ, пришлите поменьше", nil)
		return nil
	}
	s.endDialog(ctx, uid)

	body, size, err := s.Bot.DownloadFile(ctx, doc.FileID)
	if err != nil {
		s.fail(ctx, nil, chatID, err)
		return nil
	}
	defer body.Close()

	book, err := s.Textbooks.UploadBook(ctx, uid, textbooksUsecase.Upload{
		SubjectID:   d.SubjectID,
		SubjectName: d.SubjectName,
		Filename:    doc.FileName,
		ContentType: doc.MimeType,
		Size:        size,
		Body:        body,
	})
	if err != nil {
		s.fail(ctx, nil, chatID, err)
		return nil
	}
	s.Log.Debug("textbook uploaded", "user_id", uid, "subject_id", d.SubjectID, "key", book.ObjectKey)
	s.reply(ctx, chatID, "✅ Учебник сохранён. Скачать: /subjects", nil)
	return nil
}
