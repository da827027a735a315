package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	authUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/auth"
)

// HandleCallback нажатие inline кнопки. Ответ на callback отправляется всегда, иначе кнопка крутится
func (s *Service) HandleCallback(ctx context.Context, q *domain.CallbackQuery, updateID int64) error {
	if q.From == nil || q.Data == nil || q.Message == nil || q.Message.Chat == nil {
		s.Log.Debug("ignoring incomplete callback", "update_id", updateID)
		return s.answer(ctx, q.ID, "")
	}

	in := incoming{
		identity: authUsecase.Identity{
			UserID:    q.From.ID,
			ChatID:    q.Message.Chat.ID,
			FirstName: q.From.FirstName,
		},
		messageID: q.Message.MessageID,
	}

	if !s.allowed(ctx, in.identity.UserID, in.identity.ChatID) {
		return s.answer(ctx, q.ID, "")
	}

	prefix, rest, _ := strings.Cut(*q.Data, ":")
	s.Log.Debug("callback received", "user_id", in.identity.UserID, "prefix", prefix)

	if prefix == cbLogin {
		s.handleLoginChoice(ctx, in, rest)
		return s.answer(ctx, q.ID, "")
	}

	user, ok := s.activeUser(ctx, in)
	if !ok {
		return s.answer(ctx, q.ID, "")
	}

	notice := ""
	switch prefix {
	case cbHomework, cbSchedule, cbMarks:
		notice = s.navigate(ctx, in, user, prefix, rest)
	case cbVisits:
		day, err := domain.ParseDate(rest)
		if err != nil {
			notice = "Неверная дата"
			break
		}
		s.showVisits(ctx, in, user, day)
	case cbResults, cbRefresh:
		periodType, n, err := parseResults(rest)
		if err != nil {
			notice = "Неверный период"
			break
		}
		s.showResults(ctx, in, user, periodType, n, prefix == cbRefresh)
	case cbSetting:
		notice = s.toggleSetting(ctx, in, rest)
	case cbSubject, cbGdz, cbBook, cbBookGet:
		subjectID, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			notice = "Неверный предмет"
			break
		}
		s.handleSubject(ctx, in, user, prefix, subjectID)
	case cbBuy:
		s.buy(ctx, in, user, rest, domain.PurchaseMyself, nil)
	case cbGift:
		s.ask(ctx, user.UserID, &dialog{Step: stepGift, PlanID: rest})
		s.reply(ctx, in.identity.ChatID, "🎁 Отправьте telegram id получателя подарка.", nil)
	default:
		s.Log.Warn("unknown callback", "data", *q.Data, "user_id", user.UserID)
	}

	return s.answer(ctx, q.ID, notice)
}

func (s *Service) answer(ctx context.Context, callbackID, text string) error {
	if callbackID == "" {
		return nil
	}
	if err := s.Bot.AnswerCallbackQuery(ctx, callbackID, text, false); err != nil {
		s.Log.Debug("failed to answer callback", "callback_id", callbackID, "error", err)
	}
	return nil
}

// navigate стрелки дня: <view>:<date>:<l|r|e|t>
func (s *Service) navigate(ctx context.Context, in incoming, user *domain.User, view, rest string) string {
	date, dir, ok := strings.Cut(rest, ":")
	direction, known := directions[dir]
	if !ok || !known {
		return "Неверная кнопка"
	}
	day, err := domain.ParseDate(date)
	if err != nil {
		return "Неверная дата"
	}
	s.showDay(ctx, in, user, view, day, direction)
	return ""
}

func parseResults(rest string) (domain.PeriodType, int, error) {
	t, num, ok := strings.Cut(rest, ":")
	if !ok {
		return "", 0, fmt.Errorf("%w: results callback %q", domain.ErrValidation, rest)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("%w: period number %q", domain.ErrValidation, num)
	}
	periodType := domain.PeriodType(t)
	if !periodType.IsValid() {
		return "", 0, fmt.Errorf("%w: period type %q", domain.ErrValidation, t)
	}
	return periodType, n, nil
}

func (s *Service) toggleSetting(ctx context.Context, in incoming, key string) string {
	toggle, ok := findToggle(key)
	if !ok {
		return "Неизвестная настройка"
	}
	st := s.settings(ctx, in.identity.UserID)
	field := toggle.field(st)
	*field = !*field
	if err := s.SettingsRepo.Update(ctx, st); err != nil {
		s.Log.Error("failed to update settings", "user_id", in.identity.UserID, "key", key, "error", err)
		return "Не удалось сохранить"
	}
	s.edit(ctx, in.identity.ChatID, in.messageID, "⚙️ <b>Настройки</b>", settingsKeyboard(st))
	return "Сохранено"
}

func (s *Service) handleSubject(ctx context.Context, in incoming, user *domain.User, action string, subjectID int64) {
	chatID := in.identity.ChatID
	switch action {
	case cbSubject:
		v, err := s.Views.SubjectMarks(ctx, user, subjectID)
		if err != nil {
			s.fail(ctx, user, chatID, err)
			return
		}
		text := v.Text
		if gdz, err := s.Textbooks.Gdz(ctx, user.UserID, subjectID); err == nil {
			text += fmt.Sprintf("\n\n🔗 <a href=\"%s\">Решебник</a>", html.EscapeString(gdz.URL))
		}
		s.reply(ctx, chatID, text, subjectKeyboard(subjectID))
	case cbGdz:
		s.ask(ctx, user.UserID, &dialog{Step: stepGdz, SubjectID: subjectID, SubjectName: s.subjectName(ctx, user, subjectID)})
		s.reply(ctx, chatID, "🔗 Отправьте ссылку на решебник. Чтобы удалить ссылку, отправьте «-».", nil)
	case cbBook:
		s.ask(ctx, user.UserID, &dialog{Step: stepBook, SubjectID: subjectID, SubjectName: s.subjectName(ctx, user, subjectID)})
		s.reply(ctx, chatID, "📕 Пришлите файл учебника документом, до 20 МБ.", nil)
	case cbBookGet:
		link, err := s.Textbooks.BookURL(ctx, user.UserID, subjectID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.reply(ctx, chatID, "📕 Учебник по этому предмету ещё не загружен.", nil)
				return
			}
			s.fail(ctx, user, chatID, err)
			return
		}
		s.reply(ctx, chatID, fmt.Sprintf("📥 <a href=\"%s\">Скачать учебник</a>", html.EscapeString(link)), nil)
	}
}

// subjectName название предмета для имени файла и ссылки
func (s *Service) subjectName(ctx context.Context, user *domain.User, subjectID int64) string {
	subjects, err := s.Views.Subjects(ctx, user)
	if err == nil {
		for _, subj := range subjects {
			if subj.ID == subjectID {
				return subj.Name
			}
		}
	}
	return "subject-" + strconv.FormatInt(subjectID, 10)
}

func (s *Service) buy(ctx context.Context, in incoming, user *domain.User, planID string, kind domain.PurchaseKind, giftTo *int64) {
	purchase, err := s.Payment.BuyPlan(ctx, user, planID, kind, giftTo)
	if err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}
	if !purchase.Paid {
		s.Log.Info("invoice sent", "user_id", user.UserID, "plan_id", planID, "due", purchase.Due)
	}
}
