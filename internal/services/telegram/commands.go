package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	eventsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/events"
	resultsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/results"
	viewsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/views"
)

const helpText = `<b>Что умеет бот</b>

/homework домашнее задание
/schedule расписание
/marks оценки за день
/visits посещения за неделю
/results итоги четверти
/notifications новые уведомления
/subjects предметы, решебники и учебники
/settings настройки
/premium подписка и баланс
/login войти в МЭШ
/logout выйти
/cancel отменить текущее действие`

// handleCommand роутинг команд и кнопок главного меню
func (s *Service) handleCommand(ctx context.Context, in incoming, command string) error {
	uid, chatID := in.identity.UserID, in.identity.ChatID

	switch command {
	case "start":
		return s.cmdStart(ctx, in)
	case "help":
		s.reply(ctx, chatID, helpText, nil)
		return nil
	case "login":
		s.endDialog(ctx, uid)
		s.reply(ctx, chatID, "Как будем входить в МЭШ?", loginKeyboard())
		return nil
	case "cancel":
		s.endDialog(ctx, uid)
		s.FollowUps.Cancel(uid)
		s.reply(ctx, chatID, msgCanceled, mainKeyboard())
		return nil
	case "refund":
		return s.cmdRefund(ctx, in)
	}

	user, ok := s.activeUser(ctx, in)
	if !ok {
		return nil
	}

	switch command {
	case "homework":
		s.showDay(ctx, in, user, cbHomework, s.Clock.Now(), viewsUsecase.Today)
	case "schedule":
		s.showDay(ctx, in, user, cbSchedule, s.Clock.Now(), viewsUsecase.Today)
	case "marks":
		s.showDay(ctx, in, user, cbMarks, s.Clock.Now(), viewsUsecase.Today)
	case "visits":
		s.showVisits(ctx, in, user, viewsUsecase.WeekStart(s.Clock.Now()))
	case "results":
		s.showResults(ctx, in, user, "", 0, false)
	case "notifications":
		s.cmdNotifications(ctx, in, user)
	case "subjects":
		s.cmdSubjects(ctx, in, user)
	case "settings":
		s.reply(ctx, chatID, "⚙️ <b>Настройки</b>", settingsKeyboard(s.settings(ctx, uid)))
	case "premium":
		s.cmdPremium(ctx, in, user)
	case "balance":
		s.cmdBalance(ctx, in, user)
	case "topup":
		s.cmdTopUp(ctx, in, user)
	case "logout":
		s.cmdLogout(ctx, in)
	default:
		s.reply(ctx, chatID, msgUnknown, nil)
	}
	return nil
}

func (s *Service) cmdStart(ctx context.Context, in incoming) error {
	s.endDialog(ctx, in.identity.UserID)
	state, err := s.Auth.State(ctx, in.identity.UserID)
	if err != nil {
		s.fail(ctx, nil, in.identity.ChatID, err)
		return nil
	}
	if state == domain.SessionAuthenticated {
		s.reply(ctx, in.identity.ChatID, fmt.Sprintf("👋 С возвращением, %s!", html.EscapeString(in.identity.FirstName)), mainKeyboard())
		return nil
	}
	s.reply(ctx, in.identity.ChatID,
		"👋 Привет! Я показываю домашку, расписание и оценки из МЭШ и присылаю уведомления.\n\nКак будем входить?",
		loginKeyboard())
	return nil
}

func (s *Service) settings(ctx context.Context, userID int64) *domain.Settings {
	st, err := s.SettingsRepo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.Log.Warn("failed to load settings", "user_id", userID, "error", err)
		}
		return domain.DefaultSettings(userID)
	}
	return st
}

// showDay день домашки, расписания или оценок. Навигация правит сообщение с кнопками
func (s *Service) showDay(ctx context.Context, in incoming, user *domain.User, view string, date time.Time, dir viewsUsecase.Direction) {
	var (
		v   *viewsUsecase.View
		err error
	)
	switch view {
	case cbHomework:
		v, err = s.Views.Homework(ctx, user, date, dir)
	case cbSchedule:
		v, err = s.Views.Schedule(ctx, user, date, dir)
	default:
		v, err = s.Views.Marks(ctx, user, date, dir)
	}
	if err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}

	kb := navKeyboard(view, v.Date)
	messageID := in.messageID
	if messageID != 0 {
		s.edit(ctx, in.identity.ChatID, messageID, v.Text, kb)
	} else {
		messageID, err = s.send(ctx, domain.OutgoingMessage{ChatID: in.identity.ChatID, Text: v.Text, Keyboard: kb})
		if err != nil {
			return
		}
	}

	if view == cbSchedule && !v.Empty {
		s.detailSchedule(ctx, user, in.identity.ChatID, messageID, v, kb)
	}
}

// detailSchedule дописывает к расписанию домашку того же дня отдельной задачей.
// Следующая навигация отменяет незавершённую задачу
func (s *Service) detailSchedule(ctx context.Context, user *domain.User, chatID, messageID int64, v *viewsUsecase.View, kb *domain.Keyboard) {
	s.FollowUps.Start(ctx, user.UserID, func(ctx context.Context) {
		hw, err := s.Views.Homework(ctx, user, v.Date, viewsUsecase.Exact)
		if err != nil {
			if ctx.Err() == nil {
				s.Log.Warn("schedule details failed", "user_id", user.UserID, "error", err)
			}
			return
		}
		if hw.Empty || ctx.Err() != nil {
			return
		}
		if err := s.Bot.EditMessageText(ctx, chatID, messageID, v.Text+"\n\n"+hw.Text, kb); err != nil {
			s.Log.Debug("failed to attach schedule details", "user_id", user.UserID, "error", err)
		}
	})
}

func (s *Service) showVisits(ctx context.Context, in incoming, user *domain.User, monday time.Time) {
	v, err := s.Views.Visits(ctx, user, monday)
	if err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}
	if in.messageID != 0 {
		s.edit(ctx, in.identity.ChatID, in.messageID, v.Text, weekKeyboard(v.Date))
		return
	}
	s.reply(ctx, in.identity.ChatID, v.Text, weekKeyboard(v.Date))
}

func (s *Service) showResults(ctx context.Context, in incoming, user *domain.User, periodType domain.PeriodType, n int, bypass bool) {
	settings := s.settings(ctx, user.UserID)
	opts := resultsUsecase.Options{
		CacheBypass: bypass,
		NoCache:     !settings.UseCache,
		WithRank:    settings.ExperimentalFeatures,
	}
	report, err := s.Results.Results(ctx, user, periodType, n, opts)
	if err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}
	text := resultsUsecase.FormatReport(report)
	if in.messageID != 0 {
		s.edit(ctx, in.identity.ChatID, in.messageID, text, resultsKeyboard(report))
		return
	}
	s.reply(ctx, in.identity.ChatID, text, resultsKeyboard(report))
}

func (s *Service) cmdNotifications(ctx context.Context, in incoming, user *domain.User) {
	deltas, err := s.Events.Poll(ctx, user, eventsUsecase.Interactive)
	if err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}
	if len(deltas) == 0 {
		s.reply(ctx, in.identity.ChatID, "🔔 Новых уведомлений нет.", nil)
		return
	}
	for _, d := range deltas {
		s.reply(ctx, in.identity.ChatID, d.Message, nil)
	}
}

func (s *Service) cmdSubjects(ctx context.Context, in incoming, user *domain.User) {
	subjects, err := s.Views.Subjects(ctx, user)
	if err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}
	if len(subjects) == 0 {
		s.reply(ctx, in.identity.ChatID, "📖 Предметов пока нет.", nil)
		return
	}
	s.reply(ctx, in.identity.ChatID, "📖 <b>Выберите предмет</b>", subjectsKeyboard(subjects))
}

func (s *Service) cmdPremium(ctx context.Context, in incoming, user *domain.User) {
	sub, err := s.Payment.Subscription(ctx, user.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}
	balance, err := s.Payment.Balance(ctx, user.UserID)
	if err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}
	plans, err := s.Payment.Plans(ctx)
	if err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}

	var b strings.Builder
	b.WriteString("⭐ <b>Премиум</b>\n\n")
	if sub != nil {
		fmt.Fprintf(&b, "Подписка активна до %s\n", sub.ExpiresAt.In(domain.MesLocation).Format("02.01.2006"))
	} else {
		b.WriteString("Подписки нет\n")
	}
	fmt.Fprintf(&b, "Баланс: %d ⭐", balance)
	if len(plans) == 0 {
		s.reply(ctx, in.identity.ChatID, b.String(), nil)
		return
	}
	b.WriteString("\n\nВыберите тариф или подарите его другу 🎁")
	s.reply(ctx, in.identity.ChatID, b.String(), plansKeyboard(plans))
}

func (s *Service) cmdBalance(ctx context.Context, in incoming, user *domain.User) {
	balance, err := s.Payment.Balance(ctx, user.UserID)
	if err != nil {
		s.fail(ctx, user, in.identity.ChatID, err)
		return
	}
	s.reply(ctx, in.identity.ChatID, fmt.Sprintf("💰 Баланс: %d ⭐\nПополнить: /topup", balance), nil)
}

func (s *Service) cmdTopUp(ctx context.Context, in incoming, user *domain.User) {
	if in.args != "" {
		s.topUp(ctx, in, user, in.args)
		return
	}
	s.ask(ctx, user.UserID, &dialog{Step: stepTopUp})
	s.reply(ctx, in.identity.ChatID, "Сколько звёзд зачислить на баланс?", nil)
}

func (s *Service) cmdLogout(ctx context.Context, in incoming) {
	s.FollowUps.Cancel(in.identity.UserID)
	if err := s.UserRepo.SetActive(ctx, in.identity.UserID, false); err != nil {
		s.fail(ctx, nil, in.identity.ChatID, err)
		return
	}
	s.reply(ctx, in.identity.ChatID, "👋 Вы вышли из аккаунта МЭШ.", loginKeyboard())
}

// cmdRefund возврат звёзд по charge id, только для администраторов
func (s *Service) cmdRefund(ctx context.Context, in incoming) error {
	if !s.isAdmin(in.identity.UserID) {
		s.reply(ctx, in.identity.ChatID, msgUnknown, nil)
		return nil
	}
	if in.args == "" {
		s.reply(ctx, in.identity.ChatID, "Использование: /refund &lt;charge_id&gt;", nil)
		return nil
	}

	payment, err := s.Payment.RefundPayment(ctx, in.args)
	if err != nil {
		var dispute *domain.PaymentDisputeError
		if errors.As(err, &dispute) {
			s.reply(ctx, in.identity.ChatID, "⚠️ Возврат невозможен: "+html.EscapeString(dispute.Reason), nil)
			return nil
		}
		s.fail(ctx, nil, in.identity.ChatID, err)
		return nil
	}
	s.reply(ctx, in.identity.ChatID,
		fmt.Sprintf("✅ Возвращено %d ⭐ пользователю %d", payment.Amount, payment.UserID), nil)
	return nil
}
