package birthday

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/sanitize"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

const promptTemplate = `Напиши короткое тёплое поздравление с днём рождения для школьника по имени %s. ` +
	`Исполняется %d. Два-три предложения, без хэштегов. Можно использовать теги <b> и <i>.`

type Service struct {
	UserRepo repository.IUserRepo
	AI       service.IAIProvider
	Outbound service.IOutbound
	Clock    clock.Clock
	Log      *slog.Logger
}

func New(userRepo repository.IUserRepo, ai service.IAIProvider, outbound service.IOutbound, clk clock.Clock, log *slog.Logger) *Service {
	return &Service{
		UserRepo: userRepo,
		AI:       ai,
		Outbound: outbound,
		Clock:    clk,
		Log:      log,
	}
}

// IsToday день рождения совпадает с сегодняшней датой по Москве.
// 29 февраля в невисокосный год празднуется 28-го
func IsToday(birthday, now time.Time) bool {
	now = now.In(domain.MesLocation)
	month, day := birthday.Month(), birthday.Day()
	if month == time.February && day == 29 && !isLeap(now.Year()) {
		day = 28
	}
	return now.Month() == month && now.Day() == day
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Greet поздравляет всех именинников. Возвращает число отправленных поздравлений
func (s *Service) Greet(ctx context.Context) (int, error) {
	users, err := s.UserRepo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	now := s.Clock.Now()
	sent := 0
	for i := range users {
		u := &users[i]
		if u.Birthday == nil || !IsToday(*u.Birthday, now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		text := s.greeting(ctx, u, now)
		if err := s.Outbound.Send(ctx, domain.OutgoingMessage{ChatID: u.ChatID, Text: text}); err != nil {
			s.Log.Warn("failed to send birthday greeting", "user_id", u.UserID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Service) greeting(ctx context.Context, u *domain.User, now time.Time) string {
	name := strings.TrimSpace(u.FirstName)
	age := now.In(domain.MesLocation).Year() - u.Birthday.Year()

	if s.AI != nil {
		text, err := s.AI.Complete(ctx, fmt.Sprintf(promptTemplate, name, age))
		text = strings.TrimSpace(sanitize.HTML(text))
		if err == nil && text != "" {
			return "🎂 " + text
		}
		if err != nil {
			s.Log.Warn("ai greeting failed, using fallback", "user_id", u.UserID, "error", err)
		}
	}
	return fallback(name)
}

func fallback(name string) string {
	if name == "" {
		return "🎂 С днём рождения! Пусть учёба радует, а оценки будут только отличными."
	}
	return fmt.Sprintf("🎂 <b>%s</b>, с днём рождения! Пусть учёба радует, а оценки будут только отличными.", html.EscapeString(name))
}
