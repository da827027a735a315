package events

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

// botNotificationTTL сколько живёт напоминание бота. Замены ищутся в том же горизонте,
// поэтому удалённое напоминание не создаётся заново: урок к этому времени уже начался
const botNotificationTTL = 24 * time.Hour

// CreateReplacementReminders ставит в очередь напоминания о заменах уроков на ближайшие сутки.
// Возвращает число новых напоминаний, уже созданные пропускаются по ключу урока
func (s *Service) CreateReplacementReminders(ctx context.Context, user *domain.User) (int, error) {
	if user.PersonID == "" {
		return 0, nil
	}

	now := s.Clock.Now()
	horizon := now.Add(botNotificationTTL)

	lessons, err := s.Mes.GetEvents(ctx, user.Token, user.PersonID, domain.Day(now), domain.Day(horizon))
	if err != nil {
		return 0, fmt.Errorf("get schedule for user %d: %w", user.UserID, err)
	}

	created := 0
	for i := range lessons {
		l := &lessons[i]
		if !l.Replaced || l.Cancelled {
			continue
		}
		if !l.StartAt.After(now) || l.StartAt.After(horizon) {
			continue
		}

		n := &domain.BotNotification{
			UserID:   user.UserID,
			Type:     domain.BotNotificationReplacement,
			Text:     replacementText(l),
			DedupKey: strconv.FormatInt(l.ID, 10) + "@" + l.StartAt.UTC().Format(time.RFC3339),
		}
		ok, err := s.NotificationRepo.Create(ctx, n)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	if created > 0 {
		s.Log.Debug("replacement reminders created", "user_id", user.UserID, "created", created)
	}
	return created, nil
}

func replacementText(l *domain.ScheduleEvent) string {
	start := l.StartAt.In(domain.MesLocation)
	text := fmt.Sprintf("🔁 <b>Замена урока</b>\n%s %s-%s <b>%s</b>",
		start.Format("02.01"),
		start.Format("15:04"),
		l.FinishAt.In(domain.MesLocation).Format("15:04"),
		html.EscapeString(l.SubjectName))
	if l.RoomNumber != "" {
		text += " каб. " + html.EscapeString(l.RoomNumber)
	}
	return text
}
