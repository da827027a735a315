package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	eventsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/events"
)

const (
	replacementsCheckerName = "lesson_replacements_checker"
	replacementsInterval    = 30 * time.Minute
)

// ReplacementsChecker ищет замены уроков на ближайшие сутки и создаёт напоминания бота.
// Отправляет их NotificationsChecker
type ReplacementsChecker struct {
	userRepo repository.IUserRepo
	events   *eventsUsecase.Service
	log      *slog.Logger
}

func NewReplacementsChecker(userRepo repository.IUserRepo, events *eventsUsecase.Service, log *slog.Logger) *ReplacementsChecker {
	return &ReplacementsChecker{
		userRepo: userRepo,
		events:   events,
		log:      log,
	}
}

func (j *ReplacementsChecker) Name() string {
	return replacementsCheckerName
}

func (j *ReplacementsChecker) Trigger() jobs.Trigger {
	return jobs.IntervalTrigger{Every: replacementsInterval}
}

// Run ошибки МЭШ по отдельным пользователям только логируются, 401 разбирает NotificationsChecker
func (j *ReplacementsChecker) Run(ctx context.Context) error {
	users, err := j.userRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	var created, failed int
	for i := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := j.events.CreateReplacementReminders(ctx, &users[i])
		created += n
		if err != nil {
			failed++
			j.log.Warn("replacement check failed", "user_id", users[i].UserID, "error", err)
		}
	}

	j.log.Debug("replacement check finished", "users", len(users), "created", created, "failed", failed)
	return nil
}
