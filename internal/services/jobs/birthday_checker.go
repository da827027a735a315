package jobs

import (
	"context"
	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
	birthdayUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/birthday"
)

const birthdayCheckerName = "birthday_checker"

// BirthdayChecker поздравляет именинников, каждый день в 10:00 по Мск
type BirthdayChecker struct {
	birthday *birthdayUsecase.Service
	log      *slog.Logger
}

func NewBirthdayChecker(birthday *birthdayUsecase.Service, log *slog.Logger) *BirthdayChecker {
	return &BirthdayChecker{birthday: birthday, log: log}
}

func (j *BirthdayChecker) Name() string {
	return birthdayCheckerName
}

func (j *BirthdayChecker) Trigger() jobs.Trigger {
	return jobs.DailyTrigger{Hour: 10, Location: domain.MesLocation}
}

func (j *BirthdayChecker) Run(ctx context.Context) error {
	sent, err := j.birthday.Greet(ctx)
	if sent > 0 {
		j.log.Info("birthday greetings sent", "count", sent)
	}
	return err
}
