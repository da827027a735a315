package jobs

import (
	"context"
	"fmt"

	"github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
)

// Job периодическая задача бота
type Job interface {
	Name() string
	Trigger() jobs.Trigger
	Run(ctx context.Context) error
}

// Register добавляет задачи в планировщик под их именами
func (s *Scheduler) Register(list ...Job) error {
	for _, j := range list {
		if err := s.Add(j.Name(), j.Trigger(), j.Run); err != nil {
			return fmt.Errorf("register job %s: %w", j.Name(), err)
		}
	}
	return nil
}
