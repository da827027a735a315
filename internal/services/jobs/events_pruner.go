package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
	eventsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/events"
)

const eventsPrunerName = "events_pruner"

// EventsPruner удаляет события старше retention, каждый день в 04:00 по Мск.
// Регистрируется только при EVENTS_RETENTION_DAYS > 0
type EventsPruner struct {
	events    *eventsUsecase.Service
	retention time.Duration
	log       *slog.Logger
}

func NewEventsPruner(events *eventsUsecase.Service, retentionDays int, log *slog.Logger) *EventsPruner {
	return &EventsPruner{
		events:    events,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		log:       log,
	}
}

func (j *EventsPruner) Name() string {
	return eventsPrunerName
}

func (j *EventsPruner) Trigger() jobs.Trigger {
	return jobs.DailyTrigger{Hour: 4, Location: domain.MesLocation}
}

func (j *EventsPruner) Run(ctx context.Context) error {
	deleted, err := j.events.PruneEvents(ctx, j.retention)
	if err != nil {
		return err
	}
	j.log.Info("old events pruned", "deleted", deleted, "retention", j.retention.String())
	return nil
}
