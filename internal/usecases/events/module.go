package events

import (
	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

// Service журнал событий МЭШ и выдача новых уведомлений
type Service struct {
	EventRepo        repository.IEventRepo
	NotificationRepo repository.INotificationRepo
	SettingsRepo     repository.ISettingsRepo
	Mes              service.IMesAPI
	Invalidations    queue.IInvalidationQueue
	Clock            clock.Clock
	Log              *slog.Logger
}

func New(
	eventRepo repository.IEventRepo,
	notificationRepo repository.INotificationRepo,
	settingsRepo repository.ISettingsRepo,
	mes service.IMesAPI,
	invalidations queue.IInvalidationQueue,
	clk clock.Clock,
	log *slog.Logger,
) *Service {
	return &Service{
		EventRepo:        eventRepo,
		NotificationRepo: notificationRepo,
		SettingsRepo:     settingsRepo,
		Mes:              mes,
		Invalidations:    invalidations,
		Clock:            clk,
		Log:              log,
	}
}
