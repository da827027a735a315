package jobs

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
	eventsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/events"
	tokensUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/tokens"
)

const (
	notificationsCheckerName = "new_notifications_checker"
	notificationsInterval    = time.Minute
)

// NotificationsChecker раз в минуту забирает новые события МЭШ всех активных пользователей
// и рассылает их вместе с отложенными сообщениями бота
type NotificationsChecker struct {
	userRepo repository.IUserRepo
	events   *eventsUsecase.Service
	tokens   *tokensUsecase.Service
	outbound service.IOutbound
	limiter  *rate.Limiter
	clock    clock.Clock
	log      *slog.Logger
}

// NewNotificationsChecker perSecond ограничивает исходящие сообщения, 0 без ограничения
func NewNotificationsChecker(
	userRepo repository.IUserRepo,
	events *eventsUsecase.Service,
	tokens *tokensUsecase.Service,
	outbound service.IOutbound,
	perSecond float64,
	clk clock.Clock,
	log *slog.Logger,
) *NotificationsChecker {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &NotificationsChecker{
		userRepo: userRepo,
		events:   events,
		tokens:   tokens,
		outbound: outbound,
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clk,
		log:      log,
	}
}

func (j *NotificationsChecker) Name() string {
	return notificationsCheckerName
}

func (j *NotificationsChecker) Trigger() jobs.Trigger {
	return jobs.IntervalTrigger{Every: notificationsInterval}
}

// Run ошибки отдельных пользователей логируются и не прерывают обход
func (j *NotificationsChecker) Run(ctx context.Context) error {
	users, err := j.userRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	var sent, failed int
	for i := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, ok := j.checkUser(ctx, &users[i])
		sent += n
		if !ok {
			failed++
		}
	}

	j.log.Debug("notifications check finished",
		"users", len(users),
		"sent", sent,
		"failed", failed,
	)
	return nil
}

func (j *NotificationsChecker) checkUser(ctx context.Context, user *domain.User) (int, bool) {
	deltas, err := j.events.Poll(ctx, user, eventsUsecase.Background)
	if err != nil {
		if domain.IsUnauthorized(err) {
			j.log.Info("mes token rejected, asking user to log in again", "user_id", user.UserID)
			if err := j.tokens.DeactivateAndPrompt(ctx, user.UserID); err != nil {
				j.log.Error("failed to deactivate user", "user_id", user.UserID, "error", err)
			}
			return 0, false
		}
		j.log.Warn("events poll failed", "user_id", user.UserID, "error", err)
		return 0, false
	}

	sent := 0
	for _, d := range deltas {
		if j.send(ctx, user.ChatID, string(d.Event.EventType), d.Message) {
			sent++
		}
	}

	notes, err := j.events.PollBotNotifications(ctx, user.UserID)
	if err != nil {
		j.log.Warn("bot notifications poll failed", "user_id", user.UserID, "error", err)
		return sent, false
	}
	for _, n := range notes {
		if j.send(ctx, user.ChatID, "bot", n.Text) {
			sent++
		}
		if ctx.Err() != nil {
			break
		}
		// отмечается и после ошибки отправки, повторно не шлётся
		if err := j.events.MarkBotNotificationSent(ctx, n.ID); err != nil {
			j.log.Warn("failed to mark bot notification", "user_id", user.UserID, "id", n.ID, "error", err)
		}
	}
	return sent, true
}

// send ошибка отправки только логируется
func (j *NotificationsChecker) send(ctx context.Context, chatID int64, kind, text string) bool {
	if err := j.limiter.Wait(ctx); err != nil {
		return false
	}
	err := j.outbound.Send(ctx, domain.OutgoingMessage{ChatID: chatID, Text: text})
	metrics.NotificationsSent.WithLabelValues(kind, metrics.Result(err)).Inc()
	if err != nil {
		j.log.Warn("failed to send notification", "chat_id", chatID, "kind", kind, "error", err)
		return false
	}
	return true
}
