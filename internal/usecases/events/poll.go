package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
)

// Mode кто запросил опрос
type Mode int

const (
	// Background фоновый checker, применяются настройки уведомлений
	Background Mode = iota
	// Interactive запрос пользователя, выдаются все события
	Interactive
)

type candidate struct {
	event        domain.Event
	notification *domain.MesNotification
	handler      handler
}

type studentKey struct {
	studentID int64
	key       domain.DedupKey
}

// Poll забирает уведомления МЭШ и возвращает новые в порядке МЭШ.
// Все новые события пишутся одной транзакцией до любой отправки, сообщение получают только реально вставленные
func (s *Service) Poll(ctx context.Context, user *domain.User, mode Mode) ([]domain.Delta, error) {
	notifications, err := s.Mes.GetNotifications(ctx, user.Token, user.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get notifications for user %d: %w", user.UserID, err)
	}
	if len(notifications) == 0 {
		return nil, nil
	}

	candidates, err := s.collectNew(ctx, user, notifications)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	batch := make([]domain.Event, len(candidates))
	for i := range candidates {
		batch[i] = candidates[i].event
	}

	var inserted []domain.Event
	err = s.EventRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		var err error
		inserted, err = s.EventRepo.InsertBatchTx(ctx, tx, batch)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store events for user %d: %w", user.UserID, err)
	}

	stored := make(map[studentKey]bool, len(inserted))
	for i := range inserted {
		stored[studentKey{inserted[i].StudentID, inserted[i].Key()}] = true
	}

	settings := s.settingsFor(ctx, user.UserID, mode)

	var deltas []domain.Delta
	invalidated := make(map[string]bool)
	for _, c := range candidates {
		if !stored[studentKey{c.event.StudentID, c.event.Key()}] {
			continue
		}
		metrics.EventsStored.WithLabelValues(c.event.EventType).Inc()

		if !invalidated[c.event.EventType] {
			invalidated[c.event.EventType] = true
			s.Invalidations.Enqueue(ctx, queue.Invalidation{UserID: user.UserID, EventType: c.event.EventType})
		}

		if mode == Background && !c.handler.enabled(settings) {
			continue
		}
		deltas = append(deltas, domain.Delta{Event: c.event, Message: c.handler.format(c.notification)})
	}

	s.Log.Debug("notifications polled",
		"user_id", user.UserID,
		"received", len(notifications),
		"stored", len(inserted),
		"emitted", len(deltas))
	return deltas, nil
}

// collectNew отбрасывает неизвестные типы, уже виденные ключи и повторы внутри пачки
func (s *Service) collectNew(ctx context.Context, user *domain.User, notifications []domain.MesNotification) ([]candidate, error) {
	seen := make(map[studentKey]bool)
	loaded := make(map[int64]bool)

	var out []candidate
	for i := range notifications {
		n := &notifications[i]
		h, ok := handlers[n.EventType]
		if !ok {
			continue
		}

		studentID := n.StudentProfileID
		if studentID == 0 {
			studentID = user.StudentID
		}

		if !loaded[studentID] {
			existing, err := s.EventRepo.ListByStudent(ctx, studentID)
			if err != nil {
				return nil, fmt.Errorf("load events of student %d: %w", studentID, err)
			}
			for j := range existing {
				seen[studentKey{studentID, existing[j].Key()}] = true
			}
			loaded[studentID] = true
		}

		event := domain.Event{
			StudentID:   studentID,
			EventType:   n.EventType,
			Date:        domain.CanonicalDate(n.Datetime.Time),
			TeacherID:   n.TeacherID,
			SubjectName: n.SubjectName,
		}
		key := studentKey{studentID, event.Key()}
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, candidate{event: event, notification: n, handler: h})
	}
	return out, nil
}

func (s *Service) settingsFor(ctx context.Context, userID int64, mode Mode) *domain.Settings {
	if mode == Interactive {
		return nil
	}
	settings, err := s.SettingsRepo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.Log.Warn("failed to load settings, defaults used", "user_id", userID, "error", err)
		}
		return domain.DefaultSettings(userID)
	}
	return settings
}

// PollBotNotifications ещё не отправленные напоминания бота. Старше суток удаляются перед выборкой
func (s *Service) PollBotNotifications(ctx context.Context, userID int64) ([]domain.BotNotification, error) {
	before := s.Clock.Now().Add(-botNotificationTTL)
	if _, err := s.NotificationRepo.DeleteOlderThan(ctx, userID, before); err != nil {
		return nil, fmt.Errorf("prune bot notifications: %w", err)
	}

	pending, err := s.NotificationRepo.ListPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bot notifications: %w", err)
	}
	return pending, nil
}

// MarkBotNotificationSent повторно напоминание не выдаётся
func (s *Service) MarkBotNotificationSent(ctx context.Context, id int64) error {
	if err := s.NotificationRepo.MarkSent(ctx, id, s.Clock.Now()); err != nil {
		return fmt.Errorf("mark bot notification %d sent: %w", id, err)
	}
	return nil
}

// PruneEvents удаляет события старше olderThan
func (s *Service) PruneEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	deleted, err := s.EventRepo.DeleteOlderThan(ctx, s.Clock.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	if deleted > 0 {
		s.Log.Info("old events pruned", "deleted", deleted)
	}
	return deleted, nil
}
