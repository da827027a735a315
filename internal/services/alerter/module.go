package alerter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

// DefaultWindow одинаковые алерты внутри окна отправляются один раз
const DefaultWindow = 10 * time.Minute

// Service реализует IAlerterService поверх клиента служебного чата
type Service struct {
	client service.IAlerterService
	window time.Duration
	clock  clock.Clock
	log    *slog.Logger

	mu   sync.Mutex
	sent map[string]time.Time
}

func New(client service.IAlerterService, window time.Duration, clk clock.Clock, log *slog.Logger) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		client: client,
		window: window,
		clock:  clk,
		log:    log,
		sent:   make(map[string]time.Time),
	}
}

// SendAlert повтор того же текста внутри окна подавляется
func (s *Service) SendAlert(ctx context.Context, message string) error {
	if s.client == nil {
		return fmt.Errorf("alerter client is not initialized")
	}

	if !s.admit(message) {
		s.log.Debug("alert suppressed", "message", message)
		return nil
	}

	if err := s.client.SendAlert(ctx, message); err != nil {
		s.forget(message)
		return err
	}
	return nil
}

func (s *Service) admit(message string) bool {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for msg, at := range s.sent {
		if now.Sub(at) >= s.window {
			delete(s.sent, msg)
		}
	}
	if _, ok := s.sent[message]; ok {
		return false
	}
	s.sent[message] = now
	return true
}

func (s *Service) forget(message string) {
	s.mu.Lock()
	delete(s.sent, message)
	s.mu.Unlock()
}
