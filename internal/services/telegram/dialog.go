package telegram

import (
	"context"
	"errors"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
)

const dialogView = "dialog"

// Шаги диалога: чего бот ждёт следующим сообщением
const (
	stepLogin    = "login"
	stepPassword = "password"
	stepCode     = "code"
	stepToken    = "token"
	stepGdz      = "gdz"
	stepBook     = "book"
	stepGift     = "gift"
	stepTopUp    = "topup"
)

// dialog незавершённый вопрос бота
type dialog struct {
	Step        string `json:"step"`
	Login       string `json:"login,omitempty"`
	SubjectID   int64  `json:"subject_id,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	PlanID      string `json:"plan_id,omitempty"`
}

func dialogKey(userID int64) string {
	return cache.Key(dialogView, userID)
}

func (s *Service) loadDialog(ctx context.Context, userID int64) *dialog {
	d, err := cache.GetJSON[dialog](ctx, s.Dialogs, dialogKey(userID))
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.Log.Warn("failed to load dialog", "user_id", userID, "error", err)
		}
		return nil
	}
	return d
}

func (s *Service) ask(ctx context.Context, userID int64, d *dialog) {
	if err := cache.SetJSON(ctx, s.Dialogs, dialogKey(userID), DialogTTL, d); err != nil {
		s.Log.Warn("failed to save dialog", "user_id", userID, "step", d.Step, "error", err)
	}
}

func (s *Service) endDialog(ctx context.Context, userID int64) {
	if err := s.Dialogs.Delete(ctx, dialogKey(userID)); err != nil {
		s.Log.Warn("failed to drop dialog", "user_id", userID, "error", err)
	}
}
