package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

// PendingSMSTTL сколько живёт незавершённый вход по паролю
const PendingSMSTTL = 5 * time.Minute

// RefreshScheduler постановка обновления токена после входа
type RefreshScheduler interface {
	Schedule(ctx context.Context, userID int64) error
}

// Service вход в МЭШ: пароль с кодом из SMS, готовый токен или QR
type Service struct {
	Mes          service.IMesAPI
	UserRepo     repository.IUserRepo
	AuthRepo     repository.IAuthRepo
	SettingsRepo repository.ISettingsRepo
	Cache        cache.Cache
	Refresher    RefreshScheduler
	Clock        clock.Clock
	Log          *slog.Logger
}

func New(
	mes service.IMesAPI,
	userRepo repository.IUserRepo,
	authRepo repository.IAuthRepo,
	settingsRepo repository.ISettingsRepo,
	c cache.Cache,
	refresher RefreshScheduler,
	clk clock.Clock,
	log *slog.Logger,
) *Service {
	return &Service{
		Mes:          mes,
		UserRepo:     userRepo,
		AuthRepo:     authRepo,
		SettingsRepo: settingsRepo,
		Cache:        c,
		Refresher:    refresher,
		Clock:        clk,
		Log:          log,
	}
}
