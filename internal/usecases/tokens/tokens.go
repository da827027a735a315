package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

type Config struct {
	PasswordPreroll time.Duration `envconfig:"PASSWORD_PREROLL" default:"16h"`
	// RetryDelay пауза перед повтором после временной ошибки обновления
	RetryDelay time.Duration `envconfig:"REFRESH_RETRY_DELAY" default:"10m"`
}

const defaultRetryDelay = 10 * time.Minute

const ReauthPrompt = "🔒 Сессия МЭШ истекла. Войдите заново, чтобы бот продолжил присылать оценки и домашние задания."

// ReauthKeyboard клавиатура со способами входа
func ReauthKeyboard() *domain.Keyboard {
	return &domain.Keyboard{Inline: [][]domain.InlineButton{
		{{Text: "🔑 Логин и пароль", CallbackData: "auth:password"}},
		{{Text: "📷 QR код", CallbackData: "auth:qr"}, {Text: "🧾 Токен", CallbackData: "auth:token"}},
	}}
}

// ExpiryFromToken читает exp из payload jwt без проверки подписи
func ExpiryFromToken(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed token: %v", domain.ErrValidation, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: token has no exp claim", domain.ErrValidation)
	}
	return claims.ExpiresAt.Time, nil
}

func JobName(userID int64) string {
	return fmt.Sprintf("refresh_token_%d", userID)
}

// Service хранит токены МЭШ свежими: обновляет их заранее по расписанию
type Service struct {
	UserRepo  repository.IUserRepo
	AuthRepo  repository.IAuthRepo
	Mes       service.IMesAPI
	Scheduler jobs.IScheduler
	Outbound  service.IOutbound
	Clock     clock.Clock
	Log       *slog.Logger

	passwordPreroll time.Duration
	retryDelay      time.Duration
}

func New(
	cfg *Config,
	userRepo repository.IUserRepo,
	authRepo repository.IAuthRepo,
	mes service.IMesAPI,
	scheduler jobs.IScheduler,
	outbound service.IOutbound,
	clk clock.Clock,
	log *slog.Logger,
) *Service {
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Service{
		UserRepo:        userRepo,
		AuthRepo:        authRepo,
		Mes:             mes,
		Scheduler:       scheduler,
		Outbound:        outbound,
		Clock:           clk,
		Log:             log,
		passwordPreroll: cfg.PasswordPreroll,
		retryDelay:      retryDelay,
	}
}

// Preroll насколько раньше истечения обновлять токен. Токены без refresh не обновляются
func (s *Service) Preroll(method domain.AuthMethod) time.Duration {
	if method == domain.AuthMethodPassword {
		return s.passwordPreroll
	}
	return 0
}

func (s *Service) RefreshAt(auth *domain.AuthData) time.Time {
	return auth.TokenExpiredAt.Add(-s.Preroll(auth.AuthMethod))
}

// Schedule ставит задачу refresh_token_{uid}, прежняя задача заменяется
func (s *Service) Schedule(ctx context.Context, userID int64) error {
	auth, err := s.AuthRepo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load auth data: %w", err)
	}
	return s.schedule(auth)
}

func (s *Service) schedule(auth *domain.AuthData) error {
	if !auth.CanRefresh() {
		return nil
	}

	return s.scheduleAt(auth.UserID, s.RefreshAt(auth))
}

func (s *Service) scheduleAt(userID int64, at time.Time) error {
	err := s.Scheduler.Add(JobName(userID), jobs.DateTrigger{At: at}, func(ctx context.Context) error {
		return s.Refresh(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("schedule token refresh: %w", err)
	}

	s.Log.Debug("token refresh scheduled", "user_id", userID, "at", at)
	return nil
}

// Refresh обновляет токен по refresh grant. Токен, refresh и срок пишутся одной транзакцией.
// После временной ошибки задача refresh_token_{uid} переставляется на RetryDelay вперёд
func (s *Service) Refresh(ctx context.Context, userID int64) error {
	var expiresAt time.Time
	err := s.refresh(ctx, userID, &expiresAt)
	if err == nil || ctx.Err() != nil {
		return err
	}

	at := s.Clock.Now().Add(s.retryDelay)
	if expiresAt.After(s.Clock.Now()) && at.After(expiresAt) {
		at = expiresAt
	}
	if schedErr := s.scheduleAt(userID, at); schedErr != nil {
		s.Log.Error("failed to schedule refresh retry", "user_id", userID, "error", schedErr)
	} else {
		s.Log.Warn("token refresh failed, retry scheduled", "user_id", userID, "retry_at", at, "error", err)
	}
	return err
}

// refresh expiresAt получает срок текущего токена, если он известен
func (s *Service) refresh(ctx context.Context, userID int64, expiresAt *time.Time) error {
	auth, err := s.AuthRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Log.Debug("no auth data, refresh skipped", "user_id", userID)
			return nil
		}
		return fmt.Errorf("load auth data: %w", err)
	}
	*expiresAt = auth.TokenExpiredAt
	if auth.AuthMethod != domain.AuthMethodPassword {
		return nil
	}
	if !auth.CanRefresh() {
		s.Log.Warn("password auth without refresh credentials", "user_id", userID)
		return nil
	}

	tokens, err := s.Mes.RefreshToken(ctx, *auth.TokenForRefresh, *auth.ClientID, *auth.ClientSecret)
	if err != nil {
		if domain.IsUnauthorized(err) {
			s.Log.Info("refresh token rejected, user deactivated", "user_id", userID)
			return s.DeactivateAndPrompt(ctx, userID)
		}
		return fmt.Errorf("refresh token for user %d: %w", userID, err)
	}

	expiry, err := ExpiryFromToken(tokens.AccessToken)
	if err != nil {
		return fmt.Errorf("refreshed token for user %d: %w", userID, err)
	}

	refresh := tokens.RefreshToken
	if refresh == "" {
		refresh = *auth.TokenForRefresh
	}

	err = s.UserRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		if err := s.UserRepo.UpdateTokenTx(ctx, tx, userID, tokens.AccessToken); err != nil {
			return err
		}
		return s.AuthRepo.UpdateRefreshTx(ctx, tx, userID, refresh, expiry)
	})
	if err != nil {
		return fmt.Errorf("save refreshed token: %w", err)
	}

	auth.TokenForRefresh = &refresh
	auth.TokenExpiredAt = expiry

	s.Log.Info("token refreshed", "user_id", userID, "expires_at", expiry)
	return s.schedule(auth)
}

// RestoreOnStartup восстанавливает задачи после рестарта. Просроченные обновляются сразу
func (s *Service) RestoreOnStartup(ctx context.Context) error {
	list, err := s.AuthRepo.ListByMethod(ctx, domain.AuthMethodPassword)
	if err != nil {
		return fmt.Errorf("list password auth data: %w", err)
	}

	now := s.Clock.Now()
	var refreshed, scheduled, failed int
	for i := range list {
		auth := &list[i]
		if s.RefreshAt(auth).After(now) {
			if err := s.schedule(auth); err != nil {
				failed++
				s.Log.Error("failed to restore refresh job", "user_id", auth.UserID, "error", err)
				continue
			}
			scheduled++
			continue
		}

		if err := s.Refresh(ctx, auth.UserID); err != nil {
			failed++
			s.Log.Error("startup token refresh failed", "user_id", auth.UserID, "error", err)
			continue
		}
		refreshed++
	}

	s.Log.Info("token refresh jobs restored",
		"scheduled", scheduled,
		"refreshed", refreshed,
		"failed", failed)
	return nil
}

// DeactivateAndPrompt active=false, токен остаётся. Пользователь получает приглашение войти заново
func (s *Service) DeactivateAndPrompt(ctx context.Context, userID int64) error {
	if err := s.UserRepo.SetActive(ctx, userID, false); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	s.Scheduler.Remove(JobName(userID))

	user, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	msg := domain.OutgoingMessage{ChatID: user.ChatID, Text: ReauthPrompt, Keyboard: ReauthKeyboard()}
	if err := s.Outbound.Send(ctx, msg); err != nil {
		s.Log.Warn("failed to send reauth prompt", "user_id", userID, "error", err)
	}
	return nil
}
