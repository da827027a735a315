package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/validation"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
	"github.com/admin/tg-bots/learnify-bot/internal/usecases/tokens"
)

const pendingView = "auth_pending"

type passwordInput struct {
	Login    string `validate:"required,max=128"`
	Password string `validate:"required,max=128"`
}

type codeInput struct {
	Code string `validate:"required,numeric,min=4,max=8"`
}

type tokenInput struct {
	Token string `validate:"required,jwt"`
}

// pendingSMS второй шаг входа по паролю, живёт в кэше PendingSMSTTL
type pendingSMS struct {
	SessionID string `json:"session_id"`
	ChatID    int64  `json:"chat_id"`
}

func pendingKey(userID int64) string {
	return cache.Key(pendingView, userID)
}

// Identity кто входит: telegram пользователь и чат
type Identity struct {
	UserID    int64
	ChatID    int64
	FirstName string
}

// StartPassword первый шаг: логин и пароль, МЭШ отправляет SMS
func (s *Service) StartPassword(ctx context.Context, id Identity, login, password string) error {
	in := passwordInput{Login: strings.TrimSpace(login), Password: password}
	if err := validation.Struct(&in); err != nil {
		return err
	}

	handle, err := s.Mes.Login(ctx, in.Login, in.Password)
	if err != nil {
		return fmt.Errorf("mes login: %w", err)
	}

	state := &pendingSMS{SessionID: handle.SessionID(), ChatID: id.ChatID}
	if err := cache.SetJSON(ctx, s.Cache, pendingKey(id.UserID), PendingSMSTTL, state); err != nil {
		return fmt.Errorf("save pending sms login: %w", err)
	}

	s.Log.Info("sms code requested", "user_id", id.UserID)
	return nil
}

// ConfirmSMS второй шаг: код из SMS
func (s *Service) ConfirmSMS(ctx context.Context, id Identity, code string) (*domain.User, error) {
	in := codeInput{Code: strings.TrimSpace(code)}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	pending, err := cache.GetJSON[pendingSMS](ctx, s.Cache, pendingKey(id.UserID))
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: no pending sms login", domain.ErrValidation)
		}
		return nil, fmt.Errorf("load pending sms login: %w", err)
	}

	set, err := s.Mes.NewSMSHandle(pending.SessionID).EnterCode(ctx, in.Code)
	if err != nil {
		return nil, fmt.Errorf("mes sms code: %w", err)
	}

	user, err := s.complete(ctx, id, domain.AuthMethodPassword, set)
	if err != nil {
		return nil, err
	}

	if err := s.Cache.Delete(ctx, pendingKey(id.UserID)); err != nil {
		s.Log.Warn("failed to drop pending sms login", "user_id", id.UserID, "error", err)
	}
	return user, nil
}

// LoginWithToken вход по готовому токену МЭШ
func (s *Service) LoginWithToken(ctx context.Context, id Identity, token string) (*domain.User, error) {
	in := tokenInput{Token: strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	return s.complete(ctx, id, domain.AuthMethodToken, &domain.TokenSet{AccessToken: in.Token})
}

// LoginWithQR вход по QR коду. onQR показывает код пользователю.
// Таймаут и отказ МЭШ ничего не меняют в базе
func (s *Service) LoginWithQR(ctx context.Context, id Identity, onQR func(payload string) error) (*domain.User, error) {
	set, err := s.Mes.QRLogin(ctx, onQR)
	if err != nil {
		return nil, fmt.Errorf("mes qr login: %w", err)
	}
	return s.complete(ctx, id, domain.AuthMethodQR, set)
}

// State состояние сессии пользователя
func (s *Service) State(ctx context.Context, userID int64) (domain.SessionState, error) {
	if _, err := s.Cache.Get(ctx, pendingKey(userID)); err == nil {
		return domain.SessionPendingSMS, nil
	}

	user, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SessionUnauthenticated, nil
		}
		return "", err
	}
	if !user.Active {
		return domain.SessionExpired, nil
	}
	return domain.SessionAuthenticated, nil
}

// complete профиль из МЭШ, затем пользователь, AuthData и настройки одной транзакцией
func (s *Service) complete(ctx context.Context, id Identity, method domain.AuthMethod, set *domain.TokenSet) (*domain.User, error) {
	if set == nil || set.AccessToken == "" {
		return nil, domain.ErrNoToken
	}

	expiry, err := tokens.ExpiryFromToken(set.AccessToken)
	if err != nil {
		return nil, err
	}

	auth := &domain.AuthData{UserID: id.UserID, AuthMethod: method, TokenExpiredAt: expiry}
	if method == domain.AuthMethodPassword {
		if set.RefreshToken == "" || set.ClientID == "" || set.ClientSecret == "" {
			return nil, fmt.Errorf("password login: refresh credentials missing: %w", domain.ErrNoToken)
		}
		auth.TokenForRefresh = &set.RefreshToken
		auth.ClientID = &set.ClientID
		auth.ClientSecret = &set.ClientSecret
	}

	profile, err := s.Mes.GetFamilyProfile(ctx, set.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("get family profile: %w", err)
	}
	if len(profile.Children) == 0 {
		return nil, fmt.Errorf("%w: profile has no students", domain.ErrValidation)
	}
	child := profile.Children[0]

	firstName := id.FirstName
	if firstName == "" {
		firstName = child.FirstName
	}
	user := &domain.User{
		UserID:     id.UserID,
		ChatID:     id.ChatID,
		FirstName:  firstName,
		Active:     true,
		ProfileID:  profile.Profile.ID,
		Role:       profile.Profile.Type,
		PersonID:   child.PersonGUID,
		StudentID:  child.ID,
		ContractID: child.ContractID,
		Token:      set.AccessToken,
	}
	if child.BirthDate != nil && !child.BirthDate.IsZero() {
		birthday := child.BirthDate.Time
		user.Birthday = &birthday
	}

	err = s.UserRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		if err := s.UserRepo.UpsertTx(ctx, tx, user); err != nil {
			return err
		}
		if err := s.AuthRepo.UpsertTx(ctx, tx, auth); err != nil {
			return err
		}
		return s.SettingsRepo.CreateDefaultTx(ctx, tx, id.UserID)
	})
	if err != nil {
		return nil, fmt.Errorf("save login of user %d: %w", id.UserID, err)
	}

	if err := s.Refresher.Schedule(ctx, id.UserID); err != nil {
		s.Log.Error("failed to schedule token refresh", "user_id", id.UserID, "error", err)
	}

	s.Log.Info("user logged in",
		"user_id", id.UserID,
		"method", method,
		"student_id", user.StudentID,
		"expires_at", expiry)
	return user, nil
}
