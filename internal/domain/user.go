package domain

import (
	"time"
)

// User пользователь бота, user_id = telegram id
type User struct {
	UserID     int64      `json:"user_id" db:"user_id"`
	ChatID     int64      `json:"chat_id" db:"chat_id"`
	FirstName  string     `json:"first_name" db:"first_name"`
	Active     bool       `json:"active" db:"active"`
	ProfileID  int64      `json:"profile_id" db:"profile_id"`
	Role       string     `json:"role" db:"role"`
	PersonID   string     `json:"person_id" db:"person_id"`
	StudentID  int64      `json:"student_id" db:"student_id"`
	ContractID int64      `json:"contract_id" db:"contract_id"`
	Token      string     `json:"-" db:"token"`
	Birthday   *time.Time `json:"birthday,omitempty" db:"birthday"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// AuthMethod способ входа в МЭШ
type AuthMethod string

const (
	AuthMethodPassword AuthMethod = "password"
	AuthMethodToken    AuthMethod = "token"
	AuthMethodQR       AuthMethod = "qr"
)

func (m AuthMethod) IsValid() bool {
	switch m {
	case AuthMethodPassword, AuthMethodToken, AuthMethodQR:
		return true
	default:
		return false
	}
}

// AuthData данные авторизации, refresh-тройка заполнена только для password
type AuthData struct {
	UserID          int64      `json:"user_id" db:"user_id"`
	AuthMethod      AuthMethod `json:"auth_method" db:"auth_method"`
	TokenExpiredAt  time.Time  `json:"token_expired_at" db:"token_expired_at"`
	TokenForRefresh *string    `json:"-" db:"token_for_refresh"`
	ClientID        *string    `json:"-" db:"client_id"`
	ClientSecret    *string    `json:"-" db:"client_secret"`
}

// CanRefresh true если есть всё необходимое для обновления токена
func (a *AuthData) CanRefresh() bool {
	return a.AuthMethod == AuthMethodPassword &&
		a.TokenForRefresh != nil && a.ClientID != nil && a.ClientSecret != nil
}

// Settings пользовательские флаги
type Settings struct {
	UserID                       int64 `json:"user_id" db:"user_id"`
	EnableNewMarkNotification    bool  `json:"enable_new_mark_notification" db:"enable_new_mark_notification"`
	EnableHomeworkNotification   bool  `json:"enable_homework_notification" db:"enable_homework_notification"`
	SkipEmptyDaysHomeworks       bool  `json:"skip_empty_days_homeworks" db:"skip_empty_days_homeworks"`
	SkipEmptyDaysSchedule        bool  `json:"skip_empty_days_schedule" db:"skip_empty_days_schedule"`
	NextDayIfLessonsEndHomeworks bool  `json:"next_day_if_lessons_end_homeworks" db:"next_day_if_lessons_end_homeworks"`
	NextDayIfLessonsEndSchedule  bool  `json:"next_day_if_lessons_end_schedule" db:"next_day_if_lessons_end_schedule"`
	UseCache                     bool  `json:"use_cache" db:"use_cache"`
	ExperimentalFeatures         bool  `json:"experimental_features" db:"experimental_features"`
	EnableHomeworkDoneFunction   bool  `json:"enable_homework_done_function" db:"enable_homework_done_function"`
}

// DefaultSettings уведомления включены, экспериментальное выключено
func DefaultSettings(userID int64) *Settings {
	return &Settings{
		UserID:                       userID,
		EnableNewMarkNotification:    true,
		EnableHomeworkNotification:   true,
		SkipEmptyDaysHomeworks:       true,
		SkipEmptyDaysSchedule:        true,
		NextDayIfLessonsEndHomeworks: true,
		NextDayIfLessonsEndSchedule:  true,
		UseCache:                     true,
	}
}

// SessionState состояние сессии пользователя
type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionPendingSMS      SessionState = "pending_sms"
	SessionAuthenticated   SessionState = "authenticated"
	SessionRefreshing      SessionState = "refreshing"
	SessionExpired         SessionState = "expired"
)
