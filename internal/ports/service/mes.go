package service

import (
	"context"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

// IMesAPI типизированный фасад над API МЭШ.
// Все ошибки ответа приходят как *domain.UpstreamError
type IMesAPI interface {
	GetEvents(ctx context.Context, token, personID string, from, to time.Time) ([]domain.ScheduleEvent, error)
	GetHomeworks(ctx context.Context, token string, studentID int64, from, to time.Time) ([]domain.Homework, error)
	GetMarks(ctx context.Context, token string, studentID int64, from, to time.Time) ([]domain.Mark, error)
	GetNotifications(ctx context.Context, token string, studentID int64) ([]domain.MesNotification, error)
	GetSubjects(ctx context.Context, token string, studentID int64) ([]domain.Subject, error)
	GetVisits(ctx context.Context, token string, contractID int64, from, to time.Time) ([]domain.VisitDay, error)
	GetSubjectMarksForSubject(ctx context.Context, token string, studentID, subjectID int64) (*domain.SubjectMarks, error)
	GetPeriodsSchedules(ctx context.Context, token string, studentID int64, from, to time.Time) ([]domain.CalendarEntry, error)
	GetFamilyProfile(ctx context.Context, token string) (*domain.FamilyProfile, error)
	GetRatingRankClass(ctx context.Context, token, personID string, date time.Time) (*domain.RatingRank, error)

	Login(ctx context.Context, username, password string) (SMSHandle, error)
	// NewSMSHandle восстанавливает второй шаг по сохранённому session_id
	NewSMSHandle(sessionID string) SMSHandle
	RefreshToken(ctx context.Context, refreshToken, clientID, clientSecret string) (*domain.TokenSet, error)
	// QRLogin вызывает onQR с содержимым QR кода и ждёт подтверждения
	QRLogin(ctx context.Context, onQR func(payload string) error) (*domain.TokenSet, error)
}

// SMSHandle второй шаг входа по паролю
type SMSHandle interface {
	SessionID() string
	EnterCode(ctx context.Context, code string) (*domain.TokenSet, error)
}
