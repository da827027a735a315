package testfakes

import (
	"context"
	"sync"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

// Mes фейковый МЭШ: данные по дням и счётчики вызовов
type Mes struct {
	mu    sync.Mutex
	Calls map[string]int

	Notifications    []domain.MesNotification
	NotificationsErr error

	Events    []domain.ScheduleEvent
	EventsErr error

	Homeworks    []domain.Homework
	HomeworksErr error

	Marks    []domain.Mark
	MarksErr error

	Subjects     []domain.Subject
	Visits       []domain.VisitDay
	SubjectMarks map[int64]*domain.SubjectMarks
	Calendar     []domain.CalendarEntry
	Rank         *domain.RatingRank

	Profile    *domain.FamilyProfile
	ProfileErr error

	SessionID string
	LoginErr  error
	SMSTokens *domain.TokenSet
	SMSErr    error

	RefreshTokens *domain.TokenSet
	RefreshErr    error
	// RefreshErrs ошибки по очереди на каждый вызов, потом RefreshErr
	RefreshErrs []error

	QRPayload string
	QRTokens  *domain.TokenSet
	QRErr     error
}

func NewMes() *Mes {
	return &Mes{Calls: make(map[string]int), SubjectMarks: make(map[int64]*domain.SubjectMarks)}
}

func (m *Mes) call(name string) {
	m.mu.Lock()
	m.Calls[name]++
	m.mu.Unlock()
}

// CallCount сколько раз вызван метод
func (m *Mes) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[name]
}

func inRange(t, from, to time.Time) bool {
	day := domain.Day(t)
	return !day.Before(domain.Day(from)) && !day.After(domain.Day(to))
}

func (m *Mes) GetEvents(ctx context.Context, token, personID string, from, to time.Time) ([]domain.ScheduleEvent, error) {
	m.call("GetEvents")
	if m.EventsErr != nil {
		return nil, m.EventsErr
	}
	var out []domain.ScheduleEvent
	for _, e := range m.Events {
		if inRange(e.StartAt.Time, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Mes) GetHomeworks(ctx context.Context, token string, studentID int64, from, to time.Time) ([]domain.Homework, error) {
	m.call("GetHomeworks")
	if m.HomeworksErr != nil {
		return nil, m.HomeworksErr
	}
	var out []domain.Homework
	for _, h := range m.Homeworks {
		if inRange(h.Date.Time, from, to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *Mes) GetMarks(ctx context.Context, token string, studentID int64, from, to time.Time) ([]domain.Mark, error) {
	m.call("GetMarks")
	if m.MarksErr != nil {
		return nil, m.MarksErr
	}
	var out []domain.Mark
	for _, mk := range m.Marks {
		if inRange(mk.Date.Time, from, to) {
			out = append(out, mk)
		}
	}
	return out, nil
}

func (m *Mes) GetNotifications(ctx context.Context, token string, studentID int64) ([]domain.MesNotification, error) {
	m.call("GetNotifications")
	return m.Notifications, m.NotificationsErr
}

func (m *Mes) GetSubjects(ctx context.Context, token string, studentID int64) ([]domain.Subject, error) {
	m.call("GetSubjects")
	return m.Subjects, nil
}

func (m *Mes) GetVisits(ctx context.Context, token string, contractID int64, from, to time.Time) ([]domain.VisitDay, error) {
	m.call("GetVisits")
	var out []domain.VisitDay
	for _, v := range m.Visits {
		if inRange(v.Date.Time, from, to) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *Mes) GetSubjectMarksForSubject(ctx context.Context, token string, studentID, subjectID int64) (*domain.SubjectMarks, error) {
	m.call("GetSubjectMarksForSubject")
	sm, ok := m.SubjectMarks[subjectID]
	if !ok {
		return &domain.SubjectMarks{SubjectID: subjectID}, nil
	}
	return sm, nil
}

func (m *Mes) GetPeriodsSchedules(ctx context.Context, token string, studentID int64, from, to time.Time) ([]domain.CalendarEntry, error) {
	m.call("GetPeriodsSchedules")
	return m.Calendar, nil
}

func (m *Mes) GetFamilyProfile(ctx context.Context, token string) (*domain.FamilyProfile, error) {
	m.call("GetFamilyProfile")
	return m.Profile, m.ProfileErr
}

func (m *Mes) GetRatingRankClass(ctx context.Context, token, personID string, date time.Time) (*domain.RatingRank, error) {
	m.call("GetRatingRankClass")
	return m.Rank, nil
}

func (m *Mes) Login(ctx context.Context, username, password string) (service.SMSHandle, error) {
	m.call("Login")
	if m.LoginErr != nil {
		return nil, m.LoginErr
	}
	return m.NewSMSHandle(m.SessionID), nil
}

func (m *Mes) NewSMSHandle(sessionID string) service.SMSHandle {
	return &smsHandle{mes: m, sessionID: sessionID}
}

type smsHandle struct {
	mes       *Mes
	sessionID string
}

func (h *smsHandle) SessionID() string { return h.sessionID }

func (h *smsHandle) EnterCode(ctx context.Context, code string) (*domain.TokenSet, error) {
	h.mes.call("EnterCode")
	return h.mes.SMSTokens, h.mes.SMSErr
}

func (m *Mes) RefreshToken(ctx context.Context, refreshToken, clientID, clientSecret string) (*domain.TokenSet, error) {
	m.call("RefreshToken")
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.RefreshErrs) > 0 {
		err := m.RefreshErrs[0]
		m.RefreshErrs = m.RefreshErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if m.RefreshErr != nil {
		return nil, m.RefreshErr
	}
	return m.RefreshTokens, nil
}

func (m *Mes) QRLogin(ctx context.Context, onQR func(payload string) error) (*domain.TokenSet, error) {
	m.call("QRLogin")
	if err := onQR(m.QRPayload); err != nil {
		return nil, err
	}
	return m.QRTokens, m.QRErr
}

var _ service.IMesAPI = (*Mes)(nil)
