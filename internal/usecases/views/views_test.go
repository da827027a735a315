package views

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/redis"
	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/testfakes"
	"github.com/admin/tg-bots/learnify-bot/internal/services/ttl"
)

type fixture struct {
	svc      *Service
	mes      *testfakes.Mes
	mr       *miniredis.Miniredis
	user     *domain.User
	settings *domain.Settings
	today    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := testfakes.NewUsers()
	settings := domain.DefaultSettings(42)
	users.Settings[42] = settings

	// вторник 15:00 по Москве
	now := time.Date(2025, 3, 11, 15, 0, 0, 0, domain.MesLocation)
	policy := ttl.NewPolicy(&ttl.Config{Short: time.Minute, Medium: 15 * time.Minute, Long: 6 * time.Hour}, domain.MesLocation)
	mes := testfakes.NewMes()

	return &fixture{
		svc:      New(mes, redisAdapter.NewClient(rdb), users.SettingsRepo(), policy, clock.NewFake(now), logger.Discard()),
		mes:      mes,
		mr:       mr,
		user:     &domain.User{UserID: 42, Token: "tok", StudentID: 1001, PersonID: "p-1", ContractID: 9},
		settings: settings,
		today:    domain.Day(now),
	}
}

func (f *fixture) homeworkOn(day time.Time, subject, text string) {
	f.mes.Homeworks = append(f.mes.Homeworks, domain.Homework{
		Date:        domain.MesTime{Time: day.Add(8 * time.Hour)},
		SubjectName: subject,
		Description: text,
	})
}

func TestHomework_SkipsEmptyDaysToTheRight(t *testing.T) {
	f := newFixture(t)
	f.settings.NextDayIfLessonsEndHomeworks = false
	target := f.today.AddDate(0, 0, 3)
	f.homeworkOn(target, "Алгебра", "№ 124, 125")

	v, err := f.svc.Homework(context.Background(), f.user, f.today, Right)
	require.NoError(t, err)

	assert.Equal(t, target, v.Date)
	assert.False(t, v.Empty)
	assert.Contains(t, v.Text, "<b>Алгебра</b>\n№ 124, 125")
	assert.Contains(t, v.Text, "Пятница, 14.03.2025")
	assert.Equal(t, 4, f.mes.CallCount("GetHomeworks"))

	assert.True(t, f.mr.Exists("homework:42:2025-03-14"))
	for _, empty := range []string{"2025-03-11", "2025-03-12", "2025-03-13"} {
		assert.False(t, f.mr.Exists("homework:42:"+empty), empty)
	}
}

func TestHomework_SkipIsBounded(t *testing.T) {
	f := newFixture(t)
	requested := f.today.AddDate(0, 0, -1)

	v, err := f.svc.Homework(context.Background(), f.user, requested, Left)
	require.NoError(t, err)

	assert.Equal(t, requested, v.Date)
	assert.True(t, v.Empty)
	assert.Contains(t, v.Text, noHomework)
	assert.Equal(t, MaxSkipDays, f.mes.CallCount("GetHomeworks"))

	keys, err := f.svc.Cache.Scan(context.Background(), "homework:42:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"homework:42:2025-03-10"}, keys)
}

func TestHomework_SkipDisabledStaysOnDate(t *testing.T) {
	f := newFixture(t)
	f.settings.SkipEmptyDaysHomeworks = false
	f.homeworkOn(f.today.AddDate(0, 0, 2), "Алгебра", "№ 1")

	v, err := f.svc.Homework(context.Background(), f.user, f.today.AddDate(0, 0, 1), Right)
	require.NoError(t, err)
	assert.True(t, v.Empty)
	assert.Equal(t, f.today.AddDate(0, 0, 1), v.Date)
	assert.Equal(t, 1, f.mes.CallCount("GetHomeworks"))
}

func TestHomework_NextDayWhenLessonsEnded(t *testing.T) {
	f := newFixture(t)
	f.mes.Events = []domain.ScheduleEvent{
		{StartAt: domain.MesTime{Time: f.today.Add(8 * time.Hour)}, FinishAt: domain.MesTime{Time: f.today.Add(14 * time.Hour)}},
	}
	f.homeworkOn(f.today, "История", "сегодня")
	f.homeworkOn(f.today.AddDate(0, 0, 1), "Физика", "завтра")

	v, err := f.svc.Homework(context.Background(), f.user, time.Time{}, Today)
	require.NoError(t, err)
	assert.Equal(t, f.today.AddDate(0, 0, 1), v.Date)
	assert.Contains(t, v.Text, "завтра")

	f.settings.NextDayIfLessonsEndHomeworks = false
	v, err = f.svc.Homework(context.Background(), f.user, time.Time{}, Today)
	require.NoError(t, err)
	assert.Equal(t, f.today, v.Date)
}

func TestHomework_ServedFromCache(t *testing.T) {
	f := newFixture(t)
	f.homeworkOn(f.today.AddDate(0, 0, 1), "Физика", "§3")
	ctx := context.Background()

	_, err := f.svc.Homework(ctx, f.user, f.today.AddDate(0, 0, 1), Exact)
	require.NoError(t, err)
	v, err := f.svc.Homework(ctx, f.user, f.today.AddDate(0, 0, 1), Exact)
	require.NoError(t, err)
	assert.Contains(t, v.Text, "§3")
	assert.Equal(t, 1, f.mes.CallCount("GetHomeworks"))
	assert.Equal(t, time.Minute, f.mr.TTL("homework:42:2025-03-12"))

	f.settings.UseCache = false
	_, err = f.svc.Homework(ctx, f.user, f.today.AddDate(0, 0, 1), Exact)
	require.NoError(t, err)
	assert.Equal(t, 2, f.mes.CallCount("GetHomeworks"))
}

func TestSchedule_FormatsLessons(t *testing.T) {
	f := newFixture(t)
	f.settings.NextDayIfLessonsEndSchedule = false
	f.mes.Events = []domain.ScheduleEvent{
		{StartAt: domain.MesTime{Time: f.today.Add(9*time.Hour + 30*time.Minute)}, FinishAt: domain.MesTime{Time: f.today.Add(10*time.Hour + 15*time.Minute)}, SubjectName: "Химия", Cancelled: true},
		{StartAt: domain.MesTime{Time: f.today.Add(8*time.Hour + 30*time.Minute)}, FinishAt: domain.MesTime{Time: f.today.Add(9*time.Hour + 15*time.Minute)}, SubjectName: "Литература", RoomNumber: "214"},
	}

	v, err := f.svc.Schedule(context.Background(), f.user, time.Time{}, Today)
	require.NoError(t, err)
	assert.Equal(t, f.today, v.Date)
	assert.Contains(t, v.Text, "1. 08:30-09:15 <b>Литература</b> каб. 214")
	assert.Contains(t, v.Text, "2. 09:30-10:15 <b>Химия</b> ❌ отменён")
}

func TestMarks_EmptyDayIsExplicit(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.Marks(context.Background(), f.user, f.today.AddDate(0, 0, 1), Right)
	require.NoError(t, err)
	assert.True(t, v.Empty)
	assert.Contains(t, v.Text, NoMarks)
	assert.Equal(t, 1, f.mes.CallCount("GetMarks"))

	f.mes.Marks = []domain.Mark{{Date: domain.MesTime{Time: f.today}, SubjectName: "Алгебра", Value: "5", Weight: 2, ControlFormName: "Самостоятельная"}}
	v, err = f.svc.Marks(context.Background(), f.user, time.Time{}, Today)
	require.NoError(t, err)
	assert.Contains(t, v.Text, "<b>Алгебра</b>: 5₂ - Самостоятельная")
}

func TestVisits_Week(t *testing.T) {
	f := newFixture(t)
	f.mes.Visits = []domain.VisitDay{
		{Date: domain.MesTime{Time: f.today}, Visits: []domain.Visit{{In: "08:05", Out: "14:30", Duration: "6 ч. 25 мин."}}},
		{Date: domain.MesTime{Time: f.today.AddDate(0, 0, -1)}, Visits: []domain.Visit{{Duration: "-"}}},
	}

	v, err := f.svc.Visits(context.Background(), f.user, f.today)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", domain.FormatDate(v.Date))
	assert.Contains(t, v.Text, "Пн 10.03: отсутствие\nВт 11.03: 08:05 - 14:30 (6 ч. 25 мин.)")
	assert.True(t, f.mr.Exists("visits:42:2025-03-10"))
}

func TestSubjectMarks(t *testing.T) {
	f := newFixture(t)
	f.mes.SubjectMarks[7] = &domain.SubjectMarks{
		SubjectID:   7,
		SubjectName: "Геометрия",
		Periods: []domain.SubjectPeriodMarks{
			{Title: "1 четверть", Value: "4.5", Marks: []domain.Mark{{Value: "5", Weight: 1}, {Value: "4", Weight: 2}}},
			{Title: "2 четверть"},
		},
	}

	v, err := f.svc.SubjectMarks(context.Background(), f.user, 7)
	require.NoError(t, err)
	assert.Contains(t, v.Text, "<b>1 четверть</b> (средний 4.5)\n5₁ 4₂")
	assert.Contains(t, v.Text, "<b>2 четверть</b>\n"+NoMarks)
	assert.True(t, f.mr.Exists("marks_subject:42:7"))
}

func TestUpstreamErrorIsNotCached(t *testing.T) {
	f := newFixture(t)
	f.mes.HomeworksErr = &domain.UpstreamError{StatusCode: http.StatusBadGateway, Method: "get_homeworks"}

	_, err := f.svc.Homework(context.Background(), f.user, f.today, Exact)
	require.Error(t, err)

	msg, kind := MapError(err)
	assert.Equal(t, domain.KindUpstream, kind)
	assert.Equal(t, MsgUpstream, msg)
	assert.Empty(t, f.mr.Keys())
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		msg  string
		kind domain.ErrorKind
	}{
		{nil, "", domain.KindNone},
		{&domain.UpstreamError{StatusCode: http.StatusUnauthorized}, MsgUnauthorized, domain.KindUnauthorized},
		{&domain.UpstreamError{StatusCode: http.StatusRequestTimeout}, MsgTimeout, domain.KindTimeout},
		{&domain.UpstreamError{StatusCode: http.StatusServiceUnavailable}, MsgUpstream, domain.KindUpstream},
		{domain.ErrValidation, MsgValidation, domain.KindValidation},
		{&domain.PaymentDisputeError{Reason: "x"}, MsgPaymentDispute, domain.KindPaymentDispute},
		{errors.New("boom"), MsgInternal, domain.KindInternal},
	}
	for _, tt := range tests {
		msg, kind := MapError(tt.err)
		assert.Equal(t, tt.msg, msg)
		assert.Equal(t, tt.kind, kind)
	}
}

func TestWeekStart(t *testing.T) {
	sunday := time.Date(2025, 3, 16, 20, 0, 0, 0, domain.MesLocation)
	assert.Equal(t, "2025-03-10", domain.FormatDate(WeekStart(sunday)))
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, domain.MesLocation)
	assert.Equal(t, "2025-03-10", domain.FormatDate(WeekStart(monday)))
}
