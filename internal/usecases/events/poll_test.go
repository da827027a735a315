package events

import (
	"context"
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
	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
	"github.com/admin/tg-bots/learnify-bot/internal/services/invalidation"
)

type fixture struct {
	svc      *Service
	events   *testfakes.Events
	notes    *testfakes.Notifications
	users    *testfakes.Users
	mes      *testfakes.Mes
	queue    *testfakes.Queue
	clock    *clock.Fake
	user     *domain.User
	settings *domain.Settings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events: testfakes.NewEvents(),
		notes:  testfakes.NewNotifications(),
		users:  testfakes.NewUsers(),
		mes:    testfakes.NewMes(),
		queue:  &testfakes.Queue{},
		clock:  clock.NewFake(time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)),
		user:   &domain.User{UserID: 42, ChatID: 420, Active: true, StudentID: 1001, Token: "tok"},
	}
	f.settings = domain.DefaultSettings(42)
	f.users.Settings[42] = f.settings
	f.svc = New(f.events, f.notes, f.users.SettingsRepo(), f.mes, f.queue, f.clock, logger.Discard())
	return f
}

func str(s string) *string { return &s }
func num(n int) *int       { return &n }

func mesTime(t *testing.T, s string) domain.MesTime {
	t.Helper()
	parsed, err := domain.ParseMesTime(s)
	require.NoError(t, err)
	return domain.MesTime{Time: parsed}
}

func markNotification(t *testing.T, teacher int64, at string) domain.MesNotification {
	return domain.MesNotification{
		EventType:        domain.EventCreateMark,
		StudentProfileID: 1001,
		Datetime:         mesTime(t, at),
		SubjectName:      "Математика",
		TeacherID:        teacher,
		NewMarkValue:     str("5"),
		NewMarkWeight:    num(3),
		ControlFormName:  str("Контрольная"),
	}
}

func TestPoll_MarkNotificationEmittedOnce(t *testing.T) {
	f := newFixture(t)
	f.mes.Notifications = []domain.MesNotification{markNotification(t, 7, "2025-03-11T10:00:00")}

	deltas, err := f.svc.Poll(context.Background(), f.user, Background)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Contains(t, deltas[0].Message, "Новая оценка: 5₃ - Контрольная")
	assert.Contains(t, deltas[0].Message, "<b>Математика</b>")
	assert.Contains(t, deltas[0].Message, "11.03.2025 10:00")
	assert.Equal(t, 1, f.events.Count())
	assert.Equal(t, []queue.Invalidation{{UserID: 42, EventType: domain.EventCreateMark}}, f.queue.All())

	deltas, err = f.svc.Poll(context.Background(), f.user, Background)
	require.NoError(t, err)
	assert.Empty(t, deltas)
	assert.Equal(t, 1, f.events.Count())
	assert.Len(t, f.queue.All(), 1)
}

func TestPoll_StoredRowsMatchDistinctKeys(t *testing.T) {
	f := newFixture(t)
	transcript := [][]domain.MesNotification{
		{markNotification(t, 1, "2025-03-10T09:00:00"), markNotification(t, 2, "2025-03-10T09:00:00")},
		{markNotification(t, 1, "2025-03-10T09:00:00"), markNotification(t, 1, "2025-03-10T09:00:00.000")},
		{markNotification(t, 1, "2025-03-10T09:05:00"), markNotification(t, 2, "2025-03-10T09:00:00")},
	}

	var emitted int
	for _, batch := range transcript {
		f.mes.Notifications = batch
		deltas, err := f.svc.Poll(context.Background(), f.user, Interactive)
		require.NoError(t, err)
		emitted += len(deltas)
	}

	assert.Equal(t, 3, f.events.Count())
	assert.Equal(t, 3, emitted)
}

func TestPoll_DuplicatesInsideOneBatch(t *testing.T) {
	f := newFixture(t)
	n := markNotification(t, 3, "2025-03-11T08:30:00")
	f.mes.Notifications = []domain.MesNotification{n, n}

	deltas, err := f.svc.Poll(context.Background(), f.user, Background)
	require.NoError(t, err)
	assert.Len(t, deltas, 1)
	assert.Equal(t, 1, f.events.Count())
}

func TestPoll_BackgroundRespectsSettings(t *testing.T) {
	f := newFixture(t)
	f.settings.EnableNewMarkNotification = false
	f.mes.Notifications = []domain.MesNotification{
		markNotification(t, 7, "2025-03-11T10:00:00"),
		{
			EventType:        domain.EventCreateHomework,
			StudentProfileID: 1001,
			Datetime:         mesTime(t, "2025-03-11T11:00:00"),
			SubjectName:      "Физика",
			TeacherID:        8,
			NewHwDescription: str("§12, задачи 1-3"),
		},
	}

	deltas, err := f.svc.Poll(context.Background(), f.user, Background)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, domain.EventCreateHomework, deltas[0].Event.EventType)
	assert.Contains(t, deltas[0].Message, "§12, задачи 1-3")

	// подавленная оценка всё равно записана и сбрасывает кэш
	assert.Equal(t, 2, f.events.Count())
	assert.Len(t, f.queue.All(), 2)
}

func TestPoll_InteractiveEmitsEverythingInUpstreamOrder(t *testing.T) {
	f := newFixture(t)
	f.settings.EnableNewMarkNotification = false
	f.settings.EnableHomeworkNotification = false
	f.mes.Notifications = []domain.MesNotification{
		markNotification(t, 1, "2025-03-11T10:00:00"),
		{EventType: "unknown_type", StudentProfileID: 1001, TeacherID: 2},
		{
			EventType:        domain.EventUpdateMark,
			StudentProfileID: 1001,
			Datetime:         mesTime(t, "2025-03-11T09:00:00"),
			SubjectName:      "Химия",
			TeacherID:        3,
			OldMarkValue:     str("3"),
			OldMarkWeight:    num(1),
			NewMarkValue:     str("4"),
			NewMarkWeight:    num(2),
		},
	}

	deltas, err := f.svc.Poll(context.Background(), f.user, Interactive)
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.Equal(t, domain.EventCreateMark, deltas[0].Event.EventType)
	assert.Equal(t, domain.EventUpdateMark, deltas[1].Event.EventType)
	assert.Contains(t, deltas[1].Message, "3₁ → 4₂")
	assert.Equal(t, 2, f.events.Count())
}

func TestPoll_UpstreamErrorStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.mes.NotificationsErr = &domain.UpstreamError{StatusCode: 401, Method: "get_notifications"}

	_, err := f.svc.Poll(context.Background(), f.user, Background)
	require.Error(t, err)
	assert.True(t, domain.IsUnauthorized(err))
	assert.Equal(t, 0, f.events.Count())
}

// syncQueue применяет сброс кэша сразу
type syncQueue struct {
	inv *invalidation.Invalidator
}

func (q syncQueue) Enqueue(ctx context.Context, task queue.Invalidation) {
	_ = q.inv.Apply(ctx, task)
}

func TestPoll_MarkEventDropsCachedResults(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f.svc.Invalidations = syncQueue{inv: invalidation.NewInvalidator(redisAdapter.NewClient(rdb), logger.Discard())}

	for _, k := range []string{"results:42:quarters:3", "marks:42:2025-03-11", "homework:42:2025-03-11"} {
		require.NoError(t, mr.Set(k, "cached"))
	}
	f.mes.Notifications = []domain.MesNotification{markNotification(t, 7, "2025-03-11T10:00:00")}

	_, err := f.svc.Poll(context.Background(), f.user, Background)
	require.NoError(t, err)

	assert.False(t, mr.Exists("results:42:quarters:3"))
	assert.False(t, mr.Exists("marks:42:2025-03-11"))
	assert.True(t, mr.Exists("homework:42:2025-03-11"))
}

func TestPollBotNotifications_PrunesOldAndSkipsSent(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	sentAt := now.Add(-time.Minute)
	f.notes.Rows = []domain.BotNotification{
		{ID: 1, UserID: 42, Text: "old", CreatedAt: now.Add(-25 * time.Hour)},
		{ID: 2, UserID: 42, Text: "sent", CreatedAt: now.Add(-2 * time.Minute), SentAt: &sentAt},
		{ID: 3, UserID: 42, Text: "fresh", CreatedAt: now.Add(time.Second)},
		{ID: 4, UserID: 43, Text: "other", CreatedAt: now.Add(-10 * time.Second)},
	}

	pending, err := f.svc.PollBotNotifications(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "fresh", pending[0].Text)
	assert.Len(t, f.notes.Rows, 3)

	require.NoError(t, f.svc.MarkBotNotificationSent(context.Background(), 3))
	pending, err = f.svc.PollBotNotifications(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreateReplacementReminders(t *testing.T) {
	f := newFixture(t)
	f.user.PersonID = "person-42"
	f.mes.Events = []domain.ScheduleEvent{
		// 11.03 15:00 Мск, уже идёт
		{ID: 1, SubjectName: "Химия", Replaced: true, StartAt: mesTime(t, "2025-03-11 14:30:00"), FinishAt: mesTime(t, "2025-03-11 15:15:00")},
		{ID: 2, SubjectName: "Алгебра", Replaced: true, RoomNumber: "204",
			StartAt: mesTime(t, "2025-03-12 09:00:00"), FinishAt: mesTime(t, "2025-03-12 09:45:00")},
		{ID: 3, SubjectName: "История", StartAt: mesTime(t, "2025-03-12 10:00:00"), FinishAt: mesTime(t, "2025-03-12 10:45:00")},
		{ID: 4, SubjectName: "Физкультура", Replaced: true, Cancelled: true,
			StartAt: mesTime(t, "2025-03-12 11:00:00"), FinishAt: mesTime(t, "2025-03-12 11:45:00")},
		// позже горизонта в сутки
		{ID: 5, SubjectName: "Биология", Replaced: true, StartAt: mesTime(t, "2025-03-12 16:00:00"), FinishAt: mesTime(t, "2025-03-12 16:45:00")},
	}

	created, err := f.svc.CreateReplacementReminders(context.Background(), f.user)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = f.svc.CreateReplacementReminders(context.Background(), f.user)
	require.NoError(t, err)
	assert.Zero(t, created)

	require.Len(t, f.notes.Rows, 1)
	note := f.notes.Rows[0]
	assert.Equal(t, domain.BotNotificationReplacement, note.Type)
	assert.Equal(t, "🔁 <b>Замена урока</b>\n12.03 09:00-09:45 <b>Алгебра</b> каб. 204", note.Text)
	assert.NotEmpty(t, note.DedupKey)
}

func TestCreateReplacementReminders_NoPersonID(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateReplacementReminders(context.Background(), f.user)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Zero(t, f.mes.CallCount("GetEvents"))
}
