package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
	portjobs "github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
)

type alerterMock struct {
	mock.Mock
}

func (m *alerterMock) SendAlert(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}

func startScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := NewScheduler(logger.Discard(), nil, clock.Real())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s
}

func TestDateTrigger_PastInstantFiresOnceAndIsRemoved(t *testing.T) {
	s := startScheduler(t)

	var runs atomic.Int32
	err := s.Add("refresh_token_1", portjobs.DateTrigger{At: time.Now().Add(-time.Hour)}, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := s.Get("refresh_token_1")
		return !ok
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestAdd_ReplacesExistingByDefault(t *testing.T) {
	s := startScheduler(t)

	var oldRuns, newRuns atomic.Int32
	require.NoError(t, s.Add("refresh_token_7", portjobs.DateTrigger{At: time.Now().Add(50 * time.Millisecond)}, func(ctx context.Context) error {
		oldRuns.Add(1)
		return nil
	}))
	require.NoError(t, s.Add("refresh_token_7", portjobs.DateTrigger{At: time.Now()}, func(ctx context.Context) error {
		newRuns.Add(1)
		return nil
	}))

	require.Eventually(t, func() bool { return newRuns.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), oldRuns.Load())
}

func TestAdd_WithoutReplaceRejectsDuplicate(t *testing.T) {
	s := NewScheduler(logger.Discard(), nil, clock.Real())
	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, s.Add("birthday_checker", portjobs.IntervalTrigger{Every: time.Hour}, noop))
	err := s.Add("birthday_checker", portjobs.IntervalTrigger{Every: time.Hour}, noop, portjobs.WithoutReplace())

	assert.ErrorIs(t, err, ErrJobExists)
	assert.Len(t, s.Jobs(), 1)
}

func TestRemove(t *testing.T) {
	s := startScheduler(t)

	var runs atomic.Int32
	require.NoError(t, s.Add("refresh_token_3", portjobs.DateTrigger{At: time.Now().Add(50 * time.Millisecond)}, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))

	assert.True(t, s.Remove("refresh_token_3"))
	assert.False(t, s.Remove("refresh_token_3"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestRun_NeverOverlapsItself(t *testing.T) {
	s := startScheduler(t)

	var (
		mu      sync.Mutex
		running int
		maxSeen int
		runs    atomic.Int32
	)
	require.NoError(t, s.Add("new_notifications_checker", portjobs.IntervalTrigger{Every: 2 * time.Millisecond}, func(ctx context.Context) error {
		mu.Lock()
		running++
		if running > maxSeen {
			maxSeen = running
		}
		mu.Unlock()

		time.Sleep(15 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		runs.Add(1)
		return nil
	}))

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxSeen)
}

func TestRetry_AlertsAfterFinalFailure(t *testing.T) {
	alerter := &alerterMock{}
	alerted := make(chan string, 1)
	alerter.On("SendAlert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		alerted <- args.String(1)
	}).Return(nil).Once()

	s := NewScheduler(logger.Discard(), alerter, clock.Real())
	s.SetRetries([]time.Duration{time.Millisecond, time.Millisecond})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	var attempts atomic.Int32
	require.NoError(t, s.Add("subscription_expirer", portjobs.DateTrigger{At: time.Now()}, func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("db down")
	}, portjobs.WithRetry()))

	select {
	case msg := <-alerted:
		assert.Contains(t, msg, "subscription_expirer")
		assert.Contains(t, msg, "Попытка 3: db down")
	case <-time.After(time.Second):
		t.Fatal("alert was not sent")
	}
	assert.Equal(t, int32(3), attempts.Load())
	alerter.AssertExpectations(t)
}

func TestRun_PanicIsRecovered(t *testing.T) {
	s := startScheduler(t)

	var after atomic.Bool
	require.NoError(t, s.Add("boom", portjobs.DateTrigger{At: time.Now()}, func(ctx context.Context) error {
		panic("unexpected")
	}))
	require.NoError(t, s.Add("after", portjobs.DateTrigger{At: time.Now().Add(10 * time.Millisecond)}, func(ctx context.Context) error {
		after.Store(true)
		return nil
	}))

	require.Eventually(t, after.Load, time.Second, 5*time.Millisecond)
}

func TestStart_ArmsJobsAddedBefore(t *testing.T) {
	s := NewScheduler(logger.Discard(), nil, clock.Real())

	var runs atomic.Int32
	require.NoError(t, s.Add("early", portjobs.DateTrigger{At: time.Now()}, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestJobKind(t *testing.T) {
	assert.Equal(t, "refresh_token", jobKind("refresh_token_42"))
	assert.Equal(t, "birthday_checker", jobKind("birthday_checker"))
	assert.Equal(t, "x_", jobKind("x_"))
}
