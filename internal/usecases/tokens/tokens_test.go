package tokens

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/testfakes"
)

type fixture struct {
	svc       *Service
	users     *testfakes.Users
	mes       *testfakes.Mes
	scheduler *testfakes.Scheduler
	outbound  *testfakes.Outbound
	clock     *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     testfakes.NewUsers(),
		mes:       testfakes.NewMes(),
		scheduler: testfakes.NewScheduler(),
		outbound:  &testfakes.Outbound{},
		clock:     clock.NewFake(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
	}
	f.svc = New(&Config{PasswordPreroll: 16 * time.Hour},
		f.users, f.users.AuthRepo(), f.mes, f.scheduler, f.outbound, f.clock, logger.Discard())
	return f
}

func ptr(s string) *string { return &s }

func (f *fixture) addPasswordUser(userID int64, expiry time.Time) {
	f.users.Users[userID] = &domain.User{UserID: userID, ChatID: userID * 10, Active: true, Token: "old"}
	f.users.Auth[userID] = &domain.AuthData{
		UserID:          userID,
		AuthMethod:      domain.AuthMethodPassword,
		TokenExpiredAt:  expiry,
		TokenForRefresh: ptr("refresh-old"),
		ClientID:        ptr("cid"),
		ClientSecret:    ptr("secret"),
	}
}

func TestExpiryFromToken(t *testing.T) {
	exp := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)

	got, err := ExpiryFromToken(testfakes.Token(exp))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))

	_, err = ExpiryFromToken("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRefreshAt_UsesPrerollOnlyForPassword(t *testing.T) {
	f := newFixture(t)
	exp := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)

	password := &domain.AuthData{AuthMethod: domain.AuthMethodPassword, TokenExpiredAt: exp}
	assert.Equal(t, exp.Add(-16*time.Hour), f.svc.RefreshAt(password))

	qr := &domain.AuthData{AuthMethod: domain.AuthMethodQR, TokenExpiredAt: exp}
	assert.Equal(t, exp, f.svc.RefreshAt(qr))
}

func TestSchedule_SkipsUsersWithoutRefreshCredentials(t *testing.T) {
	f := newFixture(t)
	f.users.Auth[5] = &domain.AuthData{UserID: 5, AuthMethod: domain.AuthMethodToken, TokenExpiredAt: f.clock.Now().Add(time.Hour)}

	require.NoError(t, f.svc.Schedule(context.Background(), 5))

	_, ok := f.scheduler.Get(JobName(5))
	assert.False(t, ok)
}

func TestRefresh_StoresTokensAtomicallyAndReschedules(t *testing.T) {
	const day = 24 * time.Hour

	tests := []struct {
		name            string
		expiresIn       time.Duration
		wantFirstRun    time.Duration
		newExpiresIn    time.Duration
		wantRescheduled time.Duration
	}{
		{
			name:            "window already open",
			expiresIn:       time.Hour,
			wantFirstRun:    -15 * time.Hour,
			newExpiresIn:    48 * time.Hour,
			wantRescheduled: 32 * time.Hour,
		},
		{
			name:            "exp in 17h, refreshed for 10 days",
			expiresIn:       17 * time.Hour,
			wantFirstRun:    time.Hour,
			newExpiresIn:    17*time.Hour + 10*day,
			wantRescheduled: 10*day + time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			now := f.clock.Now()
			f.addPasswordUser(1, now.Add(tt.expiresIn))

			require.NoError(t, f.svc.Schedule(context.Background(), 1))
			at, ok := f.scheduler.At(JobName(1))
			require.True(t, ok)
			assert.True(t, at.Equal(now.Add(tt.wantFirstRun)), "first run at %s", at)

			newExp := now.Add(tt.newExpiresIn)
			f.mes.RefreshTokens = &domain.TokenSet{AccessToken: testfakes.Token(newExp), RefreshToken: "refresh-new"}
			if at.After(now) {
				f.clock.Set(at)
			}

			job, ok := f.scheduler.Get(JobName(1))
			require.True(t, ok)
			require.NoError(t, job.Fn(context.Background()))

			assert.Equal(t, 1, f.users.Txs)
			assert.Equal(t, f.mes.RefreshTokens.AccessToken, f.users.Users[1].Token)
			assert.Equal(t, "refresh-new", *f.users.Auth[1].TokenForRefresh)
			assert.True(t, f.users.Auth[1].TokenExpiredAt.Equal(newExp))

			at, ok = f.scheduler.At(JobName(1))
			require.True(t, ok)
			assert.True(t, at.Equal(now.Add(tt.wantRescheduled)), "rescheduled at %s", at)
		})
	}
}

func TestRefresh_KeepsOldRefreshTokenWhenNoneReturned(t *testing.T) {
	f := newFixture(t)
	f.addPasswordUser(1, f.clock.Now().Add(time.Hour))
	f.mes.RefreshTokens = &domain.TokenSet{AccessToken: testfakes.Token(f.clock.Now().Add(24 * time.Hour))}

	require.NoError(t, f.svc.Refresh(context.Background(), 1))
	assert.Equal(t, "refresh-old", *f.users.Auth[1].TokenForRefresh)
}

func TestRefresh_UnauthorizedDeactivatesAndPrompts(t *testing.T) {
	f := newFixture(t)
	f.addPasswordUser(1, f.clock.Now().Add(time.Hour))
	require.NoError(t, f.svc.Schedule(context.Background(), 1))
	f.mes.RefreshErr = &domain.UpstreamError{StatusCode: http.StatusUnauthorized, Method: "refresh_token"}

	require.NoError(t, f.svc.Refresh(context.Background(), 1))

	assert.False(t, f.users.Users[1].Active)
	assert.Equal(t, "old", f.users.Users[1].Token)
	_, ok := f.scheduler.Get(JobName(1))
	assert.False(t, ok)

	sent := f.outbound.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(10), sent[0].ChatID)
	assert.Equal(t, ReauthPrompt, sent[0].Text)
	require.NotNil(t, sent[0].Keyboard)
}

func TestRefresh_UpstreamFailureKeepsStateAndReturnsError(t *testing.T) {
	f := newFixture(t)
	f.addPasswordUser(1, f.clock.Now().Add(time.Hour))
	f.mes.RefreshErr = &domain.UpstreamError{StatusCode: http.StatusBadGateway, Method: "refresh_token"}

	err := f.svc.Refresh(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.Classify(err))
	assert.True(t, f.users.Users[1].Active)
	assert.Equal(t, 0, f.users.Txs)
	assert.Empty(t, f.outbound.Messages())

	at, ok := f.scheduler.At(JobName(1))
	require.True(t, ok)
	assert.True(t, at.Equal(f.clock.Now().Add(defaultRetryDelay)))
}

func TestRefresh_RetryNotLaterThanExpiry(t *testing.T) {
	f := newFixture(t)
	exp := f.clock.Now().Add(3 * time.Minute)
	f.addPasswordUser(1, exp)
	f.mes.RefreshErr = errors.New("network down")

	require.Error(t, f.svc.Refresh(context.Background(), 1))

	at, ok := f.scheduler.At(JobName(1))
	require.True(t, ok)
	assert.True(t, at.Equal(exp))
}

func TestRefresh_SkipsNonPasswordUsers(t *testing.T) {
	f := newFixture(t)
	f.users.Auth[2] = &domain.AuthData{UserID: 2, AuthMethod: domain.AuthMethodQR, TokenExpiredAt: f.clock.Now()}

	require.NoError(t, f.svc.Refresh(context.Background(), 2))
	require.NoError(t, f.svc.Refresh(context.Background(), 404))
	assert.Equal(t, 0, f.mes.CallCount("RefreshToken"))
}

func TestRestoreOnStartup_SchedulesFutureAndRefreshesOverdue(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	f.addPasswordUser(1, now.Add(40*time.Hour)) // refresh через 24h
	f.addPasswordUser(2, now.Add(2*time.Hour))  // окно уже открыто
	f.mes.RefreshTokens = &domain.TokenSet{AccessToken: testfakes.Token(now.Add(72 * time.Hour)), RefreshToken: "r2"}

	require.NoError(t, f.svc.RestoreOnStartup(context.Background()))

	at, ok := f.scheduler.At(JobName(1))
	require.True(t, ok)
	assert.True(t, at.Equal(now.Add(24*time.Hour)))

	assert.Equal(t, 1, f.mes.CallCount("RefreshToken"))
	assert.Equal(t, "r2", *f.users.Auth[2].TokenForRefresh)
	_, ok = f.scheduler.Get(JobName(2))
	assert.True(t, ok)
}

func TestScheduledJob_RunsRefresh(t *testing.T) {
	f := newFixture(t)
	f.addPasswordUser(3, f.clock.Now().Add(30*time.Hour))
	f.mes.RefreshErr = errors.New("network down")
	require.NoError(t, f.svc.Schedule(context.Background(), 3))

	job, ok := f.scheduler.Get(JobName(3))
	require.True(t, ok)
	assert.Error(t, job.Fn(context.Background()))
	assert.Equal(t, 1, f.mes.CallCount("RefreshToken"))
}
