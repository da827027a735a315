package auth

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
)

type refresherSpy struct {
	scheduled []int64
}

func (r *refresherSpy) Schedule(ctx context.Context, userID int64) error {
	r.scheduled = append(r.scheduled, userID)
	return nil
}

type fixture struct {
	svc       *Service
	mes       *testfakes.Mes
	users     *testfakes.Users
	refresher *refresherSpy
	mr        *miniredis.Miniredis
	id        Identity
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)
	birth := domain.MesTime{Time: time.Date(2012, 5, 14, 0, 0, 0, 0, domain.MesLocation)}

	mes := testfakes.NewMes()
	mes.Profile = &domain.FamilyProfile{
		Profile:  domain.ProfileInfo{ID: 500, Type: "parent", FirstName: "Ольга"},
		Children: []domain.Child{{ID: 1001, ContractID: 9, PersonGUID: "p-1", FirstName: "Миша", BirthDate: &birth}},
	}

	users := testfakes.NewUsers()
	refresher := &refresherSpy{}
	return &fixture{
		svc:       New(mes, users, users.AuthRepo(), users.SettingsRepo(), redisAdapter.NewClient(rdb), refresher, clock.NewFake(now), logger.Discard()),
		mes:       mes,
		users:     users,
		refresher: refresher,
		mr:        mr,
		id:        Identity{UserID: 42, ChatID: 420},
		now:       now,
	}
}

func TestPasswordLogin_TwoSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp := f.now.Add(10 * 24 * time.Hour)
	f.mes.SessionID = "sess-1"
	f.mes.SMSTokens = &domain.TokenSet{AccessToken: testfakes.Token(exp), RefreshToken: "r", ClientID: "c", ClientSecret: "s"}

	require.NoError(t, f.svc.StartPassword(ctx, f.id, "  ivanov ", "secret"))
	assert.Equal(t, PendingSMSTTL, f.mr.TTL("auth_pending:42"))

	state, err := f.svc.State(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPendingSMS, state)

	user, err := f.svc.ConfirmSMS(ctx, f.id, "123456")
	require.NoError(t, err)

	assert.True(t, user.Active)
	assert.Equal(t, int64(1001), user.StudentID)
	assert.Equal(t, "p-1", user.PersonID)
	assert.Equal(t, "Миша", user.FirstName)
	require.NotNil(t, user.Birthday)

	auth := f.users.Auth[42]
	require.NotNil(t, auth)
	assert.Equal(t, domain.AuthMethodPassword, auth.AuthMethod)
	assert.True(t, auth.CanRefresh())
	assert.True(t, auth.TokenExpiredAt.Equal(exp))
	assert.NotNil(t, f.users.Settings[42])
	assert.Equal(t, []int64{42}, f.refresher.scheduled)
	assert.False(t, f.mr.Exists("auth_pending:42"))

	state, err = f.svc.State(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAuthenticated, state)
}

func TestConfirmSMS_WithoutPendingLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmSMS(context.Background(), f.id, "1234")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, f.mes.CallCount("EnterCode"))
}

func TestConfirmSMS_RejectsNonNumericCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmSMS(context.Background(), f.id, "12a4")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStartPassword_UpstreamRejects(t *testing.T) {
	f := newFixture(t)
	f.mes.LoginErr = &domain.UpstreamError{StatusCode: http.StatusUnauthorized, Method: "password_login"}

	err := f.svc.StartPassword(context.Background(), f.id, "ivanov", "wrong")
	assert.True(t, domain.IsUnauthorized(err))
	assert.False(t, f.mr.Exists("auth_pending:42"))
}

func TestLoginWithToken(t *testing.T) {
	f := newFixture(t)
	token := testfakes.Token(f.now.Add(24 * time.Hour))

	user, err := f.svc.LoginWithToken(context.Background(), f.id, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, token, user.Token)
	assert.Equal(t, domain.AuthMethodToken, f.users.Auth[42].AuthMethod)
	assert.Nil(t, f.users.Auth[42].TokenForRefresh)
}

func TestLoginWithToken_WrongShape(t *testing.T) {
	f := newFixture(t)
	for _, bad := range []string{"", "abc", "a.b", "тык.тык.тык"} {
		_, err := f.svc.LoginWithToken(context.Background(), f.id, bad)
		assert.ErrorIs(t, err, domain.ErrValidation, bad)
	}
	assert.Empty(t, f.users.Users)
	assert.Equal(t, 0, f.mes.CallCount("GetFamilyProfile"))
}

func TestLoginWithQR(t *testing.T) {
	f := newFixture(t)
	f.mes.QRPayload = "https://login.mos.ru/qr/abc"
	f.mes.QRTokens = &domain.TokenSet{AccessToken: testfakes.Token(f.now.Add(24 * time.Hour))}

	var shown string
	user, err := f.svc.LoginWithQR(context.Background(), f.id, func(payload string) error {
		shown = payload
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "https://login.mos.ru/qr/abc", shown)
	assert.True(t, user.Active)
	assert.Equal(t, domain.AuthMethodQR, f.users.Auth[42].AuthMethod)
}

func TestLoginWithQR_TimeoutMutatesNothing(t *testing.T) {
	f := newFixture(t)
	f.mes.QRErr = &domain.UpstreamError{StatusCode: http.StatusRequestTimeout, Method: "qr_login", Err: context.DeadlineExceeded}

	_, err := f.svc.LoginWithQR(context.Background(), f.id, func(string) error { return nil })
	require.Error(t, err)
	assert.Equal(t, domain.KindTimeout, domain.Classify(err))
	assert.Empty(t, f.users.Users)
	assert.Empty(t, f.users.Auth)
	assert.Empty(t, f.refresher.scheduled)
}

func TestLogin_ProfileWithoutStudents(t *testing.T) {
	f := newFixture(t)
	f.mes.Profile = &domain.FamilyProfile{Profile: domain.ProfileInfo{ID: 1}}

	_, err := f.svc.LoginWithToken(context.Background(), f.id, testfakes.Token(f.now.Add(time.Hour)))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.users.Users)
}

func TestState_InactiveUserIsExpired(t *testing.T) {
	f := newFixture(t)
	f.users.Users[42] = &domain.User{UserID: 42, Active: false}

	state, err := f.svc.State(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, state)

	state, err = f.svc.State(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionUnauthenticated, state)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}
