package tokens_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/testfakes"
	jobScheduler "github.com/admin/tg-bots/learnify-bot/internal/services/jobs"
	"github.com/admin/tg-bots/learnify-bot/internal/usecases/tokens"
)

func TestRefresh_TransientFailureRetriedByScheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.Discard()
	users := testfakes.NewUsers()
	mes := testfakes.NewMes()
	scheduler := jobScheduler.NewScheduler(log, nil, clock.Real())

	now := time.Now()
	users.Users[1] = &domain.User{UserID: 1, ChatID: 10, Active: true, Token: "old"}
	users.Auth[1] = &domain.AuthData{
		UserID:          1,
		AuthMethod:      domain.AuthMethodPassword,
		TokenExpiredAt:  now.Add(16*time.Hour + 50*time.Millisecond),
		TokenForRefresh: strPtr("refresh-old"),
		ClientID:        strPtr("cid"),
		ClientSecret:    strPtr("secret"),
	}

	newExp := now.Add(48 * time.Hour).Truncate(time.Second)
	mes.RefreshErrs = []error{&domain.UpstreamError{StatusCode: http.StatusServiceUnavailable, Method: "refresh_token"}}
	mes.RefreshTokens = &domain.TokenSet{AccessToken: testfakes.Token(newExp), RefreshToken: "refresh-new"}

	svc := tokens.New(&tokens.Config{PasswordPreroll: 16 * time.Hour, RetryDelay: 50 * time.Millisecond},
		users, users.AuthRepo(), mes, scheduler, &testfakes.Outbound{}, clock.Real(), log)

	require.NoError(t, scheduler.Start(ctx))
	defer scheduler.Stop()
	require.NoError(t, svc.Schedule(ctx, 1))

	require.Eventually(t, func() bool {
		auth, err := users.AuthRepo().Get(ctx, 1)
		return err == nil && auth.TokenExpiredAt.Equal(newExp)
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, mes.CallCount("RefreshToken"))

	require.Eventually(t, func() bool {
		info, ok := scheduler.Get(tokens.JobName(1))
		return ok && info.NextRun.Equal(newExp.Add(-16*time.Hour))
	}, time.Second, 10*time.Millisecond)
}

func strPtr(s string) *string { return &s }
