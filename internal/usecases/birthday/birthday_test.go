package birthday

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/testfakes"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestIsToday(t *testing.T) {
	now := time.Date(2025, 2, 28, 10, 0, 0, 0, domain.MesLocation)
	assert.True(t, IsToday(*date(2012, 2, 28), now))
	assert.True(t, IsToday(*date(2012, 2, 29), now))
	assert.False(t, IsToday(*date(2012, 3, 1), now))

	leap := time.Date(2028, 2, 28, 10, 0, 0, 0, domain.MesLocation)
	assert.False(t, IsToday(*date(2012, 2, 29), leap))

	// 22:30 UTC это уже следующий день в Москве
	late := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)
	assert.True(t, IsToday(*date(2013, 3, 11), late))
}

func newService(ai *testfakes.AI) (*Service, *testfakes.Users, *testfakes.Outbound) {
	users := testfakes.NewUsers()
	users.Users[1] = &domain.User{UserID: 1, ChatID: 10, FirstName: "Миша", Birthday: date(2012, 3, 11)}
	users.Users[2] = &domain.User{UserID: 2, ChatID: 20, FirstName: "Оля", Birthday: date(2012, 7, 1)}
	users.Users[3] = &domain.User{UserID: 3, ChatID: 30}

	out := &testfakes.Outbound{}
	now := time.Date(2025, 3, 11, 10, 0, 0, 0, domain.MesLocation)
	return New(users, ai, out, clock.NewFake(now), logger.Discard()), users, out
}

func TestGreet_SanitizesAIText(t *testing.T) {
	ai := &testfakes.AI{Text: `<b>Миша</b>, поздравляем! <script>alert(1)</script><span>Ура</span>`}
	svc, _, out := newService(ai)

	n, err := svc.Greet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs := out.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(10), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "<b>Миша</b>")
	assert.Contains(t, msgs[0].Text, "Ура")
	assert.NotContains(t, msgs[0].Text, "<script>")
	assert.NotContains(t, msgs[0].Text, "<span>")

	require.Len(t, ai.Prompts, 1)
	assert.Contains(t, ai.Prompts[0], "Миша")
	assert.Contains(t, ai.Prompts[0], "13")
}

func TestGreet_FallbackOnAIError(t *testing.T) {
	svc, _, out := newService(&testfakes.AI{Err: errors.New("quota")})

	n, err := svc.Greet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, fallback("Миша"), out.Messages()[0].Text)
}

func TestGreet_SendErrorSwallowed(t *testing.T) {
	svc, _, out := newService(&testfakes.AI{Text: "С днём рождения!"})
	out.Err = errors.New("blocked by user")

	n, err := svc.Greet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
