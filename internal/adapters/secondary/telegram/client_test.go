package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&Config{BotToken: "TOKEN", APIBaseURL: srv.URL}, newNoopLogger())
}

func TestClient_SendMessageWithInlineKeyboard(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":77}}`))
	})

	id, err := c.SendMessage(context.Background(), domain.OutgoingMessage{
		ChatID: 10,
		Text:   "<b>hi</b>",
		Keyboard: &domain.Keyboard{Inline: [][]domain.InlineButton{
			{{Text: "Войти", CallbackData: "auth"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.Equal(t, "HTML", got["parse_mode"])

	markup := got["reply_markup"].(map[string]any)
	rows := markup["inline_keyboard"].([]any)
	assert.Len(t, rows, 1)
}

func TestClient_APIErrorBlocked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	})

	err := c.Send(context.Background(), domain.OutgoingMessage{ChatID: 1, Text: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsBlocked())
	assert.Equal(t, "sendMessage", apiErr.Method)
}

func TestClient_RefundAlreadyRefunded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/refundStarPayment", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: CHARGE_ALREADY_REFUNDED"}`))
	})

	err := c.RefundStarPayment(context.Background(), 5, "charge")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsAlreadyRefunded())
}

func TestClient_IsChannelMember(t *testing.T) {
	status := "left"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"status":"` + status + `"}}`))
	})

	ok, err := c.IsChannelMember(context.Background(), "@channel", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	status = "member"
	ok, err = c.IsChannelMember(context.Background(), "@channel", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestToReplyMarkup(t *testing.T) {
	assert.Nil(t, toReplyMarkup(nil))
	assert.Nil(t, toReplyMarkup(&domain.Keyboard{}))

	m := toReplyMarkup(&domain.Keyboard{Reply: [][]string{{"Расписание", "Оценки"}}})
	require.NotNil(t, m)
	assert.True(t, m.ResizeKeyboard)
	assert.Equal(t, []KeyboardButton{{Text: "Расписание"}, {Text: "Оценки"}}, m.Keyboard[0])
}

func TestPoller_DeliversUpdatesInOrder(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			assert.Equal(t, "0", r.URL.Query().Get("offset"))
			_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":5,"message":{"message_id":1,"chat":{"id":1,"type":"private"},"date":0,"text":"a"}},{"update_id":6,"message":{"message_id":2,"chat":{"id":1,"type":"private"},"date":0,"text":"b"}}]}`))
			return
		}
		assert.Equal(t, "7", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	var texts []string
	p := NewPoller(c, &Config{PollingTimeout: 1}, func(_ context.Context, u *domain.Update) error {
		texts = append(texts, *u.Message.Text)
		if len(texts) == 2 {
			cancel()
		}
		return nil
	}, newNoopLogger())

	err := p.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a", "b"}, texts)
}
