package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

type handlerSpy struct {
	updates []int64
	err     error
}

func (h *handlerSpy) HandleUpdate(ctx context.Context, update *domain.Update) error {
	h.updates = append(h.updates, update.UpdateID)
	return h.err
}

func serve(h *handlerSpy, secret, header, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	New(h, secret, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/webhook/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(secretHeader, header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhook(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		body       string
		handlerErr error
		wantStatus int
		wantCalls  int
	}{
		{"delivers update", "sec", `{"update_id":7}`, nil, http.StatusOK, 1},
		{"wrong secret", "nope", `{"update_id":7}`, nil, http.StatusUnauthorized, 0},
		{"missing secret", "", `{"update_id":7}`, nil, http.StatusUnauthorized, 0},
		{"broken json", "sec", `{"update_id":`, nil, http.StatusBadRequest, 0},
		{"business error acknowledged", "sec", `{"update_id":7}`, domain.WrapBusinessError(errors.New("payment")), http.StatusOK, 1},
		{"internal error retried", "sec", `{"update_id":7}`, errors.New("db down"), http.StatusInternalServerError, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &handlerSpy{err: tt.handlerErr}
			w := serve(h, "sec", tt.header, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			require.Len(t, h.updates, tt.wantCalls)
		})
	}
}
