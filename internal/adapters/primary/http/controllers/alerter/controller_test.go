package alerter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertSpy struct{ sent []string }

func (a *alertSpy) SendAlert(ctx context.Context, message string) error {
	a.sent = append(a.sent, message)
	return nil
}

func post(spy *alertSpy, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	New(spy, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(router)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/alert", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleAlert(t *testing.T) {
	spy := &alertSpy{}
	w := post(spy, `{"message":" deploy failed ","source":"ci","severity":"error"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, spy.sent, 1)
	assert.Equal(t, "[ERROR] ci: deploy failed", spy.sent[0])
}

func TestHandleAlert_Rejects(t *testing.T) {
	spy := &alertSpy{}
	assert.Equal(t, http.StatusBadRequest, post(spy, `{"source":"ci"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(spy, `{"message":"x","severity":"panic"}`).Code)
	assert.Empty(t, spy.sent)
}
