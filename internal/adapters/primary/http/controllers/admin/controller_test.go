package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/services/jobs"
)

type refunder struct {
	payment *domain.Payment
	err     error
	calls   []string
}

func (r *refunder) RefundPayment(ctx context.Context, chargeID string) (*domain.Payment, error) {
	r.calls = append(r.calls, chargeID)
	return r.payment, r.err
}

type jobList []jobs.JobInfo

func (l jobList) Jobs() []jobs.JobInfo { return l }

type seeder struct{ err error }

func (s seeder) SeedFile(ctx context.Context, path string) error { return s.err }

func newRouter(r *refunder, seedErr error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	list := jobList{{Name: "birthday_checker", NextRun: time.Date(2025, 3, 12, 7, 0, 0, 0, time.UTC)}}
	New(r, list, seeder{seedErr}, "configs/catalog.json", "s3cret", log).RegisterRoutes(router)
	return router
}

func do(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdmin_RequiresToken(t *testing.T) {
	r := &refunder{}
	router := newRouter(r, nil)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/admin/jobs", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/admin/jobs", "wrong", "").Code)

	w := do(router, http.MethodGet, "/admin/jobs", "s3cret", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"birthday_checker"`)
}

func TestAdmin_Refund(t *testing.T) {
	id := uuid.New()
	r := &refunder{payment: &domain.Payment{ID: id, UserID: 42, Amount: 60}}
	router := newRouter(r, nil)

	w := do(router, http.MethodPost, "/admin/payments/refund", "s3cret", `{"charge_id":"ch-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
	assert.Equal(t, []string{"ch-1"}, r.calls)
}

func TestAdmin_RefundDispute(t *testing.T) {
	r := &refunder{err: &domain.PaymentDisputeError{Reason: "already refunded"}}
	router := newRouter(r, nil)

	w := do(router, http.MethodPost, "/admin/payments/refund", "s3cret", `{"charge_id":"ch-1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already refunded")

	w = do(router, http.MethodPost, "/admin/payments/refund", "s3cret", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_ReloadCatalogValidation(t *testing.T) {
	router := newRouter(&refunder{}, errors.Join(domain.ErrValidation, errors.New("plan price")))
	w := do(router, http.MethodPost, "/admin/catalog/reload", "s3cret", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
