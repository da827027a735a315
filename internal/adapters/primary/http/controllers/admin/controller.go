package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admin/tg-bots/learnify-bot/internal/adapters/primary/http/middlewares"
	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/services/jobs"
)

// Refunder возврат звёзд по charge id
type Refunder interface {
	RefundPayment(ctx context.Context, chargeID string) (*domain.Payment, error)
}

// JobLister снимок планировщика
type JobLister interface {
	Jobs() []jobs.JobInfo
}

// CatalogSeeder повторная загрузка каталога
type CatalogSeeder interface {
	SeedFile(ctx context.Context, path string) error
}

type Controller struct {
	Payments    Refunder
	Scheduler   JobLister
	Catalog     CatalogSeeder
	CatalogPath string
	Token       string
	Log         *slog.Logger
}

func New(
	payments Refunder,
	scheduler JobLister,
	catalog CatalogSeeder,
	catalogPath string,
	token string,
	log *slog.Logger,
) *Controller {
	return &Controller{
		Payments:    payments,
		Scheduler:   scheduler,
		Catalog:     catalog,
		CatalogPath: catalogPath,
		Token:       token,
		Log:         log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	admin := router.Group("/admin", middlewares.AdminToken(c.Token))
	{
		admin.POST("/payments/refund", c.refund)
		admin.GET("/jobs", c.jobs)
		admin.POST("/catalog/reload", c.reloadCatalog)
	}
}

// RefundRequest запрос на возврат
type RefundRequest struct {
	ChargeID string `json:"charge_id" binding:"required"`
}

// RefundResponse результат возврата
type RefundResponse struct {
	Success      bool   `json:"success"`
	PaymentID    string `json:"payment_id,omitempty"`
	UserID       int64  `json:"user_id,omitempty"`
	Amount       int64  `json:"amount,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (c *Controller) refund(ctx *gin.Context) {
	var req RefundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.Log.Warn("failed to bind refund request", "error", err)
		ctx.JSON(http.StatusBadRequest, RefundResponse{ErrorMessage: "charge_id is required"})
		return
	}

	payment, err := c.Payments.RefundPayment(ctx.Request.Context(), req.ChargeID)
	if err != nil {
		var dispute *domain.PaymentDisputeError
		if errors.As(err, &dispute) {
			c.Log.Warn("refund disputed", "charge_id", req.ChargeID, "reason", dispute.Reason)
			ctx.JSON(http.StatusConflict, RefundResponse{ErrorMessage: dispute.Reason})
			return
		}
		c.Log.Error("failed to refund payment", "charge_id", req.ChargeID, "error", err)
		ctx.JSON(http.StatusInternalServerError, RefundResponse{ErrorMessage: err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, RefundResponse{
		Success:   true,
		PaymentID: payment.ID.String(),
		UserID:    payment.UserID,
		Amount:    payment.Amount,
	})
}

func (c *Controller) jobs(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"jobs": c.Scheduler.Jobs()})
}

func (c *Controller) reloadCatalog(ctx *gin.Context) {
	if err := c.Catalog.SeedFile(ctx.Request.Context(), c.CatalogPath); err != nil {
		c.Log.Error("failed to reload catalog", "path", c.CatalogPath, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrValidation) {
			status = http.StatusUnprocessableEntity
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
