package alerter

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

// AlertPayload алерт от внешней системы (деплой, мониторинг)
type AlertPayload struct {
	Message  string `json:"message" binding:"required,max=3000"`
	Source   string `json:"source" binding:"max=64"`
	Severity string `json:"severity" binding:"omitempty,oneof=info warning error critical"`
}

type Controller struct {
	AlerterService service.IAlerterService
	Log            *slog.Logger
}

func New(alerterService service.IAlerterService, log *slog.Logger) *Controller {
	return &Controller{
		AlerterService: alerterService,
		Log:            log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhooks/alert", c.handleAlert)
}

func (c *Controller) handleAlert(ctx *gin.Context) {
	var payload AlertPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		c.Log.Warn("failed to bind alert request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if c.AlerterService == nil {
		c.Log.Info("alerter service not configured, skipping alert", "source", payload.Source)
		ctx.JSON(http.StatusOK, gin.H{"ok": true, "message": "alerter not configured"})
		return
	}

	// 200 и при ошибке отправки, иначе источник будет слать повторы
	if err := c.AlerterService.SendAlert(ctx.Request.Context(), FormatAlert(payload)); err != nil {
		c.Log.Warn("failed to send alert", "error", err, "source", payload.Source)
		ctx.JSON(http.StatusOK, gin.H{"ok": false, "error": "failed to send alert"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

// FormatAlert заголовок с источником и уровнем, затем текст
func FormatAlert(p AlertPayload) string {
	var b strings.Builder
	if p.Severity != "" {
		fmt.Fprintf(&b, "[%s] ", strings.ToUpper(p.Severity))
	}
	if p.Source != "" {
		fmt.Fprintf(&b, "%s: ", p.Source)
	}
	b.WriteString(strings.TrimSpace(p.Message))
	return b.String()
}
