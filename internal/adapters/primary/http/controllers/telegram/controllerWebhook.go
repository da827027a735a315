package telegram

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	telegramService "github.com/admin/tg-bots/learnify-bot/internal/services/telegram"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler обработчик обновлений, *telegramService.Service
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *domain.Update) error
}

var _ UpdateHandler = (*telegramService.Service)(nil)

type Controller struct {
	Handler UpdateHandler
	Secret  string
	Log     *slog.Logger
}

func New(handler UpdateHandler, secret string, log *slog.Logger) *Controller {
	return &Controller{
		Handler: handler,
		Secret:  secret,
		Log:     log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhook/", c.handleWebhook)
}

func (c *Controller) handleWebhook(ctx *gin.Context) {
	if c.Secret != "" && subtle.ConstantTimeCompare([]byte(ctx.GetHeader(secretHeader)), []byte(c.Secret)) != 1 {
		c.Log.Warn("webhook request with wrong secret token", "client_ip", ctx.ClientIP())
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "secret token required"})
		return
	}

	var update domain.Update
	if err := ctx.ShouldBindJSON(&update); err != nil {
		c.Log.Error("failed to bind webhook request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	c.Log.Debug("received webhook update", "update_id", update.UpdateID)

	if err := c.Handler.HandleUpdate(ctx.Request.Context(), &update); err != nil {
		// уже залогированная бизнес-ошибка не должна вызывать повтор доставки
		if domain.IsBusinessError(err) {
			ctx.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}
		c.Log.Error("failed to handle update", "error", err, "update_id", update.UpdateID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process update"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
