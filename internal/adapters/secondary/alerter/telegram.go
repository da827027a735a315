package alerter

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

// sender отправка через основного бота
type sender interface {
	Send(ctx context.Context, msg domain.OutgoingMessage) error
}

// Client отправляет алерты в служебный чат
type Client struct {
	sender sender
	chatID int64
	log    *slog.Logger
}

func NewClient(cfg *Config, sender sender, log *slog.Logger) *Client {
	return &Client{
		sender: sender,
		chatID: cfg.ChatID,
		log:    log,
	}
}

// SendAlert без настроенного чата алерт только логируется
func (c *Client) SendAlert(ctx context.Context, message string) error {
	if c.chatID == 0 {
		c.log.Warn("alert (no alert chat configured)", "message", message)
		return nil
	}

	err := c.sender.Send(ctx, domain.OutgoingMessage{
		ChatID: c.chatID,
		Text:   "🚨 <b>learnify_bot</b>\n<pre>" + html.EscapeString(message) + "</pre>",
	})
	if err != nil {
		c.log.Warn("failed to send alert", "error", err, "chat_id", c.chatID)
		return fmt.Errorf("failed to send alert: %w", err)
	}

	c.log.Debug("alert sent successfully", "chat_id", c.chatID)
	return nil
}
