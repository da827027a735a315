package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

const (
	defaultPollingTimeout = 30
	pollingRetryDelay     = 5 * time.Second
)

var allowedUpdates = []string{"message", "callback_query", "pre_checkout_query"}

// UpdateHandler функция для обработки обновлений от Telegram
type UpdateHandler func(ctx context.Context, update *domain.Update) error

// Poller реализует long polling. Обновления обрабатываются последовательно,
// поэтому действия одного пользователя выполняются в порядке поступления
type Poller struct {
	client       *Client
	timeout      int
	handler      UpdateHandler
	lastUpdateID int64
	log          *slog.Logger
	httpClient   *http.Client // отдельный клиент с таймаутом больше long poll
}

func NewPoller(client *Client, config *Config, handler UpdateHandler, log *slog.Logger) *Poller {
	timeout := config.PollingTimeout
	if timeout <= 0 {
		timeout = defaultPollingTimeout
	}

	return &Poller{
		client:  client,
		timeout: timeout,
		handler: handler,
		log:     log,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout+10) * time.Second,
		},
	}
}

// Start блокирует до отмены контекста
func (p *Poller) Start(ctx context.Context) error {
	p.log.Info("starting telegram polling", "timeout", p.timeout)

	for {
		if ctx.Err() != nil {
			p.log.Info("polling stopped")
			return ctx.Err()
		}

		updates, err := p.getUpdates(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			p.log.Error("failed to get updates", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollingRetryDelay):
			}
			continue
		}

		for i := range updates {
			update := &updates[i]
			if update.UpdateID >= p.lastUpdateID {
				p.lastUpdateID = update.UpdateID + 1
			}

			if err := p.handler(ctx, update); err != nil {
				p.log.Error("failed to handle update",
					"error", err,
					"update_id", update.UpdateID,
				)
			}
		}
	}
}

func (p *Poller) getUpdates(ctx context.Context) ([]domain.Update, error) {
	allowed, _ := json.Marshal(allowedUpdates)
	q := url.Values{}
	q.Set("offset", fmt.Sprintf("%d", p.lastUpdateID))
	q.Set("timeout", fmt.Sprintf("%d", p.timeout))
	q.Set("allowed_updates", string(allowed))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.client.apiURL+"/getUpdates?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var apiResp struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description,omitempty"`
		ErrorCode   int             `json:"error_code,omitempty"`
		Updates     []domain.Update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}

	if !apiResp.OK {
		// 409 - активен webhook или другой экземпляр бота, пробуем на следующей итерации
		if apiResp.ErrorCode == http.StatusConflict {
			p.log.Warn("telegram API conflict - another bot instance or webhook is active",
				"description", apiResp.Description,
			)
			return nil, nil
		}
		return nil, &APIError{Method: "getUpdates", Code: apiResp.ErrorCode, Description: strings.TrimSpace(apiResp.Description)}
	}

	return apiResp.Updates, nil
}
