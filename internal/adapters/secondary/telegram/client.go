package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

const (
	defaultAPIBaseURL = "https://api.telegram.org"
	apiTimeout        = 30 * time.Second
	parseModeHTML     = "HTML"
)

// Client клиент для работы с Telegram Bot API
type Client struct {
	httpClient *http.Client
	apiURL     string
	fileURL    string
	log        *slog.Logger
}

// NewClient создаёт новый клиент для Telegram Bot API
func NewClient(cfg *Config, log *slog.Logger) *Client {
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = defaultAPIBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: apiTimeout},
		apiURL:     base + "/bot" + cfg.BotToken,
		fileURL:    base + "/file/bot" + cfg.BotToken,
		log:        log,
	}
}

// call POST запрос к методу Bot API, result может быть nil
func (c *Client) call(ctx context.Context, method string, req any, result any) error {
	var payload io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("telegram %s marshal failed: %w", method, err)
		}
		payload = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, payload)
	if err != nil {
		return fmt.Errorf("telegram %s create request failed: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram %s read body failed [status=%d]: %w", method, resp.StatusCode, err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		c.log.Error("failed to unmarshal telegram response",
			"error", err,
			"method", method,
			"status_code", resp.StatusCode,
			"body_preview", truncateString(string(body), 200),
		)
		return fmt.Errorf("telegram %s unmarshal failed [status=%d]: %w", method, resp.StatusCode, err)
	}

	if !apiResp.OK {
		return &APIError{Method: method, Code: apiResp.ErrorCode, Description: apiResp.Description}
	}

	if result != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("telegram %s result unmarshal failed: %w", method, err)
		}
	}
	return nil
}

// SendMessageRequest запрос на отправку сообщения
type SendMessageRequest struct {
	ChatID                int64        `json:"chat_id"`
	Text                  string       `json:"text"`
	ParseMode             string       `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool         `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *ReplyMarkup `json:"reply_markup,omitempty"`
}

// SentMessage минимальный результат sendMessage
type SentMessage struct {
	MessageID int64 `json:"message_id"`
}

// SendMessage отправляет HTML сообщение, возвращает message_id
func (c *Client) SendMessage(ctx context.Context, msg domain.OutgoingMessage) (int64, error) {
	req := SendMessageRequest{
		ChatID:                msg.ChatID,
		Text:                  msg.Text,
		ParseMode:             parseModeHTML,
		DisableWebPagePreview: true,
		ReplyMarkup:           toReplyMarkup(msg.Keyboard),
	}

	var sent SentMessage
	if err := c.call(ctx, "sendMessage", req, &sent); err != nil {
		return 0, err
	}

	c.log.Debug("message sent successfully",
		"chat_id", msg.ChatID,
		"message_id", sent.MessageID,
	)
	return sent.MessageID, nil
}

// Send реализует service.IOutbound
func (c *Client) Send(ctx context.Context, msg domain.OutgoingMessage) error {
	_, err := c.SendMessage(ctx, msg)
	return err
}

// EditMessageText меняет текст и клавиатуру уже отправленного сообщения
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *domain.Keyboard) error {
	req := struct {
		ChatID      int64        `json:"chat_id"`
		MessageID   int64        `json:"message_id"`
		Text        string       `json:"text"`
		ParseMode   string       `json:"parse_mode"`
		ReplyMarkup *ReplyMarkup `json:"reply_markup,omitempty"`
	}{chatID, messageID, text, parseModeHTML, toReplyMarkup(keyboard)}

	return c.call(ctx, "editMessageText", req, nil)
}

// AnswerCallbackQuery отвечает на нажатие inline кнопки
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string, text string, showAlert bool) error {
	req := struct {
		CallbackQueryID string `json:"callback_query_id"`
		Text            string `json:"text,omitempty"`
		ShowAlert       bool   `json:"show_alert,omitempty"`
	}{callbackID, text, showAlert}

	return c.call(ctx, "answerCallbackQuery", req, nil)
}

// ChatMember статус участника канала
type ChatMember struct {
	Status string `json:"status"`
}

// IsChannelMember проверяет подписку на обязательный канал
func (c *Client) IsChannelMember(ctx context.Context, channelID string, userID int64) (bool, error) {
	req := struct {
		ChatID string `json:"chat_id"`
		UserID int64  `json:"user_id"`
	}{channelID, userID}

	var member ChatMember
	if err := c.call(ctx, "getChatMember", req, &member); err != nil {
		return false, err
	}

	switch member.Status {
	case "creator", "administrator", "member", "restricted":
		return true, nil
	default:
		return false, nil
	}
}

// File метаданные файла для скачивания
type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	FilePath string `json:"file_path"`
}

// DownloadFile получает файл по file_id, тело закрывает вызывающий
func (c *Client) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	var file File
	if err := c.call(ctx, "getFile", map[string]string{"file_id": fileID}, &file); err != nil {
		return nil, 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL+"/"+file.FilePath, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("telegram file request failed: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("telegram file download failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("telegram file download failed with status %d", resp.StatusCode)
	}

	return resp.Body, file.FileSize, nil
}

// BotCommand представляет команду бота
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// SetMyCommands регистрирует команды бота в меню
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	req := struct {
		Commands []BotCommand `json:"commands"`
	}{commands}

	if err := c.call(ctx, "setMyCommands", req, nil); err != nil {
		return err
	}

	c.log.Info("bot commands registered successfully", "commands_count", len(commands))
	return nil
}

// SetWebhook включает webhook с секретом в заголовке X-Telegram-Bot-Api-Secret-Token
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	req := struct {
		URL            string   `json:"url"`
		SecretToken    string   `json:"secret_token,omitempty"`
		AllowedUpdates []string `json:"allowed_updates"`
	}{url, secret, allowedUpdates}

	return c.call(ctx, "setWebhook", req, nil)
}

// DeleteWebhook удаляет webhook (нужно вызывать перед запуском polling)
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if err := c.call(ctx, "deleteWebhook", map[string]bool{"drop_pending_updates": false}, nil); err != nil {
		return err
	}
	c.log.Info("webhook deleted successfully")
	return nil
}
