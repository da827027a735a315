package telegram

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// APIResponse базовая структура ответа от Telegram API
type APIResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// APIError ошибка, которую вернул сам Telegram
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s error [code=%d]: %s", e.Method, e.Code, e.Description)
}

// IsBlocked пользователь заблокировал бота или удалил чат
func (e *APIError) IsBlocked() bool {
	return e.Code == 403
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// IsAlreadyRefunded Telegram отклонил возврат, так как он уже сделан
func (e *APIError) IsAlreadyRefunded() bool {
	return e.Code == 400 && strings.Contains(e.Description, "CHARGE_ALREADY_REFUNDED")
}
