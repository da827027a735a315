package telegram

import "github.com/admin/tg-bots/learnify-bot/internal/domain"

// ReplyMarkup объединение inline и reply клавиатур Bot API
type ReplyMarkup struct {
	InlineKeyboard [][]domain.InlineButton `json:"inline_keyboard,omitempty"`
	Keyboard       [][]KeyboardButton      `json:"keyboard,omitempty"`
	ResizeKeyboard bool                    `json:"resize_keyboard,omitempty"`
}

type KeyboardButton struct {
	Text string `json:"text"`
}

func toReplyMarkup(kb *domain.Keyboard) *ReplyMarkup {
	if kb == nil {
		return nil
	}
	if len(kb.Inline) > 0 {
		return &ReplyMarkup{InlineKeyboard: kb.Inline}
	}
	if len(kb.Reply) == 0 {
		return nil
	}

	rows := make([][]KeyboardButton, 0, len(kb.Reply))
	for _, row := range kb.Reply {
		buttons := make([]KeyboardButton, 0, len(row))
		for _, text := range row {
			buttons = append(buttons, KeyboardButton{Text: text})
		}
		rows = append(rows, buttons)
	}
	return &ReplyMarkup{Keyboard: rows, ResizeKeyboard: true}
}
