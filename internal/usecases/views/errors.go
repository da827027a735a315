package views

import (
	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

// Тексты ошибок для пользователя
const (
	MsgUnauthorized   = "🔒 Сессия МЭШ истекла. Войдите заново."
	MsgTimeout        = "⏳ МЭШ не ответил вовремя. Попробуйте ещё раз чуть позже."
	MsgUpstream       = "⚠️ Сервер МЭШ сейчас недоступен. Попробуйте позже."
	MsgValidation     = "❗ Проверьте введённые данные и попробуйте снова."
	MsgPaymentDispute = "💳 С платежом возникла проблема, звёзды будут возвращены."
	MsgInternal       = "😔 Что-то пошло не так. Мы уже разбираемся."
)

// MapError сводит ошибку к сообщению пользователю. Реакцию на KindUnauthorized
// (деактивация и приглашение войти) выполняет вызывающий
func MapError(err error) (string, domain.ErrorKind) {
	kind := domain.Classify(err)
	switch kind {
	case domain.KindNone:
		return "", kind
	case domain.KindUnauthorized:
		return MsgUnauthorized, kind
	case domain.KindTimeout:
		return MsgTimeout, kind
	case domain.KindUpstream:
		return MsgUpstream, kind
	case domain.KindValidation:
		return MsgValidation, kind
	case domain.KindPaymentDispute:
		return MsgPaymentDispute, kind
	default:
		return MsgInternal, kind
	}
}
