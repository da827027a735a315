package events

import (
	"fmt"
	"html"
	"strings"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

// handler обработка одного типа уведомления
type handler struct {
	// enabled фильтр фонового режима
	enabled func(s *domain.Settings) bool
	format  func(n *domain.MesNotification) string
}

func markNotifications(s *domain.Settings) bool     { return s.EnableNewMarkNotification }
func homeworkNotifications(s *domain.Settings) bool { return s.EnableHomeworkNotification }

var handlers = map[string]handler{
	domain.EventCreateMark:     {enabled: markNotifications, format: formatCreateMark},
	domain.EventUpdateMark:     {enabled: markNotifications, format: formatUpdateMark},
	domain.EventDeleteMark:     {enabled: markNotifications, format: formatDeleteMark},
	domain.EventCreateHomework: {enabled: homeworkNotifications, format: formatCreateHomework},
	domain.EventUpdateHomework: {enabled: homeworkNotifications, format: formatUpdateHomework},
}

func markText(value *string, weight *int) string {
	if value == nil {
		return "?"
	}
	text := html.EscapeString(*value)
	if weight != nil && *weight > 0 {
		text += domain.Subscript(*weight)
	}
	return text
}

func controlForm(n *domain.MesNotification) string {
	if n.ControlFormName == nil || *n.ControlFormName == "" {
		return ""
	}
	return " - " + html.EscapeString(*n.ControlFormName)
}

func header(icon string, n *domain.MesNotification) string {
	return fmt.Sprintf("%s <b>%s</b>\n", icon, html.EscapeString(n.SubjectName))
}

func footer(n *domain.MesNotification) string {
	if n.Datetime.IsZero() {
		return ""
	}
	return "\n🕒 " + n.Datetime.In(domain.MesLocation).Format("02.01.2006 15:04")
}

func formatCreateMark(n *domain.MesNotification) string {
	return header("📝", n) +
		"Новая оценка: " + markText(n.NewMarkValue, n.NewMarkWeight) + controlForm(n) +
		footer(n)
}

func formatUpdateMark(n *domain.MesNotification) string {
	return header("✏️", n) +
		"Оценка изменена: " + markText(n.OldMarkValue, n.OldMarkWeight) +
		" → " + markText(n.NewMarkValue, n.NewMarkWeight) + controlForm(n) +
		footer(n)
}

func formatDeleteMark(n *domain.MesNotification) string {
	return header("🗑", n) +
		"Оценка удалена: " + markText(n.OldMarkValue, n.OldMarkWeight) + controlForm(n) +
		footer(n)
}

func homeworkText(title string, n *domain.MesNotification) string {
	var b strings.Builder
	b.WriteString(header("📚", n))
	b.WriteString(title)
	if n.NewDatePreparedFor != nil && !n.NewDatePreparedFor.IsZero() {
		b.WriteString(" на ")
		b.WriteString(n.NewDatePreparedFor.In(domain.MesLocation).Format("02.01"))
	}
	b.WriteString(":")
	if n.NewHwDescription != nil && *n.NewHwDescription != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(*n.NewHwDescription))
	}
	b.WriteString(footer(n))
	return b.String()
}

func formatCreateHomework(n *domain.MesNotification) string {
	return homeworkText("Новое домашнее задание", n)
}

func formatUpdateHomework(n *domain.MesNotification) string {
	return homeworkText("Домашнее задание изменено", n)
}
