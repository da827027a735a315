package telegram

import (
	"fmt"
	"strconv"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	viewsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/views"
)

// префиксы callback_data, лимит Bot API 64 байта
const (
	cbHomework  = "hw"
	cbSchedule  = "sch"
	cbMarks     = "mk"
	cbVisits    = "vis"
	cbResults   = "res"
	cbRefresh   = "resr"
	cbLogin     = "login"
	cbBuy       = "buy"
	cbGift      = "gift"
	cbSetting   = "set"
	cbSubject   = "sm"
	cbGdz       = "gdz"
	cbBook      = "book"
	cbBookGet   = "bookget"
	mainMenuRow = 3
)

var directions = map[string]viewsUsecase.Direction{
	"l": viewsUsecase.Left,
	"r": viewsUsecase.Right,
	"e": viewsUsecase.Exact,
	"t": viewsUsecase.Today,
}

func btn(text, data string) domain.InlineButton {
	return domain.InlineButton{Text: text, CallbackData: data}
}

// navKeyboard стрелки вокруг показанного дня
func navKeyboard(view string, day time.Time) *domain.Keyboard {
	prev := domain.FormatDate(day.AddDate(0, 0, -1))
	next := domain.FormatDate(day.AddDate(0, 0, 1))
	return &domain.Keyboard{Inline: [][]domain.InlineButton{{
		btn("◀️", fmt.Sprintf("%s:%s:l", view, prev)),
		btn("🔄", fmt.Sprintf("%s:%s:e", view, domain.FormatDate(day))),
		btn("▶️", fmt.Sprintf("%s:%s:r", view, next)),
	}}}
}

func weekKeyboard(monday time.Time) *domain.Keyboard {
	return &domain.Keyboard{Inline: [][]domain.InlineButton{{
		btn("◀️ Неделя", cbVisits+":"+domain.FormatDate(monday.AddDate(0, 0, -7))),
		btn("Неделя ▶️", cbVisits+":"+domain.FormatDate(monday.AddDate(0, 0, 7))),
	}}}
}

func resultsKeyboard(r *domain.ResultsReport) *domain.Keyboard {
	t := string(r.PeriodType)
	var row []domain.InlineButton
	if r.PeriodNumber > 1 {
		row = append(row, btn("◀️", fmt.Sprintf("%s:%s:%d", cbResults, t, r.PeriodNumber-1)))
	}
	row = append(row, btn("🔄 Обновить", fmt.Sprintf("%s:%s:%d", cbRefresh, t, r.PeriodNumber)))
	if r.PeriodNumber < r.PeriodsCount {
		row = append(row, btn("▶️", fmt.Sprintf("%s:%s:%d", cbResults, t, r.PeriodNumber+1)))
	}
	return &domain.Keyboard{Inline: [][]domain.InlineButton{row}}
}

func loginKeyboard() *domain.Keyboard {
	return &domain.Keyboard{Inline: [][]domain.InlineButton{
		{btn("🔑 Логин и пароль mos.ru", cbLogin+":password")},
		{btn("📷 QR код", cbLogin+":qr")},
		{btn("🎫 Токен", cbLogin+":token")},
	}}
}

func mainKeyboard() *domain.Keyboard {
	buttons := []string{
		"📚 Домашнее задание", "🗓 Расписание", "📝 Оценки",
		"🚶 Посещения", "📊 Итоги", "🔔 Уведомления",
		"📖 Предметы", "⚙️ Настройки", "⭐ Премиум",
	}
	var rows [][]string
	for i := 0; i < len(buttons); i += mainMenuRow {
		rows = append(rows, buttons[i:i+mainMenuRow])
	}
	return &domain.Keyboard{Reply: rows}
}

// menuCommands кнопки главного меню ведут в те же команды
var menuCommands = map[string]string{
	"📚 Домашнее задание": "homework",
	"🗓 Расписание":       "schedule",
	"📝 Оценки":           "marks",
	"🚶 Посещения":        "visits",
	"📊 Итоги":            "results",
	"🔔 Уведомления":      "notifications",
	"📖 Предметы":         "subjects",
	"⚙️ Настройки":        "settings",
	"⭐ Премиум":           "premium",
}

func plansKeyboard(plans []domain.PremiumSubscriptionPlan) *domain.Keyboard {
	rows := make([][]domain.InlineButton, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []domain.InlineButton{
			btn(fmt.Sprintf("%s · %d ⭐", p.Title, p.Price), cbBuy+":"+p.ID),
			btn("🎁", cbGift+":"+p.ID),
		})
	}
	return &domain.Keyboard{Inline: rows}
}

func subjectKeyboard(subjectID int64) *domain.Keyboard {
	id := strconv.FormatInt(subjectID, 10)
	return &domain.Keyboard{Inline: [][]domain.InlineButton{
		{btn("🔗 Решебник", cbGdz+":"+id), btn("📕 Загрузить учебник", cbBook+":"+id)},
		{btn("📥 Скачать учебник", cbBookGet+":"+id)},
	}}
}

func subjectsKeyboard(subjects []domain.Subject) *domain.Keyboard {
	rows := make([][]domain.InlineButton, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, []domain.InlineButton{btn(s.Name, cbSubject+":"+strconv.FormatInt(s.ID, 10))})
	}
	return &domain.Keyboard{Inline: rows}
}

type settingToggle struct {
	key   string
	title string
	field func(s *domain.Settings) *bool
}

var settingToggles = []settingToggle{
	{"mark", "Уведомления об оценках", func(s *domain.Settings) *bool { return &s.EnableNewMarkNotification }},
	{"hw", "Уведомления о домашке", func(s *domain.Settings) *bool { return &s.EnableHomeworkNotification }},
	{"skiphw", "Пропускать дни без домашки", func(s *domain.Settings) *bool { return &s.SkipEmptyDaysHomeworks }},
	{"skipsch", "Пропускать дни без уроков", func(s *domain.Settings) *bool { return &s.SkipEmptyDaysSchedule }},
	{"nexthw", "Домашка на завтра после уроков", func(s *domain.Settings) *bool { return &s.NextDayIfLessonsEndHomeworks }},
	{"nextsch", "Расписание на завтра после уроков", func(s *domain.Settings) *bool { return &s.NextDayIfLessonsEndSchedule }},
	{"cache", "Кэшировать ответы МЭШ", func(s *domain.Settings) *bool { return &s.UseCache }},
	{"done", "Отметки о выполненной домашке", func(s *domain.Settings) *bool { return &s.EnableHomeworkDoneFunction }},
	{"exp", "Экспериментальные функции", func(s *domain.Settings) *bool { return &s.ExperimentalFeatures }},
}

func findToggle(key string) (settingToggle, bool) {
	for _, t := range settingToggles {
		if t.key == key {
			return t, true
		}
	}
	return settingToggle{}, false
}

func settingsKeyboard(st *domain.Settings) *domain.Keyboard {
	rows := make([][]domain.InlineButton, 0, len(settingToggles))
	for _, t := range settingToggles {
		mark := "❌ "
		if *t.field(st) {
			mark = "✅ "
		}
		rows = append(rows, []domain.InlineButton{btn(mark+t.title, cbSetting+":"+t.key)})
	}
	return &domain.Keyboard{Inline: rows}
}
