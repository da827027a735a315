package results

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

func displayDate(iso string) string {
	t, err := domain.ParseDate(iso)
	if err != nil {
		return iso
	}
	return t.Format("02.01.2006")
}

func formatHistogram(h map[string]int) string {
	grades := make([]string, 0, len(h))
	for g := range h {
		grades = append(grades, g)
	}
	sort.Slice(grades, func(i, j int) bool {
		a, _ := strconv.Atoi(grades[i])
		b, _ := strconv.Atoi(grades[j])
		return a > b
	})

	parts := make([]string, 0, len(grades))
	for _, g := range grades {
		parts = append(parts, fmt.Sprintf("%s×%d", g, h[g]))
	}
	return strings.Join(parts, " ")
}

// FormatReport отчёт для отправки в Telegram, parse_mode=HTML
func FormatReport(r *domain.ResultsReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>Итоги: %s</b>\n", html.EscapeString(r.PeriodLabel))
	fmt.Fprintf(&b, "%s - %s\n\n", displayDate(r.Start), displayDate(r.End))

	b.WriteString("<b>Оценки</b>\n")
	if r.TotalMarks == 0 {
		b.WriteString("Оценок нет\n")
	} else {
		fmt.Fprintf(&b, "Всего: %d, чаще всего: %d\n", r.TotalMarks, r.MarksMode)
		fmt.Fprintf(&b, "%s\n", formatHistogram(r.MarksHistogram))
	}
	for _, s := range r.Subjects {
		fmt.Fprintf(&b, "• %s", html.EscapeString(s.SubjectName))
		if s.Average != "" {
			fmt.Fprintf(&b, " - <b>%s</b>", html.EscapeString(s.Average))
		}
		if s.Total > 0 {
			fmt.Fprintf(&b, " (%d: %s)", s.Total, formatHistogram(s.Histogram))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n<b>Домашние задания</b>\n")
	fmt.Fprintf(&b, "Всего: %d\n", r.HomeworkTotal)
	if r.HomeworkMaxDay != "" {
		fmt.Fprintf(&b, "Больше всего: %d (%s)\n", r.HomeworkMaxCount, displayDate(r.HomeworkMaxDay))
		fmt.Fprintf(&b, "Меньше всего: %d (%s)\n", r.HomeworkMinCount, displayDate(r.HomeworkMinDay))
		fmt.Fprintf(&b, "Медиана: %.1f\n", r.HomeworkMedian)
	}

	b.WriteString("\n<b>Посещаемость</b>\n")
	fmt.Fprintf(&b, "Уроков: %d, учебных дней: %d\n", r.LessonsTotal, r.SchoolDays)
	fmt.Fprintf(&b, "Посещено: %d, пропущено: %d (%.1f%%)\n", r.VisitedDays, r.SkippedDays, r.AttendanceRate)
	if r.VisitMinutes > 0 {
		fmt.Fprintf(&b, "В школе: %s, в среднем за день: %s\n", r.VisitDuration, r.AvgDayDuration)
	}
	if r.EarliestCheckIn != "" {
		fmt.Fprintf(&b, "Самый ранний приход: %s (%s)\n", r.EarliestCheckIn, displayDate(r.EarliestCheckInDay))
	}
	if r.LatestCheckOut != "" {
		fmt.Fprintf(&b, "Самый поздний уход: %s (%s)\n", r.LatestCheckOut, displayDate(r.LatestCheckOutDay))
	}

	if r.RankPlace != nil {
		fmt.Fprintf(&b, "\n🏆 Место в классе: %d\n", *r.RankPlace)
	}

	return strings.TrimRight(b.String(), "\n")
}
