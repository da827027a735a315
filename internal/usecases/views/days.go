package views

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
)

const (
	noHomework = "Домашних заданий нет"
	noLessons  = "Уроков нет"
	NoMarks    = "Оценок нет"
	noVisits   = "Нет данных о посещениях"
)

var weekdays = [...]string{"Воскресенье", "Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота"}

var shortWeekdays = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

func dayTitle(icon, title string, day time.Time) string {
	return fmt.Sprintf("%s <b>%s на %s, %s</b>\n\n", icon, title, weekdays[day.Weekday()], day.Format("02.01.2006"))
}

// Homework домашние задания на день
func (s *Service) Homework(ctx context.Context, user *domain.User, date time.Time, dir Direction) (*View, error) {
	settings := s.settings(ctx, user.UserID)

	start, err := s.resolveStart(ctx, user, date, dir, settings.NextDayIfLessonsEndHomeworks)
	if err != nil {
		return nil, err
	}

	step := 0
	if settings.SkipEmptyDaysHomeworks {
		step = dir.step()
	}

	return s.walk(ctx, cache.ViewHomework, user, settings.UseCache, start, step, func(ctx context.Context, day time.Time) (string, bool, error) {
		list, err := s.Mes.GetHomeworks(ctx, user.Token, user.StudentID, day, day)
		if err != nil {
			return "", false, err
		}
		return formatHomework(day, list, settings.EnableHomeworkDoneFunction), len(list) == 0, nil
	})
}

func formatHomework(day time.Time, list []domain.Homework, showDone bool) string {
	var b strings.Builder
	b.WriteString(dayTitle("📚", "Домашнее задание", day))
	if len(list) == 0 {
		b.WriteString(noHomework)
		return b.String()
	}

	for i, hw := range list {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if showDone && hw.IsDone {
			b.WriteString("✅ ")
		}
		fmt.Fprintf(&b, "<b>%s</b>\n%s", html.EscapeString(hw.SubjectName), html.EscapeString(strings.TrimSpace(hw.Description)))
		if hw.MaterialsCount > 0 {
			fmt.Fprintf(&b, "\n📎 Материалов: %d", hw.MaterialsCount)
		}
	}
	return b.String()
}

// Schedule расписание на день
func (s *Service) Schedule(ctx context.Context, user *domain.User, date time.Time, dir Direction) (*View, error) {
	settings := s.settings(ctx, user.UserID)

	start, err := s.resolveStart(ctx, user, date, dir, settings.NextDayIfLessonsEndSchedule)
	if err != nil {
		return nil, err
	}

	step := 0
	if settings.SkipEmptyDaysSchedule {
		step = dir.step()
	}

	return s.walk(ctx, cache.ViewSchedule, user, settings.UseCache, start, step, func(ctx context.Context, day time.Time) (string, bool, error) {
		events, err := s.Mes.GetEvents(ctx, user.Token, user.PersonID, day, day)
		if err != nil {
			return "", false, err
		}
		return formatSchedule(day, events), len(events) == 0, nil
	})
}

func formatSchedule(day time.Time, events []domain.ScheduleEvent) string {
	var b strings.Builder
	b.WriteString(dayTitle("🗓", "Расписание", day))
	if len(events) == 0 {
		b.WriteString(noLessons)
		return b.String()
	}

	sorted := make([]domain.ScheduleEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartAt.Before(sorted[j].StartAt.Time) })

	for i, e := range sorted {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s-%s <b>%s</b>", i+1,
			e.StartAt.In(domain.MesLocation).Format("15:04"),
			e.FinishAt.In(domain.MesLocation).Format("15:04"),
			html.EscapeString(e.SubjectName))
		if e.RoomNumber != "" {
			fmt.Fprintf(&b, " каб. %s", html.EscapeString(e.RoomNumber))
		}
		switch {
		case e.Cancelled:
			b.WriteString(" ❌ отменён")
		case e.Replaced:
			b.WriteString(" 🔁 замена")
		}
	}
	return b.String()
}

// Marks оценки за день. Пустые дни не пропускаются
func (s *Service) Marks(ctx context.Context, user *domain.User, date time.Time, dir Direction) (*View, error) {
	settings := s.settings(ctx, user.UserID)

	day := domain.Day(date)
	if dir == Today {
		day = s.today()
	}

	return s.walk(ctx, cache.ViewMarks, user, settings.UseCache, day, 0, func(ctx context.Context, day time.Time) (string, bool, error) {
		marks, err := s.Mes.GetMarks(ctx, user.Token, user.StudentID, day, day)
		if err != nil {
			return "", false, err
		}
		return formatMarks(day, marks), len(marks) == 0, nil
	})
}

func markValue(m *domain.Mark) string {
	v := html.EscapeString(m.Value)
	if m.Weight > 0 {
		v += domain.Subscript(m.Weight)
	}
	return v
}

func formatMarks(day time.Time, marks []domain.Mark) string {
	var b strings.Builder
	b.WriteString(dayTitle("📝", "Оценки", day))
	if len(marks) == 0 {
		b.WriteString(NoMarks)
		return b.String()
	}

	for i := range marks {
		m := &marks[i]
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "<b>%s</b>: %s", html.EscapeString(m.SubjectName), markValue(m))
		if m.ControlFormName != "" {
			fmt.Fprintf(&b, " - %s", html.EscapeString(m.ControlFormName))
		}
		if m.IsExam {
			b.WriteString(" ⭐")
		}
	}
	return b.String()
}

// WeekStart понедельник недели, в которую попадает day
func WeekStart(day time.Time) time.Time {
	day = domain.Day(day)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Visits проходы через турникет за неделю
func (s *Service) Visits(ctx context.Context, user *domain.User, weekStart time.Time) (*View, error) {
	settings := s.settings(ctx, user.UserID)
	monday := WeekStart(weekStart)

	return s.walk(ctx, cache.ViewVisits, user, settings.UseCache, monday, 0, func(ctx context.Context, monday time.Time) (string, bool, error) {
		sunday := monday.AddDate(0, 0, 6)
		days, err := s.Mes.GetVisits(ctx, user.Token, user.ContractID, monday, sunday)
		if err != nil {
			return "", false, err
		}
		return formatVisits(monday, sunday, days), len(days) == 0, nil
	})
}

func formatVisits(monday, sunday time.Time, days []domain.VisitDay) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚪 <b>Посещения %s - %s</b>\n\n", monday.Format("02.01"), sunday.Format("02.01.2006"))
	if len(days) == 0 {
		b.WriteString(noVisits)
		return b.String()
	}

	sorted := make([]domain.VisitDay, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date.Time) })

	for i, d := range sorted {
		if i > 0 {
			b.WriteString("\n")
		}
		day := d.Date.In(domain.MesLocation)
		fmt.Fprintf(&b, "%s %s: ", shortWeekdays[day.Weekday()], day.Format("02.01"))

		var parts []string
		for _, v := range d.Visits {
			if strings.TrimSpace(v.Duration) == "-" {
				parts = append(parts, "отсутствие")
				continue
			}
			parts = append(parts, fmt.Sprintf("%s - %s (%s)", v.In, v.Out, v.Duration))
		}
		if len(parts) == 0 {
			parts = append(parts, "нет проходов")
		}
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}

// SubjectMarks оценки по предмету за все периоды
func (s *Service) SubjectMarks(ctx context.Context, user *domain.User, subjectID int64) (*View, error) {
	settings := s.settings(ctx, user.UserID)
	key := cache.Key(cache.ViewMarksSubject, user.UserID, fmt.Sprint(subjectID))
	today := s.today()

	p, err := s.load(ctx, cache.ViewMarksSubject, settings.UseCache, key, today, func(ctx context.Context, _ time.Time) (string, bool, error) {
		sm, err := s.Mes.GetSubjectMarksForSubject(ctx, user.Token, user.StudentID, subjectID)
		if err != nil {
			return "", false, err
		}
		return formatSubjectMarks(sm), countMarks(sm) == 0, nil
	})
	if err != nil {
		return nil, err
	}
	s.save(ctx, settings.UseCache, p)
	return p.view, nil
}

func countMarks(sm *domain.SubjectMarks) int {
	n := 0
	for _, p := range sm.Periods {
		n += len(p.Marks)
	}
	return n
}

func formatSubjectMarks(sm *domain.SubjectMarks) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📘 <b>%s</b>\n", html.EscapeString(sm.SubjectName))
	if countMarks(sm) == 0 {
		b.WriteString("\n" + NoMarks)
		return b.String()
	}

	for _, p := range sm.Periods {
		fmt.Fprintf(&b, "\n<b>%s</b>", html.EscapeString(p.Title))
		if p.Value != "" {
			fmt.Fprintf(&b, " (средний %s)", html.EscapeString(p.Value))
		}
		b.WriteString("\n")
		if len(p.Marks) == 0 {
			b.WriteString(NoMarks + "\n")
			continue
		}
		values := make([]string, len(p.Marks))
		for i := range p.Marks {
			values[i] = markValue(&p.Marks[i])
		}
		b.WriteString(strings.Join(values, " ") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Subjects предметы ученика для выбора в меню
func (s *Service) Subjects(ctx context.Context, user *domain.User) ([]domain.Subject, error) {
	subjects, err := s.Mes.GetSubjects(ctx, user.Token, user.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get subjects: %w", err)
	}
	return subjects, nil
}
