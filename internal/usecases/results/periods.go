package results

import (
	"sort"
	"strings"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

const (
	holidayMarker   = "каникул"
	halfYearMarker  = "полугоди"
	trimesterMarker = "триместр"
	quarterMarker   = "четверт"
)

func isBreak(e *domain.CalendarEntry) bool {
	return e.Type == domain.CalendarVacation || strings.Contains(strings.ToLower(e.Title), holidayMarker)
}

func isStudy(e *domain.CalendarEntry) bool {
	return e.Type == domain.CalendarWorkday || e.Type == domain.CalendarOther
}

// BuildQuarters восстанавливает четверти: максимальные отрезки workday|other между каникулами.
// Отдельные праздничные дни отрезок не разрывают
func BuildQuarters(entries []domain.CalendarEntry) []domain.Period {
	sorted := make([]domain.CalendarEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date.Time) })

	var (
		quarters []domain.Period
		current  *domain.Period
	)
	closeRun := func() {
		if current != nil {
			quarters = append(quarters, *current)
			current = nil
		}
	}

	for i := range sorted {
		e := &sorted[i]
		switch {
		case isBreak(e):
			closeRun()
		case isStudy(e):
			day := domain.Day(e.Date.Time)
			if current == nil {
				current = &domain.Period{Number: len(quarters) + 1, Start: day, End: day}
				continue
			}
			current.End = day
		}
	}
	closeRun()

	return quarters
}

func merge(number int, a, b domain.Period) domain.Period {
	return domain.Period{Number: number, Start: a.Start, End: b.End}
}

func renumber(periods []domain.Period) []domain.Period {
	out := make([]domain.Period, len(periods))
	for i, p := range periods {
		p.Number = i + 1
		out[i] = p
	}
	return out
}

// HalfYears [q1+q2, q3+q4]. Из двух отрезков получаются они же
func HalfYears(q []domain.Period) []domain.Period {
	switch len(q) {
	case 0, 1, 2:
		return renumber(q)
	case 3:
		return []domain.Period{merge(1, q[0], q[1]), {Number: 2, Start: q[2].Start, End: q[2].End}}
	default:
		return []domain.Period{merge(1, q[0], q[1]), merge(2, q[2], q[len(q)-1])}
	}
}

// Trimesters [q1+q2, q3, q4?]. Из двух четвертей получаются они же
func Trimesters(q []domain.Period) []domain.Period {
	if len(q) <= 2 {
		return renumber(q)
	}
	out := append([]domain.Period{merge(1, q[0], q[1])}, q[2:]...)
	return renumber(out)
}

// Periods периоды нужного типа из восстановленных четвертей
func Periods(t domain.PeriodType, quarters []domain.Period) []domain.Period {
	switch t {
	case domain.PeriodHalfYears:
		return HalfYears(quarters)
	case domain.PeriodTrimesters:
		return Trimesters(quarters)
	default:
		return renumber(quarters)
	}
}

// DetectPeriodType тип периодов по названиям из оценок предмета.
// Если названия не распознаны, решает их количество
func DetectPeriodType(labels []string) domain.PeriodType {
	var halfYears, trimesters, quarters bool
	for _, l := range labels {
		l = strings.ToLower(l)
		halfYears = halfYears || strings.Contains(l, halfYearMarker)
		trimesters = trimesters || strings.Contains(l, trimesterMarker)
		quarters = quarters || strings.Contains(l, quarterMarker)
	}

	// полугодие важнее триместра, триместр важнее четверти
	switch {
	case halfYears:
		return domain.PeriodHalfYears
	case trimesters:
		return domain.PeriodTrimesters
	}
	if quarters || len(labels) == 0 {
		return domain.PeriodQuarters
	}

	switch {
	case len(labels) <= 2:
		return domain.PeriodHalfYears
	case len(labels) == 3:
		return domain.PeriodTrimesters
	default:
		return domain.PeriodQuarters
	}
}

// CurrentPeriod номер периода, содержащего today, иначе последнего завершившегося, иначе 1
func CurrentPeriod(periods []domain.Period, today time.Time) int {
	day := domain.Day(today)
	latest := 0
	for _, p := range periods {
		if p.Contains(day) {
			return p.Number
		}
		if p.End.Before(day) {
			latest = p.Number
		}
	}
	if latest > 0 {
		return latest
	}
	return 1
}

// AcademicYear границы учебного года, в который попадает day: 1 сентября - 31 августа
func AcademicYear(day time.Time) (time.Time, time.Time) {
	day = domain.Day(day)
	year := day.Year()
	if day.Month() < time.September {
		year--
	}
	start := time.Date(year, time.September, 1, 0, 0, 0, 0, domain.MesLocation)
	return start, start.AddDate(1, 0, -1)
}
