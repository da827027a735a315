package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

func day(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func span(entries []domain.CalendarEntry, from, to, kind, title string) []domain.CalendarEntry {
	for d := day(from); !d.After(day(to)); d = d.AddDate(0, 0, 1) {
		entries = append(entries, domain.CalendarEntry{Date: domain.MesTime{Time: d}, Type: kind, Title: title})
	}
	return entries
}

// schoolYear четыре четверти 2024/25, 23 февраля праздник внутри третьей
func schoolYear() []domain.CalendarEntry {
	var e []domain.CalendarEntry
	e = span(e, "2025-03-31", "2025-05-26", domain.CalendarWorkday, "")
	e = span(e, "2024-09-02", "2024-10-25", domain.CalendarWorkday, "")
	e = span(e, "2024-10-26", "2024-11-04", domain.CalendarVacation, "Осенние каникулы")
	e = span(e, "2024-11-05", "2024-12-27", domain.CalendarWorkday, "")
	e = span(e, "2024-12-28", "2025-01-08", domain.CalendarOther, "Зимние каникулы")
	e = span(e, "2025-01-09", "2025-02-22", domain.CalendarWorkday, "")
	e = span(e, "2025-02-23", "2025-02-23", domain.CalendarHoliday, "День защитника Отечества")
	e = span(e, "2025-02-24", "2025-03-21", domain.CalendarWorkday, "")
	e = span(e, "2025-03-22", "2025-03-30", domain.CalendarVacation, "")
	return e
}

func TestBuildQuarters(t *testing.T) {
	q := BuildQuarters(schoolYear())
	require.Len(t, q, 4)

	want := [][2]string{
		{"2024-09-02", "2024-10-25"},
		{"2024-11-05", "2024-12-27"},
		{"2025-01-09", "2025-03-21"},
		{"2025-03-31", "2025-05-26"},
	}
	for i, w := range want {
		assert.Equal(t, i+1, q[i].Number)
		assert.Equal(t, w[0], domain.FormatDate(q[i].Start), "start of q%d", i+1)
		assert.Equal(t, w[1], domain.FormatDate(q[i].End), "end of q%d", i+1)
	}
}

func TestDerivedPeriods(t *testing.T) {
	q := BuildQuarters(schoolYear())

	halves := HalfYears(q)
	require.Len(t, halves, 2)
	assert.Equal(t, q[0].Start, halves[0].Start)
	assert.Equal(t, q[1].End, halves[0].End)
	assert.Equal(t, q[2].Start, halves[1].Start)
	assert.Equal(t, q[3].End, halves[1].End)

	tri := Trimesters(q)
	require.Len(t, tri, 3)
	assert.Equal(t, q[0].Start, tri[0].Start)
	assert.Equal(t, q[1].End, tri[0].End)
	assert.Equal(t, domain.Period{Number: 2, Start: q[2].Start, End: q[2].End}, tri[1])
	assert.Equal(t, 3, tri[2].Number)

	assert.Len(t, Trimesters(q[:3]), 2)
	assert.Equal(t, q[:2], Trimesters(q[:2]))
	assert.Equal(t, q[:2], HalfYears(q[:2]))
	assert.Equal(t, q, Periods(domain.PeriodQuarters, q))
}

func TestDetectPeriodType(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   domain.PeriodType
	}{
		{"half years", []string{"1 полугодие", "2 полугодие"}, domain.PeriodHalfYears},
		{"trimesters", []string{"1 триместр", "2 триместр", "3 триместр"}, domain.PeriodTrimesters},
		{"quarters", []string{"1 четверть", "2 четверть"}, domain.PeriodQuarters},
		{"half year after trimester", []string{"1 триместр", "2 полугодие"}, domain.PeriodHalfYears},
		{"trimester after quarter", []string{"1 четверть", "2 триместр"}, domain.PeriodTrimesters},
		{"no labels", nil, domain.PeriodQuarters},
		{"two unknown", []string{"I", "II"}, domain.PeriodHalfYears},
		{"three unknown", []string{"I", "II", "III"}, domain.PeriodTrimesters},
		{"four unknown", []string{"I", "II", "III", "IV"}, domain.PeriodQuarters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPeriodType(tt.labels))
		})
	}
}

func TestCurrentPeriod(t *testing.T) {
	q := BuildQuarters(schoolYear())
	halves := HalfYears(q)

	assert.Equal(t, 1, CurrentPeriod(halves, day("2024-10-01").Add(13*time.Hour)))
	assert.Equal(t, 3, CurrentPeriod(q, day("2025-03-12")))
	// каникулы: последний завершившийся
	assert.Equal(t, 1, CurrentPeriod(q, day("2024-10-30")))
	assert.Equal(t, 3, CurrentPeriod(q, day("2025-03-25")))
	assert.Equal(t, 1, CurrentPeriod(q, day("2024-08-20")))
	assert.Equal(t, 4, CurrentPeriod(q, day("2025-07-01")))
}

func TestAcademicYear(t *testing.T) {
	start, end := AcademicYear(day("2025-03-12"))
	assert.Equal(t, "2024-09-01", domain.FormatDate(start))
	assert.Equal(t, "2025-08-31", domain.FormatDate(end))

	start, _ = AcademicYear(day("2025-09-01"))
	assert.Equal(t, "2025-09-01", domain.FormatDate(start))
}

func TestParseVisitDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"6 ч. 25 мин.", 385, true},
		{"6 ч. 25", 385, true},
		{"2 ч.", 120, true},
		{"45", 45, true},
		{"45 мин.", 45, true},
		{"-", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseVisitDuration(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "6 ч. 25 мин.", FormatMinutes(385))
	assert.Equal(t, "0 ч. 0 мин.", FormatMinutes(0))
}
