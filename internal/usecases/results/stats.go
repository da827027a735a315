package results

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

// absenceDuration в длительности прохода означает отсутствие
const absenceDuration = "-"

var (
	hoursMinutesRe = regexp.MustCompile(`^(\d+)\s*ч\.?\s*(?:(\d+)\s*(?:мин\.?)?)?$`)
	minutesRe      = regexp.MustCompile(`^(\d+)\s*(?:мин\.?)?$`)
)

// ParseVisitDuration минуты из "N ч. M мин.", "N ч. M" или "N"
func ParseVisitDuration(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if m := hoursMinutesRe.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes := 0
		if m[2] != "" {
			minutes, _ = strconv.Atoi(m[2])
		}
		return hours*60 + minutes, true
	}
	if m := minutesRe.FindStringSubmatch(s); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		return minutes, true
	}
	return 0, false
}

// FormatMinutes 135 -> "2 ч. 15 мин."
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%d ч. %d мин.", minutes/60, minutes%60)
}

// Round1 округление до одного знака
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// markStats целые оценки: количество, мода и гистограмма
func markStats(values []int) (total, mode int, histogram map[string]int) {
	histogram = make(map[string]int)
	counts := make(map[int]int)
	for _, v := range values {
		counts[v]++
		histogram[strconv.Itoa(v)]++
	}
	best := 0
	for v, c := range counts {
		if c > best || (c == best && v > mode) {
			best, mode = c, v
		}
	}
	return len(values), mode, histogram
}

// intMark только целые оценки, "5-" и "зачёт" не считаются
func intMark(value string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return v, true
}

type homeworkStats struct {
	total              int
	maxDay, minDay     string
	maxCount, minCount int
	median             float64
}

func countHomeworks(homeworks []domain.Homework) homeworkStats {
	byDay := make(map[string]int)
	for i := range homeworks {
		byDay[domain.FormatDate(homeworks[i].Date.Time)]++
	}

	st := homeworkStats{total: len(homeworks)}
	if len(byDay) == 0 {
		return st
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	counts := make([]int, 0, len(days))
	st.maxCount, st.minCount = -1, math.MaxInt
	for _, d := range days {
		c := byDay[d]
		counts = append(counts, c)
		if c > st.maxCount {
			st.maxCount, st.maxDay = c, d
		}
		if c < st.minCount {
			st.minCount, st.minDay = c, d
		}
	}

	sort.Ints(counts)
	n := len(counts)
	if n%2 == 1 {
		st.median = float64(counts[n/2])
	} else {
		st.median = float64(counts[n/2-1]+counts[n/2]) / 2
	}
	return st
}

// schoolDays уроки по дням: плановые, не отменённые, обычные и не пропущенные
func schoolDays(events []domain.ScheduleEvent) (lessons int, days map[string]int) {
	days = make(map[string]int)
	for i := range events {
		if !events[i].IsSchoolLesson() {
			continue
		}
		lessons++
		days[domain.FormatDate(events[i].StartAt.Time)]++
	}
	return lessons, days
}

type attendance struct {
	visited     int
	minutes     int
	checkIn     string
	checkInDay  string
	checkOut    string
	checkOutDay string
}

// clockTime "HH:MM" из времени прохода
func clockTime(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == absenceDuration {
		return "", false
	}
	if t, err := domain.ParseMesTime(s); err == nil {
		return t.Format("15:04"), true
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

func countVisits(visits []domain.VisitDay, school map[string]int) attendance {
	var a attendance
	visitedDays := make(map[string]bool)
	for i := range visits {
		day := domain.FormatDate(visits[i].Date.Time)
		if school[day] == 0 {
			continue
		}

		present := false
		for _, v := range visits[i].Visits {
			if strings.TrimSpace(v.Duration) == absenceDuration {
				continue
			}
			present = true
			if minutes, ok := ParseVisitDuration(v.Duration); ok {
				a.minutes += minutes
			}
			if in, ok := clockTime(v.In); ok && (a.checkIn == "" || in < a.checkIn) {
				a.checkIn, a.checkInDay = in, day
			}
			if out, ok := clockTime(v.Out); ok && out > a.checkOut {
				a.checkOut, a.checkOutDay = out, day
			}
		}
		if present {
			visitedDays[day] = true
		}
	}
	a.visited = len(visitedDays)
	return a
}
