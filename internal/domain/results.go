package domain

import (
	"strconv"
	"time"
)

// PeriodType тип учебных периодов
type PeriodType string

const (
	PeriodQuarters   PeriodType = "quarters"
	PeriodHalfYears  PeriodType = "half_years"
	PeriodTrimesters PeriodType = "trimesters"
)

func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodQuarters, PeriodHalfYears, PeriodTrimesters:
		return true
	}
	return false
}

// Label название периода в том виде, в котором оно приходит в оценках по предмету
func (p PeriodType) Label(n int) string {
	switch p {
	case PeriodHalfYears:
		return strconv.Itoa(n) + " полугодие"
	case PeriodTrimesters:
		return strconv.Itoa(n) + " триместр"
	default:
		return strconv.Itoa(n) + " четверть"
	}
}

// Period отрезок [Start, End] включительно, даты без времени
type Period struct {
	Number int       `json:"number"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

func (p Period) Contains(day time.Time) bool {
	return !day.Before(p.Start) && !day.After(p.End)
}

// SubjectResult итог по предмету
type SubjectResult struct {
	SubjectID   int64          `json:"subject_id"`
	SubjectName string         `json:"subject_name"`
	Total       int            `json:"total"`
	Mode        int            `json:"mode"`
	Histogram   map[string]int `json:"histogram"`
	Average     string         `json:"average"`
}

// ResultsReport отчёт за период
type ResultsReport struct {
	UserID       int64      `json:"user_id"`
	PeriodType   PeriodType `json:"period_type"`
	PeriodNumber int        `json:"period_number"`
	PeriodsCount int        `json:"periods_count"`
	PeriodLabel  string     `json:"period_label"`
	Start        string     `json:"start"`
	End          string     `json:"end"`

	Subjects       []SubjectResult `json:"subjects"`
	TotalMarks     int             `json:"total_marks"`
	MarksMode      int             `json:"marks_mode"`
	MarksHistogram map[string]int  `json:"marks_histogram"`

	HomeworkTotal    int     `json:"homework_total"`
	HomeworkMaxDay   string  `json:"homework_max_day,omitempty"`
	HomeworkMaxCount int     `json:"homework_max_count"`
	HomeworkMinDay   string  `json:"homework_min_day,omitempty"`
	HomeworkMinCount int     `json:"homework_min_count"`
	HomeworkMedian   float64 `json:"homework_median"`

	LessonsTotal   int     `json:"lessons_total"`
	SchoolDays     int     `json:"school_days"`
	VisitedDays    int     `json:"visited_days"`
	SkippedDays    int     `json:"skipped_days"`
	AttendanceRate float64 `json:"attendance_rate"`

	VisitMinutes       int    `json:"visit_minutes"`
	VisitDuration      string `json:"visit_duration"`
	AvgDayMinutes      int    `json:"avg_day_minutes"`
	AvgDayDuration     string `json:"avg_day_duration"`
	EarliestCheckIn    string `json:"earliest_check_in,omitempty"`
	EarliestCheckInDay string `json:"earliest_check_in_day,omitempty"`
	LatestCheckOut     string `json:"latest_check_out,omitempty"`
	LatestCheckOutDay  string `json:"latest_check_out_day,omitempty"`

	RankPlace *int `json:"rank_place,omitempty"`
}
