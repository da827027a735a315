package jobs

import (
	"time"
)

// DateTrigger однократный запуск. Момент в прошлом срабатывает сразу, один раз
type DateTrigger struct {
	At time.Time
}

func (t DateTrigger) NextRun(prev, now time.Time) time.Time {
	if !prev.IsZero() {
		return time.Time{}
	}
	return t.At
}

// IntervalTrigger запуск каждые Every. Пропущенные тики схлопываются в один
type IntervalTrigger struct {
	Every time.Duration
}

func (t IntervalTrigger) NextRun(prev, now time.Time) time.Time {
	if prev.IsZero() {
		return now.Add(t.Every)
	}
	next := prev.Add(t.Every)
	if next.Before(now) {
		return now
	}
	return next
}

// DailyTrigger каждый день в Hour:Minute по Location
type DailyTrigger struct {
	Hour     int
	Minute   int
	Location *time.Location
}

func (t DailyTrigger) NextRun(prev, now time.Time) time.Time {
	loc := t.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.Hour, t.Minute, 0, 0, loc)
	for !next.After(local) || !next.After(prev) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
