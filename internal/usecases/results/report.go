package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
)

// Results отчёт за период. Пустой periodType определяется по названиям периодов в оценках,
// periodNumber 0 означает текущий период. Определённые тип и номер текущего периода кэшируются
// вместе с отчётом, поэтому повторный запрос без параметров не ходит в МЭШ
func (s *Service) Results(ctx context.Context, user *domain.User, periodType domain.PeriodType, periodNumber int, opts Options) (*domain.ResultsReport, error) {
	if periodType != "" && !periodType.IsValid() {
		return nil, fmt.Errorf("%w: unknown period type %q", domain.ErrValidation, periodType)
	}
	if periodNumber < 0 {
		return nil, fmt.Errorf("%w: period number %d", domain.ErrValidation, periodNumber)
	}

	requestedType := periodType
	resolve := periodType == "" || periodNumber == 0
	useCache := !opts.NoCache

	if useCache && !opts.CacheBypass {
		t, n := periodType, periodNumber
		if resolve {
			if sel := s.cachedSelection(ctx, selectionKey(user.UserID, requestedType)); sel != nil {
				if t == "" {
					t = sel.Type
				}
				if n == 0 {
					n = sel.Number
				}
			}
		}
		if t != "" && n > 0 {
			if cached := s.cached(ctx, cacheKey(user.UserID, t, n)); cached != nil {
				return cached, nil
			}
		}
	}

	now := s.Clock.Now()
	today := domain.Day(now)

	subjects, err := s.Mes.GetSubjects(ctx, user.Token, user.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get subjects: %w", err)
	}
	marks, err := s.subjectMarks(ctx, user, subjects)
	if err != nil {
		return nil, err
	}

	if periodType == "" {
		periodType = DetectPeriodType(periodLabels(marks))
	}

	yearStart, yearEnd := AcademicYear(today)
	calendar, err := s.Mes.GetPeriodsSchedules(ctx, user.Token, user.StudentID, yearStart, yearEnd)
	if err != nil {
		return nil, fmt.Errorf("get academic calendar: %w", err)
	}
	periods := Periods(periodType, BuildQuarters(calendar))
	if len(periods) == 0 {
		return nil, errors.New("academic calendar has no study periods")
	}

	current := CurrentPeriod(periods, today)
	if periodNumber == 0 {
		periodNumber = current
	}
	if periodNumber > len(periods) {
		return nil, fmt.Errorf("%w: period %d of %d", domain.ErrValidation, periodNumber, len(periods))
	}
	period := periods[periodNumber-1]

	report, err := s.aggregate(ctx, user, periodType, period, marks, today, opts)
	if err != nil {
		return nil, err
	}
	report.PeriodsCount = len(periods)

	if !useCache {
		return report, nil
	}

	expiry := s.Policy.TTL(now)
	key := cacheKey(user.UserID, periodType, periodNumber)
	if err := cache.SetJSON(ctx, s.Cache, key, expiry, report); err != nil {
		s.Log.Warn("failed to cache results", "key", key, "error", err)
	}
	if resolve {
		selKey := selectionKey(user.UserID, requestedType)
		if err := cache.SetJSON(ctx, s.Cache, selKey, expiry, &selection{Type: periodType, Number: current}); err != nil {
			s.Log.Warn("failed to cache results selection", "key", selKey, "error", err)
		}
	}
	return report, nil
}

// selection тип и номер текущего периода, определённые при последнем расчёте
type selection struct {
	Type   domain.PeriodType `json:"type"`
	Number int               `json:"number"`
}

func cacheKey(userID int64, t domain.PeriodType, n int) string {
	return cache.Key(cache.ViewResults, userID, string(t), strconv.Itoa(n))
}

// selectionKey для неуказанного типа используется auto
func selectionKey(userID int64, requested domain.PeriodType) string {
	t := string(requested)
	if t == "" {
		t = "auto"
	}
	return cache.Key(cache.ViewResults, userID, t, "current")
}

func (s *Service) cachedSelection(ctx context.Context, key string) *selection {
	sel, err := cache.GetJSON[selection](ctx, s.Cache, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.Log.Warn("results selection cache read failed", "key", key, "error", err)
		}
		return nil
	}
	if sel.Type == "" || !sel.Type.IsValid() || sel.Number <= 0 {
		return nil
	}
	return sel
}

func (s *Service) cached(ctx context.Context, key string) *domain.ResultsReport {
	report, err := cache.GetJSON[domain.ResultsReport](ctx, s.Cache, key)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues(cache.ViewResults, "hit").Inc()
		return report
	case errors.Is(err, domain.ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues(cache.ViewResults, "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues(cache.ViewResults, "error").Inc()
		s.Log.Warn("results cache read failed", "key", key, "error", err)
	}
	return nil
}

// subjectMarks оценки всех предметов, не больше subjectFetchLimit запросов одновременно
func (s *Service) subjectMarks(ctx context.Context, user *domain.User, subjects []domain.Subject) ([]domain.SubjectMarks, error) {
	out := make([]domain.SubjectMarks, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(subjectFetchLimit)
	for i := range subjects {
		subject := subjects[i]
		g.Go(func() error {
			sm, err := s.Mes.GetSubjectMarksForSubject(gctx, user.Token, user.StudentID, subject.ID)
			if err != nil {
				return fmt.Errorf("get marks for subject %d: %w", subject.ID, err)
			}
			out[i] = *sm
			if out[i].SubjectName == "" {
				out[i].SubjectName = subject.Name
			}
			out[i].SubjectID = subject.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func periodLabels(marks []domain.SubjectMarks) []string {
	for _, sm := range marks {
		if len(sm.Periods) == 0 {
			continue
		}
		labels := make([]string, len(sm.Periods))
		for i, p := range sm.Periods {
			labels[i] = p.Title
		}
		return labels
	}
	return nil
}

func subjectResults(marks []domain.SubjectMarks, label string) []domain.SubjectResult {
	var out []domain.SubjectResult
	for _, sm := range marks {
		for _, p := range sm.Periods {
			if !strings.EqualFold(strings.TrimSpace(p.Title), label) {
				continue
			}
			var values []int
			for _, m := range p.Marks {
				if v, ok := intMark(m.Value); ok {
					values = append(values, v)
				}
			}
			if len(values) == 0 && p.Value == "" {
				break
			}
			total, mode, histogram := markStats(values)
			out = append(out, domain.SubjectResult{
				SubjectID:   sm.SubjectID,
				SubjectName: sm.SubjectName,
				Total:       total,
				Mode:        mode,
				Histogram:   histogram,
				Average:     p.Value,
			})
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectName < out[j].SubjectName })
	return out
}

func (s *Service) aggregate(
	ctx context.Context,
	user *domain.User,
	periodType domain.PeriodType,
	period domain.Period,
	marks []domain.SubjectMarks,
	today time.Time,
	opts Options,
) (*domain.ResultsReport, error) {
	var (
		homeworks []domain.Homework
		events    []domain.ScheduleEvent
		visits    []domain.VisitDay
		rank      *domain.RatingRank
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		end := period.End
		if today.Before(end) {
			end = today
		}
		if end.Before(period.Start) {
			return nil
		}
		var err error
		homeworks, err = s.Mes.GetHomeworks(gctx, user.Token, user.StudentID, period.Start, end)
		if err != nil {
			return fmt.Errorf("get homeworks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		events, err = s.Mes.GetEvents(gctx, user.Token, user.PersonID, period.Start, period.End)
		if err != nil {
			return fmt.Errorf("get events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		visits, err = s.Mes.GetVisits(gctx, user.Token, user.ContractID, period.Start, period.End)
		if err != nil {
			return fmt.Errorf("get visits: %w", err)
		}
		return nil
	})
	if opts.WithRank {
		g.Go(func() error {
			r, err := s.Mes.GetRatingRankClass(gctx, user.Token, user.PersonID, today)
			if err != nil {
				s.Log.Warn("rating rank unavailable", "user_id", user.UserID, "error", err)
				return nil
			}
			rank = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &domain.ResultsReport{
		UserID:       user.UserID,
		PeriodType:   periodType,
		PeriodNumber: period.Number,
		PeriodLabel:  periodType.Label(period.Number),
		Start:        domain.FormatDate(period.Start),
		End:          domain.FormatDate(period.End),
	}

	report.Subjects = subjectResults(marks, report.PeriodLabel)
	var all []int
	for _, sr := range report.Subjects {
		for grade, n := range sr.Histogram {
			v, _ := strconv.Atoi(grade)
			for k := 0; k < n; k++ {
				all = append(all, v)
			}
		}
	}
	report.TotalMarks, report.MarksMode, report.MarksHistogram = markStats(all)

	hw := countHomeworks(homeworks)
	report.HomeworkTotal = hw.total
	report.HomeworkMaxDay, report.HomeworkMaxCount = hw.maxDay, hw.maxCount
	report.HomeworkMinDay, report.HomeworkMinCount = hw.minDay, hw.minCount
	report.HomeworkMedian = hw.median

	lessons, school := schoolDays(events)
	report.LessonsTotal = lessons
	report.SchoolDays = len(school)

	att := countVisits(visits, school)
	report.VisitedDays = att.visited
	report.SkippedDays = report.SchoolDays - att.visited
	if report.SchoolDays > 0 {
		report.AttendanceRate = Round1(float64(att.visited) / float64(report.SchoolDays) * 100)
	}
	report.VisitMinutes = att.minutes
	report.VisitDuration = FormatMinutes(att.minutes)
	if att.visited > 0 {
		report.AvgDayMinutes = att.minutes / att.visited
	}
	report.AvgDayDuration = FormatMinutes(report.AvgDayMinutes)
	report.EarliestCheckIn, report.EarliestCheckInDay = att.checkIn, att.checkInDay
	report.LatestCheckOut, report.LatestCheckOutDay = att.checkOut, att.checkOutDay

	if rank != nil {
		place := rank.RankPlace
		report.RankPlace = &place
	}

	s.Log.Debug("results aggregated",
		"user_id", user.UserID,
		"period_type", periodType,
		"period", period.Number,
		"subjects", len(report.Subjects),
		"school_days", report.SchoolDays)
	return report, nil
}
