package mes

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

const (
	pathEvents           = "/api/eventcalendar/v1/api/events"
	pathHomeworks        = "/api/family/web/v1/homeworks"
	pathMarks            = "/api/family/web/v1/marks"
	pathNotifications    = "/api/family/mobile/v1/notifications/search"
	pathSubjects         = "/api/family/web/v1/subjects/list"
	pathVisits           = "/api/family/mobile/v1/visits"
	pathSubjectMarks     = "/api/family/mobile/v1/subject_marks/for_subject"
	pathPeriodsSchedules = "/api/family/mobile/v1/periods_schedules"
	pathFamilyProfile    = "/api/family/mobile/v1/profile"
	pathRatingRankClass  = "/api/ej/rating/v1/rank/class"
)

func (c *Client) GetEvents(ctx context.Context, token, personID string, from, to time.Time) ([]domain.ScheduleEvent, error) {
	q := url.Values{}
	q.Set("person_ids", personID)
	q.Set("begin_date", domain.FormatDate(from))
	q.Set("end_date", domain.FormatDate(to))
	q.Set("expand", "homework,marks,absence_reason_id")

	resp, err := getJSON[struct {
		Response []domain.ScheduleEvent `json:"response"`
	}](ctx, c, "get_events", pathEvents, token, q)
	if err != nil {
		return nil, err
	}
	return resp.Response, nil
}

func (c *Client) GetHomeworks(ctx context.Context, token string, studentID int64, from, to time.Time) ([]domain.Homework, error) {
	q := dateRange(from, to)
	q.Set("student_id", id(studentID))

	resp, err := getJSON[envelope[[]domain.Homework]](ctx, c, "get_homeworks", pathHomeworks, token, q)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (c *Client) GetMarks(ctx context.Context, token string, studentID int64, from, to time.Time) ([]domain.Mark, error) {
	q := dateRange(from, to)
	q.Set("student_id", id(studentID))

	resp, err := getJSON[envelope[[]domain.Mark]](ctx, c, "get_marks", pathMarks, token, q)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (c *Client) GetNotifications(ctx context.Context, token string, studentID int64) ([]domain.MesNotification, error) {
	q := url.Values{}
	q.Set("student_id", id(studentID))

	return getJSON[[]domain.MesNotification](ctx, c, "get_notifications", pathNotifications, token, q)
}

func (c *Client) GetSubjects(ctx context.Context, token string, studentID int64) ([]domain.Subject, error) {
	q := url.Values{}
	q.Set("student_id", id(studentID))

	resp, err := getJSON[envelope[[]domain.Subject]](ctx, c, "get_subjects", pathSubjects, token, q)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (c *Client) GetVisits(ctx context.Context, token string, contractID int64, from, to time.Time) ([]domain.VisitDay, error) {
	q := dateRange(from, to)
	q.Set("contract_id", id(contractID))

	resp, err := getJSON[envelope[[]domain.VisitDay]](ctx, c, "get_visits", pathVisits, token, q)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (c *Client) GetSubjectMarksForSubject(ctx context.Context, token string, studentID, subjectID int64) (*domain.SubjectMarks, error) {
	q := url.Values{}
	q.Set("student_id", id(studentID))
	q.Set("subject_id", id(subjectID))

	resp, err := getJSON[domain.SubjectMarks](ctx, c, "get_subject_marks_for_subject", pathSubjectMarks, token, q)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetPeriodsSchedules(ctx context.Context, token string, studentID int64, from, to time.Time) ([]domain.CalendarEntry, error) {
	q := dateRange(from, to)
	q.Set("student_id", id(studentID))

	return getJSON[[]domain.CalendarEntry](ctx, c, "get_periods_schedules", pathPeriodsSchedules, token, q)
}

func (c *Client) GetFamilyProfile(ctx context.Context, token string) (*domain.FamilyProfile, error) {
	resp, err := getJSON[domain.FamilyProfile](ctx, c, "get_family_profile", pathFamilyProfile, token, nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRatingRankClass место ученика в рейтинге класса, nil если МЭШ не вернул ученика
func (c *Client) GetRatingRankClass(ctx context.Context, token, personID string, date time.Time) (*domain.RatingRank, error) {
	q := url.Values{}
	q.Set("personId", personID)
	q.Set("date", domain.FormatDate(date))

	ranks, err := getJSON[[]domain.RatingRank](ctx, c, "get_rating_rank_class", pathRatingRankClass, token, q)
	if err != nil {
		return nil, err
	}
	for i := range ranks {
		if strings.EqualFold(ranks[i].PersonID, personID) {
			return &ranks[i], nil
		}
	}
	return nil, nil
}
