package domain

import (
	"strconv"
	"strings"
)

// дока по полям - ответы school.mos.ru/api/family/mobile/v1 и /api/eventcalendar/v1

// MesNotification уведомление из ленты МЭШ
type MesNotification struct {
	EventType          string   `json:"event_type"`
	StudentProfileID   int64    `json:"student_profile_id"`
	Datetime           MesTime  `json:"datetime"`
	SubjectName        string   `json:"subject_name"`
	TeacherID          int64    `json:"teacher_id"`
	NewMarkValue       *string  `json:"new_mark_value,omitempty"`
	NewMarkWeight      *int     `json:"new_mark_weight,omitempty"`
	OldMarkValue       *string  `json:"old_mark_value,omitempty"`
	OldMarkWeight      *int     `json:"old_mark_weight,omitempty"`
	ControlFormName    *string  `json:"control_form_name,omitempty"`
	NewHwDescription   *string  `json:"new_hw_description,omitempty"`
	NewDatePreparedFor *MesTime `json:"new_date_prepared_for,omitempty"`
	LessonDate         *MesTime `json:"lesson_date,omitempty"`
}

// ScheduleEvent урок или другое событие расписания
type ScheduleEvent struct {
	ID          int64   `json:"id"`
	StartAt     MesTime `json:"start_at"`
	FinishAt    MesTime `json:"finish_at"`
	SubjectID   int64   `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	RoomNumber  string  `json:"room_number"`
	Source      string  `json:"source"`
	Cancelled   bool    `json:"cancelled"`
	LessonType  string  `json:"lesson_type"`
	IsMissed    bool    `json:"is_missed"`
	Replaced    bool    `json:"replaced"`
}

// IsSchoolLesson плановый, не отменённый, обычный и не пропущенный урок
func (e *ScheduleEvent) IsSchoolLesson() bool {
	return e.Source == "PLAN" && !e.Cancelled && e.LessonType == "NORMAL" && !e.IsMissed
}

type Homework struct {
	ID             int64   `json:"homework_entry_student_id"`
	Date           MesTime `json:"date"`
	SubjectID      int64   `json:"subject_id"`
	SubjectName    string  `json:"subject_name"`
	Description    string  `json:"description"`
	IsDone         bool    `json:"is_done"`
	MaterialsCount int     `json:"materials_count"`
}

type Mark struct {
	ID              int64   `json:"id"`
	Date            MesTime `json:"date"`
	SubjectID       int64   `json:"subject_id"`
	SubjectName     string  `json:"subject_name"`
	Value           string  `json:"value"`
	Weight          int     `json:"weight"`
	ControlFormName string  `json:"control_form_name"`
	IsExam          bool    `json:"is_exam"`
}

type Subject struct {
	ID   int64  `json:"subject_id"`
	Name string `json:"subject_name"`
}

// SubjectMarks оценки по одному предмету с разбивкой по периодам
type SubjectMarks struct {
	SubjectID   int64                `json:"subject_id"`
	SubjectName string               `json:"subject_name"`
	Periods     []SubjectPeriodMarks `json:"periods"`
}

type SubjectPeriodMarks struct {
	Title string  `json:"title"`
	Start MesTime `json:"start"`
	End   MesTime `json:"end"`
	Value string  `json:"value"`
	Marks []Mark  `json:"marks"`
}

type VisitDay struct {
	Date   MesTime `json:"date"`
	Visits []Visit `json:"visits"`
}

// Visit проход через турникет, Duration "-" означает отсутствие
type Visit struct {
	In       string `json:"in"`
	Out      string `json:"out"`
	Duration string `json:"duration"`
	Type     string `json:"type"`
}

// CalendarEntry день учебного календаря
type CalendarEntry struct {
	Date  MesTime `json:"date"`
	Type  string  `json:"type"`
	Title string  `json:"title"`
}

const (
	CalendarWorkday  = "workday"
	CalendarVacation = "vacation"
	CalendarHoliday  = "holiday"
	CalendarOther    = "other"
)

type FamilyProfile struct {
	Profile  ProfileInfo `json:"profile"`
	Children []Child     `json:"children"`
}

type ProfileInfo struct {
	ID        int64    `json:"id"`
	Type      string   `json:"type"`
	FirstName string   `json:"first_name"`
	BirthDate *MesTime `json:"birth_date,omitempty"`
}

type Child struct {
	ID         int64    `json:"id"`
	ContractID int64    `json:"contract_id"`
	PersonGUID string   `json:"person_guid"`
	FirstName  string   `json:"first_name"`
	BirthDate  *MesTime `json:"birth_date,omitempty"`
}

type RatingRank struct {
	PersonID    string  `json:"personId"`
	Date        string  `json:"date"`
	RankPlace   int     `json:"rankPlace"`
	AverageMark float64 `json:"averageMarkFive"`
}

// TokenSet результат входа или обновления токена
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
}

var subscriptDigits = strings.NewReplacer(
	"0", "₀", "1", "₁", "2", "₂", "3", "₃", "4", "₄",
	"5", "₅", "6", "₆", "7", "₇", "8", "₈", "9", "₉",
)

// Subscript вес оценки нижним индексом: 3 -> ₃
func Subscript(n int) string {
	return subscriptDigits.Replace(strconv.Itoa(n))
}
