package domain

import (
	"time"
)

// Типы событий МЭШ, на которые реагирует бот
const (
	EventCreateMark     = "create_mark"
	EventUpdateMark     = "update_mark"
	EventDeleteMark     = "delete_mark"
	EventCreateHomework = "create_homework"
	EventUpdateHomework = "update_homework"
)

func IsMarkEvent(eventType string) bool {
	switch eventType {
	case EventCreateMark, EventUpdateMark, EventDeleteMark:
		return true
	}
	return false
}

func IsHomeworkEvent(eventType string) bool {
	switch eventType {
	case EventCreateHomework, EventUpdateHomework:
		return true
	}
	return false
}

// Event уже показанное уведомление МЭШ. Неизменяемо, принадлежит student_id
type Event struct {
	ID          int64     `json:"id" db:"id"`
	StudentID   int64     `json:"student_id" db:"student_id"`
	EventType   string    `json:"event_type" db:"event_type"`
	Date        time.Time `json:"date" db:"date"`
	TeacherID   int64     `json:"teacher_id" db:"teacher_id"`
	SubjectName string    `json:"subject_name" db:"subject_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DedupKey ключ дедупликации в рамках student_id
type DedupKey struct {
	TeacherID int64
	EventType string
	Date      time.Time
}

// CanonicalDate дата события в UTC с точностью до секунды
func CanonicalDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (e *Event) Key() DedupKey {
	return DedupKey{TeacherID: e.TeacherID, EventType: e.EventType, Date: CanonicalDate(e.Date)}
}

// BotNotificationReplacement напоминание о замене урока
const BotNotificationReplacement = "lesson_replacement"

// BotNotification напоминание от самого бота (замена урока и т.п.).
// DedupKey не даёт создать одно напоминание дважды, SentAt ставится после отправки
type BotNotification struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	Type      string     `json:"type" db:"type"`
	Text      string     `json:"text" db:"text"`
	DedupKey  string     `json:"dedup_key" db:"dedup_key"`
	SentAt    *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Delta новое событие и готовый текст сообщения
type Delta struct {
	Event   Event
	Message string
}
