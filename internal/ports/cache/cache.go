package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

// Cache интерфейс для работы с кэшем. Промах и истёкший ключ неотличимы: оба domain.ErrCacheMiss
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key string, ttl time.Duration, value string) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// Имена представлений, первая часть ключа
const (
	ViewHomework     = "homework"
	ViewSchedule     = "schedule"
	ViewMarks        = "marks"
	ViewMarksSubject = "marks_subject"
	ViewVisits       = "visits"
	ViewResults      = "results"
)

// Key собирает ключ <view>:<user_id>:<disc...>
func Key(view string, userID int64, disc ...string) string {
	parts := make([]string, 0, len(disc)+2)
	parts = append(parts, view, strconv.FormatInt(userID, 10))
	parts = append(parts, disc...)
	return strings.Join(parts, ":")
}

// InvalidationPatterns какие ключи становятся неактуальны после события
func InvalidationPatterns(userID int64, eventType string) []string {
	uid := strconv.FormatInt(userID, 10)
	switch {
	case domain.IsHomeworkEvent(eventType):
		return []string{"homework*:" + uid + ":*"}
	case domain.IsMarkEvent(eventType):
		return []string{"marks*:" + uid + ":*", "results:" + uid + ":*"}
	default:
		return nil
	}
}
