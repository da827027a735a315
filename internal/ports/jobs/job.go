package jobs

import (
	"context"
	"time"
)

// Trigger вычисляет следующий запуск. Нулевое время значит задача больше не запускается
type Trigger interface {
	NextRun(prev, now time.Time) time.Time
}

// Func тело задачи
type Func func(ctx context.Context) error

// IScheduler именованный реестр задач
type IScheduler interface {
	Add(name string, trigger Trigger, fn Func, opts ...Option) error
	Remove(name string) bool
}

// Option настройка задачи при добавлении
type Option func(*JobOptions)

type JobOptions struct {
	ReplaceExisting bool
	Retry           bool
}

// WithoutReplace повторное добавление задачи с тем же именем вернёт ошибку
func WithoutReplace() Option {
	return func(o *JobOptions) { o.ReplaceExisting = false }
}

// WithRetry повторы с нарастающей паузой и алерт после последней неудачи
func WithRetry() Option {
	return func(o *JobOptions) { o.Retry = true }
}

// Apply собирает опции, replace_existing включён по умолчанию
func Apply(opts ...Option) JobOptions {
	o := JobOptions{ReplaceExisting: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
