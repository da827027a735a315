package testfakes

import (
	"context"
	"sync"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

// Outbound запоминает отправленные сообщения
type Outbound struct {
	mu   sync.Mutex
	Sent []domain.OutgoingMessage
	Err  error
}

func (o *Outbound) Send(ctx context.Context, msg domain.OutgoingMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.Sent = append(o.Sent, msg)
	return nil
}

func (o *Outbound) Messages() []domain.OutgoingMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.OutgoingMessage(nil), o.Sent...)
}

// ScheduledJob запись реестра фейкового планировщика
type ScheduledJob struct {
	Trigger jobs.Trigger
	Fn      jobs.Func
}

// Scheduler реестр без запуска: тест сам вызывает Fn
type Scheduler struct {
	mu   sync.Mutex
	Jobs map[string]ScheduledJob
}

func NewScheduler() *Scheduler {
	return &Scheduler{Jobs: make(map[string]ScheduledJob)}
}

func (s *Scheduler) Add(name string, trigger jobs.Trigger, fn jobs.Func, opts ...jobs.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Jobs[name] = ScheduledJob{Trigger: trigger, Fn: fn}
	return nil
}

func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Jobs[name]
	delete(s.Jobs, name)
	return ok
}

func (s *Scheduler) Get(name string) (ScheduledJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.Jobs[name]
	return j, ok
}

// At момент запуска одноразовой задачи
func (s *Scheduler) At(name string) (time.Time, bool) {
	j, ok := s.Get(name)
	if !ok {
		return time.Time{}, false
	}
	dt, ok := j.Trigger.(jobs.DateTrigger)
	return dt.At, ok
}

// Queue запоминает задачи сброса кэша
type Queue struct {
	mu    sync.Mutex
	Tasks []queue.Invalidation
}

func (q *Queue) Enqueue(ctx context.Context, task queue.Invalidation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Tasks = append(q.Tasks, task)
}

func (q *Queue) All() []queue.Invalidation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.Invalidation(nil), q.Tasks...)
}

// Alerter запоминает алерты
type Alerter struct {
	mu       sync.Mutex
	Messages []string
}

func (a *Alerter) SendAlert(ctx context.Context, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Messages = append(a.Messages, message)
	return nil
}

// AI фиксированный ответ или ошибка
type AI struct {
	Text    string
	Err     error
	Prompts []string
}

func (a *AI) Complete(ctx context.Context, prompt string) (string, error) {
	a.Prompts = append(a.Prompts, prompt)
	return a.Text, a.Err
}

var (
	_ service.IOutbound        = (*Outbound)(nil)
	_ jobs.IScheduler          = (*Scheduler)(nil)
	_ queue.IInvalidationQueue = (*Queue)(nil)
	_ service.IAlerterService  = (*Alerter)(nil)
	_ service.IAIProvider      = (*AI)(nil)
)
