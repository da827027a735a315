package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/jobs"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

var ErrJobExists = errors.New("job already exists")

// DefaultRetries паузы между повторами: now + 1m + 10m + 30m
var DefaultRetries = []time.Duration{
	1 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
}

// JobInfo снимок задачи для админки и тестов
type JobInfo struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	Running bool      `json:"running"`
}

type entry struct {
	name    string
	trigger jobs.Trigger
	fn      jobs.Func
	opts    jobs.JobOptions

	stop     chan struct{}
	done     chan struct{}
	previous *entry // заменённая задача с тем же именем

	nextRun time.Time
	running bool
}

// Scheduler именованный реестр задач. Каждая задача крутится в своей горутине,
// поэтому запуски одной задачи никогда не пересекаются
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	retries        []time.Duration
	clock          clock.Clock
	alerterService service.IAlerterService
	log            *slog.Logger
}

// NewScheduler создаёт новый планировщик джоб
func NewScheduler(log *slog.Logger, alerterService service.IAlerterService, clk clock.Clock) *Scheduler {
	return &Scheduler{
		entries:        make(map[string]*entry),
		retries:        DefaultRetries,
		clock:          clk,
		alerterService: alerterService,
		log:            log,
	}
}

// SetRetries меняет расписание повторов
func (s *Scheduler) SetRetries(retries []time.Duration) {
	s.mu.Lock()
	s.retries = retries
	s.mu.Unlock()
}

// Add регистрирует задачу. По умолчанию задача с тем же именем заменяется
func (s *Scheduler) Add(name string, trigger jobs.Trigger, fn jobs.Func, opts ...jobs.Option) error {
	o := jobs.Apply(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.entries[name]
	if exists {
		if !o.ReplaceExisting {
			return fmt.Errorf("%s: %w", name, ErrJobExists)
		}
		close(old.stop)
		s.log.Debug("job replaced", "job_name", name)
	}

	e := &entry{
		name:    name,
		trigger: trigger,
		fn:      fn,
		opts:    o,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.entries[name] = e

	if s.ctx != nil {
		e.previous = old
		s.spawn(e)
	}

	s.log.Debug("job registered", "job_name", name, "total_jobs", len(s.entries))
	return nil
}

// Remove снимает задачу, текущий запуск доводится до конца
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return false
	}
	close(e.stop)
	delete(s.entries, name)
	s.log.Debug("job removed", "job_name", name)
	return true
}

func (s *Scheduler) Get(name string) (JobInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return JobInfo{}, false
	}
	return JobInfo{Name: e.name, NextRun: e.nextRun, Running: e.running}, true
}

func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, JobInfo{Name: e.name, NextRun: e.nextRun, Running: e.running})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start взводит все добавленные до старта задачи
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return errors.New("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.log.Info("starting job scheduler", "jobs_count", len(s.entries))
	for _, e := range s.entries {
		s.spawn(e)
	}
	return nil
}

// Stop останавливает все задачи и ждёт завершения текущих запусков
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.log.Info("job scheduler stopped")
}

// spawn вызывается под s.mu
func (s *Scheduler) spawn(e *entry) {
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(e.done)
		s.runJob(ctx, e)
	}()
}

// runJob ждёт следующий запуск и выполняет задачу в цикле
func (s *Scheduler) runJob(ctx context.Context, e *entry) {
	if e.previous != nil {
		// новая версия стартует только после выхода старой
		select {
		case <-e.previous.done:
		case <-ctx.Done():
			return
		}
		e.previous = nil
	}

	var prev time.Time
	for {
		now := s.clock.Now()
		next := e.trigger.NextRun(prev, now)
		if next.IsZero() {
			s.forget(e)
			return
		}
		s.setState(e, next, false)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Debug("job stopped by context", "job_name", e.name)
			return
		case <-e.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		select {
		case <-e.stop:
			return
		default:
		}

		prev = next
		s.setState(e, next, true)
		s.execute(ctx, e)
		s.setState(e, time.Time{}, false)
	}
}

func (s *Scheduler) setState(e *entry, next time.Time, running bool) {
	s.mu.Lock()
	e.nextRun = next
	e.running = running
	s.mu.Unlock()
}

// forget удаляет отработавшую одноразовую задачу, если её ещё не заменили
func (s *Scheduler) forget(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.entries[e.name]; ok && current == e {
		delete(s.entries, e.name)
	}
}

func (s *Scheduler) execute(ctx context.Context, e *entry) {
	kind := jobKind(e.name)
	start := time.Now()

	var err error
	var attemptErrors []jobAttemptError
	if e.opts.Retry {
		err, attemptErrors = s.executeJobWithRetry(ctx, e)
	} else {
		err = s.safeRun(ctx, e)
	}

	metrics.JobDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	metrics.JobRuns.WithLabelValues(kind, metrics.Result(err)).Inc()

	switch {
	case err == nil:
		s.log.Debug("job executed successfully", "job_name", e.name)
	case e.opts.Retry:
		s.log.Error("job failed after all retries",
			"job_name", e.name,
			"error", err,
			"attempts", len(attemptErrors),
		)
		s.sendAlert(ctx, e.name, attemptErrors)
	default:
		s.log.Error("job failed", "job_name", e.name, "error", err)
	}
}

func (s *Scheduler) safeRun(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return e.fn(ctx)
}

// jobAttemptError представляет ошибку конкретной попытки выполнения джобы
type jobAttemptError struct {
	attempt int
	error   error
}

// executeJobWithRetry выполняет джобу с retry при ошибках.
// Возвращает финальную ошибку и список всех ошибок попыток
func (s *Scheduler) executeJobWithRetry(ctx context.Context, e *entry) (error, []jobAttemptError) {
	s.mu.Lock()
	retries := s.retries
	s.mu.Unlock()

	var attemptErrors []jobAttemptError

	err := s.safeRun(ctx, e)
	if err == nil {
		return nil, nil
	}
	attemptErrors = append(attemptErrors, jobAttemptError{attempt: 1, error: err})
	s.log.Warn("job execution failed, will retry",
		"job_name", e.name,
		"attempt", 1,
		"retries_remaining", len(retries),
		"error", err,
	)

	for i, retryDelay := range retries {
		attemptNum := i + 2
		select {
		case <-ctx.Done():
			return ctx.Err(), attemptErrors
		case <-e.stop:
			return err, attemptErrors
		case <-time.After(retryDelay):
			if err = s.safeRun(ctx, e); err == nil {
				return nil, nil
			}
			attemptErrors = append(attemptErrors, jobAttemptError{attempt: attemptNum, error: err})
			s.log.Warn("job retry failed",
				"job_name", e.name,
				"attempt", attemptNum,
				"retries_remaining", len(retries)-i-1,
				"error", err,
			)
		}
	}

	return fmt.Errorf("all retry attempts failed (total attempts: %d)", 1+len(retries)), attemptErrors
}

// sendAlert алертит на финальную ошибку после ретраев
func (s *Scheduler) sendAlert(ctx context.Context, jobName string, attemptErrors []jobAttemptError) {
	if s.alerterService == nil {
		return
	}

	var errorLines []string
	for _, attemptErr := range attemptErrors {
		errorLines = append(errorLines, fmt.Sprintf("Попытка %d: %s", attemptErr.attempt, attemptErr.error.Error()))
	}

	var message strings.Builder
	message.WriteString("⚠️ Финальная ошибка планировщика, ретраи исчерпаны\n\n")
	message.WriteString(fmt.Sprintf("Джоба: %s\n\n", jobName))
	message.WriteString("Ошибки попыток:\n")
	message.WriteString(strings.Join(errorLines, "\n"))

	if alertErr := s.alerterService.SendAlert(ctx, message.String()); alertErr != nil {
		s.log.Warn("failed to send job failure alert",
			"job_name", jobName,
			"error", alertErr,
		)
	}
}

// jobKind имя для метрик: refresh_token_42 -> refresh_token
func jobKind(name string) string {
	i := strings.LastIndexByte(name, '_')
	if i <= 0 || i == len(name)-1 {
		return name
	}
	for _, r := range name[i+1:] {
		if r < '0' || r > '9' {
			return name
		}
	}
	return name[:i]
}
