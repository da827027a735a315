package inmemory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// FollowUps последняя фоновая задача на пользователя. Новая задача отменяет
// предыдущую до своего запуска, завершившаяся задача удаляет себя из реестра
type FollowUps struct {
	mu    sync.Mutex
	tasks map[int64]followUp // user_id -> текущая задача
	wg    sync.WaitGroup
}

type followUp struct {
	id     uuid.UUID
	cancel context.CancelFunc
}

func NewFollowUps() *FollowUps {
	return &FollowUps{
		tasks: make(map[int64]followUp),
	}
}

// Start отменяет текущую задачу пользователя и запускает fn в отдельной горутине
func (f *FollowUps) Start(ctx context.Context, userID int64, fn func(ctx context.Context)) uuid.UUID {
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	id := uuid.New()

	f.mu.Lock()
	if prev, ok := f.tasks[userID]; ok {
		prev.cancel()
	}
	f.tasks[userID] = followUp{id: id, cancel: cancel}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		defer f.finish(userID, id)
		fn(taskCtx)
	}()
	return id
}

func (f *FollowUps) finish(userID int64, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.tasks[userID]; ok && cur.id == id {
		cur.cancel()
		delete(f.tasks, userID)
	}
}

// Cancel отменяет задачу пользователя, если она есть
func (f *FollowUps) Cancel(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.tasks[userID]; ok {
		cur.cancel()
		delete(f.tasks, userID)
	}
}

// IsLatest задача id всё ещё текущая для пользователя
func (f *FollowUps) IsLatest(userID int64, id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.tasks[userID]
	return ok && cur.id == id
}

// Shutdown отменяет все задачи и ждёт их выхода
func (f *FollowUps) Shutdown() {
	f.mu.Lock()
	for userID, cur := range f.tasks {
		cur.cancel()
		delete(f.tasks, userID)
	}
	f.mu.Unlock()
	f.wg.Wait()
}
