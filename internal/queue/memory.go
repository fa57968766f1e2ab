package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ricirt/autoblog/internal/domain"
)

// MemoryQueue is an in-process Scheduler backed by a buffered channel.
//
// Cancelled tasks stay in the channel until a worker reaches them; Dequeue
// drops any task whose handle is no longer pending. Tasks do not survive a
// restart, so the dispatcher re-submits queued items on startup.
type MemoryQueue struct {
	tasks chan Task

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{
		tasks:   make(chan Task, capacity),
		pending: make(map[string]struct{}),
	}
}

// Submit is non-blocking: if the buffer is full, ErrQueueFull is returned
// immediately rather than blocking the caller (the HTTP handler).
func (q *MemoryQueue) Submit(_ context.Context, itemID int64) (string, error) {
	task := Task{Handle: uuid.NewString(), ItemID: itemID}

	q.mu.Lock()
	q.pending[task.Handle] = struct{}{}
	q.mu.Unlock()

	select {
	case q.tasks <- task:
		return task.Handle, nil
	default:
		q.mu.Lock()
		delete(q.pending, task.Handle)
		q.mu.Unlock()
		return "", domain.ErrQueueFull
	}
}

func (q *MemoryQueue) Cancel(_ context.Context, handle string) error {
	q.mu.Lock()
	delete(q.pending, handle)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Task, bool) {
	for {
		select {
		case task := <-q.tasks:
			if q.take(task.Handle) {
				return task, true
			}
		case <-ctx.Done():
			return Task{}, false
		}
	}
}

// take removes handle from the pending set, reporting whether it was there.
func (q *MemoryQueue) take(handle string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[handle]; !ok {
		return false
	}
	delete(q.pending, handle)
	return true
}

func (q *MemoryQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
