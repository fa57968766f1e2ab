package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ricirt/autoblog/internal/domain"
	"github.com/ricirt/autoblog/internal/queue"
)

func TestMemoryQueue_SubmitDequeue(t *testing.T) {
	q := queue.NewMemoryQueue(10)
	ctx := context.Background()

	handle, err := q.Submit(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if handle == "" {
		t.Fatal("expected a non-empty handle")
	}

	got, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected task, got nothing")
	}
	if got.ItemID != 7 || got.Handle != handle {
		t.Fatalf("unexpected task %+v", got)
	}
	if q.Depth() != 0 {
		t.Fatalf("expected depth 0 after dequeue, got %d", q.Depth())
	}
}

// TestMemoryQueue_CancelSkipsTask verifies a cancelled task is never delivered
// while tasks submitted after it still are.
func TestMemoryQueue_CancelSkipsTask(t *testing.T) {
	q := queue.NewMemoryQueue(10)
	ctx := context.Background()

	cancelled, _ := q.Submit(ctx, 1)
	_, _ = q.Submit(ctx, 2)

	if err := q.Cancel(ctx, cancelled); err != nil {
		t.Fatal(err)
	}
	if q.Depth() != 1 {
		t.Fatalf("expected depth 1 after cancel, got %d", q.Depth())
	}

	got, ok := q.Dequeue(ctx)
	if !ok || got.ItemID != 2 {
		t.Fatalf("expected item 2, got %+v ok=%v", got, ok)
	}
}

func TestMemoryQueue_CancelUnknownHandle(t *testing.T) {
	q := queue.NewMemoryQueue(1)
	if err := q.Cancel(context.Background(), "no-such-handle"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

// TestMemoryQueue_ContextCancellation verifies Dequeue returns (_, false)
// when the context is cancelled while blocking.
func TestMemoryQueue_ContextCancellation(t *testing.T) {
	q := queue.NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

func TestMemoryQueue_ErrQueueFull(t *testing.T) {
	q := queue.NewMemoryQueue(1)
	ctx := context.Background()

	if _, err := q.Submit(ctx, 1); err != nil {
		t.Fatalf("unexpected error on empty queue: %v", err)
	}
	if _, err := q.Submit(ctx, 2); !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Depth() != 1 {
		t.Fatalf("rejected task must not count as pending, depth=%d", q.Depth())
	}
}

// TestMemoryQueue_ConcurrentSubmitDequeue verifies there are no races
// when multiple goroutines submit and dequeue simultaneously.
func TestMemoryQueue_ConcurrentSubmitDequeue(t *testing.T) {
	const producers = 5
	const tasksPerProducer = 100
	const total = producers * tasksPerProducer

	q := queue.NewMemoryQueue(total)
	received := make(chan struct{}, total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var consumerDone sync.WaitGroup
	consumerDone.Add(1)
	go func() {
		defer consumerDone.Done()
		for {
			_, ok := q.Dequeue(ctx)
			if !ok {
				return
			}
			received <- struct{}{}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < tasksPerProducer; j++ {
				_, _ = q.Submit(ctx, int64(j))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < total; i++ {
		select {
		case <-received:
		case <-ctx.Done():
			t.Fatalf("timeout: only received %d/%d tasks", i, total)
		}
	}
	cancel()
	consumerDone.Wait()
}
