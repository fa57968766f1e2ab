package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/autoblog/internal/queue"
	"github.com/ricirt/autoblog/internal/worker"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
	if id == 13 {
		panic("unlucky item")
	}
	return d.err
}

func (d *recordingDispatcher) seen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ids)
}

func TestPool_ProcessesEveryTask(t *testing.T) {
	q := queue.NewMemoryQueue(100)
	disp := &recordingDispatcher{err: errors.New("logged, not fatal")}
	pool := worker.NewPool(4, q, disp, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for id := int64(1); id <= 20; id++ {
		if _, err := q.Submit(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.After(2 * time.Second)
	for disp.seen() < 20 {
		select {
		case <-deadline:
			t.Fatalf("only %d of 20 tasks processed", disp.seen())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	pool.Wait()
}

type fakeMaintainer struct {
	stale, rescheduled atomic.Int32
}

func (m *fakeMaintainer) RecoverStale(context.Context, time.Duration) (int, error) {
	m.stale.Add(1)
	return 1, nil
}

func (m *fakeMaintainer) Reschedule(context.Context) (int, error) {
	m.rescheduled.Add(1)
	return 0, errors.New("store offline")
}

func (m *fakeMaintainer) QueueDepth() int { return 3 }

func TestSweeper_Run(t *testing.T) {
	m := &fakeMaintainer{}
	var depth atomic.Int32
	s := worker.NewSweeper(m, 5*time.Millisecond, time.Minute, func(n int) { depth.Store(int32(n)) }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for m.stale.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if m.rescheduled.Load() < 2 {
		t.Fatal("reschedule errors must not stop the sweep")
	}
	if depth.Load() != 3 {
		t.Fatalf("expected depth 3 reported, got %d", depth.Load())
	}
}

type blockingDispatcher struct {
	started chan int64
	release chan struct{}
}

func (d *blockingDispatcher) Dispatch(_ context.Context, id int64) error {
	d.started <- id
	<-d.release
	return nil
}

func TestPool_ShutdownDeadline(t *testing.T) {
	q := queue.NewMemoryQueue(10)
	disp := &blockingDispatcher{started: make(chan int64, 1), release: make(chan struct{})}
	pool := worker.NewPool(0, q, disp, zap.NewNop())
	if pool.Size() != 1 {
		t.Fatalf("expected at least one worker, got %d", pool.Size())
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	if _, err := q.Submit(ctx, 1); err != nil {
		t.Fatal(err)
	}
	<-disp.started
	cancel()

	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	if err := pool.Shutdown(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error while an item is in flight, got %v", err)
	}

	close(disp.release)
	if err := pool.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected clean shutdown after release, got %v", err)
	}
}
