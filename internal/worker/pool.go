package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ricirt/autoblog/internal/queue"
)

// Pool runs a fixed set of workers over one scheduler. A task handed out by
// the scheduler reaches exactly one of them.
type Pool struct {
	workers []*Worker
	running sync.WaitGroup
	done    chan struct{}
	once    sync.Once
	logger  *zap.Logger
}

func NewPool(count int, sched queue.Scheduler, disp Dispatcher, logger *zap.Logger) *Pool {
	if count < 1 {
		count = 1
	}
	p := &Pool{workers: make([]*Worker, count), done: make(chan struct{}), logger: logger}
	for i := range p.workers {
		p.workers[i] = NewWorker(i, sched, disp, logger.With(zap.Int("worker_id", i)))
	}
	return p
}

// Size is the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker. Cancelling ctx stops them after their current item.
func (p *Pool) Start(ctx context.Context) {
	p.running.Add(len(p.workers))
	for _, w := range p.workers {
		go func(w *Worker) {
			defer p.running.Done()
			w.Run(ctx)
		}(w)
	}
	go func() {
		p.running.Wait()
		p.once.Do(func() { close(p.done) })
	}()
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	<-p.done
}

// Shutdown waits for the workers like Wait but gives up when ctx ends.
// Items still generating at that point are recovered by the stale sweep.
func (p *Pool) Shutdown(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn("workers still busy at shutdown deadline", zap.Int("workers", len(p.workers)))
		return ctx.Err()
	}
}
