package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/ricirt/autoblog/internal/queue"
)

// Dispatcher processes one queue item. Implemented by service.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, itemID int64) error
}

// Worker is a single goroutine that continuously pulls tasks from the
// scheduler and hands each to the dispatcher.
type Worker struct {
	id     int
	sched  queue.Scheduler
	disp   Dispatcher
	logger *zap.Logger
}

func NewWorker(id int, sched queue.Scheduler, disp Dispatcher, logger *zap.Logger) *Worker {
	return &Worker{id: id, sched: sched, disp: disp, logger: logger}
}

// Run blocks until ctx is cancelled, processing one task per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		task, ok := w.sched.Dequeue(ctx)
		if !ok {
			w.logger.Info("worker stopping")
			return
		}
		w.process(ctx, task)
	}
}

func (w *Worker) process(ctx context.Context, task queue.Task) {
	log := w.logger.With(zap.Int64("item_id", task.ItemID), zap.String("handle", task.Handle))

	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch panicked", zap.Any("panic", r))
		}
	}()

	if err := w.disp.Dispatch(ctx, task.ItemID); err != nil {
		log.Error("dispatch failed", zap.Error(err))
	}
}
