package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/autoblog/internal/domain"
	"github.com/ricirt/autoblog/internal/events"
	"github.com/ricirt/autoblog/internal/pipeline"
	"github.com/ricirt/autoblog/internal/queue"
	"github.com/ricirt/autoblog/internal/repository"
)

// batchLimit bounds the items loaded per store query; resume and reschedule
// page through larger backlogs.
const batchLimit = 500

// interruptedMessage is stored on items whose generation never finished.
const interruptedMessage = "generation interrupted"

// Generator runs the article pipeline for one item.
type Generator interface {
	Run(ctx context.Context, title string, opts domain.Options) (pipeline.Result, error)
}

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the constructor signature clean.
type MetricHooks struct {
	OnComplete   func(latency time.Duration, links int)
	OnFailed     func()
	OnImageError func()
}

// Dispatcher coordinates the queue store, the scheduler and the pipeline.
// All state-machine rules (dispatch guard, retry cap, cancel on delete) live
// here. HTTP handlers and workers depend on this service, not on each other.
type Dispatcher struct {
	repo   repository.QueueRepository
	sched  queue.Scheduler
	gen    Generator
	events events.Publisher
	hooks  MetricHooks
	logger *zap.Logger
}

// NewDispatcher constructs a dispatcher. Nil hooks are no-ops.
func NewDispatcher(
	repo repository.QueueRepository,
	sched queue.Scheduler,
	gen Generator,
	pub events.Publisher,
	hooks MetricHooks,
	logger *zap.Logger,
) *Dispatcher {
	if hooks.OnComplete == nil {
		hooks.OnComplete = func(time.Duration, int) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func() {}
	}
	if hooks.OnImageError == nil {
		hooks.OnImageError = func() {}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Dispatcher{repo: repo, sched: sched, gen: gen, events: pub, hooks: hooks, logger: logger}
}

// Enqueue stores one queued item per non-empty title and schedules each.
// A title list with nothing but blanks is a validation error.
//
// A scheduler rejection does not fail the request: the item stays queued
// without a task handle and the sweeper re-submits it later.
func (d *Dispatcher) Enqueue(ctx context.Context, titles []string, opts domain.Options) ([]int64, error) {
	var ids []int64
	for _, title := range titles {
		id, err := d.repo.Insert(ctx, title, opts)
		if errors.Is(err, domain.ErrValidation) {
			continue
		}
		if err != nil {
			return ids, fmt.Errorf("insert queue item: %w", err)
		}
		d.schedule(ctx, id)
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no non-empty titles", domain.ErrValidation)
	}
	return ids, nil
}

// Dispatch processes one item. Unknown items and items that are not queued
// or failed are skipped silently: they are duplicate or late deliveries.
func (d *Dispatcher) Dispatch(ctx context.Context, id int64) error {
	log := d.logger.With(zap.Int64("item_id", id))

	item, err := d.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load item %d: %w", id, err)
	}
	if item == nil || !item.Dispatchable() {
		log.Debug("skipping delivery", zap.Bool("exists", item != nil))
		return nil
	}

	// Microsecond precision survives every store, so the terminal write can
	// match the claim exactly.
	claimedAt := time.Now().UTC().Truncate(time.Microsecond)
	claimed, err := d.repo.Claim(ctx, id, claimedAt, domain.StatusQueued, domain.StatusFailed)
	if err != nil {
		return fmt.Errorf("claim item %d: %w", id, err)
	}
	if !claimed {
		log.Debug("item claimed by another dispatch")
		return nil
	}
	d.publish(ctx, events.Event{Type: events.ArticleGenerating, ItemID: id, Title: item.Title})

	start := time.Now()
	res, runErr := d.gen.Run(ctx, item.Title, item.Options)
	elapsed := time.Since(start)

	if runErr != nil {
		if ctx.Err() != nil {
			// Shutting down: leave the item generating for the stale sweeper.
			log.Warn("generation interrupted by shutdown", zap.Error(runErr))
			return nil
		}
		d.fail(ctx, item, claimedAt, pipeline.FailureMessage(runErr))
		return nil
	}

	now := time.Now().UTC()
	ok, err := d.repo.Transition(ctx, id, domain.StatusGenerating, claimedAt, domain.QueueUpdate{
		Status:          domain.SetTo(domain.StatusComplete),
		ResultRef:       domain.SetTo(res.ArticleID),
		ErrorMessage:    domain.Clear[string](),
		ScheduledJobRef: domain.Clear[string](),
		CompletedAt:     domain.SetTo(now),
	})
	if err != nil {
		return fmt.Errorf("mark item %d complete: %w", id, err)
	}
	if !ok {
		// Deleted, or recovered as stale and possibly re-queued while this run was going.
		log.Warn("item changed during generation; result not recorded", zap.Int64("article_id", res.ArticleID))
		return nil
	}

	d.hooks.OnComplete(elapsed, res.LinksAdded)
	if res.ImageError != "" {
		d.hooks.OnImageError()
	}
	articleID := res.ArticleID
	d.publish(ctx, events.Event{
		Type: events.ArticleGenerated, ItemID: id, Title: item.Title,
		ArticleID: &articleID, ImageError: res.ImageError,
	})
	log.Info("article generated", zap.Int64("article_id", res.ArticleID), zap.Duration("latency", elapsed))
	return nil
}

// fail records a failed attempt of the run claimed at startedAt. An item that
// vanished or moved on since is a logged no-op.
func (d *Dispatcher) fail(ctx context.Context, item *domain.QueueItem, startedAt time.Time, msg string) {
	log := d.logger.With(zap.Int64("item_id", item.ID))
	msg = domain.TruncateError(msg)

	ok, err := d.repo.Transition(ctx, item.ID, domain.StatusGenerating, startedAt, domain.QueueUpdate{
		Status:          domain.SetTo(domain.StatusFailed),
		ErrorMessage:    domain.SetTo(msg),
		RetryCount:      domain.SetTo(item.RetryCount + 1),
		ScheduledJobRef: domain.Clear[string](),
		CompletedAt:     domain.SetTo(time.Now().UTC()),
	})
	if err != nil {
		log.Error("failed to mark item as failed", zap.Error(err))
		return
	}
	if !ok {
		log.Info("item changed during generation; failure dropped")
		return
	}

	d.hooks.OnFailed()
	d.publish(ctx, events.Event{Type: events.ArticleFailed, ItemID: item.ID, Title: item.Title, Error: msg})
	log.Warn("article generation failed", zap.String("error", msg), zap.Int("retry_count", item.RetryCount+1))
}

// Retry re-queues a failed item that still has retries left.
func (d *Dispatcher) Retry(ctx context.Context, id int64) error {
	item, err := d.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load item %d: %w", id, err)
	}
	if item == nil {
		return domain.ErrNotFound
	}
	if !item.CanRetry() {
		return domain.ErrNotRetryable
	}

	ok, err := d.repo.Update(ctx, id, domain.QueueUpdate{
		Status:          domain.SetTo(domain.StatusQueued),
		ErrorMessage:    domain.Clear[string](),
		ScheduledJobRef: domain.Clear[string](),
		StartedAt:       domain.Clear[time.Time](),
		CompletedAt:     domain.Clear[time.Time](),
	})
	if err != nil {
		return fmt.Errorf("requeue item %d: %w", id, err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	d.schedule(ctx, id)
	return nil
}

// Delete cancels the item's pending task, if any, and removes the item.
// Cancellation is best-effort; a task already running finishes against a
// missing row.
func (d *Dispatcher) Delete(ctx context.Context, id int64) error {
	item, err := d.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load item %d: %w", id, err)
	}
	if item == nil {
		return domain.ErrNotFound
	}

	if item.ScheduledJobRef != nil {
		if err := d.sched.Cancel(ctx, *item.ScheduledJobRef); err != nil {
			d.logger.Warn("failed to cancel scheduled task", zap.Int64("item_id", id), zap.Error(err))
		}
	}

	ok, err := d.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// List returns the newest items first, at most limit.
func (d *Dispatcher) List(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	return d.repo.List(ctx, limit)
}

// Resume re-submits every queued item. Run once at startup when the
// scheduler does not persist tasks across restarts. Handles left over from
// the previous process are replaced; items the scheduler rejects lose theirs
// and are picked up by Reschedule.
func (d *Dispatcher) Resume(ctx context.Context) (int, error) {
	n := 0
	err := d.eachQueued(ctx, func(item *domain.QueueItem) {
		if d.schedule(ctx, item.ID) {
			n++
		}
	})
	return n, err
}

// Reschedule submits queued items that have no task handle, which happens
// when the scheduler rejected their last submission.
func (d *Dispatcher) Reschedule(ctx context.Context) (int, error) {
	n := 0
	err := d.eachQueued(ctx, func(item *domain.QueueItem) {
		if item.ScheduledJobRef == nil && d.schedule(ctx, item.ID) {
			n++
		}
	})
	return n, err
}

// eachQueued calls fn for every queued item, batchLimit rows at a time.
func (d *Dispatcher) eachQueued(ctx context.Context, fn func(*domain.QueueItem)) error {
	var after int64
	for {
		items, err := d.repo.FindByStatus(ctx, domain.StatusQueued, after, batchLimit)
		if err != nil {
			return fmt.Errorf("find queued items: %w", err)
		}
		for _, item := range items {
			fn(item)
			after = item.ID
		}
		if len(items) < batchLimit {
			return nil
		}
	}
}

// RecoverStale fails items stuck in generating since before now-olderThan,
// making them retryable through the normal retry path.
func (d *Dispatcher) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	items, err := d.repo.FindStale(ctx, time.Now().UTC().Add(-olderThan), batchLimit)
	if err != nil {
		return 0, fmt.Errorf("find stale items: %w", err)
	}
	n := 0
	for _, item := range items {
		if item.StartedAt == nil {
			continue
		}
		d.fail(ctx, item, *item.StartedAt, interruptedMessage)
		n++
	}
	return n, nil
}

// QueueDepth is the number of tasks waiting in the scheduler.
func (d *Dispatcher) QueueDepth() int {
	return d.sched.Depth()
}

// schedule submits a task for id and stores its handle on the item.
// On rejection the item keeps no handle, so the sweeper's Reschedule finds it.
func (d *Dispatcher) schedule(ctx context.Context, id int64) bool {
	log := d.logger.With(zap.Int64("item_id", id))

	handle, err := d.sched.Submit(ctx, id)
	if err != nil {
		log.Warn("scheduler rejected item: it will remain queued", zap.Error(err))
		if _, err := d.repo.Update(ctx, id, domain.QueueUpdate{ScheduledJobRef: domain.Clear[string]()}); err != nil {
			log.Error("failed to clear stale task handle", zap.Error(err))
		}
		return false
	}

	ok, err := d.repo.Update(ctx, id, domain.QueueUpdate{ScheduledJobRef: domain.SetTo(handle)})
	if err != nil {
		log.Error("failed to store task handle", zap.Error(err))
		return true
	}
	if !ok {
		// Deleted between insert and scheduling.
		if err := d.sched.Cancel(ctx, handle); err != nil {
			log.Warn("failed to cancel orphaned task", zap.Error(err))
		}
		return false
	}
	return true
}

func (d *Dispatcher) publish(ctx context.Context, e events.Event) {
	e.OccurredAt = time.Now().UTC()
	if err := d.events.Publish(ctx, e); err != nil {
		d.logger.Warn("failed to publish event",
			zap.String("type", string(e.Type)), zap.Int64("item_id", e.ItemID), zap.Error(err))
	}
}
