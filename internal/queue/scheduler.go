package queue

import "context"

// Task is one scheduled dispatch of a queue item.
// Workers load the full item from the store using ItemID, keeping the
// scheduler lightweight and the store authoritative.
type Task struct {
	Handle string `json:"handle"`
	ItemID int64  `json:"item_id"`
}

// Scheduler runs each submitted item once, as soon as a worker is free.
// Delivery is at-least-once: consumers must tolerate duplicates.
type Scheduler interface {
	// Submit schedules itemID and returns an opaque handle for Cancel.
	Submit(ctx context.Context, itemID int64) (string, error)
	// Cancel drops a pending task. Cancelling a task that already started
	// or never existed is not an error.
	Cancel(ctx context.Context, handle string) error
	// Dequeue blocks until a task is available or ctx is cancelled.
	// It returns false on cancellation.
	Dequeue(ctx context.Context) (Task, bool)
	// Depth is the number of pending tasks.
	Depth() int
}
