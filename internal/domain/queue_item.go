package domain

import "time"

// Status tracks the lifecycle of a queue item.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusGenerating, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// MaxRetries is the number of failures after which an item can no longer be retried.
const MaxRetries = 3

// QueueItem is one title plus its generation options and lifecycle state.
type QueueItem struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Options         Options    `json:"options"`
	Status          Status     `json:"status"`
	ResultRef       *int64     `json:"post_id"`
	ErrorMessage    *string    `json:"error_message"`
	RetryCount      int        `json:"retry_count"`
	ScheduledJobRef *string    `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Dispatchable reports whether a scheduled task may start processing the item.
// Anything else is a duplicate or late delivery.
func (q *QueueItem) Dispatchable() bool {
	return q.Status == StatusQueued || q.Status == StatusFailed
}

// CanRetry returns true if a failed item still has retries left.
func (q *QueueItem) CanRetry() bool {
	return q.Status == StatusFailed && q.RetryCount < MaxRetries
}

// Field is an optional column write used by partial updates.
// The zero value leaves the column untouched; Set writes Value, and a
// set field with a nil Value clears the column to NULL.
type Field[T any] struct {
	Set   bool
	Value *T
}

// SetTo returns a field that writes v.
func SetTo[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Clear returns a field that writes NULL.
func Clear[T any]() Field[T] {
	return Field[T]{Set: true}
}

// QueueUpdate is a partial update of a queue item. Only set fields are written.
type QueueUpdate struct {
	Status          Field[Status]
	ResultRef       Field[int64]
	ErrorMessage    Field[string]
	RetryCount      Field[int]
	ScheduledJobRef Field[string]
	StartedAt       Field[time.Time]
	CompletedAt     Field[time.Time]
}

// Empty reports whether the update writes nothing.
func (u QueueUpdate) Empty() bool {
	return !u.Status.Set && !u.ResultRef.Set && !u.ErrorMessage.Set && !u.RetryCount.Set &&
		!u.ScheduledJobRef.Set && !u.StartedAt.Set && !u.CompletedAt.Set
}

// Apply writes the set fields onto item. Stores without a query language
// (the in-memory mock) use it directly.
func (u QueueUpdate) Apply(item *QueueItem) {
	if u.Status.Set && u.Status.Value != nil {
		item.Status = *u.Status.Value
	}
	if u.ResultRef.Set {
		item.ResultRef = clonePtr(u.ResultRef.Value)
	}
	if u.ErrorMessage.Set {
		item.ErrorMessage = clonePtr(u.ErrorMessage.Value)
	}
	if u.RetryCount.Set && u.RetryCount.Value != nil {
		item.RetryCount = *u.RetryCount.Value
	}
	if u.ScheduledJobRef.Set {
		item.ScheduledJobRef = clonePtr(u.ScheduledJobRef.Value)
	}
	if u.StartedAt.Set {
		item.StartedAt = clonePtr(u.StartedAt.Value)
	}
	if u.CompletedAt.Set {
		item.CompletedAt = clonePtr(u.CompletedAt.Value)
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
