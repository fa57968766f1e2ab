package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ricirt/autoblog/internal/domain"
)

// QueueRepository defines all persistence operations for queue items.
// Implementations: PostgreSQL (pg_queue_repo.go), SQLite (sqlite_queue_repo.go)
// and a hand-written in-memory mock for tests (mock_queue_repo.go).
type QueueRepository interface {
	// Insert stores a new queued item and returns its id.
	Insert(ctx context.Context, title string, opts domain.Options) (int64, error)
	// Update writes the set fields of u. Unknown id returns false, nil.
	Update(ctx context.Context, id int64, u domain.QueueUpdate) (bool, error)
	// Get returns nil, nil when the item does not exist.
	Get(ctx context.Context, id int64) (*domain.QueueItem, error)
	// List returns the newest items first.
	List(ctx context.Context, limit int) ([]*domain.QueueItem, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// Claim moves the item to generating, stamping startedAt, only if its
	// current status is one of from. It returns false when another dispatch
	// got there first.
	Claim(ctx context.Context, id int64, startedAt time.Time, from ...domain.Status) (bool, error)
	// Transition writes u only while the item is still in status from and its
	// started_at equals startedAt, so a run that was recovered or re-claimed
	// cannot overwrite the newer state. It returns false otherwise.
	Transition(ctx context.Context, id int64, from domain.Status, startedAt time.Time, u domain.QueueUpdate) (bool, error)
	// FindByStatus returns items with id > afterID in ascending id order.
	FindByStatus(ctx context.Context, status domain.Status, afterID int64, limit int) ([]*domain.QueueItem, error)
	// FindStale returns generating items whose started_at is before cutoff.
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.QueueItem, error)
}

// setClauses renders the set fields of u as column assignments. bind appends
// an argument and returns its placeholder.
func setClauses(u domain.QueueUpdate, bind func(any) string) []string {
	var sets []string
	add := func(column string, set bool, val any) {
		if set {
			sets = append(sets, fmt.Sprintf("%s = %s", column, bind(val)))
		}
	}
	add("status", u.Status.Set && u.Status.Value != nil, u.Status.Value)
	add("result_ref", u.ResultRef.Set, u.ResultRef.Value)
	add("error_message", u.ErrorMessage.Set, u.ErrorMessage.Value)
	add("retry_count", u.RetryCount.Set && u.RetryCount.Value != nil, u.RetryCount.Value)
	add("scheduled_job_ref", u.ScheduledJobRef.Set, u.ScheduledJobRef.Value)
	add("started_at", u.StartedAt.Set, u.StartedAt.Value)
	add("completed_at", u.CompletedAt.Set, u.CompletedAt.Value)
	return sets
}
