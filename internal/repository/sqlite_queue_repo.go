package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ricirt/autoblog/internal/domain"
)

// SQLiteQueueRepository implements QueueRepository for single-node deployments.
type SQLiteQueueRepository struct {
	db *sql.DB
}

// NewSQLiteQueueRepository wraps a database opened with db.OpenSQLite.
func NewSQLiteQueueRepository(db *sql.DB) *SQLiteQueueRepository {
	return &SQLiteQueueRepository{db: db}
}

func (r *SQLiteQueueRepository) Insert(ctx context.Context, title string, opts domain.Options) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, fmt.Errorf("%w: title is empty", domain.ErrValidation)
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return 0, fmt.Errorf("encode options: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO queue_items (title, options, status, retry_count, created_at) VALUES (?, ?, ?, 0, ?)`,
		title, string(raw), domain.StatusQueued, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert queue item: %w", err)
	}
	return result.LastInsertId()
}

func (r *SQLiteQueueRepository) Update(ctx context.Context, id int64, u domain.QueueUpdate) (bool, error) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return "?"
	}
	sets := setClauses(u, bind)
	if len(sets) == 0 {
		sets = []string{"id = id"}
	}
	args = append(args, id)

	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE queue_items SET %s WHERE id = ?", strings.Join(sets, ", ")), args...)
	if err != nil {
		return false, fmt.Errorf("update queue item %d: %w", id, err)
	}
	return affected(result)
}

func (r *SQLiteQueueRepository) Get(ctx context.Context, id int64) (*domain.QueueItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM queue_items WHERE id = ?`, id)

	item, err := scanQueueItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item %d: %w", id, err)
	}
	return item, nil
}

func (r *SQLiteQueueRepository) List(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	return r.query(ctx, `SELECT `+queueColumns+` FROM queue_items ORDER BY id DESC LIMIT ?`, limit)
}

func (r *SQLiteQueueRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete queue item %d: %w", id, err)
	}
	return affected(result)
}

func (r *SQLiteQueueRepository) Claim(ctx context.Context, id int64, startedAt time.Time, from ...domain.Status) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	args := []any{domain.StatusGenerating, startedAt, id}
	placeholders := make([]string, len(from))
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE queue_items
		SET status = ?, started_at = ?, completed_at = NULL, result_ref = NULL, error_message = NULL
		WHERE id = ? AND status IN (%s)`, strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return false, fmt.Errorf("claim queue item %d: %w", id, err)
	}
	return affected(result)
}

// Transition matches started_at by equality; both sides are written by the
// driver from the same time value, so their text forms are identical.
func (r *SQLiteQueueRepository) Transition(ctx context.Context, id int64, from domain.Status, startedAt time.Time, u domain.QueueUpdate) (bool, error) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return "?"
	}
	sets := setClauses(u, bind)
	if len(sets) == 0 {
		sets = []string{"id = id"}
	}
	args = append(args, id, string(from), startedAt)

	result, err := r.db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE queue_items SET %s WHERE id = ? AND status = ? AND started_at = ?", strings.Join(sets, ", ")), args...)
	if err != nil {
		return false, fmt.Errorf("transition queue item %d: %w", id, err)
	}
	return affected(result)
}

func (r *SQLiteQueueRepository) FindByStatus(ctx context.Context, status domain.Status, afterID int64, limit int) ([]*domain.QueueItem, error) {
	return r.query(ctx,
		`SELECT `+queueColumns+` FROM queue_items WHERE status = ? AND id > ? ORDER BY id ASC LIMIT ?`, status, afterID, limit)
}

// FindStale filters on started_at in Go: SQLite stores timestamps as text and
// their fractional seconds do not sort lexically.
func (r *SQLiteQueueRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.QueueItem, error) {
	items, err := r.query(ctx,
		`SELECT `+queueColumns+` FROM queue_items WHERE status = ? ORDER BY id ASC`, domain.StatusGenerating)
	if err != nil {
		return nil, err
	}
	var stale []*domain.QueueItem
	for _, item := range items {
		if item.StartedAt != nil && item.StartedAt.Before(cutoff) && len(stale) < limit {
			stale = append(stale, item)
		}
	}
	return stale, nil
}

func (r *SQLiteQueueRepository) query(ctx context.Context, query string, args ...any) ([]*domain.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query queue items: %w", err)
	}
	defer rows.Close()

	var items []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
