package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ricirt/autoblog/internal/domain"
)

const queueColumns = `id, title, options, status, result_ref, error_message, retry_count,
	       scheduled_job_ref, created_at, started_at, completed_at`

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) Insert(ctx context.Context, title string, opts domain.Options) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, fmt.Errorf("%w: title is empty", domain.ErrValidation)
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return 0, fmt.Errorf("encode options: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO queue_items (title, options, status, retry_count, created_at)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING id`,
		title, raw, domain.StatusQueued, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert queue item: %w", err)
	}
	return id, nil
}

func (r *pgQueueRepository) Update(ctx context.Context, id int64, u domain.QueueUpdate) (bool, error) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	sets := setClauses(u, bind)
	if len(sets) == 0 {
		sets = []string{"id = id"}
	}
	query := fmt.Sprintf("UPDATE queue_items SET %s WHERE id = %s", strings.Join(sets, ", "), bind(id))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update queue item %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgQueueRepository) Get(ctx context.Context, id int64) (*domain.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+queueColumns+` FROM queue_items WHERE id = $1`, id)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item %d: %w", id, err)
	}
	return item, nil
}

func (r *pgQueueRepository) List(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM queue_items
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *pgQueueRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM queue_items WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete queue item %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgQueueRepository) Claim(ctx context.Context, id int64, startedAt time.Time, from ...domain.Status) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE queue_items
		SET status = $1, started_at = $2, completed_at = NULL,
		    result_ref = NULL, error_message = NULL
		WHERE id = $3 AND status = ANY($4)`,
		domain.StatusGenerating, startedAt, id, statuses,
	)
	if err != nil {
		return false, fmt.Errorf("claim queue item %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgQueueRepository) Transition(ctx context.Context, id int64, from domain.Status, startedAt time.Time, u domain.QueueUpdate) (bool, error) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	sets := setClauses(u, bind)
	if len(sets) == 0 {
		sets = []string{"id = id"}
	}
	query := fmt.Sprintf("UPDATE queue_items SET %s WHERE id = %s AND status = %s AND started_at = %s",
		strings.Join(sets, ", "), bind(id), bind(from), bind(startedAt))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition queue item %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgQueueRepository) FindByStatus(ctx context.Context, status domain.Status, afterID int64, limit int) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM queue_items
		WHERE status = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3`, status, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("find %s queue items: %w", status, err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *pgQueueRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM queue_items
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at ASC
		LIMIT $3`, domain.StatusGenerating, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("find stale queue items: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

// ---- helpers ----

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanQueueItem reads a single queue row in queueColumns order.
func scanQueueItem(row rowScanner) (*domain.QueueItem, error) {
	var (
		item    domain.QueueItem
		rawOpts []byte
		status  string
	)
	err := row.Scan(
		&item.ID, &item.Title, &rawOpts, &status, &item.ResultRef, &item.ErrorMessage,
		&item.RetryCount, &item.ScheduledJobRef, &item.CreatedAt, &item.StartedAt, &item.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Status = domain.Status(status)
	if len(rawOpts) > 0 {
		if err := json.Unmarshal(rawOpts, &item.Options); err != nil {
			return nil, fmt.Errorf("decode options of item %d: %w", item.ID, err)
		}
	}
	return &item, nil
}

func scanQueueItems(rows pgx.Rows) ([]*domain.QueueItem, error) {
	var result []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
