package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisQueue is a Scheduler shared by every process pointed at the same Redis.
//
// Tasks are LPUSHed onto a list and BLMOVEd by workers into a processing
// list, where they stay until the claim is settled. A hash maps each pending
// handle to its payload; whoever deletes the handle from the hash first owns
// the task, so a Cancel racing a Dequeue resolves to exactly one winner.
// Payloads left in the processing list by a crashed process are put back by
// Restore.
type RedisQueue struct {
	client        *redis.Client
	listKey       string
	processingKey string
	pendingKey    string
	pollTimeout   time.Duration
	logger        *zap.Logger
}

func NewRedisQueue(client *redis.Client, prefix string, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{
		client:        client,
		listKey:       prefix + ":tasks",
		processingKey: prefix + ":processing",
		pendingKey:    prefix + ":pending",
		pollTimeout:   time.Second,
		logger:        logger,
	}
}

func (q *RedisQueue) Submit(ctx context.Context, itemID int64) (string, error) {
	task := Task{Handle: uuid.NewString(), ItemID: itemID}
	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("encode task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.pendingKey, task.Handle, payload)
	pipe.LPush(ctx, q.listKey, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}
	return task.Handle, nil
}

func (q *RedisQueue) Cancel(ctx context.Context, handle string) error {
	payload, err := q.client.HGet(ctx, q.pendingKey, handle).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up task %s: %w", handle, err)
	}

	removed, err := q.client.HDel(ctx, q.pendingKey, handle).Result()
	if err != nil {
		return fmt.Errorf("cancel task %s: %w", handle, err)
	}
	if removed == 0 {
		// A worker took it between HGET and HDEL.
		return nil
	}
	if err := q.client.LRem(ctx, q.listKey, 1, payload).Err(); err != nil {
		return fmt.Errorf("remove task %s: %w", handle, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Task, bool) {
	for {
		if ctx.Err() != nil {
			return Task{}, false
		}

		payload, err := q.client.BLMove(ctx, q.listKey, q.processingKey, "RIGHT", "LEFT", q.pollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Task{}, false
			}
			q.logger.Warn("redis dequeue failed", zap.Error(err))
			select {
			case <-time.After(q.pollTimeout):
			case <-ctx.Done():
				return Task{}, false
			}
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(payload), &task); err != nil {
			q.logger.Error("dropping malformed task", zap.String("payload", payload), zap.Error(err))
			q.ack(ctx, payload)
			continue
		}

		owned, err := q.client.HDel(ctx, q.pendingKey, task.Handle).Result()
		if err != nil {
			// Left in the processing list; Restore re-delivers it if the claim never landed.
			q.logger.Warn("claim task failed, delivering anyway", zap.String("handle", task.Handle), zap.Error(err))
			return task, true
		}
		q.ack(ctx, payload)
		if owned == 0 {
			continue
		}
		return task, true
	}
}

// ack drops payload from the processing list once its claim is settled.
func (q *RedisQueue) ack(ctx context.Context, payload string) {
	if err := q.client.LRem(ctx, q.processingKey, 1, payload).Err(); err != nil {
		q.logger.Warn("ack task failed", zap.Error(err))
	}
}

// Restore moves tasks stranded in the processing list back onto the task list.
// A stranded task whose handle is still pending was taken by a process that
// died before claiming it; one whose handle is gone was claimed or cancelled
// and is only dropped. It returns the number of tasks put back.
//
// Running it while other processes dequeue is safe: a task they are about to
// claim may be listed twice, and the hash claim discards the copy.
func (q *RedisQueue) Restore(ctx context.Context) (int, error) {
	payloads, err := q.client.LRange(ctx, q.processingKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list processing tasks: %w", err)
	}

	restored := 0
	for _, payload := range payloads {
		var task Task
		pending := false
		if err := json.Unmarshal([]byte(payload), &task); err == nil {
			pending, err = q.client.HExists(ctx, q.pendingKey, task.Handle).Result()
			if err != nil {
				return restored, fmt.Errorf("check task %s: %w", task.Handle, err)
			}
		}

		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, q.processingKey, 1, payload)
		if pending {
			// The consuming end of the list, so it runs next.
			pipe.RPush(ctx, q.listKey, payload)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return restored, fmt.Errorf("restore task: %w", err)
		}
		if pending {
			restored++
		}
	}
	return restored, nil
}

// Depth reports the number of pending handles, or 0 when Redis is unreachable.
func (q *RedisQueue) Depth() int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := q.client.HLen(ctx, q.pendingKey).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
