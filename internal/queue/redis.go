package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/account-service/internal/domain"
)

const dequeueBlock = 5 * time.Second

// RedisQueue persists jobs in Redis hashes with per-state bookkeeping:
// a wait list fed by Enqueue, an active list the worker moves jobs into,
// completed/failed sets and a delayed zset for scheduled jobs.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue builds a queue over the given client.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

func (q *RedisQueue) key(parts ...string) string {
	key := "queue:" + q.name
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (q *RedisQueue) jobKey(id string) string {
	return q.key("job", id)
}

// Enqueue assigns the next id, stores the job hash and pushes the id onto
// the wait list.
func (q *RedisQueue) Enqueue(ctx context.Context, payload domain.MessagePayload) (*domain.Job, error) {
	id, err := q.client.Incr(ctx, q.key("id")).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate job id: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	job := &domain.Job{
		ID:         strconv.FormatInt(id, 10),
		Name:       q.name,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(job.ID), map[string]any{
		"payload":     string(data),
		"state":       string(domain.JobStateWaiting),
		"progress":    0,
		"enqueued_at": job.EnqueuedAt.Format(time.RFC3339Nano),
	})
	pipe.LPush(ctx, q.key("wait"), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// GetJob loads a job hash. The second return is false when the id is unknown.
func (q *RedisQueue) GetJob(ctx context.Context, id string) (*domain.Job, bool, error) {
	fields, err := q.client.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	job := &domain.Job{ID: id, Name: q.name}
	if raw, ok := fields["payload"]; ok {
		if err := json.Unmarshal([]byte(raw), &job.Payload); err != nil {
			return nil, false, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if raw, ok := fields["returnvalue"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &job.ReturnValue); err != nil {
			return nil, false, fmt.Errorf("unmarshal return value: %w", err)
		}
	}
	job.FailedReason = fields["failed_reason"]
	if raw, ok := fields["progress"]; ok {
		job.Progress, _ = strconv.Atoi(raw)
	}
	job.EnqueuedAt = parseTime(fields["enqueued_at"])
	job.ProcessedAt = parseTimePtr(fields["processed_at"])
	job.FinishedAt = parseTimePtr(fields["finished_at"])
	return job, true, nil
}

// GetState reads the job's current state field.
func (q *RedisQueue) GetState(ctx context.Context, id string) (domain.JobState, error) {
	state, err := q.client.HGet(ctx, q.jobKey(id), "state").Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrJobNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.JobState(state), nil
}

// CountByState reports how many jobs sit in the given state.
func (q *RedisQueue) CountByState(ctx context.Context, state domain.JobState) (int64, error) {
	switch state {
	case domain.JobStateWaiting:
		return q.client.LLen(ctx, q.key("wait")).Result()
	case domain.JobStateActive:
		return q.client.LLen(ctx, q.key("active")).Result()
	case domain.JobStateCompleted:
		return q.client.SCard(ctx, q.key("completed")).Result()
	case domain.JobStateFailed:
		return q.client.SCard(ctx, q.key("failed")).Result()
	case domain.JobStateDelayed:
		return q.client.ZCard(ctx, q.key("delayed")).Result()
	default:
		return 0, fmt.Errorf("unknown job state %q", state)
	}
}

// Dequeue blocks on the wait list, atomically moving the next job id into
// the active list.
func (q *RedisQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	for {
		id, err := q.client.BLMove(ctx, q.key("wait"), q.key("active"), "RIGHT", "LEFT", dequeueBlock).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		now := time.Now()
		if err := q.client.HSet(ctx, q.jobKey(id), map[string]any{
			"state":        string(domain.JobStateActive),
			"processed_at": now.Format(time.RFC3339Nano),
		}).Err(); err != nil {
			return nil, err
		}

		job, found, err := q.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		return job, nil
	}
}

// Complete records the result and moves the job to the completed set.
func (q *RedisQueue) Complete(ctx context.Context, job *domain.Job, result map[string]any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal return value: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(job.ID), map[string]any{
		"state":       string(domain.JobStateCompleted),
		"progress":    100,
		"returnvalue": string(data),
		"finished_at": time.Now().Format(time.RFC3339Nano),
	})
	pipe.LRem(ctx, q.key("active"), 1, job.ID)
	pipe.SAdd(ctx, q.key("completed"), job.ID)
	_, err = pipe.Exec(ctx)
	return err
}

// Fail records the failure reason and moves the job to the failed set.
func (q *RedisQueue) Fail(ctx context.Context, job *domain.Job, reason string) error {
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(job.ID), map[string]any{
		"state":         string(domain.JobStateFailed),
		"failed_reason": reason,
		"finished_at":   time.Now().Format(time.RFC3339Nano),
	})
	pipe.LRem(ctx, q.key("active"), 1, job.ID)
	pipe.SAdd(ctx, q.key("failed"), job.ID)
	_, err := pipe.Exec(ctx)
	return err
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &t
}
