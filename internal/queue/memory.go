package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/account-service/internal/domain"
)

type memoryEntry struct {
	job   domain.Job
	state domain.JobState
}

// MemoryQueue is an in-process queue with the same contract as RedisQueue.
// It backs tests and development runs without a reachable Redis.
type MemoryQueue struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[string]*memoryEntry
	wait   chan string
}

// NewMemoryQueue builds an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs: make(map[string]*memoryEntry),
		wait: make(chan string, 1024),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, payload domain.MessagePayload) (*domain.Job, error) {
	q.mu.Lock()
	q.nextID++
	job := domain.Job{
		ID:         strconv.FormatInt(q.nextID, 10),
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	q.jobs[job.ID] = &memoryEntry{job: job, state: domain.JobStateWaiting}
	q.mu.Unlock()

	q.wait <- job.ID

	copied := job
	return &copied, nil
}

func (q *MemoryQueue) GetJob(_ context.Context, id string) (*domain.Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[id]
	if !ok {
		return nil, false, nil
	}
	copied := entry.job
	return &copied, true, nil
}

func (q *MemoryQueue) GetState(_ context.Context, id string) (domain.JobState, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[id]
	if !ok {
		return "", ErrJobNotFound
	}
	return entry.state, nil
}

func (q *MemoryQueue) CountByState(_ context.Context, state domain.JobState) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var count int64
	for _, entry := range q.jobs {
		if entry.state == state {
			count++
		}
	}
	return count, nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case id := <-q.wait:
			q.mu.Lock()
			entry, ok := q.jobs[id]
			if !ok {
				q.mu.Unlock()
				continue
			}
			now := time.Now()
			entry.state = domain.JobStateActive
			entry.job.ProcessedAt = &now
			copied := entry.job
			q.mu.Unlock()
			return &copied, nil
		}
	}
}

func (q *MemoryQueue) Complete(_ context.Context, job *domain.Job, result map[string]any) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[job.ID]
	if !ok {
		return ErrJobNotFound
	}
	now := time.Now()
	entry.state = domain.JobStateCompleted
	entry.job.Progress = 100
	entry.job.ReturnValue = result
	entry.job.FinishedAt = &now
	return nil
}

func (q *MemoryQueue) Fail(_ context.Context, job *domain.Job, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[job.ID]
	if !ok {
		return ErrJobNotFound
	}
	now := time.Now()
	entry.state = domain.JobStateFailed
	entry.job.FailedReason = reason
	entry.job.FinishedAt = &now
	return nil
}
