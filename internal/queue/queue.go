package queue

import (
	"context"
	"errors"

	"github.com/spec-kit/account-service/internal/domain"
)

// ErrJobNotFound signals an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// Queue is the producer/reader side of the job queue. Job state is owned
// by the queue; callers only enqueue and inspect.
type Queue interface {
	Enqueue(ctx context.Context, payload domain.MessagePayload) (*domain.Job, error)
	GetJob(ctx context.Context, id string) (*domain.Job, bool, error)
	GetState(ctx context.Context, id string) (domain.JobState, error)
	CountByState(ctx context.Context, state domain.JobState) (int64, error)
}

// Consumer is the worker-facing side of the queue.
type Consumer interface {
	// Dequeue blocks until a job becomes available or ctx is done.
	Dequeue(ctx context.Context) (*domain.Job, error)
	Complete(ctx context.Context, job *domain.Job, result map[string]any) error
	Fail(ctx context.Context, job *domain.Job, reason string) error
}
