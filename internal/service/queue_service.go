package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/queue"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// EnqueueResult acknowledges a queued message.
type EnqueueResult struct {
	JobID   string                `json:"jobId"`
	Message string                `json:"message"`
	Data    domain.MessagePayload `json:"data"`
}

// QueueService enqueues messages and reports job state and per-state
// counts. It never owns state transitions; the queue does.
type QueueService struct {
	queue      queue.Queue
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewQueueService builds the service.
func NewQueueService(q queue.Queue, dispatcher events.Dispatcher, logger *zap.Logger) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{queue: q, dispatcher: dispatcher, logger: logger}
}

// AddMessage wraps the message in a timestamped payload and enqueues it.
func (s *QueueService) AddMessage(ctx context.Context, message string, metadata map[string]any) (*EnqueueResult, error) {
	payload := domain.MessagePayload{
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
		Metadata:  metadata,
	}

	job, err := s.queue.Enqueue(ctx, payload)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("added job to queue", zap.String("job_id", job.ID))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{Type: events.EventJobEnqueued, JobID: job.ID})
	}

	return &EnqueueResult{
		JobID:   job.ID,
		Message: "Message added to queue successfully",
		Data:    payload,
	}, nil
}

// GetJobStatus projects the queue-held fields for a job. The second
// return is false when the id is unknown; the caller decides how to
// surface absence.
func (s *QueueService) GetJobStatus(ctx context.Context, jobID string) (*domain.JobStatus, bool, error) {
	job, found, err := s.queue.GetJob(ctx, jobID)
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	if !found {
		return nil, false, nil
	}

	state, err := s.queue.GetState(ctx, jobID)
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}

	return &domain.JobStatus{
		JobID:        job.ID,
		State:        state,
		Progress:     job.Progress,
		Data:         job.Payload,
		ReturnValue:  job.ReturnValue,
		FailedReason: job.FailedReason,
		Timestamp:    job.EnqueuedAt,
		ProcessedOn:  job.ProcessedAt,
		FinishedOn:   job.FinishedAt,
	}, true, nil
}

// GetQueueStats fans out the five per-state counts concurrently and
// combines them once all have completed. Any failed count fails the call.
func (s *QueueService) GetQueueStats(ctx context.Context) (*domain.QueueStats, error) {
	counts := make([]int64, len(domain.JobStates))

	g, gctx := errgroup.WithContext(ctx)
	for i, state := range domain.JobStates {
		i, state := i, state
		g.Go(func() error {
			count, err := s.queue.CountByState(gctx, state)
			if err != nil {
				return err
			}
			counts[i] = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	stats := &domain.QueueStats{
		Waiting:   counts[0],
		Active:    counts[1],
		Completed: counts[2],
		Failed:    counts[3],
		Delayed:   counts[4],
	}
	stats.Total = stats.Waiting + stats.Active + stats.Completed + stats.Failed + stats.Delayed
	return stats, nil
}
