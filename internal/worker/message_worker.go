package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/queue"
)

// MessageWorker consumes jobs from the queue, processes them and records
// the outcome. Processing itself is simulated work.
type MessageWorker struct {
	consumer    queue.Consumer
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	concurrency int
	delay       time.Duration

	wg sync.WaitGroup
}

// NewMessageWorker builds the worker.
func NewMessageWorker(consumer queue.Consumer, dispatcher events.Dispatcher, logger *zap.Logger, cfg config.QueueConfig) *MessageWorker {
	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &MessageWorker{
		consumer:    consumer,
		dispatcher:  dispatcher,
		logger:      logger,
		concurrency: concurrency,
		delay:       cfg.ProcessDelay(),
	}
}

// Start launches the consuming goroutines. They run until ctx is done.
func (w *MessageWorker) Start(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.run(ctx)
		}()
	}
}

// Wait blocks until all consumer goroutines have stopped.
func (w *MessageWorker) Wait() {
	w.wg.Wait()
}

func (w *MessageWorker) run(ctx context.Context) {
	for {
		job, err := w.consumer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.process(ctx, job)
	}
}

func (w *MessageWorker) process(ctx context.Context, job *domain.Job) {
	w.logger.Info("processing job",
		zap.String("job_id", job.ID),
		zap.String("message", job.Payload.Message))

	if w.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(w.delay):
		}
	}

	result := map[string]any{
		"processed":   true,
		"message":     job.Payload.Message,
		"timestamp":   job.Payload.Timestamp,
		"processedAt": time.Now().Format(time.RFC3339),
	}

	if err := w.consumer.Complete(context.WithoutCancel(ctx), job, result); err != nil {
		w.logger.Error("failed to record job result", zap.String("job_id", job.ID), zap.Error(err))
		if failErr := w.consumer.Fail(context.WithoutCancel(ctx), job, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(failErr))
		}
		if w.dispatcher != nil {
			_ = w.dispatcher.Publish(ctx, events.Event{Type: events.EventJobFailed, JobID: job.ID})
		}
		return
	}

	w.logger.Info("successfully processed job", zap.String("job_id", job.ID))
	if w.dispatcher != nil {
		_ = w.dispatcher.Publish(ctx, events.Event{Type: events.EventJobCompleted, JobID: job.ID})
	}
}
