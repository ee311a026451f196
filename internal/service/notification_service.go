package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
)

// NotificationService logs notifications for domain events. Actual
// email/webhook delivery is out of scope; handlers are stubs.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventJobEnqueued, n.handleJobEnqueued)
	n.dispatcher.Subscribe(events.EventJobCompleted, n.handleJobCompleted)
	n.dispatcher.Subscribe(events.EventJobFailed, n.handleJobFailed)
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordReset, n.handlePasswordReset)
}

func (n *NotificationService) handleJobEnqueued(_ context.Context, event events.Event) error {
	n.logger.Info("JobEnqueued", zap.String("job_id", event.JobID))
	return nil
}

func (n *NotificationService) handleJobCompleted(_ context.Context, event events.Event) error {
	n.logger.Info("JobCompleted", zap.String("job_id", event.JobID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleJobFailed(_ context.Context, event events.Event) error {
	n.logger.Warn("JobFailed", zap.String("job_id", event.JobID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleUserRegistered(_ context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.String("user_id", event.UserID))
	return nil
}

func (n *NotificationService) handlePasswordReset(_ context.Context, event events.Event) error {
	n.logger.Info("PasswordReset", zap.String("user_id", event.UserID))
	return nil
}
