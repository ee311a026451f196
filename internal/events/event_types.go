package events

// EventType identifies a domain event.
type EventType string

const (
	EventJobEnqueued    EventType = "job.enqueued"
	EventJobCompleted   EventType = "job.completed"
	EventJobFailed      EventType = "job.failed"
	EventUserRegistered EventType = "user.registered"
	EventPasswordReset  EventType = "user.password_reset"
)

// Event is the payload published through the dispatcher.
type Event struct {
	Type    EventType
	JobID   string
	UserID  string
	Payload map[string]any
}
