package domain

import "time"

// JobState represents the lifecycle stage of a queued job. States are
// owned and transitioned by the queue; services only read them.
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateDelayed   JobState = "delayed"
)

// JobStates lists every state the queue tracks, in reporting order.
var JobStates = []JobState{
	JobStateWaiting,
	JobStateActive,
	JobStateCompleted,
	JobStateFailed,
	JobStateDelayed,
}

// MessagePayload is the unit of work placed on the queue.
type MessagePayload struct {
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Job is a queued unit of work together with its processing bookkeeping.
type Job struct {
	ID           string
	Name         string
	Payload      MessagePayload
	Progress     int
	ReturnValue  map[string]any
	FailedReason string
	EnqueuedAt   time.Time
	ProcessedAt  *time.Time
	FinishedAt   *time.Time
}

// JobStatus is the outward projection of a fetched job.
type JobStatus struct {
	JobID        string         `json:"jobId"`
	State        JobState       `json:"state"`
	Progress     int            `json:"progress"`
	Data         MessagePayload `json:"data"`
	ReturnValue  map[string]any `json:"returnvalue,omitempty"`
	FailedReason string         `json:"failedReason,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	ProcessedOn  *time.Time     `json:"processedOn,omitempty"`
	FinishedOn   *time.Time     `json:"finishedOn,omitempty"`
}

// QueueStats aggregates per-state job counts.
type QueueStats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
	Total     int64 `json:"total"`
}
