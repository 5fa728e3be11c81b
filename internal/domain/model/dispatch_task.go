package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DispatchTaskStatus represents the queue-internal state of a dispatch task.
type DispatchTaskStatus string

const (
	// DispatchTaskStatusPending indicates the task waits for reservation.
	DispatchTaskStatusPending DispatchTaskStatus = "pending"
	// DispatchTaskStatusRunning indicates the task is leased to the dispatcher.
	DispatchTaskStatusRunning DispatchTaskStatus = "running"
	// DispatchTaskStatusCompleted indicates the handler reported a successful send.
	DispatchTaskStatusCompleted DispatchTaskStatus = "completed"
	// DispatchTaskStatusRetired indicates the task will not be presented again.
	DispatchTaskStatusRetired DispatchTaskStatus = "retired"
)

// ErrNoTasksAvailable is returned when no task is eligible for reservation.
var ErrNoTasksAvailable = errors.New("no dispatch tasks available")

// Valid returns true if the DispatchTaskStatus is valid.
func (s DispatchTaskStatus) Valid() bool {
	switch s {
	case DispatchTaskStatusPending, DispatchTaskStatusRunning, DispatchTaskStatusCompleted, DispatchTaskStatusRetired:
		return true
	default:
		return false
	}
}

// DispatchPayload is the message snapshot carried by a task.
type DispatchPayload struct {
	Recipient     string `json:"recipient"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	SenderAddress string `json:"sender_address"`
}

// DispatchTask is one entry of the durable dispatch queue.
type DispatchTask struct {
	ID             string             `json:"id"                         db:"id"`
	JobID          int64              `json:"job_id"                     db:"job_id"`
	Payload        DispatchPayload    `json:"payload"                    db:"payload"`
	Status         DispatchTaskStatus `json:"status"                     db:"status"`
	ScheduledAt    time.Time          `json:"scheduled_at"               db:"scheduled_at"`
	Attempts       int                `json:"attempts"                   db:"attempts"`
	MaxAttempts    int                `json:"max_attempts"               db:"max_attempts"`
	LastError      *string            `json:"last_error,omitempty"       db:"last_error"`
	LeaseExpiresAt *time.Time         `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	CreatedAt      time.Time          `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"                 db:"updated_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"     db:"completed_at"`
}

// Attempt returns the 1-based number of the attempt currently being made.
func (t *DispatchTask) Attempt() int {
	return t.Attempts + 1
}

// EnqueueRequest describes a new dispatch task.
type EnqueueRequest struct {
	JobID       int64
	Payload     DispatchPayload
	ScheduledAt time.Time
	MaxAttempts int
}

// Validate validates the EnqueueRequest fields.
func (r *EnqueueRequest) Validate() error {
	if r.JobID <= 0 {
		return errors.New("job id is required")
	}
	if r.Payload.Recipient == "" {
		return errors.New("payload recipient is required")
	}
	if r.MaxAttempts < 0 {
		return errors.New("max attempts must be >= 0")
	}
	return nil
}

// NewTaskID returns a fresh identifier for a dispatch task.
func NewTaskID() string {
	return uuid.NewString()
}

// DispatchStats represents queue depth per task state.
type DispatchStats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Retired   int `json:"retired"`
}
