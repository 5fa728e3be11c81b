package model

import "time"

// OutcomeStatus is the result recorded for a single dispatch attempt.
type OutcomeStatus string

const (
	OutcomeStatusSent   OutcomeStatus = "sent"
	OutcomeStatusFailed OutcomeStatus = "failed"
)

// Outcome is an append-only audit entry for one dispatch attempt. Rows are never
// updated or deleted, and JobID keeps pointing at the job even if job retention removed it.
type Outcome struct {
	ID                int64         `json:"id"                            db:"id"`
	JobID             int64         `json:"job_id"                        db:"job_id"`
	Recipient         string        `json:"to_email"                      db:"recipient"`
	Subject           string        `json:"subject"                       db:"subject"`
	Body              string        `json:"body"                          db:"body"`
	SenderAddress     string        `json:"sender_email"                  db:"sender_address"`
	Status            OutcomeStatus `json:"status"                        db:"status"`
	ErrorMessage      *string       `json:"error_message,omitempty"       db:"error_message"`
	Attempt           int           `json:"attempt"                       db:"attempt"`
	ProviderMessageID *string       `json:"provider_message_id,omitempty" db:"provider_message_id"`
	RecordedAt        time.Time     `json:"created_at"                    db:"recorded_at"`
}

// MarkSentRequest is the atomic Scheduled -> Sent transition plus its outcome record.
type MarkSentRequest struct {
	JobID             int64
	Attempt           int
	SentAt            time.Time
	ProviderMessageID string
}

// MarkFailedRequest is the atomic Scheduled -> Failed transition plus its outcome record.
type MarkFailedRequest struct {
	JobID        int64
	Attempt      int
	ErrorMessage string
}

// RecordAttemptRequest updates a still-scheduled job after a retryable attempt.
type RecordAttemptRequest struct {
	JobID        int64
	Attempt      int
	ErrorMessage string
}
