// Package model defines the core data types shared by the mailq dispatch pipeline.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EmailJobStatus represents the externally visible state of a per-recipient email job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type EmailJobStatus string

const (
	// EmailJobStatusScheduled indicates the job is waiting to be dispatched.
	EmailJobStatusScheduled EmailJobStatus = "scheduled"
	// EmailJobStatusSent indicates the message was accepted by the mail transport.
	EmailJobStatusSent EmailJobStatus = "sent"
	// EmailJobStatusFailed indicates dispatch failed terminally.
	EmailJobStatusFailed EmailJobStatus = "failed"
)

// Valid returns true if the status is one of the known job states.
func (s EmailJobStatus) Valid() bool {
	return s == EmailJobStatusScheduled || s == EmailJobStatusSent || s == EmailJobStatusFailed
}

// Terminal reports whether no further transition is allowed from s.
func (s EmailJobStatus) Terminal() bool {
	return s == EmailJobStatusSent || s == EmailJobStatusFailed
}

// UnmarshalText implements encoding.TextUnmarshaler so statuses can be parsed from query strings.
// An empty value decodes to the zero status so JSON from partially populated jobs round-trips.
func (s *EmailJobStatus) UnmarshalText(text []byte) error {
	v := EmailJobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if v != "" && !v.Valid() {
		return fmt.Errorf("invalid EmailJobStatus: %q", v)
	}
	*s = v
	return nil
}

// EmailJob is one recipient's pending-or-completed send request.
type EmailJob struct {
	ID            int64          `json:"id"                       db:"id"`
	SubmissionID  string         `json:"submission_id"            db:"submission_id"`
	Recipient     string         `json:"to"                       db:"recipient"`
	Subject       string         `json:"subject"                  db:"subject"`
	Body          string         `json:"body"                     db:"body"`
	SenderAddress string         `json:"sender_email"             db:"sender_address"`
	Status        EmailJobStatus `json:"status"                   db:"status"`
	ScheduledAt   time.Time      `json:"start_time"               db:"scheduled_at"`
	DelaySeconds  int            `json:"delay"                    db:"delay_seconds"`
	HourlyLimit   int            `json:"hourly_limit"             db:"hourly_limit"`
	Attempts      int            `json:"attempts"                 db:"attempts"`
	CreatedAt     time.Time      `json:"created_at"               db:"created_at"`
	SentAt        *time.Time     `json:"sent_at,omitempty"        db:"sent_at"`
	ErrorMessage  *string        `json:"error_message,omitempty"  db:"error_message"`
	UpdatedAt     time.Time      `json:"updated_at"               db:"updated_at"`
}

// CreateEmailJobRequest carries the fields Recipient Intake persists for a new job.
type CreateEmailJobRequest struct {
	SubmissionID  string
	Recipient     string
	Subject       string
	Body          string
	SenderAddress string
	ScheduledAt   time.Time
	DelaySeconds  int
	HourlyLimit   int
}

// Validate checks that all immutable job fields are populated.
func (r *CreateEmailJobRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Recipient) == "":
		return errors.New("recipient is required")
	case strings.TrimSpace(r.Subject) == "":
		return errors.New("subject is required")
	case strings.TrimSpace(r.Body) == "":
		return errors.New("body is required")
	case strings.TrimSpace(r.SenderAddress) == "":
		return errors.New("sender address is required")
	case r.ScheduledAt.IsZero():
		return errors.New("scheduled_at is required")
	case r.DelaySeconds < 0 || r.HourlyLimit < 0:
		return errors.New("delay and hourly limit must be non-negative")
	}
	return nil
}

// EmailJobListOptions groups parameters for listing jobs.
type EmailJobListOptions struct {
	Status       *EmailJobStatus
	SubmissionID *string
	Limit        int
	Offset       int
}

// OutcomeListOptions groups parameters for listing outcome records.
type OutcomeListOptions struct {
	JobID  *int64
	Limit  int
	Offset int
}
