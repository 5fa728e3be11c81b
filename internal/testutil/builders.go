package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/target/mailq/internal/domain/model"
)

// EmailJobRequestBuilder builds CreateEmailJobRequest values with test defaults.
type EmailJobRequestBuilder struct {
	req *model.CreateEmailJobRequest
}

// NewEmailJobRequest returns a builder for a job scheduled at TestTime.
func NewEmailJobRequest() *EmailJobRequestBuilder {
	return &EmailJobRequestBuilder{
		req: &model.CreateEmailJobRequest{
			SubmissionID:  uuid.NewString(),
			Recipient:     "alice@example.com",
			Subject:       "Hello",
			Body:          "Hi there",
			SenderAddress: "sender@example.com",
			ScheduledAt:   TestTime(),
		},
	}
}

// WithRecipient sets the recipient.
func (b *EmailJobRequestBuilder) WithRecipient(addr string) *EmailJobRequestBuilder {
	b.req.Recipient = addr
	return b
}

// WithSubmissionID sets the submission id.
func (b *EmailJobRequestBuilder) WithSubmissionID(id string) *EmailJobRequestBuilder {
	b.req.SubmissionID = id
	return b
}

// WithScheduledAt sets the scheduled time.
func (b *EmailJobRequestBuilder) WithScheduledAt(at time.Time) *EmailJobRequestBuilder {
	b.req.ScheduledAt = at
	return b
}

// WithDelay sets the per-recipient delay.
func (b *EmailJobRequestBuilder) WithDelay(seconds int) *EmailJobRequestBuilder {
	b.req.DelaySeconds = seconds
	return b
}

// Build returns the request.
func (b *EmailJobRequestBuilder) Build() *model.CreateEmailJobRequest {
	return b.req
}

// EnqueueRequestFor returns an EnqueueRequest carrying job's message snapshot.
func EnqueueRequestFor(job *model.EmailJob) *model.EnqueueRequest {
	return &model.EnqueueRequest{
		JobID: job.ID,
		Payload: model.DispatchPayload{
			Recipient:     job.Recipient,
			Subject:       job.Subject,
			Body:          job.Body,
			SenderAddress: job.SenderAddress,
		},
		ScheduledAt: job.ScheduledAt,
	}
}
