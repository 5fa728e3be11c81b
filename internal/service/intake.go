package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/target/mailq/internal/core"
	"github.com/target/mailq/internal/data"
	"github.com/target/mailq/internal/domain/model"
	"github.com/target/mailq/internal/domain/recipients"
	apperrors "github.com/target/mailq/internal/errors"
	"github.com/target/mailq/internal/observability/metrics"
	"github.com/target/mailq/internal/observability/statsd"
)

const (
	// MaxDelaySeconds caps the spacing between consecutive recipients of a submission.
	MaxDelaySeconds = 24 * 60 * 60
	// maxSubmissionSpan caps how far after the start time the last recipient may be scheduled.
	maxSubmissionSpan = 366 * 24 * time.Hour
)

// IntakeServiceOptions groups dependencies for IntakeService.
type IntakeServiceOptions struct {
	Jobs          core.EmailJobRepository // Required: job store
	Queue         core.DispatchQueue      // Required: dispatch queue
	DefaultSender string                  // Optional: sender used when a submission omits one
	MaxAttempts   int                     // Optional: per-task attempt ceiling, 0 uses the queue default
	TimeProvider  data.TimeProvider       // Optional: clock for RetryJob
	Logger        *slog.Logger            // Optional: structured logger
	Metrics       statsd.Sink             // Optional: metrics sink
}

// IntakeService turns a submission into one scheduled job and one dispatch task per recipient.
type IntakeService struct {
	jobs          core.EmailJobRepository
	queue         core.DispatchQueue
	defaultSender string
	maxAttempts   int
	clock         data.TimeProvider
	logger        *slog.Logger
	metrics       statsd.Sink
}

// SubmitRequest is a validated-on-entry batch submission.
type SubmitRequest struct {
	Subject       string
	Body          string
	SenderAddress string
	Recipients    []string
	ScheduledAt   time.Time
	DelaySeconds  int
	HourlyLimit   int
}

// SubmitResult reports what Submit persisted.
type SubmitResult struct {
	Count        int     `json:"count"`
	SubmissionID string  `json:"submissionId"`
	JobIDs       []int64 `json:"jobIds"`
}

// NewIntakeService constructs a new IntakeService.
func NewIntakeService(opts IntakeServiceOptions) (*IntakeService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("EmailJobRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("DispatchQueue is required")
	}
	if opts.MaxAttempts < 0 {
		return nil, errors.New("MaxAttempts must be >= 0")
	}

	clock := opts.TimeProvider
	if clock == nil {
		clock = data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "intake_service")
	}

	return &IntakeService{
		jobs:          opts.Jobs,
		queue:         opts.Queue,
		defaultSender: strings.TrimSpace(opts.DefaultSender),
		maxAttempts:   opts.MaxAttempts,
		clock:         clock,
		logger:        logger,
		metrics:       opts.Metrics,
	}, nil
}

// Submit validates req and, for each recipient in order, persists a job and then enqueues its task.
// Validation failures return an errors.ErrCodeValidation AppError and persist nothing.
// A store or queue failure mid-batch leaves already persisted jobs for orphan recovery.
func (s *IntakeService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if strings.TrimSpace(req.SenderAddress) == "" {
		req.SenderAddress = s.defaultSender
	}
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	addrs := recipients.Clean(req.Recipients)
	if len(addrs) == 0 {
		return nil, apperrors.ValidationField("to", "No valid emails found")
	}

	// Offsets are checked in whole seconds so the product cannot overflow a Duration.
	if int64(len(addrs)-1)*int64(req.DelaySeconds) > int64(maxSubmissionSpan/time.Second) {
		return nil, apperrors.ValidationField("delay",
			fmt.Sprintf("delay of %ds for %d recipients schedules past %s", req.DelaySeconds, len(addrs), maxSubmissionSpan))
	}

	res := &SubmitResult{
		SubmissionID: uuid.NewString(),
		JobIDs:       make([]int64, 0, len(addrs)),
	}

	for i, addr := range addrs {
		job, err := s.jobs.Create(ctx, &model.CreateEmailJobRequest{
			SubmissionID:  res.SubmissionID,
			Recipient:     addr,
			Subject:       req.Subject,
			Body:          req.Body,
			SenderAddress: strings.TrimSpace(req.SenderAddress),
			ScheduledAt:   req.ScheduledAt.Add(sendOffset(i, req.DelaySeconds)),
			DelaySeconds:  req.DelaySeconds,
			HourlyLimit:   req.HourlyLimit,
		})
		if err != nil {
			return res, s.batchError(ctx, res, "persist job", err)
		}
		res.JobIDs = append(res.JobIDs, job.ID)
		res.Count++

		if _, err := s.queue.Enqueue(ctx, newEnqueueRequest(job, s.maxAttempts)); err != nil {
			return res, s.batchError(ctx, res, fmt.Sprintf("enqueue job %d", job.ID), err)
		}
		metrics.EmitDispatchLifecycle(s.metrics, metrics.DispatchMetric{Transition: metrics.TransitionEnqueued})
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "submission scheduled",
			"submission_id", res.SubmissionID,
			"count", res.Count,
			"scheduled_at", req.ScheduledAt,
			"delay_seconds", req.DelaySeconds,
		)
	}
	return res, nil
}

// RetryJob returns a failed job to scheduled and enqueues a fresh task for it.
func (s *IntakeService) RetryJob(ctx context.Context, id int64) (*model.EmailJob, error) {
	job, err := s.jobs.ResetForRetry(ctx, id, s.clock.Now())
	switch {
	case errors.Is(err, data.ErrEmailJobNotFound):
		return nil, apperrors.NotFoundf("email job %d not found", id)
	case errors.Is(err, data.ErrEmailJobNotRetryable):
		return nil, apperrors.Conflictf("email job %d is not failed", id)
	case err != nil:
		return nil, fmt.Errorf("reset job %d: %w", id, apperrors.MapDBError(err))
	}

	if _, err := s.queue.Enqueue(ctx, newEnqueueRequest(job, s.maxAttempts)); err != nil {
		return nil, fmt.Errorf("enqueue job %d: %w", id, apperrors.MapDBError(err))
	}
	metrics.EmitDispatchLifecycle(s.metrics, metrics.DispatchMetric{Transition: metrics.TransitionEnqueued})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job requeued by operator", "job_id", id)
	}
	return job, nil
}

// newEnqueueRequest builds the task for job. maxAttempts 0 leaves the ceiling to the queue.
func newEnqueueRequest(job *model.EmailJob, maxAttempts int) *model.EnqueueRequest {
	return &model.EnqueueRequest{
		JobID: job.ID,
		Payload: model.DispatchPayload{
			Recipient:     job.Recipient,
			Subject:       job.Subject,
			Body:          job.Body,
			SenderAddress: job.SenderAddress,
		},
		ScheduledAt: job.ScheduledAt,
		MaxAttempts: maxAttempts,
	}
}

func (s *IntakeService) batchError(ctx context.Context, res *SubmitResult, step string, err error) error {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "submission interrupted",
			"submission_id", res.SubmissionID,
			"step", step,
			"persisted", res.Count,
			"error", err,
		)
	}
	return fmt.Errorf("%s (%d jobs persisted): %w", step, res.Count, apperrors.MapDBError(err))
}

// sendOffset is the i-th recipient's distance from the start time. Callers bound i*delaySeconds.
func sendOffset(i, delaySeconds int) time.Duration {
	return time.Duration(int64(i)*int64(delaySeconds)) * time.Second
}

func validateSubmit(req SubmitRequest) error {
	switch {
	case strings.TrimSpace(req.Subject) == "":
		return apperrors.ValidationField("subject", "subject is required")
	case strings.TrimSpace(req.Body) == "":
		return apperrors.ValidationField("body", "body is required")
	case strings.TrimSpace(req.SenderAddress) == "":
		return apperrors.ValidationField("senderEmail", "sender email is required")
	case req.ScheduledAt.IsZero():
		return apperrors.ValidationField("startTime", "start time is required")
	case len(req.Recipients) == 0:
		return apperrors.ValidationField("to", "at least one recipient is required")
	case req.DelaySeconds < 0:
		return apperrors.ValidationField("delay", "delay must not be negative")
	case req.DelaySeconds > MaxDelaySeconds:
		return apperrors.ValidationField("delay", fmt.Sprintf("delay must not exceed %d seconds", MaxDelaySeconds))
	case req.HourlyLimit < 0:
		return apperrors.ValidationField("hourlyLimit", "hourly limit must not be negative")
	}
	return nil
}
