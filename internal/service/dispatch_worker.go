package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/mailq/internal/core"
	"github.com/target/mailq/internal/data"
	"github.com/target/mailq/internal/domain/dispatch"
	"github.com/target/mailq/internal/domain/model"
	"github.com/target/mailq/internal/mail"
	"github.com/target/mailq/internal/observability/statsd"
)

// errExhaustedNoReason is recorded when the dispatcher retires a task without a last error.
const errExhaustedNoReason = "delivery attempts exhausted"

// DispatchWorkerOptions groups dependencies for DispatchWorker.
type DispatchWorkerOptions struct {
	Jobs         core.EmailJobRepository // Required: job store
	Transport    mail.Transport          // Required: mail transport
	SendTimeout  time.Duration           // Optional: bound on one send, default mail.DefaultSendTimeout
	TimeProvider data.TimeProvider       // Optional: clock for sent_at
	Logger       *slog.Logger            // Optional: structured logger
	Metrics      statsd.Sink             // Optional: metrics sink
}

// DispatchWorker sends the message of one reserved task and records the job transition.
// It never touches task rows; the dispatcher settles the task from the returned Result.
type DispatchWorker struct {
	jobs        core.EmailJobRepository
	transport   mail.Transport
	sendTimeout time.Duration
	clock       data.TimeProvider
	logger      *slog.Logger
	metrics     statsd.Sink
}

var _ core.DispatchHandler = (*DispatchWorker)(nil)

// NewDispatchWorker constructs a new DispatchWorker.
func NewDispatchWorker(opts DispatchWorkerOptions) (*DispatchWorker, error) {
	if opts.Transport == nil {
		return nil, errors.New("mail Transport is required")
	}
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = mail.DefaultSendTimeout
	}
	clock := opts.TimeProvider
	if clock == nil {
		clock = data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// A nil job store is allowed: Handle reports NotReady until one is wired.
	return &DispatchWorker{
		jobs:        opts.Jobs,
		transport:   opts.Transport,
		sendTimeout: timeout,
		clock:       clock,
		logger:      logger.With("component", "dispatch_worker"),
		metrics:     opts.Metrics,
	}, nil
}

// Handle makes one delivery attempt for task.
//
// NotReady is returned before anything is sent when the job store cannot be reached.
// A permanent SMTP rejection is recorded as failed and returned as Terminal. Other
// transport failures leave the job scheduled and return Retryable.
func (w *DispatchWorker) Handle(ctx context.Context, task *model.DispatchTask) dispatch.Result {
	if err := w.ready(ctx); err != nil {
		return dispatch.Retryable(err)
	}

	attempt := task.Attempt()
	log := w.logger.With("job_id", task.JobID, "task_id", task.ID, "attempt", attempt)

	from := strings.TrimSpace(task.Payload.SenderAddress)
	if from == "" {
		from = mail.DefaultSender
	}
	msg := mail.NewMessage(from, task.Payload.Recipient, task.Payload.Subject, task.Payload.Body)

	receipt, err := w.send(ctx, msg)
	if err != nil {
		return w.handleSendFailure(ctx, log, task, err)
	}

	applied, err := w.jobs.MarkSent(ctx, model.MarkSentRequest{
		JobID:             task.JobID,
		Attempt:           attempt,
		SentAt:            w.clock.Now(),
		ProviderMessageID: receipt.MessageID,
	})
	if err != nil {
		log.ErrorContext(ctx, "record sent failed", "message_id", receipt.MessageID, "error", err)
		return dispatch.Retryable(fmt.Errorf("record sent: %w", err))
	}
	if !applied {
		log.WarnContext(ctx, "job already terminal, duplicate delivery", "message_id", receipt.MessageID)
	} else {
		log.InfoContext(ctx, "email sent", "message_id", receipt.MessageID, "preview", receipt.Preview)
	}
	return dispatch.Sent(receipt.MessageID)
}

// Exhausted records the terminal failure of a task whose last attempt was retryable.
func (w *DispatchWorker) Exhausted(ctx context.Context, task *model.DispatchTask, reason string) error {
	if err := w.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		reason = errExhaustedNoReason
	}
	applied, err := w.jobs.MarkFailed(ctx, model.MarkFailedRequest{
		JobID:        task.JobID,
		Attempt:      task.Attempt(),
		ErrorMessage: reason,
	})
	if err != nil {
		return fmt.Errorf("record exhausted job %d: %w", task.JobID, err)
	}
	if applied {
		w.logger.WarnContext(ctx, "email failed after retries",
			"job_id", task.JobID,
			"attempts", task.Attempt(),
			"error", reason,
		)
	}
	return nil
}

func (w *DispatchWorker) ready(ctx context.Context) error {
	if w.jobs == nil {
		return fmt.Errorf("%w: job store not configured", dispatch.ErrNotReady)
	}
	if err := w.jobs.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", dispatch.ErrNotReady, err)
	}
	return nil
}

func (w *DispatchWorker) send(ctx context.Context, msg mail.Message) (mail.Receipt, error) {
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	start := time.Now()
	receipt, err := w.transport.Send(sendCtx, msg)
	if w.metrics != nil {
		result := "sent"
		if err != nil {
			result = "error"
		}
		w.metrics.Timing("dispatch.send_duration", time.Since(start), map[string]string{"result": result})
	}
	if err != nil {
		return mail.Receipt{}, mail.Classify(err)
	}
	return receipt, nil
}

func (w *DispatchWorker) handleSendFailure(
	ctx context.Context,
	log *slog.Logger,
	task *model.DispatchTask,
	sendErr error,
) dispatch.Result {
	attempt := task.Attempt()

	if mail.IsPermanent(sendErr) {
		applied, err := w.jobs.MarkFailed(ctx, model.MarkFailedRequest{
			JobID:        task.JobID,
			Attempt:      attempt,
			ErrorMessage: sendErr.Error(),
		})
		if err != nil {
			log.ErrorContext(ctx, "record failed failed", "send_error", sendErr, "error", err)
			return dispatch.Retryable(fmt.Errorf("record failed: %w", err))
		}
		if applied {
			log.WarnContext(ctx, "email rejected permanently", "error", sendErr)
		}
		return dispatch.Terminal(sendErr)
	}

	// The job stays scheduled. Losing this bookkeeping write only loses the error text.
	if err := w.jobs.RecordAttempt(ctx, model.RecordAttemptRequest{
		JobID:        task.JobID,
		Attempt:      attempt,
		ErrorMessage: sendErr.Error(),
	}); err != nil {
		log.WarnContext(ctx, "record attempt failed", "error", err)
	}
	log.InfoContext(ctx, "email send failed, will retry", "error", sendErr)
	return dispatch.Retryable(sendErr)
}
