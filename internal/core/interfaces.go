// Package core declares the ports between the mailq services and their data, queue and transport adapters.
package core

import (
	"context"
	"time"

	"github.com/target/mailq/internal/domain/dispatch"
	"github.com/target/mailq/internal/domain/model"
)

// These interfaces are the contracts between the service layer and the data layer.
// Services depend on them, never on the concrete repositories.

// EmailJobRepository is the Job Store. Recipient Intake is the only caller of Create;
// the dispatch worker is the only caller of the Mark* and RecordAttempt transitions.
type EmailJobRepository interface {
	Create(ctx context.Context, req *model.CreateEmailJobRequest) (*model.EmailJob, error)
	GetByID(ctx context.Context, id int64) (*model.EmailJob, error)
	List(ctx context.Context, opts model.EmailJobListOptions) ([]*model.EmailJob, error)

	// MarkSent moves a scheduled job to sent and appends a sent outcome record in one transaction.
	// It returns false when the job is no longer scheduled; nothing is written in that case.
	MarkSent(ctx context.Context, req model.MarkSentRequest) (bool, error)
	// MarkFailed moves a scheduled job to failed and appends a failed outcome record in one transaction.
	MarkFailed(ctx context.Context, req model.MarkFailedRequest) (bool, error)
	// RecordAttempt stores attempt count and last error on a job that stays scheduled.
	RecordAttempt(ctx context.Context, req model.RecordAttemptRequest) error
	// ResetForRetry returns a failed job to scheduled. Outcome records are untouched.
	ResetForRetry(ctx context.Context, id int64, scheduledAt time.Time) (*model.EmailJob, error)

	Ping(ctx context.Context) error
}

// OutcomeRepository reads the append-only outcome log.
type OutcomeRepository interface {
	List(ctx context.Context, opts model.OutcomeListOptions) ([]*model.Outcome, error)
}

// RetryParams groups parameters for DispatchQueue.Retry.
type RetryParams struct {
	Delay  time.Duration
	Reason string
}

// DispatchQueue is the durable FIFO of dispatch tasks.
type DispatchQueue interface {
	// Enqueue adds a task for the job. An active task for the same job is returned unchanged;
	// a completed or retired one is reset to pending.
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.DispatchTask, error)
	// ReserveNext leases the oldest eligible task, or returns model.ErrNoTasksAvailable when
	// nothing is due or another task is already in flight.
	ReserveNext(ctx context.Context, lease time.Duration) (*model.DispatchTask, error)
	Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error)
	// Release returns a reserved task to pending without consuming an attempt.
	Release(ctx context.Context, id string, delay time.Duration) (bool, error)
	// Retry returns a reserved task to pending and consumes one attempt.
	Retry(ctx context.Context, id string, params RetryParams) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Retire(ctx context.Context, id, reason string) (bool, error)

	NextEligibleAt(ctx context.Context) (*time.Time, error)
	Stats(ctx context.Context) (*model.DispatchStats, error)
	WaitForNotification(ctx context.Context) error
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs.
type DeleteOldJobsParams struct {
	Status    model.EmailJobStatus
	MaxAge    time.Duration
	BatchSize int
}

// FindOrphanedJobsParams groups parameters for FindOrphanedJobs.
type FindOrphanedJobsParams struct {
	Grace     time.Duration
	BatchSize int
}

// ReaperRepository defines the recovery and retention operations run by the reaper.
type ReaperRepository interface {
	// FindOrphanedJobs returns scheduled jobs unchanged for longer than Grace that have no
	// pending or running dispatch task.
	FindOrphanedJobs(ctx context.Context, params FindOrphanedJobsParams) ([]*model.EmailJob, error)

	// RequeueExpiredLeases returns running tasks whose lease expired to pending.
	RequeueExpiredLeases(ctx context.Context) (int64, error)

	// DeleteOldJobs deletes terminal jobs with the given status older than MaxAge.
	// Outcome records are never touched.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}

// DispatchHandler performs one delivery attempt for a reserved task.
type DispatchHandler interface {
	// Handle sends the task's message and records the job transition. The returned
	// Result tells the dispatcher how to settle the task.
	Handle(ctx context.Context, task *model.DispatchTask) dispatch.Result
	// Exhausted records the terminal failure of a task that ran out of attempts.
	Exhausted(ctx context.Context, task *model.DispatchTask, reason string) error
}
