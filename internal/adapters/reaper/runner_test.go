package reaper

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mailq/config"
	"github.com/target/mailq/internal/data"
	"github.com/target/mailq/internal/domain/model"
	"github.com/target/mailq/internal/testutil"
)

func TestNewRunner_RequiresDatabase(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Config: config.ReaperConfig{Interval: time.Minute}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection is required")
}

type runnerFixture struct {
	clock *data.FixedTimeProvider
	cfg   data.RepoConfig
	jobs  *data.EmailJobRepo
	queue *data.DispatchTaskRepo
}

func newRunnerFixture(db *sql.DB) *runnerFixture {
	clock := data.NewFixedTimeProvider(testutil.TestTime())
	cfg := data.RepoConfig{TimeProvider: clock}
	return &runnerFixture{
		clock: clock,
		cfg:   cfg,
		jobs:  data.NewEmailJobRepo(db, cfg),
		queue: data.NewDispatchTaskRepo(db, cfg),
	}
}

func (f *runnerFixture) enqueue(t *testing.T, to string) *model.DispatchTask {
	t.Helper()
	ctx := context.Background()
	job, err := f.jobs.Create(ctx, testutil.NewEmailJobRequest().WithRecipient(to).WithScheduledAt(f.clock.Now()).Build())
	require.NoError(t, err)
	task, err := f.queue.Enqueue(ctx, testutil.EnqueueRequestFor(job))
	require.NoError(t, err)
	return task
}

func (f *runnerFixture) fail(t *testing.T, task *model.DispatchTask) {
	t.Helper()
	ctx := context.Background()
	_, err := f.queue.Retire(ctx, task.ID, "rejected")
	require.NoError(t, err)
	_, err = f.jobs.MarkFailed(ctx, model.MarkFailedRequest{JobID: task.JobID, Attempt: 1, ErrorMessage: "rejected"})
	require.NoError(t, err)
}

func TestRunner_PassNeverTouchesOutcomes(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		f := newRunnerFixture(db)
		outcomes := data.NewOutcomeRepo(db)

		sent := f.enqueue(t, "sent@example.com")
		_, err := f.jobs.MarkSent(ctx, model.MarkSentRequest{JobID: sent.JobID, Attempt: 1})
		require.NoError(t, err)

		failed := f.enqueue(t, "failed@example.com")
		f.fail(t, failed)

		// Reset for retry, then the process died before the task was enqueued again.
		retried := f.enqueue(t, "retried@example.com")
		f.fail(t, retried)
		_, err = f.jobs.ResetForRetry(ctx, retried.JobID, f.clock.Now())
		require.NoError(t, err)

		before, err := outcomes.List(ctx, model.OutcomeListOptions{})
		require.NoError(t, err)
		require.Len(t, before, 3)

		f.clock.AddTime(3 * time.Hour)
		runner, err := NewRunner(RunnerOptions{
			Config: config.ReaperConfig{
				Interval:     time.Minute,
				OrphanGrace:  time.Minute,
				SentMaxAge:   time.Hour,
				FailedMaxAge: time.Hour,
				BatchSize:    10,
			},
			MaxAttempts: 5,
			Repo:        data.NewReaperRepo(db, f.cfg),
			Queue:       f.queue,
		})
		require.NoError(t, err)
		require.NoError(t, runner.reaper.RunOnce(ctx))

		after, err := outcomes.List(ctx, model.OutcomeListOptions{})
		require.NoError(t, err)
		assert.Equal(t, before, after)

		_, err = f.jobs.GetByID(ctx, sent.JobID)
		require.ErrorIs(t, err, data.ErrEmailJobNotFound)
		_, err = f.jobs.GetByID(ctx, failed.JobID)
		require.ErrorIs(t, err, data.ErrEmailJobNotFound)

		task, err := f.queue.GetByJobID(ctx, retried.JobID)
		require.NoError(t, err)
		assert.Equal(t, model.DispatchTaskStatusPending, task.Status)
	})
}

func TestRunner_RetentionOffByDefault(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		f := newRunnerFixture(db)

		sent := f.enqueue(t, "sent@example.com")
		_, err := f.jobs.MarkSent(ctx, model.MarkSentRequest{JobID: sent.JobID, Attempt: 1})
		require.NoError(t, err)

		cfg := config.ReaperConfig{}
		cfg.Sanitize()
		f.clock.AddTime(365 * 24 * time.Hour)

		runner, err := NewRunner(RunnerOptions{
			Config: cfg,
			Repo:   data.NewReaperRepo(db, f.cfg),
			Queue:  f.queue,
		})
		require.NoError(t, err)
		require.NoError(t, runner.reaper.RunOnce(ctx))

		job, err := f.jobs.GetByID(ctx, sent.JobID)
		require.NoError(t, err)
		assert.Equal(t, model.EmailJobStatusSent, job.Status)
	})
}
