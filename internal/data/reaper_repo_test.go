package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mailq/internal/core"
	"github.com/target/mailq/internal/domain/model"
	"github.com/target/mailq/internal/testutil"
)

func TestReaperRepo_FindOrphanedJobs(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		reaper := NewReaperRepo(db, RepoConfig{TimeProvider: f.clock})
		ctx := context.Background()

		orphan, err := f.jobs.Create(ctx, testutil.NewEmailJobRequest().WithRecipient("orphan@example.com").Build())
		require.NoError(t, err)
		queued := f.enqueueAt(t, "queued@example.com", f.clock.Now())

		retired := f.enqueueAt(t, "retired@example.com", f.clock.Now())
		_, err = f.queue.Retire(ctx, retired.ID, "x")
		require.NoError(t, err)
		_, err = f.jobs.MarkFailed(ctx, model.MarkFailedRequest{JobID: retired.JobID, Attempt: 1, ErrorMessage: "x"})
		require.NoError(t, err)

		// Inside the grace window nothing is reported.
		got, err := reaper.FindOrphanedJobs(ctx, core.FindOrphanedJobsParams{Grace: 5 * time.Minute, BatchSize: 10})
		require.NoError(t, err)
		assert.Empty(t, got)

		f.clock.AddTime(10 * time.Minute)
		got, err = reaper.FindOrphanedJobs(ctx, core.FindOrphanedJobsParams{Grace: 5 * time.Minute, BatchSize: 10})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, orphan.ID, got[0].ID)
		assert.NotEqual(t, queued.JobID, got[0].ID)

		_, err = reaper.FindOrphanedJobs(ctx, core.FindOrphanedJobsParams{Grace: time.Minute})
		require.Error(t, err)
	})
}

func TestReaperRepo_FindOrphanedJobs_RetriedJob(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		reaper := NewReaperRepo(db, RepoConfig{TimeProvider: f.clock})
		ctx := context.Background()

		// A retry reset the failed job but crashed before its task was enqueued again.
		task := f.enqueueAt(t, "retried@example.com", f.clock.Now())
		_, err := f.queue.Retire(ctx, task.ID, "smtp down")
		require.NoError(t, err)
		_, err = f.jobs.MarkFailed(ctx, model.MarkFailedRequest{JobID: task.JobID, Attempt: 5, ErrorMessage: "smtp down"})
		require.NoError(t, err)

		f.clock.AddTime(time.Hour)
		_, err = f.jobs.ResetForRetry(ctx, task.JobID, f.clock.Now())
		require.NoError(t, err)

		// The reset refreshed updated_at, so the job is still inside the grace window.
		got, err := reaper.FindOrphanedJobs(ctx, core.FindOrphanedJobsParams{Grace: 5 * time.Minute, BatchSize: 10})
		require.NoError(t, err)
		assert.Empty(t, got)

		f.clock.AddTime(10 * time.Minute)
		got, err = reaper.FindOrphanedJobs(ctx, core.FindOrphanedJobsParams{Grace: 5 * time.Minute, BatchSize: 10})
		require.NoError(t, err)
		require.Len(t, got, 1, "a failed outcome does not hide the job")
		assert.Equal(t, task.JobID, got[0].ID)

		// Once re-enqueued it is no longer an orphan.
		_, err = f.queue.Enqueue(ctx, testutil.EnqueueRequestFor(got[0]))
		require.NoError(t, err)
		got, err = reaper.FindOrphanedJobs(ctx, core.FindOrphanedJobsParams{Grace: 5 * time.Minute, BatchSize: 10})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestReaperRepo_RequeueExpiredLeases(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		reaper := NewReaperRepo(db, RepoConfig{TimeProvider: f.clock})
		ctx := context.Background()

		f.enqueueAt(t, "a@example.com", f.clock.Now())
		_, err := f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)

		n, err := reaper.RequeueExpiredLeases(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		f.clock.AddTime(2 * time.Minute)
		n, err = reaper.RequeueExpiredLeases(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		stats, err := f.queue.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Pending)
		assert.Zero(t, stats.Running)
	})
}

func TestReaperRepo_DeleteOldJobs(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		reaper := NewReaperRepo(db, RepoConfig{TimeProvider: f.clock})
		ctx := context.Background()

		outcomes := NewOutcomeRepo(db)
		sent := f.enqueueAt(t, "sent@example.com", f.clock.Now())
		_, err := f.jobs.MarkSent(ctx, model.MarkSentRequest{JobID: sent.JobID, Attempt: 1})
		require.NoError(t, err)
		before, err := outcomes.List(ctx, model.OutcomeListOptions{})
		require.NoError(t, err)
		require.Len(t, before, 1)
		scheduled := f.enqueueAt(t, "scheduled@example.com", f.clock.Now())

		_, err = reaper.DeleteOldJobs(ctx, core.DeleteOldJobsParams{Status: model.EmailJobStatusScheduled, MaxAge: time.Hour, BatchSize: 10})
		require.Error(t, err, "non-terminal status is rejected")

		f.clock.AddTime(2 * time.Hour)
		n, err := reaper.DeleteOldJobs(ctx, core.DeleteOldJobsParams{Status: model.EmailJobStatusSent, MaxAge: time.Hour, BatchSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = f.jobs.GetByID(ctx, sent.JobID)
		require.ErrorIs(t, err, ErrEmailJobNotFound)
		_, err = f.jobs.GetByID(ctx, scheduled.JobID)
		require.NoError(t, err)

		// The outcome row is unchanged and still names the deleted job.
		after, err := outcomes.List(ctx, model.OutcomeListOptions{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Equal(t, sent.JobID, after[0].JobID)

		byJob, err := outcomes.List(ctx, model.OutcomeListOptions{JobID: &sent.JobID})
		require.NoError(t, err)
		assert.Len(t, byJob, 1)

		_, err = f.queue.GetByJobID(ctx, sent.JobID)
		require.ErrorIs(t, err, ErrDispatchTaskNotFound)
	})
}
