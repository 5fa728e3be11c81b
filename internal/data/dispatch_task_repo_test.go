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

type queueFixture struct {
	jobs  *EmailJobRepo
	queue *DispatchTaskRepo
	clock *FixedTimeProvider
}

func newQueueFixture(db *sql.DB) *queueFixture {
	clock := NewFixedTimeProvider(testutil.TestTime())
	cfg := RepoConfig{TimeProvider: clock}
	return &queueFixture{
		jobs:  NewEmailJobRepo(db, cfg),
		queue: NewDispatchTaskRepo(db, cfg),
		clock: clock,
	}
}

func (f *queueFixture) enqueueAt(t *testing.T, to string, at time.Time) *model.DispatchTask {
	t.Helper()
	ctx := context.Background()
	job, err := f.jobs.Create(ctx, testutil.NewEmailJobRequest().WithRecipient(to).WithScheduledAt(at).Build())
	require.NoError(t, err)
	task, err := f.queue.Enqueue(ctx, testutil.EnqueueRequestFor(job))
	require.NoError(t, err)
	return task
}

func TestDispatchTaskRepo_Enqueue(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		ctx := context.Background()

		task := f.enqueueAt(t, "a@example.com", f.clock.Now())
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, model.DispatchTaskStatusPending, task.Status)
		assert.Equal(t, "a@example.com", task.Payload.Recipient)
		assert.Equal(t, defaultMaxAttempts, task.MaxAttempts)
		assert.Zero(t, task.Attempts)

		// Enqueue of an active job returns the existing task.
		job, err := f.jobs.GetByID(ctx, task.JobID)
		require.NoError(t, err)
		again, err := f.queue.Enqueue(ctx, testutil.EnqueueRequestFor(job))
		require.NoError(t, err)
		assert.Equal(t, task.ID, again.ID)

		stats, err := f.queue.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Pending)
	})
}

func TestDispatchTaskRepo_Enqueue_RecyclesRetiredTask(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		ctx := context.Background()

		task := f.enqueueAt(t, "a@example.com", f.clock.Now())
		ok, err := f.queue.Retire(ctx, task.ID, "gave up")
		require.NoError(t, err)
		require.True(t, ok)

		job, err := f.jobs.GetByID(ctx, task.JobID)
		require.NoError(t, err)
		req := testutil.EnqueueRequestFor(job)
		req.ScheduledAt = f.clock.Now().Add(time.Minute)
		recycled, err := f.queue.Enqueue(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, task.ID, recycled.ID)
		assert.Equal(t, model.DispatchTaskStatusPending, recycled.Status)
		assert.Nil(t, recycled.LastError)
		assert.True(t, req.ScheduledAt.Equal(recycled.ScheduledAt))
	})
}

func TestDispatchTaskRepo_ReserveNext_FIFO(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		ctx := context.Background()
		now := f.clock.Now()

		second := f.enqueueAt(t, "second@example.com", now.Add(-time.Minute))
		first := f.enqueueAt(t, "first@example.com", now.Add(-2*time.Minute))
		f.enqueueAt(t, "future@example.com", now.Add(time.Hour))

		got, err := f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, model.DispatchTaskStatusRunning, got.Status)
		require.NotNil(t, got.LeaseExpiresAt)
		assert.True(t, now.Add(time.Minute).Equal(*got.LeaseExpiresAt))

		// Single flight: nothing else is handed out while a lease is live.
		_, err = f.queue.ReserveNext(ctx, time.Minute)
		require.ErrorIs(t, err, model.ErrNoTasksAvailable)

		ok, err := f.queue.Complete(ctx, got.ID)
		require.NoError(t, err)
		require.True(t, ok)

		got, err = f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
		ok, err = f.queue.Complete(ctx, got.ID)
		require.NoError(t, err)
		require.True(t, ok)

		// Remaining task is not due yet.
		_, err = f.queue.ReserveNext(ctx, time.Minute)
		require.ErrorIs(t, err, model.ErrNoTasksAvailable)

		next, err := f.queue.NextEligibleAt(ctx)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.True(t, now.Add(time.Hour).Equal(*next))
	})
}

func TestDispatchTaskRepo_ReserveNext_TieBreaksOnJobID(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		at := f.clock.Now()

		a := f.enqueueAt(t, "a@example.com", at)
		f.enqueueAt(t, "b@example.com", at)

		got, err := f.queue.ReserveNext(context.Background(), time.Minute)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	})
}

func TestDispatchTaskRepo_ReserveNext_RequiresLease(t *testing.T) {
	q := NewDispatchTaskRepo(nil, RepoConfig{})
	_, err := q.ReserveNext(context.Background(), 0)
	require.ErrorIs(t, err, ErrLeaseRequired)
}

func TestDispatchTaskRepo_ExpiredLeaseIsRequeued(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		ctx := context.Background()

		task := f.enqueueAt(t, "a@example.com", f.clock.Now())
		got, err := f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)
		require.Equal(t, task.ID, got.ID)

		f.clock.AddTime(2 * time.Minute)
		again, err := f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, task.ID, again.ID)
		assert.Zero(t, again.Attempts, "lapsed lease does not consume an attempt")
	})
}

func TestDispatchTaskRepo_ReleaseAndRetry(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		ctx := context.Background()
		now := f.clock.Now()

		head := f.enqueueAt(t, "head@example.com", now.Add(-time.Minute))
		f.enqueueAt(t, "tail@example.com", now)

		got, err := f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)
		require.Equal(t, head.ID, got.ID)

		// Zero-delay release keeps the head of line.
		ok, err := f.queue.Release(ctx, got.ID, 0)
		require.NoError(t, err)
		require.True(t, ok)
		got, err = f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, head.ID, got.ID)
		assert.Zero(t, got.Attempts)

		// Retry consumes an attempt and moves the task behind the tail.
		ok, err = f.queue.Retry(ctx, got.ID, core.RetryParams{Delay: 30 * time.Second, Reason: "421 busy"})
		require.NoError(t, err)
		require.True(t, ok)

		got, err = f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "tail@example.com", got.Payload.Recipient)
		_, err = f.queue.Complete(ctx, got.ID)
		require.NoError(t, err)

		f.clock.AddTime(31 * time.Second)
		got, err = f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, head.ID, got.ID)
		assert.Equal(t, 1, got.Attempts)
		assert.Equal(t, 2, got.Attempt())
		require.NotNil(t, got.LastError)
		assert.Equal(t, "421 busy", *got.LastError)

		// Operations on a task that is not running report false.
		ok, err = f.queue.Release(ctx, "00000000-0000-0000-0000-000000000000", 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDispatchTaskRepo_Heartbeat(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		ctx := context.Background()

		f.enqueueAt(t, "a@example.com", f.clock.Now())
		got, err := f.queue.ReserveNext(ctx, time.Minute)
		require.NoError(t, err)

		f.clock.AddTime(50 * time.Second)
		ok, err := f.queue.Heartbeat(ctx, got.ID, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		f.clock.AddTime(30 * time.Second)
		_, err = f.queue.ReserveNext(ctx, time.Minute)
		require.ErrorIs(t, err, model.ErrNoTasksAvailable, "extended lease still holds")

		_, err = f.queue.Heartbeat(ctx, got.ID, 0)
		require.ErrorIs(t, err, ErrLeaseRequired)
	})
}

func TestDispatchTaskRepo_WaitForNotification(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping notification test in short mode")
	}
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newQueueFixture(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		errCh := make(chan error, 1)
		go func() { errCh <- f.queue.WaitForNotification(ctx) }()

		// Give the listener time to subscribe before enqueueing.
		time.Sleep(200 * time.Millisecond)
		f.enqueueAt(t, "a@example.com", f.clock.Now())

		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-ctx.Done():
			t.Fatal("timed out waiting for notification")
		}
	})
}
