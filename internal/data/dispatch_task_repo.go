package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/target/mailq/internal/core"
	"github.com/target/mailq/internal/data/pgxutil"
	"github.com/target/mailq/internal/domain/model"
)

// DispatchNotifyChannel is the LISTEN/NOTIFY channel signalled when a task becomes pending.
const DispatchNotifyChannel = "dispatch_task_added"

// Advisory lock namespace for the dispatch queue. Major key 2000 is reserved for mailq queue operations.
const (
	advisoryLockQueueMajor   int32 = 2000
	advisoryLockQueueReserve int32 = 1
	advisoryLockQueueRequeue int32 = 2
)

// DispatchTaskRepo is the Postgres-backed dispatch queue.
type DispatchTaskRepo struct {
	DB  *sql.DB
	cfg RepoConfig
}

// NewDispatchTaskRepo creates a new DispatchTaskRepo.
func NewDispatchTaskRepo(db *sql.DB, cfg RepoConfig) *DispatchTaskRepo {
	return &DispatchTaskRepo{DB: db, cfg: cfg}
}

var _ core.DispatchQueue = (*DispatchTaskRepo)(nil)

const dispatchTaskColumns = `
  id,
  job_id,
  payload,
  status,
  scheduled_at,
  attempts,
  max_attempts,
  last_error,
  lease_expires_at,
  created_at,
  updated_at,
  completed_at
`

func scanDispatchTask(s rowScanner) (*model.DispatchTask, error) {
	var (
		t           model.DispatchTask
		payload     []byte
		lastError   sql.NullString
		leaseExp    sql.NullTime
		completedAt sql.NullTime
	)
	if err := s.Scan(
		&t.ID,
		&t.JobID,
		&payload,
		&t.Status,
		&t.ScheduledAt,
		&t.Attempts,
		&t.MaxAttempts,
		&lastError,
		&leaseExp,
		&t.CreatedAt,
		&t.UpdatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &t.Payload); err != nil {
			return nil, fmt.Errorf("decode task payload: %w", err)
		}
	}
	t.ScheduledAt = t.ScheduledAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	t.LastError = cloneNullableString(lastError)
	t.LeaseExpiresAt = cloneNullableTime(leaseExp)
	t.CompletedAt = cloneNullableTime(completedAt)
	return &t, nil
}

func collectDispatchTask(rows pgx.Rows) (*model.DispatchTask, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	t, err := scanDispatchTask(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()
	return t, rows.Err()
}

// An active task is left untouched; a finished one is recycled for the same job.
const enqueueSQL = `
	INSERT INTO dispatch_tasks (id, job_id, payload, status, scheduled_at, max_attempts, created_at, updated_at)
	VALUES ($1, $2, $3, 'pending', $4, $5, $6, $6)
	ON CONFLICT (job_id) DO UPDATE
	SET payload = EXCLUDED.payload,
	    status = 'pending',
	    scheduled_at = EXCLUDED.scheduled_at,
	    attempts = 0,
	    max_attempts = EXCLUDED.max_attempts,
	    last_error = NULL,
	    lease_expires_at = NULL,
	    completed_at = NULL,
	    updated_at = EXCLUDED.updated_at
	WHERE dispatch_tasks.status IN ('completed', 'retired')
	RETURNING ` + dispatchTaskColumns

// Enqueue adds a pending task for the job and notifies listeners.
func (r *DispatchTaskRepo) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.DispatchTask, error) {
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal task payload: %w", err)
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = r.cfg.maxAttempts()
	}
	now := r.cfg.clock().Now().UTC()
	scheduledAt := req.ScheduledAt.UTC()
	if req.ScheduledAt.IsZero() {
		scheduledAt = now
	}

	var task *model.DispatchTask
	err = pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, enqueueSQL, model.NewTaskID(), req.JobID, payload, scheduledAt, maxAttempts, now)
			if qerr != nil {
				return fmt.Errorf("insert dispatch task: %w", qerr)
			}
			t, cerr := collectDispatchTask(rows)
			switch {
			case errors.Is(cerr, pgx.ErrNoRows):
				existing, gerr := activeTaskForJob(ctx, tx, req.JobID)
				if gerr != nil {
					return fmt.Errorf("load active dispatch task: %w", gerr)
				}
				task = existing
				return nil
			case cerr != nil:
				return fmt.Errorf("insert dispatch task: %w", cerr)
			}
			task = t

			if _, nerr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, DispatchNotifyChannel, t.ID); nerr != nil {
				return fmt.Errorf("send dispatch notification: %w", nerr)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func activeTaskForJob(ctx context.Context, tx pgx.Tx, jobID int64) (*model.DispatchTask, error) {
	rows, err := tx.Query(ctx, `SELECT `+dispatchTaskColumns+` FROM dispatch_tasks WHERE job_id = $1`, jobID)
	if err != nil {
		return nil, err
	}
	return collectDispatchTask(rows)
}

// requeueExpired returns running tasks whose lease has lapsed to pending.
// Their attempt count is unchanged; the lapsed attempt is retried.
func requeueExpired(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	var affected int64
	err := pgxutil.WithSQLTx(ctx, db, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)",
				advisoryLockQueueMajor, advisoryLockQueueRequeue).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			res, err := tx.ExecContext(ctx, `
				UPDATE dispatch_tasks
				SET status = 'pending', lease_expires_at = NULL, updated_at = $1
				WHERE status = 'running'
				  AND lease_expires_at IS NOT NULL
				  AND lease_expires_at < $1
			`, now.UTC())
			if err != nil {
				return fmt.Errorf("requeue expired: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			affected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// FIFO by scheduled_at, then job id. At most one task may hold a live lease.
const reserveNextSQL = `
	WITH cte AS (
		SELECT id FROM dispatch_tasks
		WHERE status = 'pending' AND scheduled_at <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM dispatch_tasks r
			WHERE r.status = 'running' AND r.lease_expires_at > $1
		  )
		ORDER BY scheduled_at ASC, job_id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE dispatch_tasks t
	SET status = 'running',
	    lease_expires_at = $2,
	    updated_at = $1
	FROM cte
	WHERE t.id = cte.id
	RETURNING t.id, t.job_id, t.payload, t.status, t.scheduled_at, t.attempts, t.max_attempts,
	          t.last_error, t.lease_expires_at, t.created_at, t.updated_at, t.completed_at`

// ReserveNext leases the oldest due task.
func (r *DispatchTaskRepo) ReserveNext(ctx context.Context, lease time.Duration) (*model.DispatchTask, error) {
	if lease <= 0 {
		return nil, ErrLeaseRequired
	}
	if _, err := requeueExpired(ctx, r.DB, r.cfg.clock().Now()); err != nil {
		return nil, fmt.Errorf("requeue expired tasks: %w", err)
	}

	var task *model.DispatchTask
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			// Serializes reservers so the single-flight check above cannot race.
			if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1::integer, $2::integer)",
				advisoryLockQueueMajor, advisoryLockQueueReserve); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}

			now := r.cfg.clock().Now().UTC()
			rows, err := tx.Query(ctx, reserveNextSQL, now, now.Add(lease))
			if err != nil {
				return fmt.Errorf("reserve task: %w", err)
			}
			t, err := collectDispatchTask(rows)
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrNoTasksAvailable
			}
			if err != nil {
				return fmt.Errorf("reserve task: %w", err)
			}
			task = t
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *DispatchTaskRepo) execRunning(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s task: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return n > 0, nil
}

// Heartbeat extends the lease of a running task.
func (r *DispatchTaskRepo) Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error) {
	if extend <= 0 {
		return false, ErrLeaseRequired
	}
	now := r.cfg.clock().Now().UTC()
	return r.execRunning(ctx, "heartbeat", `
		UPDATE dispatch_tasks
		SET lease_expires_at = $2, updated_at = $3
		WHERE id = $1 AND status = 'running'
	`, id, now.Add(extend), now)
}

// Release returns a running task to pending without consuming an attempt.
// A zero delay keeps its scheduled_at and therefore its place in line.
func (r *DispatchTaskRepo) Release(ctx context.Context, id string, delay time.Duration) (bool, error) {
	now := r.cfg.clock().Now().UTC()
	var next sql.NullTime
	if delay > 0 {
		next = sql.NullTime{Time: now.Add(delay), Valid: true}
	}
	return r.execRunning(ctx, "release", `
		UPDATE dispatch_tasks
		SET status = 'pending',
		    lease_expires_at = NULL,
		    scheduled_at = COALESCE($2, scheduled_at),
		    updated_at = $3
		WHERE id = $1 AND status = 'running'
	`, id, next, now)
}

// Retry returns a running task to pending after a retryable failure and consumes one attempt.
func (r *DispatchTaskRepo) Retry(ctx context.Context, id string, params core.RetryParams) (bool, error) {
	now := r.cfg.clock().Now().UTC()
	return r.execRunning(ctx, "retry", `
		UPDATE dispatch_tasks
		SET status = 'pending',
		    attempts = attempts + 1,
		    last_error = $2,
		    lease_expires_at = NULL,
		    scheduled_at = $3,
		    updated_at = $4
		WHERE id = $1 AND status = 'running'
	`, id, nullIfEmpty(params.Reason), now.Add(params.Delay), now)
}

// Complete marks a running task as completed.
func (r *DispatchTaskRepo) Complete(ctx context.Context, id string) (bool, error) {
	now := r.cfg.clock().Now().UTC()
	return r.execRunning(ctx, "complete", `
		UPDATE dispatch_tasks
		SET status = 'completed',
		    attempts = attempts + 1,
		    completed_at = $2,
		    lease_expires_at = NULL,
		    last_error = NULL,
		    updated_at = $2
		WHERE id = $1 AND status = 'running'
	`, id, now)
}

// Retire removes a task from circulation. Pending tasks may be retired too.
func (r *DispatchTaskRepo) Retire(ctx context.Context, id, reason string) (bool, error) {
	now := r.cfg.clock().Now().UTC()
	return r.execRunning(ctx, "retire", `
		UPDATE dispatch_tasks
		SET status = 'retired',
		    last_error = $2,
		    completed_at = $3,
		    lease_expires_at = NULL,
		    updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'running')
	`, id, nullIfEmpty(reason), now)
}

// NextEligibleAt returns the earliest scheduled_at of any pending task, or nil if none is pending.
func (r *DispatchTaskRepo) NextEligibleAt(ctx context.Context) (*time.Time, error) {
	var next sql.NullTime
	if err := r.DB.QueryRowContext(ctx,
		`SELECT MIN(scheduled_at) FROM dispatch_tasks WHERE status = 'pending'`).Scan(&next); err != nil {
		return nil, fmt.Errorf("next eligible task: %w", err)
	}
	return cloneNullableTime(next), nil
}

// GetByJobID returns the task for a job.
func (r *DispatchTaskRepo) GetByJobID(ctx context.Context, jobID int64) (*model.DispatchTask, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+dispatchTaskColumns+` FROM dispatch_tasks WHERE job_id = $1`, jobID)
	t, err := scanDispatchTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDispatchTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch task: %w", err)
	}
	return t, nil
}

// Stats returns queue depth per task state.
func (r *DispatchTaskRepo) Stats(ctx context.Context) (*model.DispatchStats, error) {
	var s model.DispatchStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'pending')   AS pending,
			count(*) FILTER (WHERE status = 'running')   AS running,
			count(*) FILTER (WHERE status = 'completed') AS completed,
			count(*) FILTER (WHERE status = 'retired')   AS retired
		FROM dispatch_tasks
	`).Scan(&s.Pending, &s.Running, &s.Completed, &s.Retired)
	if err != nil {
		return nil, fmt.Errorf("dispatch stats: %w", err)
	}
	return &s, nil
}

// WaitForNotification blocks until a task is enqueued or ctx is done.
func (r *DispatchTaskRepo) WaitForNotification(ctx context.Context) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer conn.Close()

	quoted := pgx.Identifier{DispatchNotifyChannel}.Sanitize()
	if _, err := conn.ExecContext(ctx, "LISTEN "+quoted); err != nil {
		return fmt.Errorf("listen %s: %w", DispatchNotifyChannel, err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "UNLISTEN "+quoted)
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return pgxutil.ErrUnexpectedDriverConn
		}
		_, waitErr := sc.Conn().WaitForNotification(ctx)
		return waitErr
	})
}
