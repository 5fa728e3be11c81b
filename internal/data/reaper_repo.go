package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/mailq/internal/core"
	"github.com/target/mailq/internal/data/pgxutil"
	"github.com/target/mailq/internal/domain/model"
)

// Advisory lock namespace for reaper operations. Major key 2001 is reserved for the mailq reaper.
const (
	advisoryLockReaperMajor      int32 = 2001
	advisoryLockReaperDeleteJobs int32 = 1
)

// ReaperRepo implements the recovery and retention queries run by the reaper.
type ReaperRepo struct {
	DB  *sql.DB
	cfg RepoConfig
}

// NewReaperRepo creates a new ReaperRepo.
func NewReaperRepo(db *sql.DB, cfg RepoConfig) *ReaperRepo {
	return &ReaperRepo{DB: db, cfg: cfg}
}

var _ core.ReaperRepository = (*ReaperRepo)(nil)

// FindOrphanedJobs returns scheduled jobs with no pending or running dispatch task.
// These are left behind when intake or a retry crashed between the job write and the enqueue.
// Outcome history is irrelevant: a retried job already has a failed outcome.
// Grace is measured from updated_at so a job that was just reset is not raced.
func (r *ReaperRepo) FindOrphanedJobs(ctx context.Context, params core.FindOrphanedJobsParams) ([]*model.EmailJob, error) {
	if params.BatchSize <= 0 {
		return nil, errors.New("batch size must be greater than zero")
	}
	cutoff := r.cfg.clock().Now().Add(-params.Grace).UTC()

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+emailJobColumns+`
		FROM email_jobs j
		WHERE j.status = 'scheduled'
		  AND j.updated_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM dispatch_tasks t
			WHERE t.job_id = j.id AND t.status IN ('pending', 'running')
		  )
		ORDER BY j.id
		LIMIT $2
	`, cutoff, params.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("find orphaned jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.EmailJob
	for rows.Next() {
		job, scanErr := scanEmailJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan orphaned job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orphaned jobs: %w", err)
	}
	return jobs, nil
}

// RequeueExpiredLeases returns running tasks with a lapsed lease to pending.
func (r *ReaperRepo) RequeueExpiredLeases(ctx context.Context) (int64, error) {
	return requeueExpired(ctx, r.DB, r.cfg.clock().Now())
}

// withReaperLock runs fn in a transaction holding the given reaper advisory lock.
// It reports zero rows when another reaper holds the lock.
func (r *ReaperRepo) withReaperLock(ctx context.Context, minor int32, fn func(*sql.Tx) (sql.Result, error)) (int64, error) {
	var affected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)",
				advisoryLockReaperMajor, minor).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}
			res, err := fn(tx)
			if err != nil {
				return err
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

// DeleteOldJobs deletes terminal jobs older than MaxAge, up to BatchSize per call.
// Their dispatch tasks cascade. Outcome rows are not touched and keep the job id.
func (r *ReaperRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("invalid job status for deletion: %s", params.Status)
	}
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	cutoff := r.cfg.clock().Now().Add(-params.MaxAge).UTC()

	return r.withReaperLock(ctx, advisoryLockReaperDeleteJobs, func(tx *sql.Tx) (sql.Result, error) {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM email_jobs
			WHERE id IN (
				SELECT id FROM email_jobs
				WHERE status = $1 AND updated_at < $2
				ORDER BY updated_at
				LIMIT $3
			)
		`, string(params.Status), cutoff, params.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("delete old jobs: %w", err)
		}
		return res, nil
	})
}
