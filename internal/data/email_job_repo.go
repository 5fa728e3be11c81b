package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/mailq/internal/data/database"
	"github.com/target/mailq/internal/data/pgxutil"
	"github.com/target/mailq/internal/domain/model"
)

// EmailJobRepo is the Postgres-backed job store.
type EmailJobRepo struct {
	DB  *sql.DB
	cfg RepoConfig
}

// NewEmailJobRepo creates a new EmailJobRepo.
func NewEmailJobRepo(db *sql.DB, cfg RepoConfig) *EmailJobRepo {
	return &EmailJobRepo{DB: db, cfg: cfg}
}

var emailJobColumnList = []string{
	"id",
	"submission_id",
	"recipient",
	"subject",
	"body",
	"sender_address",
	"status",
	"scheduled_at",
	"delay_seconds",
	"hourly_limit",
	"attempts",
	"created_at",
	"sent_at",
	"error_message",
	"updated_at",
}

const emailJobColumns = `
  id,
  submission_id,
  recipient,
  subject,
  body,
  sender_address,
  status,
  scheduled_at,
  delay_seconds,
  hourly_limit,
  attempts,
  created_at,
  sent_at,
  error_message,
  updated_at
`

func scanEmailJob(s rowScanner) (*model.EmailJob, error) {
	var (
		job    model.EmailJob
		sentAt sql.NullTime
		errMsg sql.NullString
	)
	if err := s.Scan(
		&job.ID,
		&job.SubmissionID,
		&job.Recipient,
		&job.Subject,
		&job.Body,
		&job.SenderAddress,
		&job.Status,
		&job.ScheduledAt,
		&job.DelaySeconds,
		&job.HourlyLimit,
		&job.Attempts,
		&job.CreatedAt,
		&sentAt,
		&errMsg,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.ScheduledAt = job.ScheduledAt.UTC()
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	job.SentAt = cloneNullableTime(sentAt)
	job.ErrorMessage = cloneNullableString(errMsg)
	return &job, nil
}

// Create inserts a new job in the scheduled state.
func (r *EmailJobRepo) Create(ctx context.Context, req *model.CreateEmailJobRequest) (*model.EmailJob, error) {
	if req == nil {
		return nil, errors.New("create email job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.cfg.clock().Now().UTC()
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO email_jobs (
			submission_id, recipient, subject, body, sender_address, status,
			scheduled_at, delay_seconds, hourly_limit, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, 'scheduled', $6, $7, $8, $9, $9)
		RETURNING `+emailJobColumns,
		req.SubmissionID,
		req.Recipient,
		req.Subject,
		req.Body,
		req.SenderAddress,
		req.ScheduledAt.UTC(),
		req.DelaySeconds,
		req.HourlyLimit,
		now,
	)

	job, err := scanEmailJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert email job: %w", err)
	}
	return job, nil
}

// GetByID retrieves a job by id.
func (r *EmailJobRepo) GetByID(ctx context.Context, id int64) (*model.EmailJob, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+emailJobColumns+` FROM email_jobs WHERE id = $1`, id)
	job, err := scanEmailJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmailJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get email job: %w", err)
	}
	return job, nil
}

// List returns jobs ordered by id ascending.
func (r *EmailJobRepo) List(ctx context.Context, opts model.EmailJobListOptions) ([]*model.EmailJob, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	qopts := []database.ListQueryOption{
		database.WithColumns(emailJobColumnList...),
		database.WithOrderBy("ASC", "id"),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.Status != nil {
		qopts = append(qopts, database.WithCondition(database.WhereCond("status", database.Equal, string(*opts.Status))))
	}
	if opts.SubmissionID != nil {
		qopts = append(qopts, database.WithCondition(database.WhereCond("submission_id", database.Equal, *opts.SubmissionID)))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("email_jobs", qopts...))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list email jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*model.EmailJob, 0, limit)
	for rows.Next() {
		job, scanErr := scanEmailJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan email job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate email jobs: %w", err)
	}
	return jobs, nil
}

// terminalTransition moves a scheduled job to a terminal status and appends an outcome row.
type terminalTransition struct {
	jobID             int64
	status            model.EmailJobStatus
	attempt           int
	at                time.Time
	sentAt            *time.Time
	errorMessage      string
	providerMessageID string
}

const transitionJobSQL = `
	UPDATE email_jobs
	SET status = $2,
	    attempts = GREATEST(attempts, $3),
	    sent_at = $4,
	    error_message = $5,
	    updated_at = $6
	WHERE id = $1 AND status = 'scheduled'
	RETURNING recipient, subject, body, sender_address`

const insertOutcomeSQL = `
	INSERT INTO email_outcomes (
		job_id, recipient, subject, body, sender_address, status,
		error_message, attempt, provider_message_id, recorded_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (r *EmailJobRepo) transition(ctx context.Context, t terminalTransition) (bool, error) {
	var applied bool
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			var p model.DispatchPayload
			err := tx.QueryRow(ctx, transitionJobSQL,
				t.jobID,
				string(t.status),
				t.attempt,
				t.sentAt,
				nullIfEmpty(t.errorMessage),
				t.at,
			).Scan(&p.Recipient, &p.Subject, &p.Body, &p.SenderAddress)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("update email job status: %w", err)
			}

			if _, err := tx.Exec(ctx, insertOutcomeSQL,
				t.jobID,
				p.Recipient,
				p.Subject,
				p.Body,
				p.SenderAddress,
				string(t.status),
				nullIfEmpty(t.errorMessage),
				t.attempt,
				nullIfEmpty(t.providerMessageID),
				t.at,
			); err != nil {
				return fmt.Errorf("insert email outcome: %w", err)
			}
			applied = true
			return nil
		},
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// MarkSent records a successful send. It returns false, writing nothing, when the job is no longer scheduled.
func (r *EmailJobRepo) MarkSent(ctx context.Context, req model.MarkSentRequest) (bool, error) {
	sentAt := req.SentAt.UTC()
	if req.SentAt.IsZero() {
		sentAt = r.cfg.clock().Now().UTC()
	}
	return r.transition(ctx, terminalTransition{
		jobID:             req.JobID,
		status:            model.EmailJobStatusSent,
		attempt:           req.Attempt,
		at:                sentAt,
		sentAt:            &sentAt,
		providerMessageID: req.ProviderMessageID,
	})
}

// MarkFailed records a terminal failure. It returns false, writing nothing, when the job is no longer scheduled.
func (r *EmailJobRepo) MarkFailed(ctx context.Context, req model.MarkFailedRequest) (bool, error) {
	if req.ErrorMessage == "" {
		return false, errors.New("error message is required")
	}
	return r.transition(ctx, terminalTransition{
		jobID:        req.JobID,
		status:       model.EmailJobStatusFailed,
		attempt:      req.Attempt,
		at:           r.cfg.clock().Now().UTC(),
		errorMessage: req.ErrorMessage,
	})
}

// RecordAttempt stores the attempt count and last error of a job that remains scheduled.
func (r *EmailJobRepo) RecordAttempt(ctx context.Context, req model.RecordAttemptRequest) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE email_jobs
		SET attempts = GREATEST(attempts, $2),
		    error_message = $3,
		    updated_at = $4
		WHERE id = $1 AND status = 'scheduled'
	`, req.JobID, req.Attempt, nullIfEmpty(req.ErrorMessage), r.cfg.clock().Now().UTC())
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ResetForRetry returns a failed job to scheduled with a fresh attempt budget.
// Previously written outcome records are kept.
func (r *EmailJobRepo) ResetForRetry(ctx context.Context, id int64, scheduledAt time.Time) (*model.EmailJob, error) {
	row := r.DB.QueryRowContext(ctx, `
		UPDATE email_jobs
		SET status = 'scheduled',
		    attempts = 0,
		    error_message = NULL,
		    scheduled_at = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'failed'
		RETURNING `+emailJobColumns,
		id, scheduledAt.UTC(), r.cfg.clock().Now().UTC())

	job, err := scanEmailJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reset email job: %w", err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrEmailJobNotRetryable
}

// Ping checks database connectivity.
func (r *EmailJobRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}
