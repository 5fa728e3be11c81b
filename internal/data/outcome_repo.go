package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/target/mailq/internal/data/database"
	"github.com/target/mailq/internal/domain/model"
)

// OutcomeRepo reads the append-only email_outcomes log. Rows are only written by EmailJobRepo transitions.
type OutcomeRepo struct {
	DB *sql.DB
}

// NewOutcomeRepo creates a new OutcomeRepo.
func NewOutcomeRepo(db *sql.DB) *OutcomeRepo {
	return &OutcomeRepo{DB: db}
}

var outcomeColumns = []string{
	"id",
	"job_id",
	"recipient",
	"subject",
	"body",
	"sender_address",
	"status",
	"error_message",
	"attempt",
	"provider_message_id",
	"recorded_at",
}

func scanOutcome(s rowScanner) (*model.Outcome, error) {
	var (
		o          model.Outcome
		errMsg     sql.NullString
		providerID sql.NullString
	)
	if err := s.Scan(
		&o.ID,
		&o.JobID,
		&o.Recipient,
		&o.Subject,
		&o.Body,
		&o.SenderAddress,
		&o.Status,
		&errMsg,
		&o.Attempt,
		&providerID,
		&o.RecordedAt,
	); err != nil {
		return nil, err
	}
	o.ErrorMessage = cloneNullableString(errMsg)
	o.ProviderMessageID = cloneNullableString(providerID)
	o.RecordedAt = o.RecordedAt.UTC()
	return &o, nil
}

// List returns outcome records in insertion order.
func (r *OutcomeRepo) List(ctx context.Context, opts model.OutcomeListOptions) ([]*model.Outcome, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	qopts := []database.ListQueryOption{
		database.WithColumns(outcomeColumns...),
		database.WithOrderBy("ASC", "id"),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.JobID != nil {
		qopts = append(qopts, database.WithCondition(database.WhereCond("job_id", database.Equal, *opts.JobID)))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("email_outcomes", qopts...))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list email outcomes: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Outcome, 0, limit)
	for rows.Next() {
		o, scanErr := scanOutcome(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan email outcome: %w", scanErr)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate email outcomes: %w", err)
	}
	return out, nil
}
