package errors

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts the column from "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances.
//   - context deadline/cancel → Timeout/Canceled
//   - pgx.ErrNoRows / sql.ErrNoRows → NotFound
//   - connection failures and admin shutdowns → Unavailable
//   - unique, foreign key, check and not-null violations → Conflict, ForeignKey, Validation
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrCodeTimeout, "database operation timed out")
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(err, ErrCodeCanceled, "database operation was canceled")
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return Wrap(err, ErrCodeNotFound, "resource not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || errors.Is(err, sql.ErrConnDone) {
		return Wrap(err, ErrCodeUnavailable, "database is unavailable")
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "record already exists",
			Field:   violatedField(pgErr),
			Cause:   pgErr,
		}
	case pgErr.Code == pgerrcode.ForeignKeyViolation:
		return &AppError{
			Code:    ErrCodeForeignKey,
			Message: "referenced " + tableLabel(pgErr.TableName) + " does not exist",
			Cause:   pgErr,
		}
	case pgErr.Code == pgerrcode.CheckViolation, pgErr.Code == pgerrcode.NotNullViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "invalid value for " + tableLabel(pgErr.TableName),
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsInsufficientResources(pgErr.Code),
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow:
		return Wrap(pgErr, ErrCodeUnavailable, "database is unavailable")
	case pgErr.Code == pgerrcode.QueryCanceled:
		return Wrap(pgErr, ErrCodeTimeout, "database operation timed out")
	default:
		return Wrap(pgErr, ErrCodeInternal, "a database error occurred")
	}
}

// violatedField prefers ColumnName, then the Detail message, then the constraint name
// ("email_jobs_recipient_key" → "recipient").
func violatedField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	name := pgErr.ConstraintName
	for _, table := range []string{"dispatch_tasks_", "email_outcomes_", "email_jobs_"} {
		name = strings.TrimPrefix(name, table)
	}
	for _, suffix := range []string{"_key", "_fkey", "_unique", "_idx"} {
		name = strings.TrimSuffix(name, suffix)
	}
	if name == pgErr.ConstraintName {
		return ""
	}
	return name
}

func tableLabel(table string) string {
	switch strings.ToLower(strings.TrimSpace(table)) {
	case "email_jobs":
		return "email job"
	case "email_outcomes":
		return "outcome record"
	case "dispatch_tasks":
		return "dispatch task"
	case "":
		return "record"
	default:
		return strings.ReplaceAll(table, "_", " ")
	}
}
