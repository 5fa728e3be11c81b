package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_NilError(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"pgx no rows", pgx.ErrNoRows, ErrCodeNotFound},
		{"sql no rows", fmt.Errorf("get job: %w", sql.ErrNoRows), ErrCodeNotFound},
		{"conn done", sql.ErrConnDone, ErrCodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.err)
			assert.Equal(t, tt.wantCode, GetCode(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMapDBError_PgErrors(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantCode  ErrorCode
		wantField string
	}{
		{
			name: "unique violation uses column name",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "dispatch_tasks_job_id_key",
				ColumnName:     "job_id",
			},
			wantCode:  ErrCodeConflict,
			wantField: "job_id",
		},
		{
			name: "unique violation parses detail",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: "Key (job_id)=(42) already exists.",
			},
			wantCode:  ErrCodeConflict,
			wantField: "job_id",
		},
		{
			name: "unique violation infers from constraint",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "dispatch_tasks_job_id_key",
			},
			wantCode:  ErrCodeConflict,
			wantField: "job_id",
		},
		{
			name: "foreign key violation",
			pgErr: &pgconn.PgError{
				Code:      pgerrcode.ForeignKeyViolation,
				TableName: "email_outcomes",
			},
			wantCode: ErrCodeForeignKey,
		},
		{
			name: "check violation",
			pgErr: &pgconn.PgError{
				Code:       pgerrcode.CheckViolation,
				TableName:  "email_jobs",
				ColumnName: "status",
			},
			wantCode:  ErrCodeValidation,
			wantField: "status",
		},
		{
			name:     "admin shutdown",
			pgErr:    &pgconn.PgError{Code: pgerrcode.AdminShutdown},
			wantCode: ErrCodeUnavailable,
		},
		{
			name:     "connection failure",
			pgErr:    &pgconn.PgError{Code: pgerrcode.ConnectionFailure},
			wantCode: ErrCodeUnavailable,
		},
		{
			name:     "query canceled",
			pgErr:    &pgconn.PgError{Code: pgerrcode.QueryCanceled},
			wantCode: ErrCodeTimeout,
		},
		{
			name:     "other pg error",
			pgErr:    &pgconn.PgError{Code: pgerrcode.SyntaxError},
			wantCode: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(fmt.Errorf("exec: %w", tt.pgErr))
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetCode(err))
			assert.Equal(t, tt.wantField, GetField(err))

			var pgErr *pgconn.PgError
			assert.True(t, errors.As(err, &pgErr), "cause must be preserved")
		})
	}
}

func TestMapDBError_Unrecognized(t *testing.T) {
	orig := errors.New("something else")
	assert.Same(t, orig, MapDBError(orig))
}

func TestTableLabel(t *testing.T) {
	assert.Equal(t, "email job", tableLabel("email_jobs"))
	assert.Equal(t, "outcome record", tableLabel("EMAIL_OUTCOMES"))
	assert.Equal(t, "record", tableLabel(""))
	assert.Equal(t, "some table", tableLabel("some_table"))
}
