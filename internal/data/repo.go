package data

import (
	"database/sql"
	"log/slog"
	"time"
)

// RepoConfig holds options shared by the Postgres repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
	// DefaultMaxAttempts applies to enqueued tasks that do not set MaxAttempts.
	DefaultMaxAttempts int
}

const defaultMaxAttempts = 5

func (c RepoConfig) clock() TimeProvider {
	if c.TimeProvider == nil {
		return RealTimeProvider{}
	}
	return c.TimeProvider
}

func (c RepoConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c RepoConfig) maxAttempts() int {
	if c.DefaultMaxAttempts > 0 {
		return c.DefaultMaxAttempts
	}
	return defaultMaxAttempts
}

type rowScanner interface {
	Scan(dest ...any) error
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func clampPage(limit, offset int) (int, int) {
	const maxLimit = 1000
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
