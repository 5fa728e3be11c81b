package data

import (
	"context"
	"database/sql"

	"github.com/target/mailq/internal/migrate"
)

// RunMigrations applies the job store, outcome log and dispatch queue schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
