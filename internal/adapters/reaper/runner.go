// Package reaper provides adapters for running the reaper loop.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mailq/config"
	"github.com/target/mailq/internal/core"
	"github.com/target/mailq/internal/data"
	"github.com/target/mailq/internal/observability/statsd"
	"github.com/target/mailq/internal/service"
)

// Runner wires the reaper service from a database handle and runs its loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB          *sql.DB
	Config      config.ReaperConfig
	MaxAttempts int
	Logger      *slog.Logger
	Metrics     statsd.Sink

	// Optional dependency injection for testing/decoupling
	Repo  core.ReaperRepository
	Queue core.DispatchQueue
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reaper, err := wireReaperService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: reaper, logger: opts.Logger}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && (opts.Repo == nil || opts.Queue == nil) {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireReaperService(opts RunnerOptions) (*service.ReaperService, error) {
	repoCfg := data.RepoConfig{Logger: opts.Logger, DefaultMaxAttempts: opts.MaxAttempts}

	repo := opts.Repo
	if repo == nil {
		repo = data.NewReaperRepo(opts.DB, repoCfg)
	}
	queue := opts.Queue
	if queue == nil {
		queue = data.NewDispatchTaskRepo(opts.DB, repoCfg)
	}

	return service.NewReaperService(service.ReaperServiceOptions{
		Repo:        repo,
		Queue:       queue,
		Config:      opts.Config,
		MaxAttempts: opts.MaxAttempts,
		Logger:      opts.Logger,
		Metrics:     opts.Metrics,
	})
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
