package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/target/mailq/internal/core"
	"github.com/target/mailq/internal/data"
	"github.com/target/mailq/internal/domain/model"
	apperrors "github.com/target/mailq/internal/errors"
)

// QueryServiceOptions groups dependencies for QueryService.
type QueryServiceOptions struct {
	Jobs     core.EmailJobRepository // Required: job store
	Outcomes core.OutcomeRepository  // Required: outcome log
	Queue    core.DispatchQueue      // Optional: enables Stats
}

// QueryService is the read side of the pipeline: jobs, outcome records and queue depth.
type QueryService struct {
	jobs     core.EmailJobRepository
	outcomes core.OutcomeRepository
	queue    core.DispatchQueue
}

// JobDetail is a job together with its outcome records.
type JobDetail struct {
	*model.EmailJob
	Outcomes []*model.Outcome `json:"outcomes"`
}

// NewQueryService constructs a new QueryService.
func NewQueryService(opts QueryServiceOptions) (*QueryService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("EmailJobRepository is required")
	}
	if opts.Outcomes == nil {
		return nil, errors.New("OutcomeRepository is required")
	}
	return &QueryService{jobs: opts.Jobs, outcomes: opts.Outcomes, queue: opts.Queue}, nil
}

// ListJobs returns jobs ordered by id ascending.
func (s *QueryService) ListJobs(ctx context.Context, opts model.EmailJobListOptions) ([]*model.EmailJob, error) {
	jobs, err := s.jobs.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}

// ListOutcomes returns outcome records ordered by id ascending.
func (s *QueryService) ListOutcomes(ctx context.Context, opts model.OutcomeListOptions) ([]*model.Outcome, error) {
	out, err := s.outcomes.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// GetJob returns one job and every outcome recorded for it.
func (s *QueryService) GetJob(ctx context.Context, id int64) (*JobDetail, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if errors.Is(err, data.ErrEmailJobNotFound) {
		return nil, apperrors.NotFoundf("email job %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, apperrors.MapDBError(err))
	}

	outcomes, err := s.outcomes.List(ctx, model.OutcomeListOptions{JobID: &id})
	if err != nil {
		return nil, fmt.Errorf("list outcomes for job %d: %w", id, apperrors.MapDBError(err))
	}
	if outcomes == nil {
		outcomes = []*model.Outcome{}
	}
	return &JobDetail{EmailJob: job, Outcomes: outcomes}, nil
}

// Stats reports dispatch queue depth per task state.
func (s *QueryService) Stats(ctx context.Context) (*model.DispatchStats, error) {
	if s.queue == nil {
		return nil, apperrors.Unavailable("dispatch queue is not configured")
	}
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch stats: %w", apperrors.MapDBError(err))
	}
	return stats, nil
}

// Ready pings the job store.
func (s *QueryService) Ready(ctx context.Context) error {
	return s.jobs.Ping(ctx)
}
