package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mailq/config"
	"github.com/target/mailq/internal/core"
	"github.com/target/mailq/internal/domain/model"
	obserrors "github.com/target/mailq/internal/observability/errors"
	"github.com/target/mailq/internal/observability/metrics"
	"github.com/target/mailq/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo        core.ReaperRepository // Required: reaper repository
	Queue       core.DispatchQueue    // Required: orphan jobs are re-enqueued here
	Config      config.ReaperConfig   // Required: reaper configuration
	MaxAttempts int                   // Optional: attempt ceiling for re-enqueued tasks
	Logger      *slog.Logger          // Optional: structured logger
	Metrics     statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// ReaperService keeps the pipeline converging:
//   - scheduled jobs whose task never got enqueued are re-enqueued
//   - running tasks with an expired lease go back to pending
//   - when retention is configured, old sent and failed jobs are deleted in batches
//
// Outcome records are never deleted.
type ReaperService struct {
	repo        core.ReaperRepository
	queue       core.DispatchQueue
	config      config.ReaperConfig
	maxAttempts int
	logger      *slog.Logger
	metrics     statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("DispatchQueue is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"orphan_grace", opts.Config.OrphanGrace,
			"sent_max_age", opts.Config.SentMaxAge,
			"failed_max_age", opts.Config.FailedMaxAge,
		)
	}

	return &ReaperService{
		repo:        opts.Repo,
		queue:       opts.Queue,
		config:      opts.Config,
		maxAttempts: opts.MaxAttempts,
		logger:      logger,
		metrics:     opts.Metrics,
	}, nil
}

// Run performs a pass immediately (after a short jitter) and then every Interval until ctx ends.
// Returns nil on context.Canceled.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.logPassError(err, "initial pass")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logPassError(err, "pass")
			}
		}
	}
}

// waitWithJitter sleeps up to 10% of the interval so replicas started together spread out.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

type reaperStep struct {
	operation string
	fn        func(context.Context) (int64, error)
}

type reaperStepOutcome struct {
	operation string
	count     int64
	err       error
}

// RunOnce executes every step once. A failing step does not stop the later ones.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := time.Now()
	steps := s.steps()

	outcomes := make([]reaperStepOutcome, 0, len(steps))
	var errs []error
	canceledOnly := true
	for _, step := range steps {
		count, err := step.fn(ctx)
		outcomes = append(outcomes, reaperStepOutcome{operation: step.operation, count: count, err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.operation, err))
			canceledOnly = canceledOnly && isContextCancellation(err)
		}
	}

	s.emitPassMetrics(outcomes, time.Since(start))

	if len(errs) == 0 {
		return nil
	}
	if canceledOnly {
		return context.Canceled
	}
	return fmt.Errorf("reaper pass failed: %w", errors.Join(errs...))
}

func (s *ReaperService) steps() []reaperStep {
	steps := []reaperStep{
		{operation: "recover_orphans", fn: s.recoverOrphans},
		{operation: "requeue_expired_leases", fn: s.requeueExpiredLeases},
	}
	// Zero max age means retention is off for that status.
	if s.config.SentMaxAge > 0 {
		steps = append(steps, reaperStep{operation: "delete_sent", fn: s.deleteJobs(model.EmailJobStatusSent, s.config.SentMaxAge)})
	}
	if s.config.FailedMaxAge > 0 {
		steps = append(steps, reaperStep{operation: "delete_failed", fn: s.deleteJobs(model.EmailJobStatusFailed, s.config.FailedMaxAge)})
	}
	return steps
}

// recoverOrphans enqueues a task for every scheduled job without a pending or running one.
// A job becomes an orphan when intake or a retry crashed between writing it and enqueueing its task.
func (s *ReaperService) recoverOrphans(ctx context.Context) (int64, error) {
	var total int64
	for {
		jobs, err := s.repo.FindOrphanedJobs(ctx, core.FindOrphanedJobsParams{
			Grace:     s.config.OrphanGrace,
			BatchSize: s.config.BatchSize,
		})
		if err != nil {
			return total, err
		}
		for _, job := range jobs {
			if _, err := s.queue.Enqueue(ctx, newEnqueueRequest(job, s.maxAttempts)); err != nil {
				return total, fmt.Errorf("enqueue orphan job %d: %w", job.ID, err)
			}
			total++
		}
		if len(jobs) < s.config.BatchSize {
			break
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}

	if total > 0 && s.logger != nil {
		s.logger.WarnContext(ctx, "re-enqueued orphaned jobs", "count", total, "grace", s.config.OrphanGrace)
	}
	return total, nil
}

func (s *ReaperService) requeueExpiredLeases(ctx context.Context) (int64, error) {
	count, err := s.repo.RequeueExpiredLeases(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 && s.logger != nil {
		s.logger.WarnContext(ctx, "requeued tasks with expired leases", "count", count)
	}
	return count, nil
}

func (s *ReaperService) deleteJobs(status model.EmailJobStatus, maxAge time.Duration) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		total, err := drainBatches(ctx, func(ctx context.Context) (int64, error) {
			return s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    status,
				MaxAge:    maxAge,
				BatchSize: s.config.BatchSize,
			})
		})
		if total > 0 && s.logger != nil {
			s.logger.InfoContext(ctx, "deleted old jobs", "status", status, "count", total, "max_age", maxAge)
		}
		return total, err
	}
}

// drainBatches calls fn until it affects no rows.
func drainBatches(ctx context.Context, fn func(context.Context) (int64, error)) (int64, error) {
	var total int64
	for {
		count, err := fn(ctx)
		if err != nil {
			return total, err
		}
		total += count
		if count == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func (s *ReaperService) emitPassMetrics(outcomes []reaperStepOutcome, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	var (
		total    int64
		firstErr error
	)
	for _, o := range outcomes {
		total += o.count
		if firstErr == nil && o.err != nil && !isContextCancellation(o.err) {
			firstErr = o.err
		}
		s.emitStepMetric(o)
	}

	tags := map[string]string{"result": resultTag(total, firstErr)}
	if firstErr != nil {
		tags["error_class"] = obserrors.Classify(firstErr)
	}
	s.metrics.Count("reaper.pass", 1, tags)
	s.metrics.Timing("reaper.pass_duration", elapsed, metrics.CloneTags(tags))
	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitStepMetric(o reaperStepOutcome) {
	err := suppressContextCancellation(o.err)
	tags := map[string]string{
		"operation": o.operation,
		"result":    resultTag(o.count, err),
	}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	s.metrics.Count("reaper.operation", 1, tags)
	if err == nil && o.count > 0 {
		s.metrics.Count("reaper.rows_processed", o.count, metrics.CloneTags(tags))
	}
}

func resultTag(count int64, err error) string {
	switch {
	case err != nil:
		return metrics.ResultError
	case count == 0:
		return metrics.ResultNoop
	default:
		return metrics.ResultSuccess
	}
}

func (s *ReaperService) logPassError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
