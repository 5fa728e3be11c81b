// Package dispatcher runs the single dispatch loop: reserve the oldest due task, admit it
// through the rate limiter, hand it to the worker and settle the task from the result.
package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/target/mailq/internal/core"
	"github.com/target/mailq/internal/domain/dispatch"
	"github.com/target/mailq/internal/domain/model"
	"github.com/target/mailq/internal/observability/metrics"
	"github.com/target/mailq/internal/observability/statsd"
	"github.com/target/mailq/internal/ratelimit"
)

const (
	defaultLease         = 2 * time.Minute
	defaultPollInterval  = 5 * time.Second
	defaultNotReadyDelay = 10 * time.Second

	// minIdleWait stops a tight loop when a due task is held back by another replica's lease.
	minIdleWait = 250 * time.Millisecond
)

// RunnerOptions configures the dispatch loop.
type RunnerOptions struct {
	Queue    core.DispatchQueue   // Required: durable dispatch queue
	Handler  core.DispatchHandler // Required: sends one task
	Admitter ratelimit.Admitter   // Required: sliding-window admission

	Retry         *dispatch.RetryPolicy // Optional: defaults to dispatch defaults
	Notifier      dispatch.Notifier     // Optional: wakes the loop when a task is enqueued
	Lease         time.Duration         // Optional: reservation lease, default 2m
	PollInterval  time.Duration         // Optional: idle re-check interval, default 5s
	NotReadyDelay time.Duration         // Optional: delay after a NotReady result, default 10s
	MinInterval   time.Duration         // Optional: minimum spacing between sends

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Runner processes one task at a time, in scheduled order.
type Runner struct {
	queue         core.DispatchQueue
	handler       core.DispatchHandler
	admitter      ratelimit.Admitter
	retry         *dispatch.RetryPolicy
	notifier      dispatch.Notifier
	pacer         *ratelimit.Pacer
	lease         time.Duration
	pollInterval  time.Duration
	notReadyDelay time.Duration
	logger        *slog.Logger
	metrics       statsd.Sink

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewRunner validates opts and constructs a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("DispatchQueue is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("DispatchHandler is required")
	}
	if opts.Admitter == nil {
		return nil, errors.New("Admitter is required")
	}

	retry := opts.Retry
	if retry == nil {
		var err error
		if retry, err = dispatch.NewRetryPolicy(dispatch.RetryPolicyOptions{}); err != nil {
			return nil, err
		}
	}

	lease := opts.Lease
	if lease <= 0 {
		lease = defaultLease
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	notReady := opts.NotReadyDelay
	if notReady <= 0 {
		notReady = defaultNotReadyDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		queue:         opts.Queue,
		handler:       opts.Handler,
		admitter:      opts.Admitter,
		retry:         retry,
		notifier:      opts.Notifier,
		pacer:         ratelimit.NewPacer(opts.MinInterval),
		lease:         lease,
		pollInterval:  poll,
		notReadyDelay: notReady,
		logger:        logger.With("component", "dispatcher"),
		metrics:       opts.Metrics,
		sleep:         sleepCtx,
	}, nil
}

// Run processes tasks until ctx is cancelled. Queue errors are logged and retried
// after PollInterval; they never stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting dispatcher",
		"lease", r.lease,
		"poll_interval", r.pollInterval,
		"max_attempts", r.retry.MaxAttempts(),
	)

	var notify <-chan struct{}
	if r.notifier != nil {
		unsub, ch := r.notifier.Subscribe()
		defer unsub()
		notify = ch
	}

	for ctx.Err() == nil {
		r.Step(ctx, notify)
	}
	r.logger.InfoContext(ctx, "dispatcher stopping", "reason", ctx.Err())
	return nil
}

// Step reserves and processes at most one task. When nothing is due it waits for a
// notification, the next eligible scheduled_at or PollInterval, whichever comes first.
func (r *Runner) Step(ctx context.Context, notify <-chan struct{}) {
	task, err := r.queue.ReserveNext(ctx, r.lease)
	switch {
	case err == nil:
		r.process(ctx, task)
	case errors.Is(err, model.ErrNoTasksAvailable):
		r.waitForWork(ctx, notify)
	case ctx.Err() != nil:
		// shutting down
	default:
		r.logger.ErrorContext(ctx, "reserve next task failed", "error", err)
		r.sleep(ctx, r.pollInterval)
	}
}

func (r *Runner) waitForWork(ctx context.Context, notify <-chan struct{}) {
	wait := r.pollInterval
	next, err := r.queue.NextEligibleAt(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "next eligible lookup failed", "error", err)
	} else if next != nil {
		wait = min(wait, max(time.Until(*next), minIdleWait))
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-notify:
	case <-timer.C:
	}
}

func (r *Runner) process(ctx context.Context, task *model.DispatchTask) {
	start := time.Now()
	log := r.logger.With("task_id", task.ID, "job_id", task.JobID, "attempt", task.Attempt())
	// Settlement writes must land even when shutdown cancels ctx mid-send.
	settleCtx := context.WithoutCancel(ctx)

	// A previous pass consumed the last attempt but could not record the failure.
	if task.Attempts > 0 && r.retry.Exhausted(task.Attempts, task.MaxAttempts) {
		r.exhaust(settleCtx, log, task, lastError(task), start)
		return
	}

	decision, err := r.admitter.TryAdmit(ctx)
	if err != nil {
		log.WarnContext(ctx, "admission check failed", "error", err)
		r.release(settleCtx, log, task, r.notReadyDelay)
		r.emit(metrics.TransitionDenied, metrics.ResultError, task, start, err)
		r.sleep(ctx, r.notReadyDelay)
		return
	}
	if !decision.Allowed {
		// Zero delay keeps the task first in line.
		r.release(settleCtx, log, task, 0)
		r.emit(metrics.TransitionDenied, metrics.ResultNoop, task, start, nil)
		log.InfoContext(ctx, "rate limit reached, waiting", "retry_after", decision.RetryAfter)
		r.sleep(ctx, decision.RetryAfter)
		return
	}
	r.emit(metrics.TransitionAdmitted, metrics.ResultSuccess, task, time.Time{}, nil)

	if err := r.pacer.Wait(ctx); err != nil {
		r.release(settleCtx, log, task, 0)
		return
	}

	stopHB := r.startHeartbeat(ctx, log, task.ID)
	res := r.handler.Handle(ctx, task)
	stopHB()

	if pause := r.settle(settleCtx, log, task, res, start); pause > 0 {
		r.sleep(ctx, pause)
	}
}

// settle moves the task on according to res and returns how long the loop should pause.
func (r *Runner) settle(
	ctx context.Context,
	log *slog.Logger,
	task *model.DispatchTask,
	res dispatch.Result,
	start time.Time,
) time.Duration {
	switch {
	case res.Kind == dispatch.KindSent:
		if ok, err := r.queue.Complete(ctx, task.ID); err != nil {
			log.ErrorContext(ctx, "complete task failed", "error", err)
		} else if !ok {
			log.WarnContext(ctx, "complete not applied, lease lost")
		}
		r.emit(metrics.TransitionSent, metrics.ResultSuccess, task, start, nil)

	case res.NotReady():
		log.WarnContext(ctx, "worker not ready, releasing task", "error", res.Err, "delay", r.notReadyDelay)
		r.release(ctx, log, task, r.notReadyDelay)
		r.emit(metrics.TransitionReleased, metrics.ResultNoop, task, start, res.Err)
		return r.notReadyDelay

	case res.Kind == dispatch.KindRetryable:
		attempt := task.Attempt()
		if r.retry.Exhausted(attempt, task.MaxAttempts) {
			r.exhaust(ctx, log, task, res.Reason(), start)
			return 0
		}
		delay := r.retry.Backoff(attempt)
		if _, err := r.queue.Retry(ctx, task.ID, core.RetryParams{Delay: delay, Reason: res.Reason()}); err != nil {
			log.ErrorContext(ctx, "retry task failed", "error", err)
		}
		log.InfoContext(ctx, "task scheduled for retry", "delay", delay, "error", res.Err)
		r.emit(metrics.TransitionRetried, metrics.ResultError, task, start, res.Err)

	default:
		r.retire(ctx, log, task, res.Reason())
		r.emit(metrics.TransitionFailed, metrics.ResultError, task, start, res.Err)
	}
	return 0
}

// exhaust records the job as failed and retires its task. If the failure cannot be
// recorded the task consumes the attempt and comes back later to try again.
func (r *Runner) exhaust(ctx context.Context, log *slog.Logger, task *model.DispatchTask, reason string, start time.Time) {
	if err := r.handler.Exhausted(ctx, task, reason); err != nil {
		log.ErrorContext(ctx, "record exhausted job failed", "error", err)
		if _, rerr := r.queue.Retry(ctx, task.ID, core.RetryParams{Delay: r.notReadyDelay, Reason: reason}); rerr != nil {
			log.ErrorContext(ctx, "retry task failed", "error", rerr)
		}
		r.emit(metrics.TransitionExhausted, metrics.ResultError, task, start, err)
		return
	}
	r.retire(ctx, log, task, reason)
	r.emit(metrics.TransitionExhausted, metrics.ResultSuccess, task, start, nil)
}

func (r *Runner) retire(ctx context.Context, log *slog.Logger, task *model.DispatchTask, reason string) {
	if _, err := r.queue.Retire(ctx, task.ID, reason); err != nil {
		log.ErrorContext(ctx, "retire task failed", "error", err)
	}
}

func (r *Runner) release(ctx context.Context, log *slog.Logger, task *model.DispatchTask, delay time.Duration) {
	if _, err := r.queue.Release(ctx, task.ID, delay); err != nil {
		log.ErrorContext(ctx, "release task failed", "error", err)
	}
}

// startHeartbeat extends the task lease until the returned stop function is called.
func (r *Runner) startHeartbeat(ctx context.Context, log *slog.Logger, taskID string) func() {
	ticker := time.NewTicker(dispatch.HeartbeatInterval(r.lease))
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if ok, err := r.queue.Heartbeat(ctx, taskID, r.lease); err != nil {
					log.ErrorContext(ctx, "heartbeat failed", "error", err)
				} else if !ok {
					log.WarnContext(ctx, "heartbeat not applied (lease may be lost)")
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() { close(done) }
}

func (r *Runner) emit(transition, result string, task *model.DispatchTask, start time.Time, err error) {
	m := metrics.DispatchMetric{
		Transition: transition,
		Result:     result,
		Attempt:    task.Attempt(),
		Err:        err,
	}
	if !start.IsZero() {
		m.Duration = time.Since(start)
	}
	metrics.EmitDispatchLifecycle(r.metrics, m)
}

func lastError(task *model.DispatchTask) string {
	if task.LastError == nil {
		return ""
	}
	return *task.LastError
}

// sleepCtx waits for d or until ctx is done and reports whether the full wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
