package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mailq/config"
	"github.com/target/mailq/internal/adapters/dispatcher"
	"github.com/target/mailq/internal/adapters/reaper"
	"github.com/target/mailq/internal/domain/dispatch"
	"github.com/target/mailq/internal/observability/statsd"
	"github.com/target/mailq/internal/ratelimit"
)

// DispatcherConfig contains configuration for the dispatch loop.
type DispatcherConfig struct {
	Services    *ServiceContainer
	RedisClient redis.UniversalClient
	Config      config.DispatchConfig
	Logger      *slog.Logger
}

// RunDispatcher starts the dispatch loop and blocks until ctx is cancelled.
func RunDispatcher(ctx context.Context, cfg DispatcherConfig) error {
	if cfg.Services == nil || cfg.Services.Worker == nil {
		return errors.New("dispatcher requires a dispatch worker")
	}

	admitter, err := buildAdmitter(cfg.Config, cfg.RedisClient)
	if err != nil {
		return err
	}
	retry, err := dispatch.NewRetryPolicy(dispatch.RetryPolicyOptions{
		MaxAttempts: cfg.Config.MaxAttempts,
		BackoffBase: cfg.Config.BackoffBase,
		BackoffMax:  cfg.Config.BackoffMax,
		Jitter:      cfg.Config.BackoffJitter,
	})
	if err != nil {
		return fmt.Errorf("create retry policy: %w", err)
	}

	opts := dispatcher.RunnerOptions{
		Queue:         cfg.Services.Queue,
		Handler:       cfg.Services.Worker,
		Admitter:      admitter,
		Retry:         retry,
		Lease:         cfg.Config.Lease,
		PollInterval:  cfg.Config.PollInterval,
		NotReadyDelay: cfg.Config.NotReadyDelay,
		MinInterval:   cfg.Config.MinInterval,
		Logger:        cfg.Logger,
		Metrics:       metricsSink(cfg.Services.Metrics),
	}
	if cfg.Services.Notifier != nil {
		opts.Notifier = cfg.Services.Notifier
	}
	runner, err := dispatcher.NewRunner(opts)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "rate limit configured",
			"limiter", cfg.Config.Limiter,
			"max_per_window", cfg.Config.MaxPerWindow,
			"window", cfg.Config.Window,
		)
	}
	return runner.Run(ctx)
}

// buildAdmitter returns the in-process window or, for multi-replica deployments, the Redis window.
//
//nolint:ireturn // the limiter backend is chosen at runtime.
func buildAdmitter(cfg config.DispatchConfig, client redis.UniversalClient) (ratelimit.Admitter, error) {
	window := ratelimit.Config{MaxPerWindow: cfg.MaxPerWindow, Window: cfg.Window}

	if cfg.Limiter == config.LimiterRedis {
		if client == nil {
			return nil, errors.New("DISPATCH_LIMITER=redis requires a redis connection")
		}
		w, err := ratelimit.NewRedisWindow(ratelimit.RedisWindowOptions{
			Client: client,
			Key:    cfg.LimiterKey,
			Config: window,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis rate limiter: %w", err)
		}
		return w, nil
	}

	w, err := ratelimit.NewWindow(window)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}
	return w, nil
}

// ReaperConfig contains configuration for the reaper.
type ReaperConfig struct {
	DB          *sql.DB
	Logger      *slog.Logger
	Config      config.ReaperConfig
	MaxAttempts int
	Metrics     *statsd.Client
}

// RunReaper starts the reaper and blocks until ctx is cancelled.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:          cfg.DB,
		Config:      cfg.Config,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      cfg.Logger,
		Metrics:     metricsSink(cfg.Metrics),
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}
	return runner.Run(ctx)
}

// metricsSink keeps a nil client from becoming a non-nil interface.
//
//nolint:ireturn // callers take the Sink interface.
func metricsSink(c *statsd.Client) statsd.Sink {
	if c == nil {
		return nil
	}
	return c
}
