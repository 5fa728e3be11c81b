package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/mailq/config"
)

// ServiceOrchestrationConfig contains everything needed to run the enabled services.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    *ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// backgroundService describes a startable component that runs until its context ends.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// RunServicesWithShutdown runs the enabled services until SIGINT or SIGTERM.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunServices(ctx, cfg)
}

// RunServices starts every enabled service and blocks until ctx is cancelled or one fails.
// A failing service cancels the others; the first failure is returned.
func RunServices(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config is incomplete")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range buildBackgroundServices(cfg, logger) {
		if !enabled[svc.mode] {
			continue
		}
		g.Go(func() error {
			logger.InfoContext(gctx, "service started", "service", svc.name)
			err := svc.start(gctx)
			if err != nil && gctx.Err() == nil {
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			logger.InfoContext(gctx, "service stopped", "service", svc.name)
			return nil
		})
	}

	err = g.Wait()
	if cfg.Services.Notifier != nil {
		cfg.Services.Notifier.StopAll()
	}
	if err != nil {
		logger.Error("service error", "error", err)
	}
	return err
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	return []backgroundService{
		{
			mode: config.ServiceModeHTTP,
			name: "http",
			start: func(ctx context.Context) error {
				return RunHTTPServer(ctx, HTTPServerConfig{
					HTTP:     cfg.Config.HTTP,
					Services: cfg.Services,
					Logger:   logger,
				})
			},
		},
		{
			mode: config.ServiceModeDispatcher,
			name: "dispatcher",
			start: func(ctx context.Context) error {
				return RunDispatcher(ctx, DispatcherConfig{
					Services:    cfg.Services,
					RedisClient: cfg.RedisClient,
					Config:      cfg.Config.Dispatch,
					Logger:      logger,
				})
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			start: func(ctx context.Context) error {
				return RunReaper(ctx, ReaperConfig{
					DB:          cfg.DB,
					Logger:      logger,
					Config:      cfg.Config.Reaper,
					MaxAttempts: cfg.Config.Dispatch.MaxAttempts,
					Metrics:     cfg.Services.Metrics,
				})
			},
		},
	}
}
