package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mailq/config"
	"github.com/target/mailq/internal/data"
	"github.com/target/mailq/internal/domain/dispatch"
	"github.com/target/mailq/internal/mail"
	"github.com/target/mailq/internal/observability/statsd"
	"github.com/target/mailq/internal/service"
)

// ServiceContainer holds the repositories and services shared by every enabled mode.
type ServiceContainer struct {
	Jobs     *data.EmailJobRepo
	Outcomes *data.OutcomeRepo
	Queue    *data.DispatchTaskRepo

	Intake *service.IntakeService
	Query  *service.QueryService
	Worker *service.DispatchWorker

	// Notifier fans dispatch_task_added notifications out to the dispatcher.
	Notifier *dispatch.DefaultNotifier

	Metrics *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires repositories and services. The mail transport is only built
// when the dispatcher runs in this process.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return nil, errors.New("database connection is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	metrics := buildMetrics(logger, cfg.Observability.Metrics)
	repoCfg := data.RepoConfig{Logger: logger, DefaultMaxAttempts: cfg.Dispatch.MaxAttempts}

	c := &ServiceContainer{
		Jobs:     data.NewEmailJobRepo(deps.DB, repoCfg),
		Outcomes: data.NewOutcomeRepo(deps.DB),
		Queue:    data.NewDispatchTaskRepo(deps.DB, repoCfg),
		Metrics:  metrics,
	}

	var err error
	c.Intake, err = service.NewIntakeService(service.IntakeServiceOptions{
		Jobs:          c.Jobs,
		Queue:         c.Queue,
		DefaultSender: cfg.DefaultSenderEmail,
		MaxAttempts:   cfg.Dispatch.MaxAttempts,
		Logger:        logger,
		Metrics:       metricsSink(metrics),
	})
	if err != nil {
		return nil, fmt.Errorf("create intake service: %w", err)
	}

	c.Query, err = service.NewQueryService(service.QueryServiceOptions{
		Jobs:     c.Jobs,
		Outcomes: c.Outcomes,
		Queue:    c.Queue,
	})
	if err != nil {
		return nil, fmt.Errorf("create query service: %w", err)
	}

	if !cfg.IsDispatcherEnabled() {
		return c, nil
	}

	transport, err := buildTransport(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}
	c.Worker, err = service.NewDispatchWorker(service.DispatchWorkerOptions{
		Jobs:        c.Jobs,
		Transport:   transport,
		SendTimeout: cfg.Mail.SendTimeout,
		Logger:      logger,
		Metrics:     metricsSink(metrics),
	})
	if err != nil {
		return nil, fmt.Errorf("create dispatch worker: %w", err)
	}

	c.Notifier, err = dispatch.NewNotifier(dispatch.NotifierOptions{Waiter: c.Queue})
	if err != nil {
		return nil, fmt.Errorf("create dispatch notifier: %w", err)
	}
	return c, nil
}

// buildMetrics returns a StatsD client, or nil (which discards metrics) when disabled or unreachable.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// buildTransport selects the SMTP relay or the log-only development transport.
//
//nolint:ireturn // the transport is chosen at runtime.
func buildTransport(cfg config.MailConfig, logger *slog.Logger) (mail.Transport, error) {
	switch cfg.Transport {
	case config.MailTransportSMTP:
		t, err := mail.NewSMTPTransport(mail.SMTPOptions{
			Host:               cfg.SMTPHost,
			Port:               cfg.SMTPPort,
			Username:           cfg.SMTPUsername,
			Password:           cfg.SMTPPassword,
			ImplicitTLS:        cfg.SMTPTLS,
			InsecureSkipVerify: cfg.SMTPInsecureSkipVerify,
			Timeout:            cfg.SendTimeout,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create smtp transport: %w", err)
		}
		logger.Info("mail transport configured", "transport", "smtp", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return t, nil
	default:
		logger.Warn("mail transport is log only; messages are not delivered", "transport", "log")
		return mail.NewLogTransport(logger), nil
	}
}
