package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode names a long-running component that can be enabled per process.
type ServiceMode string

const (
	// ServiceModeHTTP runs the submission and query API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeDispatcher runs the dispatch loop and worker.
	ServiceModeDispatcher ServiceMode = "dispatcher"
	// ServiceModeReaper runs orphan recovery and retention cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeDispatcher, ServiceModeReaper}
}

// ParseServices parses a comma-delimited list of service names.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	if strings.TrimSpace(servicesStr) == "" {
		return nil, errors.New("at least one service must be specified")
	}

	services := make(map[ServiceMode]bool)
	for part := range strings.SplitSeq(servicesStr, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		mode := ServiceMode(name)
		switch mode {
		case ServiceModeHTTP, ServiceModeDispatcher, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, dispatcher, reaper)", name)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// LimiterBackend selects where the rate-limit window keeps its timestamps.
type LimiterBackend string

const (
	// LimiterMemory keeps the window in process. Correct for a single dispatcher replica.
	LimiterMemory LimiterBackend = "memory"
	// LimiterRedis shares the window across replicas.
	LimiterRedis LimiterBackend = "redis"
)

// DispatchConfig contains dispatcher settings.
type DispatchConfig struct {
	// MaxPerWindow is the number of sends admitted within any rolling Window.
	MaxPerWindow int           `env:"DISPATCH_MAX_PER_WINDOW" envDefault:"5"`
	Window       time.Duration `env:"DISPATCH_WINDOW"         envDefault:"1h"`

	Limiter    LimiterBackend `env:"DISPATCH_LIMITER"     envDefault:"memory"`
	LimiterKey string         `env:"DISPATCH_LIMITER_KEY" envDefault:"mailq:dispatch:window"`

	MaxAttempts   int           `env:"DISPATCH_MAX_ATTEMPTS"  envDefault:"5"`
	BackoffBase   time.Duration `env:"DISPATCH_BACKOFF_BASE"  envDefault:"30s"`
	BackoffMax    time.Duration `env:"DISPATCH_BACKOFF_MAX"   envDefault:"10m"`
	BackoffJitter float64       `env:"DISPATCH_BACKOFF_JITTER" envDefault:"0.2"`

	// Lease is how long a reserved task stays invisible to other replicas without a heartbeat.
	Lease time.Duration `env:"DISPATCH_LEASE" envDefault:"2m"`
	// PollInterval bounds the idle sleep when no notification arrives.
	PollInterval time.Duration `env:"DISPATCH_POLL_INTERVAL" envDefault:"5s"`
	// NotReadyDelay is how long a task waits after the job store was unreachable.
	NotReadyDelay time.Duration `env:"DISPATCH_NOT_READY_DELAY" envDefault:"10s"`
	// MinInterval spaces consecutive sends; 0 disables pacing.
	MinInterval time.Duration `env:"DISPATCH_MIN_INTERVAL" envDefault:"0"`
}

// Sanitize applies guardrails to dispatcher configuration values.
func (d *DispatchConfig) Sanitize() {
	d.MaxPerWindow = max(d.MaxPerWindow, 1)
	d.Window = max(d.Window, time.Second)

	if d.Limiter != LimiterRedis {
		d.Limiter = LimiterMemory
	}
	if d.LimiterKey = strings.TrimSpace(d.LimiterKey); d.LimiterKey == "" {
		d.LimiterKey = "mailq:dispatch:window"
	}

	d.MaxAttempts = max(d.MaxAttempts, 1)
	if d.BackoffBase <= 0 {
		d.BackoffBase = time.Second
	}
	d.BackoffMax = max(d.BackoffMax, d.BackoffBase)
	d.BackoffJitter = min(max(d.BackoffJitter, 0), 0.9)

	d.Lease = max(d.Lease, 5*time.Second)
	d.PollInterval = max(d.PollInterval, 100*time.Millisecond)
	d.NotReadyDelay = max(d.NotReadyDelay, time.Second)
	d.MinInterval = max(d.MinInterval, 0)
}

// ReaperConfig contains reaper settings.
type ReaperConfig struct {
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// OrphanGrace is how old a scheduled job without a task must be before it is re-enqueued.
	OrphanGrace time.Duration `env:"REAPER_ORPHAN_GRACE" envDefault:"5m"`

	// SentMaxAge and FailedMaxAge opt in to deleting finished jobs older than the given age.
	// Zero keeps jobs forever. Outcome records are never deleted.
	SentMaxAge   time.Duration `env:"REAPER_SENT_MAX_AGE"   envDefault:"0"`
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"0"`

	// BatchSize is the maximum number of rows touched per statement.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	r.Interval = max(r.Interval, time.Minute)
	r.OrphanGrace = max(r.OrphanGrace, time.Minute)
	r.SentMaxAge = retentionAge(r.SentMaxAge)
	r.FailedMaxAge = retentionAge(r.FailedMaxAge)
	r.BatchSize = min(max(r.BatchSize, 1), 10000)
}

// retentionAge keeps zero (disabled), drops negatives to zero and raises anything else to an hour.
func retentionAge(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return max(d, time.Hour)
}
