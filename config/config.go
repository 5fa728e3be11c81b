// Package config loads mailq settings from the environment.
package config

import (
	"log/slog"
	"os"
	"strings"
)

// AppConfig composes the per-area settings. Each area lives in its own file:
//   - database.go: Postgres and Redis
//   - http.go: API server
//   - services.go: service selection, dispatcher and reaper
//   - mail.go: mail transport
//   - observability.go: metrics
type AppConfig struct {
	// IsDev enables development defaults. Set DEV=true or NODE_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DefaultSenderEmail is used for submissions that do not name a sender.
	DefaultSenderEmail string `env:"DEFAULT_SENDER_EMAIL"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	// Services is a comma-delimited list of services to run in this process.
	Services string `env:"SERVICES" envDefault:"http,dispatcher,reaper"`

	Dispatch DispatchConfig
	Mail     MailConfig
	Reaper   ReaperConfig

	Observability ObservabilityConfig
}

// Sanitize clamps loaded values into safe ranges. Call it after env.Parse.
func (c *AppConfig) Sanitize() {
	c.DefaultSenderEmail = strings.TrimSpace(c.DefaultSenderEmail)
	c.HTTP.Sanitize()
	c.Dispatch.Sanitize()
	c.Mail.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

// detectDevMode falls back to NODE_ENV when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsHTTPServerEnabled returns true if the HTTP API runs in this process.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.serviceEnabled(ServiceModeHTTP) }

// IsDispatcherEnabled returns true if the dispatch loop runs in this process.
func (c *AppConfig) IsDispatcherEnabled() bool { return c.serviceEnabled(ServiceModeDispatcher) }

// IsReaperEnabled returns true if the reaper runs in this process.
func (c *AppConfig) IsReaperEnabled() bool { return c.serviceEnabled(ServiceModeReaper) }
