package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mailq/config"
	"github.com/target/mailq/internal/mail"
	"github.com/target/mailq/internal/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SERVICES", "http, reaper")
	t.Setenv("DISPATCH_MAX_PER_WINDOW", "7")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("MAIL_TRANSPORT", "log")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 7, cfg.Dispatch.MaxPerWindow)
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.True(t, cfg.IsReaperEnabled())
	assert.False(t, cfg.IsDispatcherEnabled())
}

func TestValidateServiceConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.AppConfig
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "required"},
		{name: "unknown service", cfg: &config.AppConfig{Services: "http,mystery"}, wantErr: "invalid service configuration"},
		{name: "nothing enabled", cfg: &config.AppConfig{Services: " , "}, wantErr: "at least one valid service"},
		{
			name: "smtp without host",
			cfg: &config.AppConfig{
				Services: "dispatcher",
				Mail:     config.MailConfig{Transport: config.MailTransportSMTP},
			},
			wantErr: "MAIL_SMTP_HOST",
		},
		{
			name: "smtp without host is fine when dispatcher is off",
			cfg: &config.AppConfig{
				Services: "http",
				Mail:     config.MailConfig{Transport: config.MailTransportSMTP},
			},
		},
		{
			name: "log transport",
			cfg: &config.AppConfig{
				Services: "http,dispatcher,reaper",
				Mail:     config.MailConfig{Transport: config.MailTransportLog},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceConfig(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnabledServices_StableOrder(t *testing.T) {
	cfg := &config.AppConfig{Services: "reaper,http,dispatcher"}
	assert.Equal(t, []string{"http", "dispatcher", "reaper"}, GetEnabledServices(cfg))

	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Empty(t, GetEnabledServices(nil))
}

func TestBuildAdmitter(t *testing.T) {
	base := config.DispatchConfig{MaxPerWindow: 5, Window: time.Hour, Limiter: config.LimiterMemory}

	t.Run("memory", func(t *testing.T) {
		a, err := buildAdmitter(base, nil)
		require.NoError(t, err)
		assert.IsType(t, &ratelimit.Window{}, a)
	})

	t.Run("redis requires a client", func(t *testing.T) {
		cfg := base
		cfg.Limiter = config.LimiterRedis
		cfg.LimiterKey = "mailq:test"
		_, err := buildAdmitter(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis")
	})
}

func TestBuildTransport(t *testing.T) {
	t.Run("log", func(t *testing.T) {
		tr, err := buildTransport(config.MailConfig{Transport: config.MailTransportLog}, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, &mail.LogTransport{}, tr)
	})

	t.Run("smtp without host", func(t *testing.T) {
		_, err := buildTransport(config.MailConfig{Transport: config.MailTransportSMTP}, discardLogger())
		require.Error(t, err)
	})
}

func TestNewServices_RequiresDeps(t *testing.T) {
	_, err := NewServices(nil)
	require.Error(t, err)

	_, err = NewServices(&ServiceDeps{Config: &config.AppConfig{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestBuildHTTPHandler_RecoversPanics(t *testing.T) {
	router := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := buildHTTPHandler(discardLogger(), router)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := listen(context.Background(), "127.0.0.1:0", 2)
	require.NoError(t, err)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, serveParams{
			server:          server,
			listener:        ln,
			shutdownTimeout: time.Second,
			logger:          discardLogger(),
		})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}

	_, err = net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err)
}

func TestShutdownHTTPServer_NilServer(t *testing.T) {
	require.NoError(t, ShutdownHTTPServer(ShutdownConfig{}))
}

func TestRunServices_RejectsIncompleteConfig(t *testing.T) {
	require.Error(t, RunServices(context.Background(), nil))
	require.Error(t, RunServices(context.Background(), &ServiceOrchestrationConfig{Config: &config.AppConfig{}}))
}

func TestRunServices_FailingServiceIsReported(t *testing.T) {
	cfg := &ServiceOrchestrationConfig{
		Config:   &config.AppConfig{Services: "dispatcher"},
		Services: &ServiceContainer{},
		Logger:   discardLogger(),
	}
	err := RunServices(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatcher failed")
}
