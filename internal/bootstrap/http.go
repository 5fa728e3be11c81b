package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/target/mailq/config"
	httpx "github.com/target/mailq/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	HTTP     config.HTTPConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// RunHTTPServer listens on the configured address and serves the API until ctx is cancelled,
// then drains in-flight requests for up to HTTP.ShutdownTimeout.
func RunHTTPServer(ctx context.Context, cfg HTTPServerConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Services == nil {
		return errors.New("http server requires services")
	}

	server := newHTTPServer(cfg, logger)
	ln, err := listen(ctx, server.Addr, cfg.HTTP.MaxConnections)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "starting HTTP server", "addr", ln.Addr().String(), "max_connections", cfg.HTTP.MaxConnections)

	return serve(ctx, serveParams{
		server:          server,
		listener:        ln,
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
		logger:          logger,
	})
}

func newHTTPServer(cfg HTTPServerConfig, logger *slog.Logger) *http.Server {
	router := httpx.NewRouter(httpx.RouterServices{
		Intake:             cfg.Services.Intake,
		Query:              cfg.Services.Query,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		MaxUploadBytes:     cfg.HTTP.MaxUploadBytes,
		Logger:             logger,
	})

	addr := cfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:              addr,
		Handler:           buildHTTPHandler(logger, router),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// buildHTTPHandler wraps the router. Order: Recover -> Logging -> Router.
func buildHTTPHandler(logger *slog.Logger, router http.Handler) http.Handler {
	h := httpx.Logging(logger)(router)
	return httpx.Recover(logger)(h)
}

// listen opens addr and caps concurrent connections when maxConns is positive.
func listen(ctx context.Context, addr string, maxConns int) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

type serveParams struct {
	server          *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

func serve(ctx context.Context, p serveParams) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.server.Serve(p.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	if err := ShutdownHTTPServer(ShutdownConfig{
		Context: context.WithoutCancel(ctx),
		Server:  p.server,
		Timeout: p.shutdownTimeout,
		Logger:  p.logger,
	}); err != nil {
		return err
	}
	// Serve has returned ErrServerClosed by now.
	<-errCh
	return nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
