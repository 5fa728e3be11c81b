package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	healthResponse   = `{"status":"ok"}`
	readyTimeout     = 2 * time.Second
	notReadyResponse = `{"status":"unavailable"}`
)

// ReadinessChecker reports whether the durable store can serve requests.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, r, http.StatusOK, healthResponse)
}

// readyHandler pings the store and answers 503 until it responds.
func readyHandler(checker ReadinessChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeStatus(w, r, http.StatusOK, healthResponse)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := checker.Ready(ctx); err != nil {
			if logger != nil {
				logger.WarnContext(r.Context(), "readiness check failed", "error", err)
			}
			writeStatus(w, r, http.StatusServiceUnavailable, notReadyResponse)
			return
		}
		writeStatus(w, r, http.StatusOK, healthResponse)
	}
}

func writeStatus(w http.ResponseWriter, r *http.Request, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, body); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
