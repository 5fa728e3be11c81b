package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/mailq/internal/service"
)

// RouterServices holds everything the HTTP router serves.
type RouterServices struct {
	Intake *service.IntakeService // Required
	Query  *service.QueryService  // Required

	// CORSAllowedOrigins is passed to the CORS middleware; empty disables it.
	CORSAllowedOrigins []string
	MaxUploadBytes     int64
	Logger             *slog.Logger
}

// NewRouter creates the API router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	emails := &EmailHandlers{
		Intake:         services.Intake,
		Query:          services.Query,
		MaxUploadBytes: services.MaxUploadBytes,
		Logger:         logger,
	}
	registerEmailRoutes(mux, emails)

	var checker ReadinessChecker
	if services.Query != nil {
		checker = services.Query
	}
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(checker, logger))

	if len(services.CORSAllowedOrigins) == 0 {
		return mux
	}
	return CORS(services.CORSAllowedOrigins)(mux)
}

func registerEmailRoutes(mux *http.ServeMux, h *EmailHandlers) {
	mux.HandleFunc("POST /api/schedule-emails", h.ScheduleEmails)
	mux.HandleFunc("GET /api/emails", h.ListEmails)
	mux.HandleFunc("GET /api/emails/{id}", h.GetEmail)
	mux.HandleFunc("POST /api/emails/{id}/retry", h.RetryEmail)
	mux.HandleFunc("GET /api/sent-emails", h.ListSentEmails)
	mux.HandleFunc("GET /api/dispatch/stats", h.DispatchStats)
}
