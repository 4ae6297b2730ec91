package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ontapvn/exam-session/internal/archive"
	"github.com/ontapvn/exam-session/internal/config"
	"github.com/ontapvn/exam-session/internal/session"
)

// NewHTTPServer wires all routes for the session host service. archiveHandlers
// is always non-nil; it answers with a service-unavailable body when no
// database is configured.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, sessionHandlers *session.HTTPHandlers, wsHandler *session.WSHandler, archiveHandlers *archive.HTTPHandlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	// Session lifecycle
	mux.HandleFunc("POST /v1/sessions", sessionHandlers.Create)
	mux.HandleFunc("GET /v1/sessions/{id}", sessionHandlers.Get)
	mux.HandleFunc("DELETE /v1/sessions/{id}", sessionHandlers.Delete)
	mux.HandleFunc("POST /v1/sessions/{id}/answers", sessionHandlers.Answer)
	mux.HandleFunc("POST /v1/sessions/{id}/navigate", sessionHandlers.Navigate)
	mux.HandleFunc("POST /v1/sessions/{id}/submit", sessionHandlers.Submit)
	mux.HandleFunc("POST /v1/sessions/{id}/token", sessionHandlers.RefreshToken)

	// Event feed
	mux.HandleFunc("GET /ws/sessions/{id}", wsHandler.HandleFeed)

	// Graded attempt archive
	mux.HandleFunc("GET /v1/attempts", archiveHandlers.List)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("http routes registered")

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}
