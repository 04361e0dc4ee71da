package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/aggregate"
	"github.com/couchcryptid/storm-data-dashboard/internal/dashboard"
	"github.com/couchcryptid/storm-data-dashboard/internal/filter"
	"github.com/couchcryptid/storm-data-dashboard/internal/query"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Views is the dashboard state served over HTTP. It is implemented by
// dashboard.ViewSync.
type Views interface {
	sharedobs.ReadinessChecker
	Snapshot() dashboard.Snapshot
	Subscribe() (<-chan dashboard.Snapshot, func())
	UpdateFilters(u filter.Update) (dashboard.Snapshot, error)
	ResetFilter(field filter.Field) dashboard.Snapshot
	SetDate(ctx context.Context, from, to time.Time, rangeOn bool) (dashboard.Snapshot, error)
	SetColorMode(mode aggregate.ColorMode) dashboard.Snapshot
	MarkerDetail(ctx context.Context, reportID string) (aggregate.Popup, error)
}

// Console is the query console served over HTTP. It is implemented by
// query.Console.
type Console interface {
	State() query.State
	SetEditable(editable bool) query.State
	SetText(text string) (query.State, error)
	TogglePanel() query.State
	Run(ctx context.Context) (query.Execution, error)
}

// Server exposes the dashboard API plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	views      Views
	console    Console
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api/v1 routes, /healthz,
// /readyz, and /metrics.
func NewServer(addr string, views Views, console Console, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		views:    views,
		console:  console,
		validate: newValidator(),
		logger:   logger,
	}

	mux.HandleFunc("GET /api/v1/view", s.handleView)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("PATCH /api/v1/filters", s.handleUpdateFilters)
	mux.HandleFunc("DELETE /api/v1/filters/{field}", s.handleResetFilter)
	mux.HandleFunc("PUT /api/v1/date", s.handleSetDate)
	mux.HandleFunc("PUT /api/v1/map/color-mode", s.handleSetColorMode)
	mux.HandleFunc("GET /api/v1/markers/{id}", s.handleMarker)

	mux.HandleFunc("GET /api/v1/query", s.handleQueryState)
	mux.HandleFunc("PUT /api/v1/query", s.handleUpdateQuery)
	mux.HandleFunc("POST /api/v1/query/run", s.handleRunQuery)
	mux.HandleFunc("POST /api/v1/query/panel", s.handleTogglePanel)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(views))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
