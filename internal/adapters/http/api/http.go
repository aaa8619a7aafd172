// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shrimple-guild/leaderboard/internal/adapters/store"
	"github.com/shrimple-guild/leaderboard/internal/domain/catalog"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	RunCycle(ctx context.Context, rosterID string, timestamp int64, windowStart bool) (model.Tally, error)
	Rank(ctx context.Context, q store.RankQuery, limit int) ([]model.RankedEntry, error)
	Timeseries(ctx context.Context, q store.TimeseriesQuery) ([]model.TimeseriesPoint, error)
	PickEventMetric(ctx context.Context, candidates []string, at time.Time) (string, error)
	UpsertMetric(ctx context.Context, def catalog.Metric) error
	MetricNames() []string
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	timeseriesHandler  *TimeseriesHandler
	updateHandler      *UpdateHandler
	eventsHandler      *EventsHandler
	catalogHandler     *CatalogHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		timeseriesHandler:  NewTimeseriesHandler(deps),
		updateHandler:      NewUpdateHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		catalogHandler:     NewCatalogHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/timeseries", MetricsMiddleware(s.timeseriesHandler.HandleGetTimeseries, "timeseries"))
	mux.HandleFunc("/update", MetricsMiddleware(s.updateHandler.HandlePostUpdate, "update"))
	mux.HandleFunc("/events/pick", MetricsMiddleware(s.eventsHandler.HandlePickEvent, "events_pick"))
	mux.HandleFunc("/metrics/defs", MetricsMiddleware(s.catalogHandler.HandleMetricDefs, "metric_defs"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
