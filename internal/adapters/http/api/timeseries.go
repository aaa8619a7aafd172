// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shrimple-guild/leaderboard/internal/adapters/store"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
)

// TimeseriesDependencies defines the interface for history queries.
type TimeseriesDependencies interface {
	Timeseries(ctx context.Context, q store.TimeseriesQuery) ([]model.TimeseriesPoint, error)
}

// TimeseriesHandler handles per-profile history requests.
type TimeseriesHandler struct {
	deps TimeseriesDependencies
}

// NewTimeseriesHandler creates a new timeseries handler.
func NewTimeseriesHandler(deps TimeseriesDependencies) *TimeseriesHandler {
	return &TimeseriesHandler{deps: deps}
}

// HandleGetTimeseries handles GET /timeseries requests.
// Query parameters: username, profile, metric (all required), start, end
// (optional unix milliseconds).
func (h *TimeseriesHandler) HandleGetTimeseries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	username := strings.TrimSpace(q.Get("username"))
	profile := strings.TrimSpace(q.Get("profile"))
	metric := strings.TrimSpace(q.Get("metric"))
	if username == "" || profile == "" || metric == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: username, profile and metric are required", ErrBadRequest))
		return
	}

	start, err := optionalMillis(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid start", ErrBadRequest))
		return
	}
	end, err := optionalMillis(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid end", ErrBadRequest))
		return
	}

	points, err := h.deps.Timeseries(r.Context(), store.TimeseriesQuery{
		Username: username,
		Profile:  profile,
		Metric:   metric,
		Start:    start,
		End:      end,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if points == nil {
		points = []model.TimeseriesPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}
