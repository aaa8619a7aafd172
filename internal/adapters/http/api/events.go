// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shrimple-guild/leaderboard/internal/domain/random"
)

// EventsDependencies defines the interface for verifiable event selection.
type EventsDependencies interface {
	PickEventMetric(ctx context.Context, candidates []string, at time.Time) (string, error)
	MetricNames() []string
}

// EventsHandler handles event metric selection requests.
type EventsHandler struct {
	deps EventsDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventsDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// pickRequest mirrors the POST /events/pick body. An empty candidate list
// means the whole catalog. Time defaults to now; anyone holding the chain
// parameters can replay the same time and candidates to audit the pick.
type pickRequest struct {
	Candidates []string `json:"candidates,omitempty"`
	Time       *int64   `json:"time,omitempty"`
}

type pickResponse struct {
	Picked     string   `json:"picked"`
	Candidates []string `json:"candidates"`
	Time       int64    `json:"time"`
}

// HandlePickEvent handles POST /events/pick requests.
func (h *EventsHandler) HandlePickEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req pickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	candidates := req.Candidates
	if len(candidates) == 0 {
		candidates = h.deps.MetricNames()
	}
	at := time.Now()
	if req.Time != nil {
		at = time.UnixMilli(*req.Time)
	}

	picked, err := h.deps.PickEventMetric(r.Context(), candidates, at)
	switch {
	case errors.Is(err, random.ErrNoCandidates):
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	case errors.Is(err, random.ErrExhausted):
		writeError(w, http.StatusConflict, "randomness_exhausted", err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "upstream_error", err)
		return
	}

	writeJSON(w, http.StatusOK, pickResponse{
		Picked:     picked,
		Candidates: candidates,
		Time:       at.UnixMilli(),
	})
}
