// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shrimple-guild/leaderboard/internal/domain/model"
)

// UpdateDependencies defines the interface for triggering ingestion cycles.
type UpdateDependencies interface {
	RunCycle(ctx context.Context, rosterID string, timestamp int64, windowStart bool) (model.Tally, error)
}

// UpdateHandler handles on-demand ingestion cycle requests.
type UpdateHandler struct {
	deps UpdateDependencies
}

// NewUpdateHandler creates a new update handler.
func NewUpdateHandler(deps UpdateDependencies) *UpdateHandler {
	return &UpdateHandler{deps: deps}
}

// updateRequest mirrors the POST /update body. Timestamp defaults to the
// current time when omitted.
type updateRequest struct {
	Roster      string `json:"roster"`
	Timestamp   *int64 `json:"timestamp,omitempty"`
	WindowStart bool   `json:"window_start,omitempty"`
}

// HandlePostUpdate handles POST /update requests. The response is the
// cycle tally; partial failure still returns 200 with the counts.
func (h *UpdateHandler) HandlePostUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Roster) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing roster", ErrBadRequest))
		return
	}

	timestamp := time.Now().UnixMilli()
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	tally, err := h.deps.RunCycle(r.Context(), req.Roster, timestamp, req.WindowStart)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}
