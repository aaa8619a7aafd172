// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shrimple-guild/leaderboard/internal/adapters/store"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
)

// LeaderboardDependencies defines the interface for leaderboard queries.
type LeaderboardDependencies interface {
	Rank(ctx context.Context, q store.RankQuery, limit int) ([]model.RankedEntry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard requests.
// Query parameters: metric (required), roster (required, repeatable),
// start, end (optional unix milliseconds), limit.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	metric := strings.TrimSpace(q.Get("metric"))
	if metric == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing metric", ErrBadRequest))
		return
	}
	rosters := q["roster"]
	if len(rosters) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing roster", ErrBadRequest))
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
	if start != nil && end != nil && *end < *start {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: end precedes start", ErrBadRequest))
		return
	}

	limit := h.maxLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid limit", ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: limit above %d", ErrBadRequest, h.maxLimit))
			return
		}
		limit = n
	}

	entries, err := h.deps.Rank(r.Context(), store.RankQuery{
		RosterIDs: rosters,
		Metric:    metric,
		Start:     start,
		End:       end,
	}, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if entries == nil {
		entries = []model.RankedEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// optionalMillis parses an optional unix-millisecond query value.
func optionalMillis(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &ms, nil
}
