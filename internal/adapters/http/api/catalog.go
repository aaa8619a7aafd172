// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shrimple-guild/leaderboard/internal/domain/catalog"
)

// CatalogDependencies defines the interface for metric definition management.
type CatalogDependencies interface {
	UpsertMetric(ctx context.Context, def catalog.Metric) error
	MetricNames() []string
}

// CatalogHandler handles metric definition requests.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

// metricDefRequest mirrors the PUT /metrics/defs body.
type metricDefRequest struct {
	Name    string `json:"name"`
	Counter string `json:"counter"`
	Path    string `json:"path,omitempty"`
	Formula string `json:"formula,omitempty"`
}

// HandleMetricDefs handles GET and PUT /metrics/defs requests. GET lists
// the known metric names; PUT registers or redefines one metric.
func (h *CatalogHandler) HandleMetricDefs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.MetricNames())
	case http.MethodPut:
		var req metricDefRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		def := catalog.Metric{
			Name:    req.Name,
			Counter: req.Counter,
			Path:    req.Path,
			Formula: req.Formula,
		}
		if err := h.deps.UpsertMetric(r.Context(), def); err != nil {
			writeError(w, http.StatusBadRequest, "bad_metric", err)
			return
		}
		writeJSON(w, http.StatusOK, def)
	default:
		http.NotFound(w, r)
	}
}
