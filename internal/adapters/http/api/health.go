package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/loanoffer/internal/domain/types"
	"github.com/okian/loanoffer/pkg/metrics"
)

// HealthChecker reports whether the backing stores are reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check and metrics requests.
type HealthHandler struct {
	checker HealthChecker
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		if err := h.checker.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, types.HealthResponse{Status: "degraded", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}

// HandleMetrics serves the Prometheus registry on GET /metrics.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
