package api

import (
	"context"
	"net/http"
)

// StatsProvider reports service counters for GET /stats.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// StatsHandler serves a point-in-time snapshot of the service counters.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler. A nil provider serves an empty
// object.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{}
	if h.provider != nil {
		if s := h.provider.GetStats(r.Context()); s != nil {
			stats = s
		}
	}
	// Counters move on every request.
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, stats)
}
