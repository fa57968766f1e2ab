package handler

import "net/http"

// DepthReporter exposes the scheduler backlog.
type DepthReporter interface {
	QueueDepth() int
}

// StatsHandler serves a JSON snapshot of the scheduler.
// Raw Prometheus metrics are available at /metrics via promhttp.
type StatsHandler struct {
	depth DepthReporter
}

func NewStatsHandler(depth DepthReporter) *StatsHandler {
	return &StatsHandler{depth: depth}
}

// Stats handles GET /api/v1/stats
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"queue_depth": h.depth.QueueDepth()})
}
