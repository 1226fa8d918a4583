// Package http exposes a monitor.Collector as a JSON HTTP API.
package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hooklab/dispatch/monitor"
)

// Handler serves collected dispatch statistics.
//
// Routes:
//
//	GET /v1/monitor/stats              - all event types
//	GET /v1/monitor/stats/{event_type} - one event type
//	GET /v1/monitor/summary            - aggregate totals and uptime
type Handler struct {
	collector *monitor.Collector
	mux       *http.ServeMux
}

// New creates an HTTP handler over collector.
func New(collector *monitor.Collector) *Handler {
	h := &Handler{
		collector: collector,
		mux:       http.NewServeMux(),
	}
	h.mux.HandleFunc("/v1/monitor/stats", h.handleStats)
	h.mux.HandleFunc("/v1/monitor/stats/", h.handleStatsByType)
	h.mux.HandleFunc("/v1/monitor/summary", h.handleSummary)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type statsResponse struct {
	Stats []typeStats `json:"stats"`
}

type typeStats struct {
	monitor.Stats
	AvgDurationMS float64 `json:"avg_duration_ms"`
	FailureRatio  float64 `json:"failure_ratio"`
}

type summaryResponse struct {
	Dispatched   uint64  `json:"dispatched"`
	Failed       uint64  `json:"failed"`
	FailureRatio float64 `json:"failure_ratio"`
	EventTypes   int     `json:"event_types"`
	UptimeSec    float64 `json:"uptime_seconds"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snapshot := h.collector.Snapshot()
	resp := statsResponse{Stats: make([]typeStats, 0, len(snapshot))}
	for _, s := range snapshot {
		resp.Stats = append(resp.Stats, expand(s))
	}
	// Stable output ordering for scripts and humans alike.
	sort.Slice(resp.Stats, func(i, j int) bool {
		return resp.Stats[i].EventType < resp.Stats[j].EventType
	})
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStatsByType(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	eventType := strings.TrimPrefix(r.URL.Path, "/v1/monitor/stats/")
	if eventType == "" {
		h.writeError(w, http.StatusBadRequest, "event type is required")
		return
	}

	s, ok := h.collector.Stats(eventType)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no stats for event type")
		return
	}
	h.writeJSON(w, http.StatusOK, expand(s))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dispatched, failed := h.collector.Totals()
	h.writeJSON(w, http.StatusOK, summaryResponse{
		Dispatched:   dispatched,
		Failed:       failed,
		FailureRatio: h.collector.FailureRatio(),
		EventTypes:   len(h.collector.Snapshot()),
		UptimeSec:    time.Since(h.collector.Started()).Seconds(),
	})
}

func expand(s monitor.Stats) typeStats {
	return typeStats{
		Stats:         s,
		AvgDurationMS: float64(s.AvgDuration()) / float64(time.Millisecond),
		FailureRatio:  s.FailureRatio(),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, map[string]string{"error": msg})
}
