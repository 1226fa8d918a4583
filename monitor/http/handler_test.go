package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hooklab/dispatch/monitor"
)

func seededCollector() *monitor.Collector {
	c := monitor.NewCollector()
	c.Record("invoice.paid", 10*time.Millisecond, nil)
	c.Record("invoice.paid", 10*time.Millisecond, errors.New("boom"))
	c.Record("charge.succeeded", 5*time.Millisecond, nil)
	return c
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatsListsAllTypesSorted(t *testing.T) {
	h := New(seededCollector())
	rec := get(t, h, "/v1/monitor/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Stats []struct {
			EventType  string `json:"event_type"`
			Dispatched uint64 `json:"dispatched"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Stats) != 2 {
		t.Fatalf("stats count = %d, want 2", len(resp.Stats))
	}
	if resp.Stats[0].EventType != "charge.succeeded" || resp.Stats[1].EventType != "invoice.paid" {
		t.Fatalf("unsorted stats: %+v", resp.Stats)
	}
}

func TestStatsByType(t *testing.T) {
	h := New(seededCollector())
	rec := get(t, h, "/v1/monitor/stats/invoice.paid")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var s struct {
		Dispatched   uint64  `json:"dispatched"`
		Failed       uint64  `json:"failed"`
		LastError    string  `json:"last_error"`
		FailureRatio float64 `json:"failure_ratio"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Dispatched != 2 || s.Failed != 1 || s.LastError != "boom" {
		t.Fatalf("stats = %+v", s)
	}
	if s.FailureRatio != 0.5 {
		t.Errorf("failure ratio = %v, want 0.5", s.FailureRatio)
	}
}

func TestStatsByTypeNotFound(t *testing.T) {
	h := New(seededCollector())
	if rec := get(t, h, "/v1/monitor/stats/never.seen"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	h := New(seededCollector())
	rec := get(t, h, "/v1/monitor/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var s struct {
		Dispatched uint64 `json:"dispatched"`
		Failed     uint64 `json:"failed"`
		EventTypes int    `json:"event_types"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Dispatched != 3 || s.Failed != 1 || s.EventTypes != 2 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(seededCollector())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/monitor/stats", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
