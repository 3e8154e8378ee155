// Package httpapi serves the dashboard data plane: records, aggregates,
// summary counters, the upload fallback, and ops endpoints.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"calldash/aggregate"
	"calldash/internal/refresh"
	"calldash/metrics"
	"calldash/source"
	"calldash/transform"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxUploadBytes  = 16 << 20
)

// Router builds the HTTP handlers.
type Router struct {
	runner  *refresh.Runner
	metrics *metrics.Metrics
}

func NewRouter(runner *refresh.Runner, m *metrics.Metrics) *Router {
	return &Router{runner: runner, metrics: m}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/records", r.records)
	mux.HandleFunc("/api/reasons", r.reasons)
	mux.HandleFunc("/api/numbers", r.numbers)
	mux.HandleFunc("/api/summary", r.summary)
	mux.HandleFunc("/api/upload", r.upload)
	mux.HandleFunc("/ops/refresh", r.refresh)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/health", r.health)
}

// records serves the searchable, paginated table. q matches number, quantity,
// caller, and reason as a case-insensitive substring; reason is an exact
// filter. Pages are 1-based.
func (r *Router) records(w http.ResponseWriter, req *http.Request) {
	snap := r.runner.Snapshot()
	query := strings.ToLower(strings.TrimSpace(req.URL.Query().Get("q")))
	reasonFilter := req.URL.Query().Get("reason")

	filtered := make([]transform.CanonicalRecord, 0, len(snap.Records))
	for _, rec := range snap.Records {
		if reasonFilter != "" && rec.Reason != reasonFilter {
			continue
		}
		if query != "" && !matchesQuery(rec, query) {
			continue
		}
		filtered = append(filtered, rec)
	}

	page := queryInt(req, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := queryInt(req, "per_page", defaultPageSize)
	if perPage < 1 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	start := (page - 1) * perPage
	end := start + perPage
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	respondJSON(w, map[string]any{
		"state":   snap.State,
		"batchId": snap.BatchID,
		"total":   len(filtered),
		"page":    page,
		"perPage": perPage,
		"reasons": distinctReasons(snap.Records),
		"records": filtered[start:end],
	})
}

func matchesQuery(rec transform.CanonicalRecord, query string) bool {
	return strings.Contains(strings.ToLower(rec.NumberCalled), query) ||
		strings.Contains(strconv.Itoa(rec.Quantity), query) ||
		strings.Contains(strings.ToLower(rec.WhoCalled), query) ||
		strings.Contains(strings.ToLower(rec.Reason), query)
}

func distinctReasons(records []transform.CanonicalRecord) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, rec := range records {
		reason := rec.Reason
		if reason == "" {
			reason = transform.NoReason
		}
		if _, ok := seen[reason]; ok {
			continue
		}
		seen[reason] = struct{}{}
		out = append(out, reason)
	}
	sort.Strings(out)
	return out
}

// reasons serves the bar-chart/top-N aggregate; limit trims to the top N
// entries.
func (r *Router) reasons(w http.ResponseWriter, req *http.Request) {
	snap := r.runner.Snapshot()
	rollup := snap.Reasons
	if limit := queryInt(req, "limit", 0); limit > 0 && limit < len(rollup.Entries) {
		trimmed := make([]aggregate.ReasonEntry, limit)
		copy(trimmed, rollup.Entries[:limit])
		rollup.Entries = trimmed
	}
	respondJSON(w, map[string]any{
		"state":   snap.State,
		"total":   rollup.Total,
		"entries": rollup.Entries,
	})
}

func (r *Router) numbers(w http.ResponseWriter, req *http.Request) {
	snap := r.runner.Snapshot()
	entries := snap.Numbers
	if entries == nil {
		entries = []aggregate.NumberEntry{}
	}
	respondJSON(w, map[string]any{
		"state":   snap.State,
		"entries": entries,
	})
}

func (r *Router) summary(w http.ResponseWriter, req *http.Request) {
	snap := r.runner.Snapshot()
	payload := map[string]any{
		"state":     snap.State,
		"batchId":   snap.BatchID,
		"fetchedAt": snap.FetchedAt,
		"uploaded":  snap.Uploaded,
		"summary":   snap.Summary,
	}
	if snap.Err != "" {
		payload["error"] = snap.Err
	}
	if last := r.runner.LastError(); last != "" {
		payload["lastRefreshError"] = last
	}
	respondJSON(w, payload)
}

// upload accepts a workbook as multipart form field "file" and installs it
// as the live batch.
func (r *Router) upload(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	file, header, err := req.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	raws, err := source.ParseWorkbook(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap := r.runner.SetBatch(req.Context(), raws)
	log.Printf("httpapi: uploaded %s (%d raw rows, batch %s)", header.Filename, snap.RawCount, snap.BatchID)
	respondJSON(w, map[string]any{
		"state":   snap.State,
		"batchId": snap.BatchID,
		"summary": snap.Summary,
	})
}

func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.runner.Refresh(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	snap := r.runner.Snapshot()
	respondJSON(w, map[string]any{
		"state":   snap.State,
		"batchId": snap.BatchID,
		"summary": snap.Summary,
	})
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	snap := r.runner.Snapshot()
	respondJSON(w, map[string]any{
		"state":   snap.State,
		"batchId": snap.BatchID,
		"metrics": r.metrics.Snapshot(),
	})
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(req *http.Request, key string, def int) int {
	v := req.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
