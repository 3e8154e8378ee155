// Package metrics tracks operational counters for the refresh loop.
package metrics

import "sync/atomic"

// Metrics captures shared stats for refreshes and the live batch.
type Metrics struct {
	refreshes       int64
	refreshFailures int64

	rawRows       int64
	keptRows      int64
	overrideRows  int64
	lastRefreshAt int64
}

// Snapshot is a consistent read-only view of the current metrics.
type Snapshot struct {
	Refreshes       int64 `json:"refreshes"`
	RefreshFailures int64 `json:"refreshFailures"`
	RawRows         int   `json:"rawRows"`
	KeptRows        int   `json:"keptRows"`
	OverrideRows    int   `json:"overrideRows"`
	LastRefreshUnix int64 `json:"lastRefreshUnix"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// RecordRefresh counts a refresh attempt and its outcome.
func (m *Metrics) RecordRefresh(err error) {
	atomic.AddInt64(&m.refreshes, 1)
	if err != nil {
		atomic.AddInt64(&m.refreshFailures, 1)
	}
}

// SetBatch records the size of the batch that just went live.
func (m *Metrics) SetBatch(raw, kept, overrides int, atUnix int64) {
	atomic.StoreInt64(&m.rawRows, int64(raw))
	atomic.StoreInt64(&m.keptRows, int64(kept))
	atomic.StoreInt64(&m.overrideRows, int64(overrides))
	atomic.StoreInt64(&m.lastRefreshAt, atUnix)
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Refreshes:       atomic.LoadInt64(&m.refreshes),
		RefreshFailures: atomic.LoadInt64(&m.refreshFailures),
		RawRows:         int(atomic.LoadInt64(&m.rawRows)),
		KeptRows:        int(atomic.LoadInt64(&m.keptRows)),
		OverrideRows:    int(atomic.LoadInt64(&m.overrideRows)),
		LastRefreshUnix: atomic.LoadInt64(&m.lastRefreshAt),
	}
}
