// Package refresh drives the periodic recompute cycle: fetch raw rows and
// the override table, run the normalization/aggregation pipeline, and publish
// the result as an immutable snapshot.
package refresh

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"calldash/aggregate"
	"calldash/exclusions"
	"calldash/metrics"
	"calldash/transform"
)

// Snapshot states surfaced to the API. Empty is deliberately distinct from
// error: a reachable sheet with no usable rows is not a failure.
const (
	StateLoading = "loading"
	StateOK      = "ok"
	StateEmpty   = "empty"
	StateError   = "error"
)

// Fetcher supplies a raw record batch from the remote source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]transform.RawRecord, error)
}

// ErrNoFetcher is returned by Refresh when no remote source is configured.
var ErrNoFetcher = errors.New("no remote sheet configured")

// Snapshot is one fully computed batch. It is never mutated after being
// published; consumers get value copies of the header struct and must treat
// the slices as read-only.
type Snapshot struct {
	BatchID   string                      `json:"batchId"`
	State     string                      `json:"state"`
	Err       string                      `json:"error,omitempty"`
	FetchedAt time.Time                   `json:"fetchedAt"`
	Uploaded  bool                        `json:"uploaded"`
	RawCount  int                         `json:"rawCount"`
	Records   []transform.CanonicalRecord `json:"-"`
	Reasons   aggregate.ReasonRollup      `json:"-"`
	Numbers   []aggregate.NumberEntry     `json:"-"`
	Summary   aggregate.Summary           `json:"-"`
}

// Runner recomputes snapshots on start, on a fixed interval, on demand, and
// when the override table changes. The pipeline itself is pure; the runner
// owns all the shared state.
type Runner struct {
	fetcher        Fetcher
	loadExclusions func() exclusions.Table
	interval       time.Duration
	metrics        *metrics.Metrics

	trigger chan struct{}

	mu       sync.RWMutex
	snap     Snapshot
	raws     []transform.RawRecord
	haveRaws bool
	uploaded bool
	lastErr  string
}

// NewRunner constructs a runner. fetcher may be nil when no remote sheet is
// configured; the runner then serves uploads only.
func NewRunner(fetcher Fetcher, loadExclusions func() exclusions.Table, interval time.Duration, m *metrics.Metrics) *Runner {
	if loadExclusions == nil {
		loadExclusions = func() exclusions.Table { return exclusions.Table{} }
	}
	if m == nil {
		m = metrics.New()
	}
	return &Runner{
		fetcher:        fetcher,
		loadExclusions: loadExclusions,
		interval:       interval,
		metrics:        m,
		trigger:        make(chan struct{}, 1),
		snap:           Snapshot{State: StateLoading},
	}
}

// Start launches the refresh loop. It performs one refresh immediately, then
// refreshes on every tick or trigger until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		if err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrNoFetcher) {
			log.Printf("refresh: initial load failed: %v", err)
		}
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// An uploaded batch stays pinned; the sheet would
				// silently replace what the operator just loaded.
				if r.isUploaded() {
					continue
				}
				if err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrNoFetcher) {
					log.Printf("refresh: %v", err)
				}
			case <-r.trigger:
				if err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrNoFetcher) {
					log.Printf("refresh: %v", err)
				}
			}
		}
	}()
}

// TriggerRefresh requests an asynchronous refresh; duplicate requests while
// one is pending collapse into a single run.
func (r *Runner) TriggerRefresh() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Refresh fetches the sheet and the override table concurrently, recomputes
// the pipeline, and publishes the result. On failure the previous good
// snapshot stays live; only a first-ever failure publishes an error state.
// An explicit refresh always unpins an uploaded batch.
func (r *Runner) Refresh(ctx context.Context) error {
	if r.fetcher == nil {
		return ErrNoFetcher
	}

	var (
		wg    sync.WaitGroup
		raws  []transform.RawRecord
		err   error
		table exclusions.Table
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		raws, err = r.fetcher.Fetch(ctx)
	}()
	go func() {
		defer wg.Done()
		table = r.loadExclusions()
	}()
	wg.Wait()

	r.metrics.RecordRefresh(err)
	if err != nil {
		r.publishFailure(ctx, err)
		return err
	}

	snap := r.compute(raws, table, false)
	r.publish(ctx, snap, raws, false)
	return nil
}

// SetBatch installs a manually uploaded raw batch. The batch is pinned until
// the next explicit refresh so the periodic loop cannot clobber it.
func (r *Runner) SetBatch(ctx context.Context, raws []transform.RawRecord) Snapshot {
	table := r.loadExclusions()
	snap := r.compute(raws, table, true)
	r.publish(ctx, snap, raws, true)
	return snap
}

// ReloadExclusions re-applies a freshly loaded override table to the current
// raw batch without refetching the source. Used by the file watcher.
func (r *Runner) ReloadExclusions(ctx context.Context) {
	r.mu.RLock()
	raws, have, uploaded := r.raws, r.haveRaws, r.uploaded
	r.mu.RUnlock()
	if !have {
		return
	}
	snap := r.compute(raws, r.loadExclusions(), uploaded)
	r.publish(ctx, snap, raws, uploaded)
}

// Snapshot returns the current published snapshot.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// LastError returns the most recent refresh failure message, which may
// belong to a refresh that left older data live.
func (r *Runner) LastError() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

func (r *Runner) compute(raws []transform.RawRecord, table exclusions.Table, uploaded bool) Snapshot {
	records := exclusions.Apply(transform.NormalizeBatch(raws), table)
	reasons := aggregate.ByReason(records)
	numbers := aggregate.ByNumber(records)
	snap := Snapshot{
		BatchID:   uuid.NewString(),
		State:     StateOK,
		FetchedAt: time.Now().UTC(),
		Uploaded:  uploaded,
		RawCount:  len(raws),
		Records:   records,
		Reasons:   reasons,
		Numbers:   numbers,
		Summary:   aggregate.Summarize(reasons, numbers),
	}
	if len(records) == 0 {
		snap.State = StateEmpty
	}
	r.metrics.SetBatch(len(raws), len(records), len(table), snap.FetchedAt.Unix())
	return snap
}

func (r *Runner) publish(ctx context.Context, snap Snapshot, raws []transform.RawRecord, uploaded bool) {
	// A refresh that lost the race with teardown must not resurface.
	if ctx.Err() != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = snap
	r.raws = raws
	r.haveRaws = true
	r.uploaded = uploaded
	r.lastErr = ""
}

func (r *Runner) publishFailure(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err.Error()
	if r.haveRaws {
		// Keep showing the last good batch.
		return
	}
	r.snap = Snapshot{State: StateError, Err: err.Error(), FetchedAt: time.Now().UTC()}
}

func (r *Runner) isUploaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.uploaded
}
