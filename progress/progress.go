// Package progress provides a lightweight tracker that keeps aggregated task
// counters (total, running, completed, …) for a single manifest run.  The
// tracker instance lives in the run context – every component that receives
// the context can atomically update the counters via the Delta helper without
// requiring a global registry.

package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the runner.  The
// fields are signed and therefore can be either positive (increment) or
// negative (decrement).
type Delta struct {
	Total     int
	Running   int
	Completed int
	Failed    int
	Skipped   int
}

// Snapshot is a read-only copy of the tracker counters.
type Snapshot struct {
	Manifest  string
	StartedAt time.Time

	TotalTasks     int
	RunningTasks   int
	CompletedTasks int
	FailedTasks    int
	SkippedTasks   int
}

// Progress keeps aggregated task counters for a manifest run.  It is safe for
// concurrent use.
type Progress struct {
	// Identification – informative only, filled when the run starts.
	manifest  string
	startedAt time.Time

	mu sync.Mutex

	// Counters – modified via Update().
	totalTasks     int
	runningTasks   int
	completedTasks int
	failedTasks    int
	skippedTasks   int

	onChange func(Snapshot)
}

// Update applies the supplied delta to the tracker.  It is safe to call from
// multiple goroutines.  If an onChange callback has been registered it will
// be invoked with a snapshot of the updated tracker outside the critical
// section so that the callback can perform slow operations (e.g. JSON
// encoding, I/O) without blocking the runner.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.mu.Lock()

	p.totalTasks += d.Total
	p.runningTasks += d.Running
	p.completedTasks += d.Completed
	p.failedTasks += d.Failed
	p.skippedTasks += d.Skipped

	// Take the snapshot while we still hold the lock to avoid seeing
	// partially updated counters.
	snapshot := p.snapshot()
	cb := p.onChange

	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Progress) snapshot() Snapshot {
	return Snapshot{
		Manifest:       p.manifest,
		StartedAt:      p.startedAt,
		TotalTasks:     p.totalTasks,
		RunningTasks:   p.runningTasks,
		CompletedTasks: p.completedTasks,
		FailedTasks:    p.failedTasks,
		SkippedTasks:   p.skippedTasks,
	}
}

// OnChange registers a callback that is invoked after every successful
// Update.  Passing nil disables the callback.  Only one callback can be
// active; subsequent calls overwrite the previous value.
func (p *Progress) OnChange(cb func(Snapshot)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Progress tracker, embeds it in a derived
// context and returns both.  The caller may optionally pass an onChange
// callback that will be invoked after every counter update.
func WithNewTracker(ctx context.Context, manifest string, onChange func(Snapshot)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		manifest:  manifest,
		startedAt: time.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Progress tracker from ctx.  The second return
// value is false when the context carries no tracker.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// GetSnapshot is a convenience wrapper that combines FromContext and
// Snapshot.  The boolean return value is false when the context does not
// carry a tracker.
func GetSnapshot(ctx context.Context) (Snapshot, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Snapshot{}, false
}

// UpdateCtx is a helper that looks up the tracker in ctx (if any) and applies
// the supplied delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
