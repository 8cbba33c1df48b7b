package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the scheduler.
// The event counters are signed and therefore can be either positive
// (increment) or negative (decrement); UnitsReleased carries full uint64
// quantities so caps near the integer limit do not truncate.
type Delta struct {
	Delivered            int
	Clipped              int
	Rejected             int
	Failed               int
	UnitsReleased        uint64
	CompletedAllocations int
}

// Progress keeps aggregated release counters for an engine run.  It is safe
// for concurrent use.
type Progress struct {
	// Identification, informative only, filled when the run starts.
	EngineID  string
	StartedAt time.Time

	// Counters, modified via Update().
	Ticks                int
	DeliveredEvents      int
	ClippedEvents        int
	RejectedEvents       int
	FailedEvents         int
	UnitsReleased        uint64
	CompletedAllocations int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta to the tracker.  It is safe to call from
// multiple goroutines.  If an onChange callback has been registered it will
// be invoked with a copy of the updated tracker outside the critical section
// so that the callback can perform slow operations (e.g. JSON encoding, I/O)
// without blocking engine internals.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.Lock()

	p.DeliveredEvents += d.Delivered
	p.ClippedEvents += d.Clipped
	p.RejectedEvents += d.Rejected
	p.FailedEvents += d.Failed
	p.UnitsReleased += d.UnitsReleased
	p.CompletedAllocations += d.CompletedAllocations

	snapshot := *p
	cb := p.onChange

	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// TickDone increments the processed tick counter.
func (p *Progress) TickDone() {
	if p == nil {
		return
	}
	p.Lock()
	p.Ticks++
	snapshot := *p
	cb := p.onChange
	p.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return *p
}

// OnChange registers a callback that is invoked after every successful
// Update.  Passing nil disables the callback.  Only one callback can be
// active; subsequent calls overwrite the previous value.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Progress tracker, embeds it in a derived
// context and returns both.  The caller may optionally pass an onChange
// callback that will be invoked after every counter update.
func WithNewTracker(ctx context.Context, engineID string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		EngineID:  engineID,
		StartedAt: time.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Progress tracker from ctx.  It returns (tracker,
// ok).  The second return value is false when the context carries no tracker.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}
