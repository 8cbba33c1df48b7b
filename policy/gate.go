package policy

import (
	"context"
	"sync"

	"github.com/pencall/pencall/model/allocation"
	"github.com/pencall/pencall/model/release"
)

// Gate applies a Policy to candidate releases on behalf of one engine
// instance.  Its only mutable state is the per-tick admitted-units counter,
// which the scheduler resets at the start of every tick.  The gate is safe
// for concurrent use should allocation processing ever be parallelised.
type Gate struct {
	policy   *Policy
	mu       sync.Mutex
	admitted uint64
}

// NewGate creates a gate for the supplied policy; a nil policy admits
// everything.
func NewGate(p *Policy) *Gate {
	return &Gate{policy: p}
}

// Policy exposes the gate's policy for read-only inspection.
func (g *Gate) Policy() *Policy { return g.policy }

// BeginTick resets the per-tick admitted counter.
func (g *Gate) BeginTick() {
	g.mu.Lock()
	g.admitted = 0
	g.mu.Unlock()
}

// Admitted returns the units admitted since the last BeginTick.
func (g *Gate) Admitted() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admitted
}

// Admit evaluates a candidate event against the policy.  The event's
// DeliveredUnits carries the quantity the scheduler already clipped to the
// allocation's own cap.  Checks run in order: per-tick budget, per-allocation
// cap (re-validated independently of the scheduler, defending against
// configuration drift), then the pre-release hook.
//
// The returned quantity is what the policy grants: zero means the event is
// rejected; a non-nil error carries the hook's veto reason.  Granted units
// are charged against the tick budget immediately – a later provider failure
// does not refund them, the budget tracks admission, not delivery.
func (g *Gate) Admit(ctx context.Context, alloc *allocation.Allocation, event *release.Event) (uint64, error) {
	granted := event.DeliveredUnits
	if granted == 0 {
		return 0, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.policy != nil && g.policy.MaxUnitsPerTick > 0 {
		budget := g.policy.MaxUnitsPerTick
		if g.admitted >= budget {
			return 0, nil
		}
		if remaining := budget - g.admitted; granted > remaining {
			granted = remaining
		}
	}

	limit := g.policy.AllocationLimit(alloc.Cap)
	if alloc.TotalReleased >= limit {
		return 0, nil
	}
	if headroom := limit - alloc.TotalReleased; granted > headroom {
		granted = headroom
	}

	if g.policy != nil && g.policy.PreRelease != nil {
		candidate := event.Clone()
		candidate.DeliveredUnits = granted
		allowed, err := g.policy.PreRelease(ctx, candidate)
		if err != nil {
			return 0, err
		}
		if allowed < granted {
			granted = allowed
		}
	}
	if granted == 0 {
		return 0, nil
	}

	g.admitted += granted
	return granted, nil
}

// AfterRelease invokes the post-release hook, if any, with the finalized
// event.
func (g *Gate) AfterRelease(ctx context.Context, event *release.Event) {
	if g.policy == nil || g.policy.PostRelease == nil {
		return
	}
	g.policy.PostRelease(ctx, event)
}
