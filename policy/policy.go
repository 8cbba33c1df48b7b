package policy

import (
	"context"

	"github.com/pencall/pencall/model/release"
)

// PreReleaseFunc is invoked with a candidate event whose DeliveredUnits holds
// the quantity the engine is about to admit.  The hook returns the quantity
// it allows: returning the same value admits the event unchanged, a smaller
// value clips it, zero or an error vetoes it.  Implementations MUST NOT
// mutate the event.
type PreReleaseFunc func(ctx context.Context, event *release.Event) (uint64, error)

// PostReleaseFunc is invoked with the finalized event after its outcome is
// known.  It runs synchronously and in emission order, but its behaviour
// cannot affect the release it describes.
type PostReleaseFunc func(ctx context.Context, event *release.Event)

// Policy represents the caps and hooks applied to every release decision.
//
//   - MaxUnitsPerAllocation bounds the cumulative units of any single
//     allocation; zero falls back to each allocation's own cap.
//   - MaxConcurrentAllocations bounds how many allocations may be active at
//     once; zero means unlimited.
//   - MaxUnitsPerTick bounds the units admitted across all allocations
//     within one tick; zero means unlimited.
type Policy struct {
	MaxUnitsPerAllocation    uint64
	MaxConcurrentAllocations int
	MaxUnitsPerTick          uint64
	PreRelease               PreReleaseFunc
	PostRelease              PostReleaseFunc
}

// ---------------------------------------------------------------------------
// Config <-> Policy converters (Config is a serialisable subset used when a
// Policy carrying hook functions cannot be persisted).
// ---------------------------------------------------------------------------

// Config represents the declarative, serialisable part of a Policy.
type Config struct {
	MaxUnitsPerAllocation    uint64 `json:"maxUnitsPerAllocation,omitempty" yaml:"maxUnitsPerAllocation,omitempty"`
	MaxConcurrentAllocations int    `json:"maxConcurrentAllocations,omitempty" yaml:"maxConcurrentAllocations,omitempty"`
	MaxUnitsPerTick          uint64 `json:"maxUnitsPerTick,omitempty" yaml:"maxUnitsPerTick,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		MaxUnitsPerAllocation:    p.MaxUnitsPerAllocation,
		MaxConcurrentAllocations: p.MaxConcurrentAllocations,
		MaxUnitsPerTick:          p.MaxUnitsPerTick,
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without
// hooks).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		MaxUnitsPerAllocation:    c.MaxUnitsPerAllocation,
		MaxConcurrentAllocations: c.MaxConcurrentAllocations,
		MaxUnitsPerTick:          c.MaxUnitsPerTick,
	}
}

// AllocationLimit returns the cumulative cap effective for an allocation
// with the supplied own cap.
func (p *Policy) AllocationLimit(cap uint64) uint64 {
	if p == nil || p.MaxUnitsPerAllocation == 0 {
		return cap
	}
	if p.MaxUnitsPerAllocation < cap {
		return p.MaxUnitsPerAllocation
	}
	return cap
}

// ConcurrencyLimit returns the active-allocations bound, zero meaning
// unlimited.
func (p *Policy) ConcurrencyLimit() int {
	if p == nil {
		return 0
	}
	return p.MaxConcurrentAllocations
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts (*Policy, ok).
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
