package allocation

import "time"

// Allocation is a registered, capped unit of resource release. ID, Cap,
// BaseUnits and CreatedAt are immutable once registered; the remaining
// fields are mutated exclusively by the registry service.
type Allocation struct {
	ID        string `json:"id"`
	Cap       uint64 `json:"cap"`
	BaseUnits uint64 `json:"baseUnits"`

	// InitialUnits optionally overrides the quantity released on the first
	// active tick; zero means "use BaseUnits".
	InitialUnits uint64 `json:"initialUnits,omitempty"`

	TickCount     int       `json:"tickCount"`
	TotalReleased uint64    `json:"totalReleased"`
	State         State     `json:"state"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Clone returns a deep copy so callers can inspect state without racing
// against the registry.
func (a *Allocation) Clone() *Allocation {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Remaining returns the units still releasable within Cap.
func (a *Allocation) Remaining() uint64 {
	if a.TotalReleased >= a.Cap {
		return 0
	}
	return a.Cap - a.TotalReleased
}

// FirstTickUnits returns the quantity used as the doubling base on tick zero.
func (a *Allocation) FirstTickUnits() uint64 {
	if a.InitialUnits > 0 {
		return a.InitialUnits
	}
	return a.BaseUnits
}
