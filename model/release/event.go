package release

import "time"

// Outcome classifies the final disposition of a release attempt.
type Outcome string

const (
	// OutcomeDelivered – the full candidate quantity reached the provider.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeClipped – a reduced quantity was delivered (per-allocation cap,
	// tick budget or a pre-release hook shrank the candidate).
	OutcomeClipped Outcome = "clipped"
	// OutcomeRejected – the policy engine vetoed the release; nothing was
	// delivered.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed – the delivery provider returned an error; the quantity
	// is not considered consumed.
	OutcomeFailed Outcome = "failed"
)

// Event is an immutable record of one release attempt for one allocation on
// one tick. Units carries the raw doubling candidate before any clipping,
// DeliveredUnits the amount that actually went out.
type Event struct {
	AllocationID   string    `json:"allocationID"`
	ReleaseTime    time.Time `json:"releaseTime"`
	Tick           int       `json:"tick"`
	Units          uint64    `json:"units"`
	DeliveredUnits uint64    `json:"deliveredUnits"`
	Outcome        Outcome   `json:"outcome"`
	Error          string    `json:"error,omitempty"`
}

// Clone returns a copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}
