package provider

import (
	"context"

	"github.com/pencall/pencall/model/release"
)

// Service is the delivery capability the engine consumes but never
// implements itself.  The scheduler guarantees it is only invoked with a
// finalized event whose DeliveredUnits is greater than zero, and at most
// once per admitted event – retry policy, if any, belongs to the provider.
type Service interface {
	// Name returns the provider name used for registration and lookup.
	Name() string

	// Deliver attempts to transfer the released units described by event.
	// A returned error marks the event Failed; the quantity is then not
	// considered consumed by the engine.
	Deliver(ctx context.Context, event *release.Event) error
}
