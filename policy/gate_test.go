package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pencall/pencall/model/allocation"
	"github.com/pencall/pencall/model/release"
)

func newCandidate(id string, units uint64) *release.Event {
	return &release.Event{AllocationID: id, Units: units, DeliveredUnits: units}
}

func TestGateTickBudget(t *testing.T) {
	gate := NewGate(&Policy{MaxUnitsPerTick: 3})
	ctx := context.Background()
	alloc := &allocation.Allocation{ID: "a", Cap: 100}

	granted, err := gate.Admit(ctx, alloc, newCandidate("a", 2))
	assert.NoError(t, err)
	assert.EqualValues(t, 2, granted)

	// only one unit of budget left, the candidate gets clipped
	granted, err = gate.Admit(ctx, alloc, newCandidate("a", 4))
	assert.NoError(t, err)
	assert.EqualValues(t, 1, granted)

	// budget exhausted, the candidate is rejected outright
	granted, err = gate.Admit(ctx, alloc, newCandidate("a", 1))
	assert.NoError(t, err)
	assert.EqualValues(t, 0, granted)

	// a new tick resets the budget
	gate.BeginTick()
	granted, err = gate.Admit(ctx, alloc, newCandidate("a", 2))
	assert.NoError(t, err)
	assert.EqualValues(t, 2, granted)
	assert.EqualValues(t, 2, gate.Admitted())
}

func TestGateAllocationCap(t *testing.T) {
	gate := NewGate(&Policy{MaxUnitsPerAllocation: 10})
	ctx := context.Background()

	alloc := &allocation.Allocation{ID: "a", Cap: 100, TotalReleased: 8}
	granted, err := gate.Admit(ctx, alloc, newCandidate("a", 4))
	assert.NoError(t, err)
	assert.EqualValues(t, 2, granted)

	alloc = &allocation.Allocation{ID: "b", Cap: 100, TotalReleased: 10}
	granted, err = gate.Admit(ctx, alloc, newCandidate("b", 4))
	assert.NoError(t, err)
	assert.EqualValues(t, 0, granted)
}

func TestGatePreReleaseHook(t *testing.T) {
	vetoErr := errors.New("not today")
	gate := NewGate(&Policy{
		PreRelease: func(_ context.Context, event *release.Event) (uint64, error) {
			if event.AllocationID == "veto" {
				return 0, vetoErr
			}
			if event.DeliveredUnits > 2 {
				return 2, nil
			}
			return event.DeliveredUnits, nil
		},
	})
	ctx := context.Background()

	granted, err := gate.Admit(ctx, &allocation.Allocation{ID: "a", Cap: 100}, newCandidate("a", 8))
	assert.NoError(t, err)
	assert.EqualValues(t, 2, granted)

	granted, err = gate.Admit(ctx, &allocation.Allocation{ID: "veto", Cap: 100}, newCandidate("veto", 1))
	assert.ErrorIs(t, err, vetoErr)
	assert.EqualValues(t, 0, granted)
}

func TestGateNilPolicy(t *testing.T) {
	gate := NewGate(nil)
	granted, err := gate.Admit(context.Background(), &allocation.Allocation{ID: "a", Cap: 10}, newCandidate("a", 4))
	assert.NoError(t, err)
	assert.EqualValues(t, 4, granted)
}

func TestConfigRoundTrip(t *testing.T) {
	p := &Policy{MaxUnitsPerAllocation: 5, MaxConcurrentAllocations: 2, MaxUnitsPerTick: 9}
	restored := FromConfig(ToConfig(p))
	assert.Equal(t, p.MaxUnitsPerAllocation, restored.MaxUnitsPerAllocation)
	assert.Equal(t, p.MaxConcurrentAllocations, restored.MaxConcurrentAllocations)
	assert.Equal(t, p.MaxUnitsPerTick, restored.MaxUnitsPerTick)

	assert.Nil(t, ToConfig(nil))
	assert.Nil(t, FromConfig(nil))
}

func TestPolicyContext(t *testing.T) {
	p := &Policy{MaxUnitsPerTick: 1}
	ctx := WithPolicy(context.Background(), p)
	assert.Equal(t, p, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
