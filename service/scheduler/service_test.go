package scheduler

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pencall/pencall/internal/clock"
	"github.com/pencall/pencall/model/allocation"
	"github.com/pencall/pencall/model/release"
	"github.com/pencall/pencall/policy"
	amemory "github.com/pencall/pencall/service/dao/allocation/memory"
	pmemory "github.com/pencall/pencall/service/provider/memory"
	"github.com/pencall/pencall/service/registry"
)

type fixture struct {
	registry  *registry.Service
	scheduler *Service
	sink      *pmemory.Service
	clock     *clock.Simulated
}

func newFixture(p *policy.Policy, sink *pmemory.Service) *fixture {
	clk := clock.NewSimulated(time.Unix(0, 0))
	reg := registry.New(amemory.New(), p, clk)
	if sink == nil {
		sink = pmemory.New()
	}
	return &fixture{
		registry:  reg,
		scheduler: New(reg, sink, policy.NewGate(p), WithClock(clk)),
		sink:      sink,
		clock:     clk,
	}
}

func deliveredUnits(events []*release.Event) []uint64 {
	out := make([]uint64, 0, len(events))
	for _, e := range events {
		out = append(out, e.DeliveredUnits)
	}
	return out
}

func TestDoublingSequence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, nil)

	_, err := f.registry.Register(ctx, "a", 7, 1)
	assert.NoError(t, err)
	assert.NoError(t, f.registry.Activate(ctx, "a"))

	var all []*release.Event
	for i := 0; i < 3; i++ {
		events, err := f.scheduler.AdvanceTick(ctx)
		assert.NoError(t, err)
		assert.Len(t, events, 1)
		all = append(all, events...)
		f.clock.Advance(time.Second)
	}
	assert.Equal(t, []uint64{1, 2, 4}, deliveredUnits(all))

	alloc, err := f.registry.Get(ctx, "a")
	assert.NoError(t, err)
	assert.EqualValues(t, 7, alloc.TotalReleased)
	assert.Equal(t, allocation.StateCompleted, alloc.State)

	// a fourth tick produces no event for a completed allocation
	events, err := f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestClippedAtCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, nil)

	_, err := f.registry.Register(ctx, "b", 5, 2)
	assert.NoError(t, err)
	assert.NoError(t, f.registry.Activate(ctx, "b"))

	events, err := f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, release.OutcomeDelivered, events[0].Outcome)
	assert.EqualValues(t, 2, events[0].DeliveredUnits)

	events, err = f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, release.OutcomeClipped, events[0].Outcome)
	assert.EqualValues(t, 4, events[0].Units)
	assert.EqualValues(t, 3, events[0].DeliveredUnits)

	alloc, err := f.registry.Get(ctx, "b")
	assert.NoError(t, err)
	assert.EqualValues(t, 5, alloc.TotalReleased)
	assert.Equal(t, allocation.StateCompleted, alloc.State)
}

func TestGlobalTickBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&policy.Policy{MaxUnitsPerTick: 3}, nil)

	_, err := f.registry.Register(ctx, "first", 100, 2)
	assert.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.registry.Register(ctx, "second", 100, 4)
	assert.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.registry.Register(ctx, "third", 100, 1)
	assert.NoError(t, err)

	for _, id := range []string{"first", "second", "third"} {
		assert.NoError(t, f.registry.Activate(ctx, id))
	}

	events, err := f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Len(t, events, 3)

	// first admitted in order gets its full amount
	assert.Equal(t, release.OutcomeDelivered, events[0].Outcome)
	assert.EqualValues(t, 2, events[0].DeliveredUnits)

	// the second is clipped to the remaining budget
	assert.Equal(t, release.OutcomeClipped, events[1].Outcome)
	assert.EqualValues(t, 1, events[1].DeliveredUnits)

	// the third finds the budget exhausted
	assert.Equal(t, release.OutcomeRejected, events[2].Outcome)
	assert.EqualValues(t, 0, events[2].DeliveredUnits)

	// a rejected tick still consumes a doubling step
	alloc, err := f.registry.Get(ctx, "third")
	assert.NoError(t, err)
	assert.Equal(t, 1, alloc.TickCount)
	assert.EqualValues(t, 0, alloc.TotalReleased)
}

func TestProviderFailure(t *testing.T) {
	ctx := context.Background()
	failures := 1
	sink := pmemory.NewWithFailure(func(*release.Event) error {
		if failures > 0 {
			failures--
			return errors.New("sink unavailable")
		}
		return nil
	})
	f := newFixture(nil, sink)

	_, err := f.registry.Register(ctx, "a", 100, 1)
	assert.NoError(t, err)
	assert.NoError(t, f.registry.Activate(ctx, "a"))

	events, err := f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, release.OutcomeFailed, events[0].Outcome)
	assert.Equal(t, "sink unavailable", events[0].Error)

	// the failed quantity is not consumed but the doubling step is
	alloc, err := f.registry.Get(ctx, "a")
	assert.NoError(t, err)
	assert.EqualValues(t, 0, alloc.TotalReleased)
	assert.Equal(t, 1, alloc.TickCount)

	events, err = f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, release.OutcomeDelivered, events[0].Outcome)
	assert.EqualValues(t, 2, events[0].DeliveredUnits)
}

func TestPausePreservesProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, nil)

	_, err := f.registry.Register(ctx, "a", 100, 1)
	assert.NoError(t, err)
	assert.NoError(t, f.registry.Activate(ctx, "a"))

	_, err = f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	_, err = f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)

	assert.NoError(t, f.registry.Pause(ctx, "a"))
	events, err := f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Empty(t, events)

	// resume continues the doubling where it stopped
	assert.NoError(t, f.registry.Activate(ctx, "a"))
	events, err = f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.EqualValues(t, 4, events[0].DeliveredUnits)
}

func TestDeterministicRuns(t *testing.T) {
	run := func() []*release.Event {
		ctx := context.Background()
		f := newFixture(&policy.Policy{MaxUnitsPerTick: 10}, nil)
		for _, id := range []string{"x", "y", "z"} {
			_, err := f.registry.Register(ctx, id, 20, 1)
			assert.NoError(t, err)
			assert.NoError(t, f.registry.Activate(ctx, id))
			f.clock.Advance(time.Millisecond)
		}
		var all []*release.Event
		for i := 0; i < 4; i++ {
			events, err := f.scheduler.AdvanceTick(ctx)
			assert.NoError(t, err)
			all = append(all, events...)
		}
		return all
	}

	first, second := run(), run()
	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].AllocationID, second[i].AllocationID)
		assert.Equal(t, first[i].Units, second[i].Units)
		assert.Equal(t, first[i].DeliveredUnits, second[i].DeliveredUnits)
		assert.Equal(t, first[i].Outcome, second[i].Outcome)
	}
}

func TestDoublingSaturates(t *testing.T) {
	alloc := &allocation.Allocation{ID: "a", Cap: 1 << 62, BaseUnits: 1 << 40, TickCount: 20}
	assert.EqualValues(t, uint64(1)<<60, candidateUnits(alloc))

	// once the shift would overflow the candidate saturates
	alloc.TickCount = 70
	assert.EqualValues(t, uint64(math.MaxUint64), candidateUnits(alloc))

	alloc.TickCount = 63
	alloc.BaseUnits = 2
	assert.EqualValues(t, uint64(math.MaxUint64), candidateUnits(alloc))
}

func TestRemoveMidStream(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, nil)

	_, err := f.registry.Register(ctx, "a", 100, 1)
	assert.NoError(t, err)
	assert.NoError(t, f.registry.Activate(ctx, "a"))
	assert.NoError(t, f.registry.Remove(ctx, "a"))

	events, err := f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestPostReleaseHookOrder(t *testing.T) {
	ctx := context.Background()
	var seen []string
	p := &policy.Policy{
		PostRelease: func(_ context.Context, event *release.Event) {
			seen = append(seen, event.AllocationID)
		},
	}
	f := newFixture(p, nil)

	for _, id := range []string{"a", "b"} {
		_, err := f.registry.Register(ctx, id, 10, 1)
		assert.NoError(t, err)
		assert.NoError(t, f.registry.Activate(ctx, id))
		f.clock.Advance(time.Millisecond)
	}
	_, err := f.scheduler.AdvanceTick(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}
