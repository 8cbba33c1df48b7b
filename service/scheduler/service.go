package scheduler

import (
	"context"
	"log"
	"math"
	"sync"

	"github.com/pencall/pencall/internal/clock"
	"github.com/pencall/pencall/model/allocation"
	"github.com/pencall/pencall/model/release"
	"github.com/pencall/pencall/policy"
	"github.com/pencall/pencall/progress"
	"github.com/pencall/pencall/service/event"
	"github.com/pencall/pencall/service/provider"
	"github.com/pencall/pencall/service/registry"
	"github.com/pencall/pencall/tracing"
)

// Service drives the doubling release of every active allocation.  One
// AdvanceTick call is one full scheduling pass: allocations are processed
// strictly sequentially in the registry's deterministic order, each
// candidate runs through the policy gate and, when admitted, the delivery
// provider.  Ticks never overlap; the pass holds the service mutex until
// every provider call has returned.
type Service struct {
	registry *registry.Service
	provider provider.Service
	gate     *policy.Gate
	clock    clock.Service
	events   *event.Service

	mux  sync.Mutex
	tick int
}

// Option customises the scheduler.
type Option func(s *Service)

// WithClock sets the time source used to stamp release events.
func WithClock(clk clock.Service) Option {
	return func(s *Service) { s.clock = clk }
}

// WithEventService routes every finalized release event onto the supplied
// event bus for external observers.
func WithEventService(svc *event.Service) Option {
	return func(s *Service) { s.events = svc }
}

// New creates a scheduler.
func New(reg *registry.Service, prov provider.Service, gate *policy.Gate, opts ...Option) *Service {
	ret := &Service{
		registry: reg,
		provider: prov,
		gate:     gate,
		clock:    clock.System(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Tick returns the number of completed scheduling passes.
func (s *Service) Tick() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.tick
}

// AdvanceTick runs one full scheduling pass and returns the release events
// it produced, in processing order.  The pass itself never fails because a
// single allocation misbehaves: provider failures are reported as Failed
// events and registry-level races (an allocation removed mid-tick) are
// treated as skips.
func (s *Service) AdvanceTick(ctx context.Context) ([]*release.Event, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	ctx, span := tracing.StartSpan(ctx, "scheduler.advanceTick", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	s.gate.BeginTick()
	ids, err := s.registry.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	tracker, _ := progress.FromContext(ctx)
	var events []*release.Event
	for _, id := range ids {
		anEvent, procErr := s.processAllocation(ctx, id, tracker)
		if procErr != nil {
			// The allocation disappeared between listing and processing,
			// skip it for this tick and keep going.
			log.Printf("skipping allocation %s: %v", id, procErr)
			continue
		}
		if anEvent != nil {
			events = append(events, anEvent)
		}
	}
	s.tick++
	tracker.TickDone()
	return events, nil
}

// processAllocation computes and drives one allocation's release for the
// current tick.  A nil event with nil error means the allocation produced no
// candidate (completed, or paused mid-tick).
func (s *Service) processAllocation(ctx context.Context, id string, tracker *progress.Progress) (*release.Event, error) {
	alloc, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alloc.State != allocation.StateActive {
		return nil, nil
	}

	raw := candidateUnits(alloc)
	clipped := raw
	if remaining := alloc.Remaining(); clipped > remaining {
		clipped = remaining
	}
	if clipped == 0 {
		if err := s.registry.MarkCompleted(ctx, id); err != nil {
			return nil, err
		}
		tracker.Update(progress.Delta{CompletedAllocations: 1})
		return nil, nil
	}

	anEvent := &release.Event{
		AllocationID:   id,
		ReleaseTime:    s.clock.Now(),
		Tick:           alloc.TickCount,
		Units:          raw,
		DeliveredUnits: clipped,
	}

	granted, hookErr := s.gate.Admit(ctx, alloc, anEvent)
	if granted == 0 {
		anEvent.DeliveredUnits = 0
		anEvent.Outcome = release.OutcomeRejected
		if hookErr != nil {
			anEvent.Error = hookErr.Error()
		}
		// a rejected tick still consumes a doubling step
		if err := s.registry.AdvanceTickCount(ctx, id); err != nil {
			return nil, err
		}
		tracker.Update(progress.Delta{Rejected: 1})
		s.publish(ctx, anEvent)
		return anEvent, nil
	}
	anEvent.DeliveredUnits = granted

	deliverErr := s.deliver(ctx, anEvent)
	if deliverErr != nil {
		// the quantity is not considered consumed
		anEvent.Outcome = release.OutcomeFailed
		anEvent.Error = deliverErr.Error()
		if err := s.registry.AdvanceTickCount(ctx, id); err != nil {
			return nil, err
		}
		tracker.Update(progress.Delta{Failed: 1})
	} else {
		if granted < raw {
			anEvent.Outcome = release.OutcomeClipped
			tracker.Update(progress.Delta{Clipped: 1, UnitsReleased: granted})
		} else {
			anEvent.Outcome = release.OutcomeDelivered
			tracker.Update(progress.Delta{Delivered: 1, UnitsReleased: granted})
		}
		updated, err := s.registry.CommitRelease(ctx, id, granted)
		if err != nil {
			return nil, err
		}
		if updated.State == allocation.StateCompleted {
			tracker.Update(progress.Delta{CompletedAllocations: 1})
		}
	}

	s.gate.AfterRelease(ctx, anEvent)
	s.publish(ctx, anEvent)
	return anEvent, nil
}

// deliver invokes the provider exactly once for the admitted event.
func (s *Service) deliver(ctx context.Context, anEvent *release.Event) error {
	ctx, span := tracing.StartSpan(ctx, "provider.deliver", "CLIENT")
	err := s.provider.Deliver(ctx, anEvent)
	tracing.EndSpan(span, err)
	return err
}

// publish forwards the finalized event to the audit bus when configured.
func (s *Service) publish(ctx context.Context, anEvent *release.Event) {
	if s.events == nil {
		return
	}
	publisher, err := event.PublisherOf[*release.Event](s.events)
	if err != nil {
		log.Printf("failed to resolve release event publisher: %v", err)
		return
	}
	eCtx := &event.Context{
		AllocationID: anEvent.AllocationID,
		Tick:         anEvent.Tick,
		EventType:    string(anEvent.Outcome),
	}
	if err := publisher.Publish(ctx, event.NewEvent(eCtx, anEvent.Clone())); err != nil {
		log.Printf("failed to publish release event: %v", err)
	}
}

// candidateUnits computes base*2^n saturating at MaxUint64.  The result is
// clipped to the allocation cap by the caller, so saturating once the shift
// would overflow is safe.
func candidateUnits(alloc *allocation.Allocation) uint64 {
	base := alloc.FirstTickUnits()
	n := uint(alloc.TickCount)
	if n >= 64 || base > math.MaxUint64>>n {
		return math.MaxUint64
	}
	return base << n
}
