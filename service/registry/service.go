package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pencall/pencall/internal/clock"
	"github.com/pencall/pencall/internal/idgen"
	"github.com/pencall/pencall/model/allocation"
	"github.com/pencall/pencall/policy"
	"github.com/pencall/pencall/service/dao"
)

// Service is the authoritative store of allocations and the only component
// that mutates allocation records.  All transitions are serialised by a
// single mutex so that read-modify-write cycles against the DAO stay atomic;
// the DAO itself returns copies, never shared pointers.
type Service struct {
	store  dao.Service[string, allocation.Allocation]
	policy *policy.Policy
	clock  clock.Service
	mux    sync.Mutex
}

// New creates a registry backed by the supplied DAO.  A nil policy means no
// concurrency bound; a nil clk falls back to the system clock.
func New(store dao.Service[string, allocation.Allocation], p *policy.Policy, clk clock.Service) *Service {
	if clk == nil {
		clk = clock.System()
	}
	return &Service{store: store, policy: p, clock: clk}
}

// RegisterOption customises a registration.
type RegisterOption func(a *allocation.Allocation)

// WithInitialUnits overrides the quantity released on the first active tick.
func WithInitialUnits(units uint64) RegisterOption {
	return func(a *allocation.Allocation) {
		a.InitialUnits = units
	}
}

// Register creates a new allocation in the Registered state.  An empty id is
// replaced with a generated one.  The returned value is a snapshot.
func (s *Service) Register(ctx context.Context, id string, cap, baseUnits uint64, opts ...RegisterOption) (*allocation.Allocation, error) {
	if baseUnits < 1 {
		return nil, fmt.Errorf("%w: base units must be >= 1", ErrInvalidConfig)
	}
	if cap < baseUnits {
		return nil, fmt.Errorf("%w: cap %d below base units %d", ErrInvalidConfig, cap, baseUnits)
	}
	if id == "" {
		id = idgen.New()
	}

	alloc := &allocation.Allocation{
		ID:        id,
		Cap:       cap,
		BaseUnits: baseUnits,
		State:     allocation.StateRegistered,
		CreatedAt: s.clock.Now(),
	}
	for _, opt := range opts {
		opt(alloc)
	}
	if alloc.InitialUnits > cap {
		return nil, fmt.Errorf("%w: initial units %d above cap %d", ErrInvalidConfig, alloc.InitialUnits, cap)
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, err := s.store.Load(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAllocation, id)
	} else if !errors.Is(err, dao.ErrNotFound) {
		return nil, err
	}
	if err := s.store.Save(ctx, alloc); err != nil {
		return nil, err
	}
	return alloc.Clone(), nil
}

// Activate transitions a Registered or Paused allocation to Active,
// enforcing the policy's concurrent-allocations bound.  Activating an
// already active allocation is a no-op.
func (s *Service) Activate(ctx context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	alloc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch alloc.State {
	case allocation.StateActive:
		return nil
	case allocation.StateCompleted:
		return fmt.Errorf("%w: %s", ErrAlreadyCompleted, id)
	}

	if limit := s.policy.ConcurrencyLimit(); limit > 0 {
		active, err := s.activeCount(ctx)
		if err != nil {
			return err
		}
		if active >= limit {
			return fmt.Errorf("%w: %d active allocations", ErrCapacityExceeded, active)
		}
	}
	alloc.State = allocation.StateActive
	return s.store.Save(ctx, alloc)
}

// Pause transitions an Active allocation to Paused, preserving tick count
// and released totals.  Pausing a non-active allocation is a no-op.
func (s *Service) Pause(ctx context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	alloc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if alloc.State != allocation.StateActive {
		return nil
	}
	alloc.State = allocation.StatePaused
	return s.store.Save(ctx, alloc)
}

// Remove permanently erases an allocation.  The record is retained in the
// Removed state so that the id can never be reused; subsequent lookups fail
// with ErrAllocationNotFound.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	alloc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	alloc.State = allocation.StateRemoved
	return s.store.Save(ctx, alloc)
}

// Get returns a read-only snapshot of the allocation.
func (s *Service) Get(ctx context.Context, id string) (*allocation.Allocation, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.load(ctx, id)
}

// ListActive returns the ids of all active allocations ordered by creation
// time then id.  Each call produces a fresh snapshot, so the sequence is
// finite and restartable.
func (s *Service) ListActive(ctx context.Context) ([]string, error) {
	active, err := s.store.List(ctx, dao.NewParameter("State", string(allocation.StateActive)))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(active))
	for _, alloc := range active {
		ids = append(ids, alloc.ID)
	}
	return ids, nil
}

// CommitRelease records a confirmed delivery of delivered units for an
// active allocation: the total grows, the tick count advances and the
// allocation completes once the cap is exhausted.  The updated snapshot is
// returned.
func (s *Service) CommitRelease(ctx context.Context, id string, delivered uint64) (*allocation.Allocation, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	alloc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if alloc.State != allocation.StateActive {
		return nil, fmt.Errorf("%w: %s is not active", ErrAllocationNotFound, id)
	}
	if remaining := alloc.Remaining(); delivered > remaining {
		// never let a commit push the total past cap
		delivered = remaining
	}
	alloc.TotalReleased += delivered
	alloc.TickCount++
	if alloc.TotalReleased >= alloc.Cap {
		alloc.State = allocation.StateCompleted
	}
	if err := s.store.Save(ctx, alloc); err != nil {
		return nil, err
	}
	return alloc.Clone(), nil
}

// AdvanceTickCount consumes a doubling step without releasing units – used
// for rejected and failed ticks, which still count as intervals.
func (s *Service) AdvanceTickCount(ctx context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	alloc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if alloc.State != allocation.StateActive {
		return nil
	}
	alloc.TickCount++
	return s.store.Save(ctx, alloc)
}

// MarkCompleted transitions an allocation to Completed when no further
// release fits within its cap.
func (s *Service) MarkCompleted(ctx context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	alloc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if alloc.State.IsTerminal() {
		return nil
	}
	alloc.State = allocation.StateCompleted
	return s.store.Save(ctx, alloc)
}

// load fetches an allocation translating storage errors and hiding removed
// records.  Callers must hold s.mux.
func (s *Service) load(ctx context.Context, id string) (*allocation.Allocation, error) {
	alloc, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) || errors.Is(err, dao.ErrInvalidID) {
			return nil, fmt.Errorf("%w: %s", ErrAllocationNotFound, id)
		}
		return nil, err
	}
	if alloc.State == allocation.StateRemoved {
		return nil, fmt.Errorf("%w: %s", ErrAllocationNotFound, id)
	}
	return alloc, nil
}

func (s *Service) activeCount(ctx context.Context) (int, error) {
	active, err := s.store.List(ctx, dao.NewParameter("State", string(allocation.StateActive)))
	if err != nil {
		return 0, err
	}
	return len(active), nil
}
