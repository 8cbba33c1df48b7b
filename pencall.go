package pencall

import (
	"context"

	"github.com/viant/x"

	"github.com/pencall/pencall/extension"
	"github.com/pencall/pencall/internal/clock"
	"github.com/pencall/pencall/model/allocation"
	"github.com/pencall/pencall/model/release"
	"github.com/pencall/pencall/policy"
	"github.com/pencall/pencall/service/dao"
	amemory "github.com/pencall/pencall/service/dao/allocation/memory"
	"github.com/pencall/pencall/service/event"
	"github.com/pencall/pencall/service/provider"
	"github.com/pencall/pencall/service/provider/console"
	pmemory "github.com/pencall/pencall/service/provider/memory"
	"github.com/pencall/pencall/service/registry"
	"github.com/pencall/pencall/service/scheduler"
)

// Service represents the allocation release engine
type Service struct {
	config           *Config
	policy           *policy.Policy
	registry         *registry.Service
	scheduler        *scheduler.Service
	provider         provider.Service
	providers        *extension.Providers
	allocationDAO    dao.Service[string, allocation.Allocation]
	eventService     *event.Service
	clock            clock.Service
	extensionTypes   []*x.Type
	schedulerOptions []scheduler.Option
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.providers = extension.NewProviders(s.extensionTypes...)
	s.providers.Register(console.New())
	s.providers.Register(pmemory.New())
	if s.provider == nil {
		s.provider = s.providers.Lookup(s.config.Provider.Vendor)
	}
	if s.provider == nil {
		s.provider = console.New()
	}

	s.registry = registry.New(s.allocationDAO, s.policy, s.clock)
	gate := policy.NewGate(s.policy)
	opts := append([]scheduler.Option{scheduler.WithClock(s.clock)}, s.schedulerOptions...)
	if s.eventService != nil {
		opts = append(opts, scheduler.WithEventService(s.eventService))
	}
	s.scheduler = scheduler.New(s.registry, s.provider, gate, opts...)
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.policy == nil {
		s.policy = policy.FromConfig(&s.config.Policy)
	}
	if s.allocationDAO == nil {
		s.allocationDAO = amemory.New()
	}
	if s.clock == nil {
		s.clock = clock.System()
	}
}

// New creates a new engine instance
func New(options ...Option) *Service {
	ret := &Service{}
	ret.init(options)
	return ret
}

// Registry returns the allocation registry.
func (s *Service) Registry() *registry.Service {
	return s.registry
}

// Scheduler returns the release scheduler.
func (s *Service) Scheduler() *scheduler.Service {
	return s.scheduler
}

// Providers returns the delivery provider registry.
func (s *Service) Providers() *extension.Providers {
	return s.providers
}

// RegisterProvider adds a delivery sink to the provider registry.
func (s *Service) RegisterProvider(p provider.Service) {
	s.providers.Register(p)
}

// Register creates a new allocation; see registry.Service.Register.
func (s *Service) Register(ctx context.Context, id string, cap, baseUnits uint64, opts ...registry.RegisterOption) (*allocation.Allocation, error) {
	return s.registry.Register(ctx, id, cap, baseUnits, opts...)
}

// Activate transitions an allocation to Active.
func (s *Service) Activate(ctx context.Context, id string) error {
	return s.registry.Activate(ctx, id)
}

// Pause transitions an Active allocation to Paused.
func (s *Service) Pause(ctx context.Context, id string) error {
	return s.registry.Pause(ctx, id)
}

// Remove permanently erases an allocation.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.registry.Remove(ctx, id)
}

// Get returns a read-only snapshot of an allocation.
func (s *Service) Get(ctx context.Context, id string) (*allocation.Allocation, error) {
	return s.registry.Get(ctx, id)
}

// ListActive returns active allocation ids in deterministic order.
func (s *Service) ListActive(ctx context.Context) ([]string, error) {
	return s.registry.ListActive(ctx)
}

// AdvanceTick runs one full scheduling pass; see scheduler.Service.AdvanceTick.
func (s *Service) AdvanceTick(ctx context.Context) ([]*release.Event, error) {
	return s.scheduler.AdvanceTick(ctx)
}
