package memory

import (
	"context"
	"sync"

	"github.com/pencall/pencall/model/release"
	"github.com/pencall/pencall/service/provider"
)

const name = "memory"

// Service is an in-memory recording sink used as a test double.  It keeps a
// copy of every event it receives and can be scripted to fail selected
// deliveries via FailFunc.
type Service struct {
	mu       sync.Mutex
	events   []*release.Event
	failFunc func(event *release.Event) error
}

// New creates an always-succeeding recording sink.
func New() *Service {
	return &Service{}
}

// NewWithFailure creates a recording sink that consults failFunc per event;
// a non-nil return fails that delivery (the event is still recorded).
func NewWithFailure(failFunc func(event *release.Event) error) *Service {
	return &Service{failFunc: failFunc}
}

// Name returns the provider name
func (s *Service) Name() string {
	return name
}

// Deliver records the event and applies the optional failure script.
func (s *Service) Deliver(_ context.Context, event *release.Event) error {
	s.mu.Lock()
	s.events = append(s.events, event.Clone())
	s.mu.Unlock()
	if s.failFunc != nil {
		return s.failFunc(event)
	}
	return nil
}

// Events returns copies of all recorded events in delivery order.
func (s *Service) Events() []*release.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*release.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Clone())
	}
	return out
}

// Reset discards all recorded events.
func (s *Service) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

var _ provider.Service = (*Service)(nil)
