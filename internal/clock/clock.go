package clock

import (
	"sync"
	"time"
)

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Service supplies timestamps to the engine. The system implementation
// derives them from the wall clock; the simulated one is stepped explicitly
// by the caller so that tick-based runs are reproducible.
type Service interface {
	Now() time.Time
}

type system struct{}

func (system) Now() time.Time { return Now() }

// System returns a wall-clock backed time source.
func System() Service { return system{} }

// Simulated is a manually stepped time source. Create instances with
// NewSimulated; the zero value starts at the epoch.
type Simulated struct {
	mu  sync.Mutex
	now time.Time
}

// NewSimulated creates a simulated source positioned at start.
func NewSimulated(start time.Time) *Simulated {
	return &Simulated{now: start}
}

func (s *Simulated) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the simulated clock forward by d and returns the new time.
// Non-positive deltas are ignored so the source stays monotonic.
func (s *Simulated) Advance(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.now = s.now.Add(d)
	}
	return s.now
}
