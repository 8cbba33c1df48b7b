package pencall

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"

	"github.com/pencall/pencall/internal/clock"
	"github.com/pencall/pencall/model/allocation"
	"github.com/pencall/pencall/model/release"
	"github.com/pencall/pencall/policy"
	"github.com/pencall/pencall/progress"
	"github.com/pencall/pencall/service/event"
	"github.com/pencall/pencall/service/messaging/memory"
	pmemory "github.com/pencall/pencall/service/provider/memory"
	"github.com/pencall/pencall/service/registry"
)

func TestEngineLifecycle(t *testing.T) {
	ctx := context.Background()
	sink := pmemory.New()
	engine := New(
		WithProvider(sink),
		WithClock(clock.NewSimulated(time.Unix(0, 0))),
	)

	_, err := engine.Register(ctx, "alpha", 7, 1)
	assert.NoError(t, err)
	assert.NoError(t, engine.Activate(ctx, "alpha"))

	var total uint64
	for i := 0; i < 4; i++ {
		events, err := engine.AdvanceTick(ctx)
		assert.NoError(t, err)
		for _, e := range events {
			total += e.DeliveredUnits
		}
	}
	assert.EqualValues(t, 7, total)

	alloc, err := engine.Get(ctx, "alpha")
	assert.NoError(t, err)
	assert.Equal(t, allocation.StateCompleted, alloc.State)
	assert.Len(t, sink.Events(), 3)
}

func TestEngineDefaultsToConsole(t *testing.T) {
	engine := New()
	assert.NotNil(t, engine.Registry())
	assert.NotNil(t, engine.Scheduler())
	assert.NotNil(t, engine.Providers().Lookup("console"))
	assert.NotNil(t, engine.Providers().Lookup("memory"))
}

func TestEnginePolicyFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Policy.MaxConcurrentAllocations = 1
	cfg.Provider.Vendor = "memory"
	engine := New(WithConfig(cfg))

	_, err := engine.Register(ctx, "a", 10, 1)
	assert.NoError(t, err)
	_, err = engine.Register(ctx, "b", 10, 1)
	assert.NoError(t, err)

	assert.NoError(t, engine.Activate(ctx, "a"))
	assert.ErrorIs(t, engine.Activate(ctx, "b"), registry.ErrCapacityExceeded)
}

func TestEngineAuditTrail(t *testing.T) {
	ctx := context.Background()
	eventService, err := event.New("memory", event.WithNewMemoryQueueConfig(func(name string) memory.Config {
		return memory.DefaultConfig()
	}))
	assert.NoError(t, err)

	var mu sync.Mutex
	var audited []release.Outcome
	err = event.SetListenerOf[*release.Event](eventService, func(e *event.Event[*release.Event]) {
		mu.Lock()
		audited = append(audited, e.Data.Outcome)
		mu.Unlock()
	})
	assert.NoError(t, err)

	engine := New(
		WithProvider(pmemory.New()),
		WithEventService(eventService),
	)
	_, err = engine.Register(ctx, "a", 2, 1)
	assert.NoError(t, err)
	assert.NoError(t, engine.Activate(ctx, "a"))

	_, err = engine.AdvanceTick(ctx)
	assert.NoError(t, err)
	_, err = engine.AdvanceTick(ctx)
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(audited) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []release.Outcome{release.OutcomeDelivered, release.OutcomeClipped}, audited)
	mu.Unlock()
}

func TestEngineProgressTracking(t *testing.T) {
	ctx, tracker := progress.WithNewTracker(context.Background(), "engine-1", nil)
	engine := New(WithProvider(pmemory.New()))

	_, err := engine.Register(ctx, "a", 2, 1)
	assert.NoError(t, err)
	assert.NoError(t, engine.Activate(ctx, "a"))

	_, err = engine.AdvanceTick(ctx)
	assert.NoError(t, err)
	_, err = engine.AdvanceTick(ctx)
	assert.NoError(t, err)

	snapshot := tracker.Snapshot()
	assert.Equal(t, 2, snapshot.Ticks)
	assert.Equal(t, 1, snapshot.DeliveredEvents)
	assert.Equal(t, 1, snapshot.ClippedEvents)
	assert.EqualValues(t, 2, snapshot.UnitsReleased)
	assert.Equal(t, 1, snapshot.CompletedAllocations)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	invalid := DefaultConfig()
	invalid.Provider.Vendor = ""
	assert.Error(t, invalid.Validate())
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	URL := fmt.Sprintf("mem://localhost/pencall/%v/config.yaml", time.Now().UnixNano())
	document := `policy:
  maxUnitsPerTick: 5
  maxConcurrentAllocations: 2
provider:
  vendor: memory
`
	fs := afs.New()
	err := fs.Upload(ctx, URL, 0644, strings.NewReader(document))
	assert.NoError(t, err)

	cfg, err := LoadConfig(ctx, URL)
	assert.NoError(t, err)
	assert.EqualValues(t, 5, cfg.Policy.MaxUnitsPerTick)
	assert.Equal(t, 2, cfg.Policy.MaxConcurrentAllocations)
	assert.Equal(t, "memory", cfg.Provider.Vendor)

	aPolicy := policy.FromConfig(&cfg.Policy)
	assert.EqualValues(t, 5, aPolicy.MaxUnitsPerTick)
}
