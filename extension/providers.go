package extension

import (
	"sync"

	"github.com/viant/x"

	"github.com/pencall/pencall/service/provider"
)

// DataTypeIniter lets a provider register the Go types it works with when it
// is added to the registry.
type DataTypeIniter interface {
	InitTypes(types *Types)
}

// Providers keeps the delivery sinks available to an engine instance,
// addressable by name so configuration can select one declaratively.
type Providers struct {
	types     *Types
	providers map[string]provider.Service
	mux       sync.RWMutex
}

func (p *Providers) Types() *Types {
	return p.types
}

// Lookup returns a provider by name or nil when unknown.
func (p *Providers) Lookup(name string) provider.Service {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return p.providers[name]
}

// Register registers a provider under its own name.
func (p *Providers) Register(service provider.Service) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if typer, ok := service.(DataTypeIniter); ok {
		typer.InitTypes(p.types)
	}
	p.providers[service.Name()] = service
}

// Names returns the registered provider names.
func (p *Providers) Names() []string {
	p.mux.RLock()
	defer p.mux.RUnlock()
	out := make([]string, 0, len(p.providers))
	for name := range p.providers {
		out = append(out, name)
	}
	return out
}

// NewProviders creates a provider registry seeded with the supplied types.
func NewProviders(goTypes ...*x.Type) *Providers {
	ret := &Providers{
		types:     NewTypes(),
		providers: make(map[string]provider.Service),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
