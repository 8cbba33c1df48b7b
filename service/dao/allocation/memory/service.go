package memory

import (
	"context"
	"sort"

	"github.com/pencall/pencall/model/allocation"
	"github.com/pencall/pencall/service/dao"
	"github.com/pencall/pencall/service/dao/criteria"
	"github.com/pencall/pencall/service/dao/store"
)

// Service implements in-memory allocation storage on top of the generic
// store.  All operations return **copies** of the underlying objects to
// prevent data races when callers mutate the returned instances.
type Service struct {
	store *store.MemoryStore[string, allocation.Allocation]
}

// Compile-time check that Service implements the generic DAO interface.
var _ dao.Service[string, allocation.Allocation] = (*Service)(nil)

// key selector – grab ID field
func allocationKey(a *allocation.Allocation) string { return a.ID }

// Save persists (a clone of) the supplied allocation.
func (s *Service) Save(ctx context.Context, a *allocation.Allocation) error {
	if a == nil {
		return dao.ErrNilEntity
	}
	if a.ID == "" {
		return dao.ErrInvalidID
	}
	return s.store.Save(ctx, a.Clone())
}

// Load retrieves a copy of the allocation or dao.ErrNotFound.
func (s *Service) Load(ctx context.Context, id string) (*allocation.Allocation, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	a, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Clone(), nil
}

// Delete removes an allocation.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	return s.store.Delete(ctx, id)
}

// List returns copies of allocations matching the optional State parameter,
// ordered by CreatedAt then ID so that repeated listings are deterministic.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*allocation.Allocation, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*allocation.Allocation, 0, len(all))
	for _, a := range all {
		if !criteria.FilterByState(string(a.State), parameters) {
			continue
		}
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// New constructor.
func New() *Service {
	return &Service{store: store.NewMemoryStore[string, allocation.Allocation](allocationKey)}
}
