package mountain

import (
	"context"
	"fmt"
)

// StaticRegistry is an in-memory registry loaded once at startup.
type StaticRegistry struct {
	mountains []Mountain
	byID      map[string]int
}

// NewStaticRegistry creates a registry from the given mountains.
// Entries are validated and ids must be unique.
func NewStaticRegistry(mountains []Mountain) (*StaticRegistry, error) {
	r := &StaticRegistry{
		mountains: make([]Mountain, 0, len(mountains)),
		byID:      make(map[string]int, len(mountains)),
	}
	for _, m := range mountains {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidMountain, m.ID)
		}
		r.byID[m.ID] = len(r.mountains)
		r.mountains = append(r.mountains, m)
	}
	return r, nil
}

// List returns a copy of the catalog in registration order.
func (r *StaticRegistry) List(_ context.Context) ([]Mountain, error) {
	out := make([]Mountain, len(r.mountains))
	copy(out, r.mountains)
	return out, nil
}

// Get returns a mountain by id.
func (r *StaticRegistry) Get(_ context.Context, id string) (*Mountain, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, ErrMountainNotFound
	}
	m := r.mountains[i]
	return &m, nil
}

// Ensure StaticRegistry implements Registry interface.
var _ Registry = (*StaticRegistry)(nil)
