package metadata

import (
	"fmt"
	"sort"
	"sync"
)

// Registry indexes entities by name. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

// NewRegistry creates a registry holding entities. Later duplicates replace
// earlier ones.
func NewRegistry(entities ...*Entity) *Registry {
	r := &Registry{entities: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		r.entities[e.Name] = e
	}
	return r
}

// Register adds an entity. Registering a name twice is an error.
func (r *Registry) Register(e *Entity) error {
	if e == nil || e.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[e.Name]; ok {
		return fmt.Errorf("entity %s already registered", e.Name)
	}
	r.entities[e.Name] = e
	return nil
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	return e, ok
}

// Resolve returns the registered entity or, failing that, a permissive
// entity whose table and columns share the logical names.
func (r *Registry) Resolve(name string) *Entity {
	if e, ok := r.Lookup(name); ok {
		return e
	}
	return NewEntity(name, name).WithID("id")
}

// Entities returns every registered entity ordered by name.
func (r *Registry) Entities() []*Entity {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
