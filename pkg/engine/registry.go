package engine

import "sync"

// Registry hands out one engine per entity, creating them lazily. The API
// and MCP servers share a registry so the same entity name always resolves
// to the same ledger and archive.
type Registry struct {
	mu      sync.Mutex
	engines map[string]*Engine
	factory func(entity string) *Engine
}

// NewRegistry creates a registry. The factory builds an engine for an
// entity seen for the first time.
func NewRegistry(factory func(entity string) *Engine) *Registry {
	return &Registry{
		engines: make(map[string]*Engine),
		factory: factory,
	}
}

// Get returns the engine for an entity, creating it on first use.
func (r *Registry) Get(entity string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	eng, ok := r.engines[entity]
	if !ok {
		eng = r.factory(entity)
		r.engines[entity] = eng
	}
	return eng
}

// Entities lists the entities with a live engine.
func (r *Registry) Entities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	return names
}
