package agent

import (
	"sync"
	"time"
)

type entry struct {
	agent  Agent
	worker Worker
}

// Registry is the in-memory agent store shared by all concurrent callers.
// Reads run concurrently, writes are serialized. Listing follows first
// registration order so callers always observe a deterministic ordering.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register stores or replaces the worker registered under name. Replacing
// keeps the name's original position in the listing.
func (r *Registry) Register(name string, w Worker, capabilities ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		r.order = append(r.order, name)
	}
	r.entries[name] = entry{
		agent: Agent{
			Name:         name,
			Capabilities: capabilities,
			RegisteredAt: time.Now().UTC(),
		},
		worker: w,
	}
}

// Get returns the worker registered under name.
func (r *Registry) Get(name string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.worker, true
}

// Describe returns the descriptor registered under name.
func (r *Registry) Describe(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Agent{}, false
	}
	return e.agent, true
}

// List returns all registered names in first-registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Agents returns all descriptors in first-registration order.
func (r *Registry) Agents() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := make([]Agent, 0, len(r.order))
	for _, name := range r.order {
		agents = append(agents, r.entries[name].agent)
	}
	return agents
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
