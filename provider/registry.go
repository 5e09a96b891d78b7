package provider

import (
	"sync"

	"github.com/sidekick-ai/sidekick/core"
)

// Registry maps provider ids to adapter instances. Lookup is case-insensitive
// (ids canonicalize to lowercase); enumeration preserves registration order
// so the provider-selection UI is stable. Register supports late-bound extra
// providers so optional vendor integrations can be wired in by the embedding
// application without hard-coding every vendor here.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Adapter
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Adapter)}
}

// Register adds (or replaces) an adapter under its descriptor id. Replacing
// keeps the original position in enumeration order.
func (r *Registry) Register(a Adapter) {
	id := core.CanonicalProviderID(a.Descriptor().ID)
	if id == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id]; !exists {
		r.order = append(r.order, id)
	}
	r.byID[id] = a
}

// Get returns the adapter for a provider id, case-insensitively. The second
// return is false for unknown ids; callers must surface that as an
// "unsupported provider" error, never a crash.
func (r *Registry) Get(id string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[core.CanonicalProviderID(id)]
	return a, ok
}

// List returns all adapters in registration order.
func (r *Registry) List() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Descriptors returns the descriptors of all registered adapters in
// registration order. Used to populate the provider-selection UI.
func (r *Registry) Descriptors() []Descriptor {
	adapters := r.List()
	out := make([]Descriptor, len(adapters))
	for i, a := range adapters {
		out[i] = a.Descriptor()
	}
	return out
}
