// Package registry tracks the agents participating in one run and fans their
// streams into a single ordered sequence. A registry is created per run and
// handed to the collaborators that spawn agents; nothing here is global.
package registry

import (
	"sync"

	"github.com/arihq/ari/internal/agent"
)

// Registry is the run-scoped, append-only collection of live agents.
// Registration is immediate: sinks attached to the registry are wired onto an
// agent the moment it registers, so no event emitted afterwards can be missed.
type Registry struct {
	mu     sync.RWMutex
	agents []*agent.Runtime
	byID   map[string]*agent.Runtime
	sinks  []agent.Sink
	signal chan struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[string]*agent.Runtime),
		signal: make(chan struct{}, 1),
	}
}

// Register adds a runtime and wires all registry-level sinks onto it.
// It implements agent.Registrar. Registering the same runtime twice is a
// no-op for the collection but never re-attaches sinks.
func (r *Registry) Register(rt *agent.Runtime) {
	r.mu.Lock()
	if _, exists := r.byID[rt.ID()]; exists {
		r.mu.Unlock()
		return
	}
	r.agents = append(r.agents, rt)
	r.byID[rt.ID()] = rt
	sinks := make([]agent.Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.Unlock()

	for _, s := range sinks {
		rt.AttachSink(s)
	}

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// AttachSink adds a sink that receives events from every currently registered
// agent and every agent registered afterwards.
func (r *Registry) AttachSink(s agent.Sink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	existing := make([]*agent.Runtime, len(r.agents))
	copy(existing, r.agents)
	r.mu.Unlock()

	for _, rt := range existing {
		rt.AttachSink(s)
	}
}

// Agents returns the registered runtimes in registration order.
func (r *Registry) Agents() []*agent.Runtime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*agent.Runtime, len(r.agents))
	copy(out, r.agents)
	return out
}

// Get returns the runtime with the given id, or nil.
func (r *Registry) Get(id string) *agent.Runtime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Registered signals when an agent joins. The channel carries at most one
// pending notification; consumers re-check Agents after each receive.
func (r *Registry) Registered() <-chan struct{} {
	return r.signal
}
