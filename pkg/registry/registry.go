// Package registry maps an action kind to the Adapter that executes it,
// grounded on the dispatcher interface this corpus uses for routing a
// tool call to its handler, generalized from a semver-versioned module
// lookup (this domain has no module versioning concept) to a flat,
// name-keyed table.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/quietcore/gateway/pkg/protocol"
)

// Adapter executes one action kind against whatever external system it
// fronts (an API, a local store, a file). Execute returns the data to
// place on ActionResponse.Data, or an error which Dispatch normalizes
// to ADAPTER_ERROR (TIMEOUT once ctx is done).
type Adapter interface {
	Execute(ctx context.Context, req protocol.ActionRequest) (interface{}, error)
}

// ShutdownableAdapter is implemented by adapters holding resources
// (connections, file handles) that need releasing on gateway shutdown.
type ShutdownableAdapter interface {
	Adapter
	Shutdown(ctx context.Context) error
}

// Registry is an in-memory, name-keyed dispatch table.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds actionKind to adapter, replacing any prior binding.
func (r *Registry) Register(actionKind string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[actionKind] = adapter
}

// Get returns the adapter bound to actionKind, if any.
func (r *Registry) Get(actionKind string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[actionKind]
	return a, ok
}

// Dispatch routes req to its bound adapter. An unbound action kind
// yields NO_ADAPTER; an adapter error is wrapped as ADAPTER_ERROR so the
// pipeline never has to know adapter internals.
func (r *Registry) Dispatch(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	adapter, ok := r.Get(req.Action)
	if !ok {
		return nil, protocol.NewError(protocol.ErrNoAdapter, fmt.Sprintf("no adapter registered for action %q", req.Action))
	}

	data, err := adapter.Execute(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, protocol.NewError(protocol.ErrTimeout, err.Error())
		}
		return nil, protocol.NewError(protocol.ErrAdapterError, err.Error())
	}
	return data, nil
}

// Shutdown calls Shutdown on every registered adapter that implements
// ShutdownableAdapter, collecting (not stopping on) the first error.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	adapters := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, a := range adapters {
		sa, ok := a.(ShutdownableAdapter)
		if !ok {
			continue
		}
		if err := sa.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Kinds returns every action kind with a registered adapter.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		out = append(out, k)
	}
	return out
}
