package adapters

import (
	"sync"

	"github.com/coinwatch/confluence/internal/chains"
)

// Registry holds the {chain -> [adapter]} mapping for one capability, in
// explicit configured fallback order (spec.md §9: "Fallback order is
// explicit configuration, not implicit type lookup"). It has an init phase
// and is never mutated afterward; all subsequent access is read-only, so no
// locking is needed once Freeze has been called.
type Registry[T any] struct {
	mu     sync.Mutex
	byChain map[chains.ID][]T
	frozen bool
}

// NewRegistry builds an empty, unfrozen registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{byChain: make(map[chains.ID][]T)}
}

// Register appends adapter to chain's fallback list. Panics if called after
// Freeze — registration only happens during startup wiring.
func (r *Registry[T]) Register(chain chains.ID, adapter T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("adapters: Register called after Freeze")
	}
	r.byChain[chain] = append(r.byChain[chain], adapter)
}

// Freeze closes the registry to further mutation. Call once at the end of
// startup wiring, before any job runs.
func (r *Registry[T]) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// For returns chain's adapters in fallback order. The returned slice must
// not be mutated by the caller.
func (r *Registry[T]) For(chain chains.ID) []T {
	return r.byChain[chain]
}
