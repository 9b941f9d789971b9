// Package registry implements the fixed-capacity pool of thread states and
// the free-slot bookkeeping a watchdog walks.
//
// The free-slot queue and its guarding mutex are modeled directly on the
// teacher race detector's TID reuse pool (freeTIDs []uint8 + tidPoolMu
// sync.Mutex in internal/race/api/race.go): a slice used as a stack of
// free indices, taken under one mutex at register/deregister time and,
// briefly, by Registered to snapshot membership at the start of each
// watchdog scan; the stacks themselves are walked without it.
package registry

import (
	"sync"

	"github.com/kolkov/progressmon/internal/monitor/threadstate"
)

// DefaultCapacity mirrors the original implementation's production default
// (original_source/include/monitoring/config.hpp: MAX_THREADS = 1024); the
// distillation's own example of 128 or 1024 both remain valid choices via
// New.
const DefaultCapacity = 1024

// Registry is a fixed-capacity pool of threadstate.State slots.
type Registry struct {
	mu         sync.Mutex
	states     []threadstate.State
	free       []int
	registered []int
}

// New creates a registry with the given fixed capacity.
func New(capacity int) *Registry {
	r := &Registry{
		states: make([]threadstate.State, capacity),
		free:   make([]int, capacity),
	}
	for i := 0; i < capacity; i++ {
		r.free[i] = capacity - 1 - i
		r.states[i].Index = i
	}
	return r
}

// Capacity returns the fixed number of slots this registry was created
// with.
func (r *Registry) Capacity() int {
	return len(r.states)
}

// Register claims a free slot for goroutineID and returns it, or reports ok
// == false if the registry is at capacity. Capacity exhaustion is a
// recoverable outcome per the specification's error taxonomy: the caller
// decides whether to treat it as fatal.
func (r *Registry) Register(goroutineID int64) (state *threadstate.State, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.free) == 0 {
		return nil, false
	}

	n := len(r.free) - 1
	index := r.free[n]
	r.free = r.free[:n]

	state = &r.states[index]
	state.GoroutineID = goroutineID
	r.registered = append(r.registered, index)

	return state, true
}

// Deregister releases state's slot back to the free queue. state must have
// been returned by a prior successful Register call on this registry.
func (r *Registry) Deregister(state *threadstate.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := state.Index
	for i, idx := range r.registered {
		if idx == index {
			r.registered = append(r.registered[:i], r.registered[i+1:]...)
			break
		}
	}
	state.Reset(index)
	r.free = append(r.free, index)
}

// Registered returns a snapshot slice of the currently registered states,
// safe to range over without holding the registry mutex — only membership
// (not the states' own contents) is protected here, matching the original's
// "registry lock briefly guards membership, not stacks" design.
func (r *Registry) Registered() []*threadstate.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*threadstate.State, len(r.registered))
	for i, idx := range r.registered {
		out[i] = &r.states[idx]
	}
	return out
}

// Len reports the number of currently registered slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered)
}
