// Package threadstate defines the per-goroutine slot record held by the
// thread registry: a deadline stack, the owning goroutine's identity, a
// slot index, and a handler guarded by its own rarely-taken mutex.
package threadstate

import (
	"sync"

	"github.com/kolkov/progressmon/internal/monitor/arena"
	"github.com/kolkov/progressmon/internal/monitor/checkpoint"
	"github.com/kolkov/progressmon/internal/monitor/deadlinestack"
)

// Handler is invoked at most once per violated checkpoint entry, from
// either the owning goroutine (self-detected violation) or the watchdog
// goroutine (independently detected violation). It must be reentrant and
// must not call ExpectProgressIn/ConfirmProgress while executing.
type Handler func(entry *checkpoint.Entry)

// State is one slot in the registry's fixed-size pool. Weak encapsulation
// by design: the deadline stack and arena are read directly by the owning
// goroutine's hot path and by the watchdog's scan, matching the original's
// own choice to favor performance over information hiding here.
type State struct {
	Deadlines deadlinestack.Stack
	Arena     arena.Arena

	// GoroutineID identifies the owning goroutine, set at registration and
	// cleared at deregistration.
	GoroutineID int64

	// Index is this state's slot number in the registry's fixed array.
	Index int

	mu      sync.Mutex
	handler Handler
}

// SetHandler installs h as the current violation handler, replacing any
// previous one. Safe to call at any time, including while the watchdog may
// be concurrently invoking the current handler — the swap is serialized by
// the state's own mutex, and a concurrent InvokeHandler call observes
// either the old handler in full or the new handler in full, never a torn
// read.
func (s *State) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// UnsetHandler clears the current handler.
func (s *State) UnsetHandler() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = nil
}

// InvokeHandler calls the current handler, if any, with entry. Safe to call
// from the owning goroutine or from the watchdog.
func (s *State) InvokeHandler(entry *checkpoint.Entry) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(entry)
	}
}

// reset clears the state for reuse by a future registration. Called by the
// registry under its own mutex during deregistration; residual stack
// entries are simply abandoned (their arena memory stays valid for the
// remainder of the process but is no longer reachable from any registry
// walk) rather than individually freed, matching the original's
// deregister contract.
func (s *State) reset(index int) {
	s.Deadlines.Reset()
	s.Arena = arena.Arena{}
	s.GoroutineID = 0
	s.Index = index
	s.mu.Lock()
	s.handler = nil
	s.mu.Unlock()
}

// Reset is exported for use by package registry, which owns the lifecycle
// of States but lives in a separate package to keep the fixed-capacity
// pool and free-slot bookkeeping out of this one.
func (s *State) Reset(index int) { s.reset(index) }
