// Package deadlinestack implements the single-writer, multi-reader
// lock-free stack of checkpoint entries belonging to one monitored
// goroutine.
//
// Only the owning goroutine ever calls Push or Pop. Any number of other
// goroutines (in practice: the watchdog) may concurrently call Top, Count,
// or Walk. The only synchronizing state between writer and readers is the
// monotonic count: it is incremented before the top pointer changes on a
// push, so a reader that samples count, reads top, and re-samples count
// unchanged knows no push began in that window. Pop deliberately does not
// bump count (see Pop below) — a concurrent pop during a reader's walk is
// benign because entry memory is never freed while the arena that owns it
// is alive (see package arena), so the reader simply observes either the
// pre-pop or post-pop shape of the stack.
package deadlinestack

import (
	"sync/atomic"

	"github.com/kolkov/progressmon/internal/monitor/checkpoint"
)

// Stack is the per-goroutine deadline stack. The zero value is an empty,
// ready-to-use stack.
type Stack struct {
	top   atomic.Pointer[checkpoint.Entry]
	count atomic.Uint64
}

// Push publishes entry as the new top of the stack. Must only be called by
// the owning goroutine.
func (s *Stack) Push(entry *checkpoint.Entry) {
	entry.Sequence = s.count.Add(1)
	entry.Next = s.top.Load()
	s.top.Store(entry)
}

// Pop removes and returns the current top entry, or nil if the stack is
// empty. Must only be called by the owning goroutine. Count is not
// incremented here; see the package doc comment for why that is safe.
func (s *Stack) Pop() *checkpoint.Entry {
	p := s.top.Load()
	if p == nil {
		return nil
	}
	s.top.Store(p.Next)
	return p
}

// Top returns the current top entry without removing it. Safe for
// concurrent readers.
func (s *Stack) Top() *checkpoint.Entry {
	return s.top.Load()
}

// Count returns the current modification counter. Safe for concurrent
// readers.
func (s *Stack) Count() uint64 {
	return s.count.Load()
}

// Empty reports whether the stack currently holds no entries.
func (s *Stack) Empty() bool {
	return s.top.Load() == nil
}

// Reset clears the stack back to its zero state via the same atomic fields
// Push/Pop/Walk use, rather than replacing the Stack value wholesale — a
// raw composite-literal assignment over a live Stack would race any
// concurrent Top/Count/Walk reader touching the same top/count fields
// (e.g. a watchdog mid-scan while the owning goroutine deregisters). Must
// only be called once no other goroutine can still be reading this Stack
// (i.e. after the owning slot has been removed from the registry's
// Registered() snapshot population).
func (s *Stack) Reset() {
	s.top.Store(nil)
	s.count.Store(0)
}

// Peek snapshots the current top entry's plain fields into result. It
// retries internally until a snapshot is consistent — i.e. no push
// occurred between sampling count and re-sampling it — and reports false
// only when the stack is empty. The original entry memory is always valid
// to read (see package arena), so an inconsistent attempt can never corrupt
// memory; it is simply discarded and retried. Deadline is read
// through LoadDeadline and stored into result's own atomic field rather
// than copied via struct assignment, since entry.Deadline may be
// concurrently mutated by Claim.
func (s *Stack) Peek(result *checkpoint.Entry) bool {
	for {
		t := s.top.Load()
		if t == nil {
			return false
		}
		c0 := s.count.Load()
		deadline := t.Deadline.Load()
		id := t.ID
		loc := t.Location
		start := t.Start
		seq := t.Sequence
		if s.count.Load() == c0 {
			result.Deadline.Store(deadline)
			result.ID = id
			result.Location = loc
			result.Start = start
			result.Sequence = seq
			result.Next = nil
			return true
		}
	}
}

// Walk calls visit once for every entry currently reachable from the top,
// most recently pushed (innermost nesting level) first, stopping early if visit returns
// false. It reports whether the walk completed without observing a
// concurrent push — if count changes mid-walk, the walk stops immediately
// and reports false, since the stack's shape may have changed underneath
// it and continuing risks visiting an entry twice or skipping one. This is
// exactly the watchdog's per-stack scan pattern.
func (s *Stack) Walk(visit func(*checkpoint.Entry) bool) bool {
	c0 := s.count.Load()
	for p := s.top.Load(); p != nil; p = p.Next {
		if s.count.Load() != c0 {
			return false
		}
		if !visit(p) {
			break
		}
	}
	return s.count.Load() == c0
}
