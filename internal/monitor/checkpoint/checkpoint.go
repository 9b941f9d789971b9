// Package checkpoint defines the fixed-layout record pushed onto a deadline
// stack by every expect/confirm pair, and the source location tag attached
// to it.
package checkpoint

import (
	"fmt"
	"sync/atomic"

	"github.com/kolkov/progressmon/internal/monitor/timebase"
)

// ID identifies a class of checkpoint for statistics aggregation. Zero is
// reserved, meaning "unnamed".
type ID uint64

// Location is a lightweight source tag, written once at construction and
// read by both the owning goroutine and the watchdog.
type Location struct {
	File     string
	Line     int
	Function string
}

// String renders a Location the way the diagnostic lines in §6 expect it:
// "file <f> line <l> function <g>".
func (l Location) String() string {
	return fmt.Sprintf("file %s line %d function %s", l.File, l.Line, l.Function)
}

// Entry is one outstanding expect_progress_in call. Entries are
// memcopy-safe in spirit: every field besides Deadline is written once at
// push time and never mutated again, so a reader may snapshot them field by
// field without additional synchronization beyond the stack's modification
// counter (see deadlinestack.Stack).
type Entry struct {
	// Deadline is the absolute time by which ConfirmProgress must occur.
	// Zero means "claimed" — either the owning goroutine's ConfirmProgress
	// or the watchdog's CAS scan has already transitioned it, and, if the
	// deadline was exceeded, the handler has already been invoked (or is
	// being invoked) for it.
	Deadline atomic.Uint64

	ID       ID
	Location Location

	// Start is the time the entry was pushed, used to compute latency
	// statistics at confirmation time.
	Start timebase.Time

	// Sequence is the deadlinestack modification-counter value observed at
	// push time, letting a reader that captured this entry out of a walk
	// distinguish it from a later entry recycled into the same memory.
	Sequence uint64

	// Next links to the entry pushed immediately before this one.
	Next *Entry
}

// Init (re)initializes a recycled entry for a new expectation. Called only
// by the owning goroutine, never concurrently with a watchdog scan of this
// entry (the entry is off-stack at this point).
func (e *Entry) Init(deadline timebase.Time, id ID, loc Location, start timebase.Time, sequence uint64) {
	e.Deadline.Store(uint64(deadline))
	e.ID = id
	e.Location = loc
	e.Start = start
	e.Sequence = sequence
	e.Next = nil
}

// LoadDeadline reads the current deadline with acquire ordering, as required
// for any reader racing the watchdog or the owning goroutine's claim.
func (e *Entry) LoadDeadline() timebase.Time {
	return timebase.Time(e.Deadline.Load())
}

// Claim attempts to CAS the deadline from want to the claimed sentinel (0).
// Exactly one caller among the owning goroutine and the watchdog succeeds
// per entry; the winner is responsible for invoking the handler.
func (e *Entry) Claim(want timebase.Time) bool {
	return e.Deadline.CompareAndSwap(uint64(want), 0)
}

// Claimed reports whether the entry's deadline has already been claimed
// (i.e. is the sentinel zero).
func (e *Entry) Claimed() bool {
	return e.Deadline.Load() == 0
}
