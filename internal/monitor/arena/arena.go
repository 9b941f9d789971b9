// Package arena implements the thread-local (goroutine-local) entry
// allocator: a slab/arena that grows in fixed-size batches and recycles
// freed entries onto a free-list, never returning memory to the Go
// allocator until the arena itself is dropped (i.e. until the owning
// goroutine exits and its state is deregistered).
//
// The address-stability this guarantees — an entry's address, once
// handed out, stays valid memory for the arena's whole lifetime (a freed
// entry is recycled for a later expectation, never released) — is what lets the watchdog
// walk another goroutine's deadline stack without synchronizing with that
// goroutine's allocator.
package arena

import "github.com/kolkov/progressmon/internal/monitor/checkpoint"

// batchSize mirrors the original implementation's choice of growing by a
// batch of entries at a time rather than one at a time, amortizing the cost
// of extending the free-list.
const batchSize = 128

// Arena is not safe for concurrent use; it must only ever be used by its
// owning goroutine. The zero value is ready to use.
type Arena struct {
	free    []*checkpoint.Entry
	batches [][]checkpoint.Entry
}

// Allocate returns an entry ready for Init, growing the arena by one batch
// if the free-list is empty. A fresh entry is zero-valued; a recycled one
// keeps its previous field values until Init overwrites them. Unlike the
// original's C++ arena, Go's allocator cannot fail synchronously under
// normal operation, so this never returns an error and has no abort path.
func (a *Arena) Allocate() *checkpoint.Entry {
	if len(a.free) == 0 {
		a.grow()
	}
	n := len(a.free) - 1
	entry := a.free[n]
	a.free = a.free[:n]
	return entry
}

// Deallocate returns entry to the free-list for recycling. It must be the
// entry most recently popped from this goroutine's deadline stack, never an
// entry that originated in another goroutine's arena.
func (a *Arena) Deallocate(entry *checkpoint.Entry) {
	a.free = append(a.free, entry)
}

// grow allocates one new batch and appends every slot's address onto the
// free-list. The batch itself is retained in a.batches for the arena's
// entire lifetime, so no individual entry's address is ever invalidated.
func (a *Arena) grow() {
	batch := make([]checkpoint.Entry, batchSize)
	a.batches = append(a.batches, batch)
	if cap(a.free) < len(a.free)+batchSize {
		grown := make([]*checkpoint.Entry, len(a.free), len(a.free)+batchSize)
		copy(grown, a.free)
		a.free = grown
	}
	for i := range batch {
		a.free = append(a.free, &batch[i])
	}
}

// Outstanding returns the number of entries currently allocated from the
// arena's batches but not yet returned to the free-list. Intended for
// diagnostics only.
func (a *Arena) Outstanding() int {
	total := len(a.batches) * batchSize
	return total - len(a.free)
}
