// Package cache implements a capacity-bounded pool of control blocks
// coordinating weak/strong reference transitions through an atomic state
// machine, independent of the deadline-monitoring core but built to the
// same memory-ordering discipline.
//
// Grounded directly on original_source/include/cache/control_block.hpp,
// ref.hpp, weak_ref.hpp, strong_ref.hpp and weak_cache.hpp. A control
// block's strong count carries the same three-way meaning the original
// assigns it:
//
//	0      free, owned by the cache's unused queue
//	1      exclusive: the cache is (re)initializing the block; no ref may
//	       observe it
//	>= 2   in use: external weak/strong refs may come and go freely
//
// The secondary "locked" acquisition (strong = 3) the original's
// weak_cache::get_locked_ref also exposes is preserved here as
// AcquireLocked, resolving the open question the distilled specification
// flags about which of the two encodings to keep: both are real surface
// area in the original, so both are ported rather than one being discarded.
package cache

import (
	"sync"
	"sync/atomic"
)

// state constants for a control block's strong count.
const (
	free      = 0
	exclusive = 1
	// unreferenced is the strong value a block settles to once every
	// strong_ref has been dropped but weak_refs may still exist — matching
	// the original's UNREFERENCED = 2.
	unreferenced = 2
	// locked is the strong value AcquireLocked publishes: one implicit
	// strong reference is pinned on behalf of the caller until explicitly
	// unlocked, in addition to being upgradable like any unreferenced
	// block.
	locked = 3
)

// controlBlock is one slot in a Cache's fixed pool.
type controlBlock[T any] struct {
	value T

	strong atomic.Uint64
	weak   atomic.Uint64
	aba    atomic.Uint64
	index  int
}

func (b *controlBlock[T]) tryStrongRef() bool {
	for {
		old := b.strong.Load()
		if old < unreferenced {
			return false
		}
		if b.strong.CompareAndSwap(old, old+1) {
			return true
		}
	}
}

func (b *controlBlock[T]) strongUnref(release func(*controlBlock[T])) {
	s := b.strong.Add(^uint64(0)) // decrement
	if s == unreferenced && b.weak.Load() == 0 {
		release(b)
	}
}

func (b *controlBlock[T]) makeExclusive() bool {
	if b.strong.CompareAndSwap(free, exclusive) {
		return true
	}
	return b.strong.CompareAndSwap(unreferenced, exclusive)
}

func (b *controlBlock[T]) weakRefInc() {
	b.weak.Add(1)
}

func (b *controlBlock[T]) weakRefDec(release func(*controlBlock[T])) {
	if b.weak.Add(^uint64(0)) == 0 && b.strong.Load() <= unreferenced {
		release(b)
	}
}

// Cache is a fixed-capacity pool of control blocks holding values of type
// T. The zero value is not usable; construct with New.
type Cache[T any] struct {
	blocks []controlBlock[T]

	mu       sync.Mutex
	unused   []int
	maybeUse []int
}

// New creates a cache with the given fixed capacity.
func New[T any](capacity int) *Cache[T] {
	c := &Cache[T]{
		blocks: make([]controlBlock[T], capacity),
		unused: make([]int, capacity),
	}
	for i := 0; i < capacity; i++ {
		c.blocks[i].index = i
		c.unused[i] = capacity - 1 - i
	}
	return c
}

// Capacity returns the fixed number of blocks this cache was created with.
func (c *Cache[T]) Capacity() int {
	return len(c.blocks)
}

// acquire is the shared fast/slow-path implementation behind AcquireWeak
// and AcquireLocked; publishedStrong is the strong value the freshly
// exclusive block is published with (unreferenced for AcquireWeak, locked
// for AcquireLocked), matching the original weak_cache::get_weak_ref vs.
// get_locked_ref distinction.
func (c *Cache[T]) acquire(publishedStrong uint64) *WeakRef[T] {
	c.mu.Lock()

	if n := len(c.unused); n > 0 {
		index := c.unused[n-1]
		c.unused = c.unused[:n-1]
		block := &c.blocks[index]
		c.maybeUse = append(c.maybeUse, index)
		c.mu.Unlock()

		block.value = *new(T)
		block.aba.Add(1)
		block.weak.Store(1) // the WeakRef returned below owns this reference
		block.strong.Store(publishedStrong)
		return &WeakRef[T]{block: block, aba: block.aba.Load(), cache: c}
	}

	// Slow path: walk the maybe-used queue looking for a block whose
	// strong count is currently reclaimable (free or unreferenced).
	candidates := append([]int(nil), c.maybeUse...)
	c.mu.Unlock()

	for _, index := range candidates {
		block := &c.blocks[index]
		if block.makeExclusive() {
			block.value = *new(T)
			block.aba.Add(1)
			// Stale WeakRefs of the previous generation may still hold weak
			// references; add rather than overwrite so their later Release
			// cannot hand the block back while the new WeakRef holds it.
			block.weak.Add(1) // the WeakRef returned below owns this reference
			block.strong.Store(publishedStrong)
			return &WeakRef[T]{block: block, aba: block.aba.Load(), cache: c}
		}
	}

	return nil
}

// AcquireWeak obtains a fresh weak reference to a newly (re)initialized
// block, or nil if the cache is exhausted (every block is strongly and/or
// weakly referenced and none could be seized).
func (c *Cache[T]) AcquireWeak() *WeakRef[T] {
	return c.acquire(unreferenced)
}

// AcquireLocked behaves like AcquireWeak but additionally pins one implicit
// strong reference on the returned block (the original's "locked" variant):
// the block cannot be reclaimed until that reference is released via
// WeakRef.Unlock, even with no other strong_ref outstanding.
func (c *Cache[T]) AcquireLocked() *WeakRef[T] {
	return c.acquire(locked)
}

// AcquireStrong is a convenience wrapping AcquireWeak().Upgrade().
func (c *Cache[T]) AcquireStrong() *StrongRef[T] {
	w := c.AcquireWeak()
	if w == nil {
		return nil
	}
	return w.Upgrade()
}

// release is invoked (via the closures above) when a block's last
// reference of either kind drops. If the block is fully unreferenced, it is
// moved back to the unused queue; otherwise it is left in maybe-used for a
// future sweep to reclaim, matching the original's release contract.
func (c *Cache[T]) release(b *controlBlock[T]) {
	if b.weak.Load() != 0 {
		return
	}
	if !b.strong.CompareAndSwap(unreferenced, free) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, idx := range c.maybeUse {
		if idx == b.index {
			c.maybeUse = append(c.maybeUse[:i], c.maybeUse[i+1:]...)
			break
		}
	}
	c.unused = append(c.unused, b.index)
}

// WeakRef is a copyable handle to a control block's current generation. It
// does not pin the value against reclamation; call Upgrade to obtain a
// StrongRef that does.
type WeakRef[T any] struct {
	block *controlBlock[T]
	aba   uint64
	cache *Cache[T]
}

// Valid reports whether this WeakRef still refers to a live block.
func (w *WeakRef[T]) Valid() bool {
	return w != nil && w.block != nil
}

// Clone returns a new WeakRef sharing the same generation snapshot,
// incrementing the block's weak count — the original's copy constructor.
func (w *WeakRef[T]) Clone() *WeakRef[T] {
	if !w.Valid() {
		return &WeakRef[T]{}
	}
	w.block.weakRefInc()
	return &WeakRef[T]{block: w.block, aba: w.aba, cache: w.cache}
}

// Upgrade attempts to obtain a StrongRef pinning the referenced value. It
// fails (returns nil) if the block has since been reclaimed or recycled
// into a new generation — the aba check — even if the slot has been reused
// for an unrelated value by the time Upgrade runs.
func (w *WeakRef[T]) Upgrade() *StrongRef[T] {
	if !w.Valid() {
		return nil
	}
	if w.block.tryStrongRef() {
		if w.aba == w.block.aba.Load() {
			return &StrongRef[T]{block: w.block, cache: w.cache}
		}
		w.block.strongUnref(w.cache.release)
	}
	w.Release()
	return nil
}

// Unlock releases the implicit strong reference pinned by AcquireLocked.
// Only ever call this on a WeakRef obtained directly from AcquireLocked,
// exactly once.
func (w *WeakRef[T]) Unlock() {
	if w.Valid() {
		w.block.strongUnref(w.cache.release)
	}
}

// Release drops this WeakRef's claim on the block's generation. After
// Release, Valid reports false and Upgrade/Clone must not be called.
func (w *WeakRef[T]) Release() {
	if !w.Valid() {
		return
	}
	w.block.weakRefDec(w.cache.release)
	w.block = nil
}

// StrongRef pins a control block's value against reclamation. Move-only in
// spirit: in Go this just means callers should treat a StrongRef as
// consumed once passed elsewhere, since there is no compiler-enforced move,
// but Release is idempotent-safe to call once.
type StrongRef[T any] struct {
	block *controlBlock[T]
	cache *Cache[T]
}

// Valid reports whether this StrongRef still pins a live value.
func (s *StrongRef[T]) Valid() bool {
	return s != nil && s.block != nil
}

// Value returns a pointer to the pinned value. Only valid to call while
// Valid() is true.
func (s *StrongRef[T]) Value() *T {
	return &s.block.value
}

// Release drops the strong reference.
func (s *StrongRef[T]) Release() {
	if !s.Valid() {
		return
	}
	s.block.strongUnref(s.cache.release)
	s.block = nil
}
