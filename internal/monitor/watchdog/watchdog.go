// Package watchdog implements the independent scanning goroutine that
// detects deadline violations a stalled owning goroutine never confirms
// itself.
//
// Grounded on the general Go idiom the teacher itself uses for its one
// background concern — internal/race/detector/detector.go's
// checkOverflowPeriodically, which counts operations and periodically
// checks for overflow — generalized here to its natural Go form, a
// time.Ticker-driven goroutine, since the watchdog's trigger is wall-clock
// time rather than an operation count. The scan algorithm itself (walk
// every registered thread's deadline stack, CAS-claim any exceeded entry,
// invoke its handler) is grounded on
// original_source/include/monitoring/thread_monitor.hpp's monitoring
// thread loop.
package watchdog

import (
	"sync"
	"time"

	"github.com/kolkov/progressmon/internal/monitor/checkpoint"
	"github.com/kolkov/progressmon/internal/monitor/monlog"
	"github.com/kolkov/progressmon/internal/monitor/registry"
	"github.com/kolkov/progressmon/internal/monitor/stats"
	"github.com/kolkov/progressmon/internal/monitor/threadstate"
	"github.com/kolkov/progressmon/internal/monitor/timebase"
)

// DefaultInterval is the fixed scan period used when no interval is
// configured. The original implementation deliberately keeps this interval
// fixed rather than adaptive (see original_source/include/monitoring/
// thread_monitor.hpp's comment on why a fixed period is preferred over
// scaling to the shortest outstanding deadline: an adaptive period couples
// the watchdog's own scheduling latency to application behavior, which
// defeats its purpose as an independent backstop).
const DefaultInterval = 10 * time.Millisecond

// OnViolation is invoked once for every entry the watchdog itself claims,
// after its handler (if any) has already run and statistics (if enabled)
// have been updated. Used by the owning api package to write the
// fixed-format diagnostic line; nil is a valid, no-op value.
type OnViolation func(state *threadstate.State, entry *checkpoint.Entry, now timebase.Time, delta time.Duration)

// Watchdog periodically scans every registered thread's deadline stack for
// entries whose deadline has passed without a confirming ConfirmProgress
// call, claims them, and invokes their handler.
type Watchdog struct {
	registry    *registry.Registry
	stats       *stats.Monitor
	interval    time.Duration
	onViolation OnViolation

	mu      sync.Mutex
	cancel  chan struct{}
	done    chan struct{}
	running bool
}

// New creates a watchdog over reg, reporting violations into statsMonitor
// (which may be nil to disable statistics) and invoking onViolation (which
// may be nil) after each claimed entry's handler runs. interval <= 0 uses
// DefaultInterval.
func New(reg *registry.Registry, statsMonitor *stats.Monitor, interval time.Duration, onViolation OnViolation) *Watchdog {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watchdog{
		registry:    reg,
		stats:       statsMonitor,
		interval:    interval,
		onViolation: onViolation,
	}
}

// Start launches the scanning goroutine. Calling Start on an already
// running watchdog is a no-op.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.cancel = make(chan struct{})
	w.done = make(chan struct{})

	// The original implementation raises the monitoring thread's OS
	// scheduling priority so its scan cadence stays accurate under load.
	// Go exposes no equivalent knob for a single goroutine, so this is
	// logged once as a known limitation rather than silently skipped.
	monlog.Get().Warn().
		Dur("interval", w.interval).
		Msg("watchdog starting without elevated scheduling priority: not supported by the Go runtime")

	cancel := w.cancel
	done := w.done
	go w.run(cancel, done)
}

// Stop signals the scanning goroutine to exit and waits for it to do so.
// Calling Stop on a watchdog that was never started, or already stopped,
// is a no-op.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	close(cancel)
	<-done
}

func (w *Watchdog) run(cancel, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			w.checkAll(timebase.Now())
		}
	}
}

// checkAll walks every registered thread's deadline stack once, claiming
// and handling any entry whose deadline t is strictly after. Kept as a
// separate (unexported) method so the package's tests can call it directly
// and deterministically without waiting on the ticker.
func (w *Watchdog) checkAll(t timebase.Time) {
	for _, state := range w.registry.Registered() {
		state.Deadlines.Walk(func(entry *checkpoint.Entry) bool {
			deadline := entry.LoadDeadline()
			if deadline == 0 {
				return true
			}
			after, delta := timebase.DeltaIfAfter(t, deadline)
			if !after {
				return true
			}
			if !entry.Claim(deadline) {
				// The owning goroutine's ConfirmProgress won the race;
				// nothing left for the watchdog to do for this entry.
				return true
			}

			state.InvokeHandler(entry)
			if w.stats != nil {
				w.stats.Update(entry.ID, timebase.Since(t, entry.Start), true)
			}
			if w.onViolation != nil {
				w.onViolation(state, entry, t, delta)
			}
			return true
		})
	}
}
