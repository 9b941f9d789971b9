// Package api implements the public operations of the deadline-progress
// monitor (expect/confirm, registration, handler management, statistics
// reporting) tying together the registry, arena, deadline stack, checkpoint
// entry, watchdog, and statistics packages into the one entry point
// application code calls.
//
// Grounded on internal/race/api/race.go's shape: an enable gate checked at
// the top of each hot-path call (here the Monitor's mode field rather than
// a package-level atomic.Bool) and a sync.Map from goroutine id to
// per-goroutine state. There is no global instance: every caller constructs
// its own Monitor with New, so one process may run several independently
// configured monitors.
package api

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kolkov/progressmon/internal/monitor/checkpoint"
	"github.com/kolkov/progressmon/internal/monitor/gid"
	"github.com/kolkov/progressmon/internal/monitor/monlog"
	"github.com/kolkov/progressmon/internal/monitor/registry"
	"github.com/kolkov/progressmon/internal/monitor/stats"
	"github.com/kolkov/progressmon/internal/monitor/threadstate"
	"github.com/kolkov/progressmon/internal/monitor/timebase"
	"github.com/kolkov/progressmon/internal/monitor/watchdog"
)

// Mode selects which public operations are live. Off erases expect/confirm
// to no-ops (matching the original's MONITORING_OFF macro gate); Passive
// enables expect/confirm but never starts a watchdog; Active enables both.
type Mode int

const (
	Off Mode = iota
	Passive
	Active
)

// Config carries a Monitor's construction-time parameters. Build one with
// New's functional options rather than constructing it directly.
type Config struct {
	mode             Mode
	capacity         int
	statistics       bool
	watchdogInterval time.Duration
}

// Option configures a Monitor at construction time, mirroring the
// teacher's own DetectorOptions/NewDetectorWithOptions shape generalized to
// a functional-options form.
type Option func(*Config)

// WithMode sets the monitor's mode. The default is Active.
func WithMode(m Mode) Option {
	return func(c *Config) { c.mode = m }
}

// WithCapacity sets the maximum number of threads the monitor can track
// simultaneously. The default is registry.DefaultCapacity.
func WithCapacity(n int) Option {
	return func(c *Config) { c.capacity = n }
}

// WithStatistics enables or disables per-checkpoint latency aggregation.
// The default is enabled.
func WithStatistics(enabled bool) Option {
	return func(c *Config) { c.statistics = enabled }
}

// WithWatchdogInterval sets the watchdog's scan period, used only in Active
// mode. The default is watchdog.DefaultInterval.
func WithWatchdogInterval(d time.Duration) Option {
	return func(c *Config) { c.watchdogInterval = d }
}

// Monitor is one independent deadline-progress monitor instance: a thread
// registry, an optional statistics aggregator, and an optional watchdog.
type Monitor struct {
	mode Mode

	registry *registry.Registry
	stats    *stats.Monitor
	watchdog *watchdog.Watchdog

	// contexts maps goroutine id to the calling goroutine's registered
	// state, the same role internal/race/api/race.go's contexts sync.Map
	// plays for the race detector: a cache so that a registered goroutine's
	// hot-path calls never need to touch the registry's mutex.
	contexts sync.Map
}

// New constructs a Monitor. With no options, the result runs in Active mode
// with registry.DefaultCapacity slots, statistics enabled, and
// watchdog.DefaultInterval as the scan period; the watchdog is constructed
// but not started — call StartWatchdog explicitly, mirroring the
// specification's separate start_watchdog runtime entry point.
func New(opts ...Option) *Monitor {
	cfg := Config{
		mode:             Active,
		capacity:         registry.DefaultCapacity,
		statistics:       true,
		watchdogInterval: watchdog.DefaultInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Monitor{
		mode:     cfg.mode,
		registry: registry.New(cfg.capacity),
	}
	if cfg.statistics {
		m.stats = stats.NewMonitor()
	}
	if cfg.mode == Active {
		m.watchdog = watchdog.New(m.registry, m.stats, cfg.watchdogInterval, m.onWatchdogViolation)
	}
	return m
}

// StartWatchdog starts the background scanning goroutine. No-op outside
// Active mode, and idempotent if already running.
func (m *Monitor) StartWatchdog() {
	if m.watchdog != nil {
		m.watchdog.Start()
	}
}

// StopWatchdog stops the background scanning goroutine, waiting for its
// current scan (if any) to finish. No-op outside Active mode.
func (m *Monitor) StopWatchdog() {
	if m.watchdog != nil {
		m.watchdog.Stop()
	}
}

// RegisterThread registers the calling goroutine, returning false if the
// monitor's capacity is exhausted. Per §7's error taxonomy this is a
// capacity-exceeded condition, not an irrecoverable fault: the caller
// decides whether to treat a false return as fatal.
func (m *Monitor) RegisterThread() bool {
	if m.mode == Off {
		return true
	}
	id := gid.Current()
	state, ok := m.registry.Register(id)
	if !ok {
		monlog.Get().Warn().Int("capacity", m.registry.Capacity()).Msg("registry exhausted, thread not registered")
		return false
	}
	m.contexts.Store(id, state)
	return true
}

// DeregisterThread deregisters the calling goroutine. A no-op if the
// calling goroutine was never registered.
func (m *Monitor) DeregisterThread() {
	id := gid.Current()
	v, ok := m.contexts.LoadAndDelete(id)
	if !ok {
		return
	}
	m.registry.Deregister(v.(*threadstate.State))
}

// IsMonitored reports whether the calling goroutine is currently
// registered.
func (m *Monitor) IsMonitored() bool {
	_, ok := m.contexts.Load(gid.Current())
	return ok
}

// currentState returns the calling goroutine's registered state, or nil if
// it is not registered.
func (m *Monitor) currentState() *threadstate.State {
	v, ok := m.contexts.Load(gid.Current())
	if !ok {
		return nil
	}
	return v.(*threadstate.State)
}

// SetHandler installs h as the calling goroutine's violation handler. A
// no-op if the calling goroutine is not registered.
func (m *Monitor) SetHandler(h threadstate.Handler) {
	if s := m.currentState(); s != nil {
		s.SetHandler(h)
	}
}

// UnsetHandler clears the calling goroutine's violation handler. A no-op
// if the calling goroutine is not registered.
func (m *Monitor) UnsetHandler() {
	if s := m.currentState(); s != nil {
		s.UnsetHandler()
	}
}

// ExpectProgressIn records that the calling goroutine expects to reach the
// next ConfirmProgress call within d. A no-op in Off mode or if the calling
// goroutine is not registered.
func (m *Monitor) ExpectProgressIn(d time.Duration, id checkpoint.ID, loc checkpoint.Location) {
	if m.mode == Off {
		return
	}
	s := m.currentState()
	if s == nil {
		return
	}

	now := timebase.Now()
	entry := s.Arena.Allocate()
	entry.Init(timebase.Add(now, d), id, loc, now, 0)
	s.Deadlines.Push(entry)
}

// ConfirmProgress pops the calling goroutine's most recently pushed
// checkpoint, detecting and reporting a self-detected violation if the
// deadline has already passed, then folds the observed runtime into
// statistics. loc identifies the confirmation call site and is what the
// self-detected diagnostic line reports, matching the original
// implementation's confirmProgress(location).
//
// Calling ConfirmProgress with no outstanding expectation on this
// goroutine is a misuse per §7's error taxonomy; it is a silent no-op here
// rather than an abort, since Go has no debug/release build distinction to
// hang an assertion off of.
func (m *Monitor) ConfirmProgress(loc checkpoint.Location) {
	if m.mode == Off {
		return
	}
	s := m.currentState()
	if s == nil {
		return
	}

	entry := s.Deadlines.Pop()
	if entry == nil {
		return
	}

	t := timebase.Now()
	deadline := entry.LoadDeadline()

	// deadline == 0 here means the watchdog already claimed this entry
	// before the owner got to it: it has already recorded statistics and
	// invoked the handler for it (see watchdog.checkAll), so there is
	// nothing left for the owner to do beyond returning the entry to the
	// allocator — matching the original implementation's confirmProgress,
	// which returns immediately in exactly this case.
	if deadline != 0 {
		after, delta := timebase.DeltaIfAfter(t, deadline)
		// Claim regardless of whether the deadline was exceeded, per the
		// specification's step 5: this both suppresses a duplicate
		// watchdog report when the deadline hadn't yet passed, and, if it
		// had, decides which of owner/watchdog gets to report and invoke
		// the handler. A failed claim means the watchdog already won this
		// entry in the interval between LoadDeadline above and this CAS;
		// the owner must not report or invoke the handler a second time.
		claimed := entry.Claim(deadline)
		if claimed && after {
			reportSelfDetected(gid.Current(), delta, loc, entry.ID)
			s.InvokeHandler(entry)
		}
		if claimed && m.stats != nil {
			m.stats.Update(entry.ID, timebase.Since(t, entry.Start), after)
		}
	}

	s.Arena.Deallocate(entry)
}

// ScopeGuard is a scoped expect/confirm pair: construct with NewScopeGuard
// and call Close (typically via defer) to confirm, guaranteeing a matched
// confirm even when the scope is left via an early return or a panic that
// propagates past the defer.
type ScopeGuard struct {
	monitor  *Monitor
	location checkpoint.Location
}

// NewScopeGuard calls ExpectProgressIn and returns a guard whose Close
// calls ConfirmProgress with the same location, the Go realization of the
// original's RAII scope_guard.
func (m *Monitor) NewScopeGuard(d time.Duration, id checkpoint.ID, loc checkpoint.Location) *ScopeGuard {
	m.ExpectProgressIn(d, id, loc)
	return &ScopeGuard{monitor: m, location: loc}
}

// Close confirms progress at the guard's recorded location. Safe to call
// via defer, including on the panicking path.
func (g *ScopeGuard) Close() {
	g.monitor.ConfirmProgress(g.location)
}

// onWatchdogViolation is the watchdog.OnViolation callback wired in by New:
// it renders the watchdog-detected diagnostic line in the fixed format
// required by the specification.
func (m *Monitor) onWatchdogViolation(state *threadstate.State, entry *checkpoint.Entry, now timebase.Time, delta time.Duration) {
	reportWatchdogDetected(delta, entry.Location, entry.ID)
}

// reportSelfDetected writes the fixed-format self-detected violation line
// to stderr, matching the teacher's own convention of writing stable,
// scrape-oriented diagnostics directly with fmt.Fprintf rather than through
// the structured logger (see package monlog's doc comment).
func reportSelfDetected(tid int64, delta time.Duration, loc checkpoint.Location, id checkpoint.ID) {
	line := fmt.Sprintf("[This thread] tid %d deadline exceeded by %d time units at CONFIRM PROGRESS in %s", tid, delta.Nanoseconds(), loc)
	if id != 0 {
		line += fmt.Sprintf(" [checkpoint id %d]", id)
	}
	fmt.Fprintln(os.Stderr, line)
}

// reportWatchdogDetected writes the fixed-format watchdog-detected
// violation line to stderr.
func reportWatchdogDetected(delta time.Duration, loc checkpoint.Location, id checkpoint.ID) {
	line := fmt.Sprintf("[Monitoring thread] deadline exceeded by at least %d time units at %s", delta.Nanoseconds(), loc)
	if id != 0 {
		line += fmt.Sprintf(" [checkpoint id %d]", id)
	}
	fmt.Fprintln(os.Stderr, line)
}

// PrintStats writes every recorded checkpoint's aggregate statistics to w,
// one line per id. The only intended reader, per the specification, is a
// print-on-shutdown report; nil stats (statistics disabled) makes this a
// no-op.
func (m *Monitor) PrintStats(w *os.File) {
	if m.stats == nil {
		return
	}
	for _, agg := range m.stats.All() {
		fmt.Fprintf(w, "checkpoint %d: count=%d violations=%d min=%s max=%s mean=%s stddev=%.2fns\n",
			agg.ID, agg.Count, agg.Violations, agg.Min, agg.Max, agg.Mean(), agg.StdDev())
	}
}
