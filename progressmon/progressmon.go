// Package progressmon provides the public API of the deadline-progress
// monitor.
//
// See doc.go for detailed documentation and examples.
package progressmon

import (
	"os"
	"time"

	internal "github.com/kolkov/progressmon/internal/monitor/api"
	"github.com/kolkov/progressmon/internal/monitor/checkpoint"
	"github.com/kolkov/progressmon/internal/monitor/threadstate"
)

// Mode selects which public operations are live; see the Off, Passive, and
// Active constants.
type Mode = internal.Mode

const (
	// Off erases ExpectProgressIn/ConfirmProgress to no-ops.
	Off = internal.Off
	// Passive enables ExpectProgressIn/ConfirmProgress but never starts a
	// watchdog: only self-detected violations are possible.
	Passive = internal.Passive
	// Active enables both self-detected and watchdog-detected violations.
	Active = internal.Active
)

// ID identifies a class of checkpoint for statistics aggregation. Zero is
// reserved, meaning "unnamed".
type ID = checkpoint.ID

// Location is a source tag (file, line, function) attached to a checkpoint,
// reported in violation diagnostics.
type Location = checkpoint.Location

// Entry is the checkpoint record a Handler receives: its id and its
// location. Its Deadline field has already been claimed (set to zero) by
// the time the Handler runs, so it does not carry the violated deadline.
type Entry = checkpoint.Entry

// Handler is invoked at most once per violated checkpoint, from either the
// owning goroutine or the watchdog goroutine. It must be reentrant and
// short, and must not call ExpectProgressIn/ConfirmProgress while
// executing.
type Handler = threadstate.Handler

// Option configures a Monitor at construction time.
type Option = internal.Option

// WithMode sets the monitor's mode. The default is Active.
func WithMode(m Mode) Option { return internal.WithMode(m) }

// WithCapacity sets the maximum number of goroutines the monitor can track
// simultaneously. The default is registry.DefaultCapacity.
func WithCapacity(n int) Option { return internal.WithCapacity(n) }

// WithStatistics enables or disables per-checkpoint latency aggregation.
// The default is enabled.
func WithStatistics(enabled bool) Option { return internal.WithStatistics(enabled) }

// WithWatchdogInterval sets the watchdog's scan period, used only in Active
// mode. The default is watchdog.DefaultInterval.
func WithWatchdogInterval(d time.Duration) Option { return internal.WithWatchdogInterval(d) }

// Monitor is one independent deadline-progress monitor instance.
//
// Example:
//
//	mon := progressmon.New()
//	mon.StartWatchdog()
//	defer mon.StopWatchdog()
//
//	mon.RegisterThread()
//	defer mon.DeregisterThread()
//
//	mon.SetHandler(func(e *progressmon.Entry) {
//		log.Printf("deadline violated: %s", e.Location)
//	})
//
//	loc := progressmon.Location{File: "worker.go", Line: 42, Function: "process"}
//	g := mon.NewScopeGuard(100*time.Millisecond, 1, loc)
//	defer g.Close()
//	// ... work expected to finish within 100ms ...
type Monitor struct {
	inner *internal.Monitor
}

// New constructs a Monitor. With no options, the result runs in Active mode
// with registry.DefaultCapacity slots, statistics enabled, and the
// package's default watchdog scan interval. The watchdog is constructed but
// not started; call StartWatchdog explicitly.
func New(opts ...Option) *Monitor {
	return &Monitor{inner: internal.New(opts...)}
}

// StartWatchdog starts the background scanning goroutine. No-op outside
// Active mode, and idempotent if already running.
func (m *Monitor) StartWatchdog() { m.inner.StartWatchdog() }

// StopWatchdog stops the background scanning goroutine, waiting for its
// current scan (if any) to finish. No-op outside Active mode.
func (m *Monitor) StopWatchdog() { m.inner.StopWatchdog() }

// RegisterThread registers the calling goroutine, returning false if the
// monitor's capacity is exhausted.
func (m *Monitor) RegisterThread() bool { return m.inner.RegisterThread() }

// DeregisterThread deregisters the calling goroutine. A no-op if the
// calling goroutine was never registered.
func (m *Monitor) DeregisterThread() { m.inner.DeregisterThread() }

// IsMonitored reports whether the calling goroutine is currently
// registered.
func (m *Monitor) IsMonitored() bool { return m.inner.IsMonitored() }

// SetHandler installs h as the calling goroutine's violation handler. A
// no-op if the calling goroutine is not registered.
func (m *Monitor) SetHandler(h Handler) { m.inner.SetHandler(h) }

// UnsetHandler clears the calling goroutine's violation handler. A no-op if
// the calling goroutine is not registered.
func (m *Monitor) UnsetHandler() { m.inner.UnsetHandler() }

// ExpectProgressIn records that the calling goroutine expects to reach the
// next ConfirmProgress call within d.
func (m *Monitor) ExpectProgressIn(d time.Duration, id ID, loc Location) {
	m.inner.ExpectProgressIn(d, id, loc)
}

// ConfirmProgress pops the calling goroutine's most recently pushed
// checkpoint, reporting and handling a self-detected violation if the
// deadline has already passed. loc identifies the confirmation call site.
func (m *Monitor) ConfirmProgress(loc Location) { m.inner.ConfirmProgress(loc) }

// ScopeGuard ties an expect/confirm pair to a lexical scope: call Close
// (typically via defer) to confirm, guaranteeing a matched confirm even
// on an early return or a panicking call stack.
type ScopeGuard struct {
	inner *internal.ScopeGuard
}

// NewScopeGuard calls ExpectProgressIn and returns a guard whose Close
// calls ConfirmProgress with the same location.
func (m *Monitor) NewScopeGuard(d time.Duration, id ID, loc Location) *ScopeGuard {
	return &ScopeGuard{inner: m.inner.NewScopeGuard(d, id, loc)}
}

// Close confirms progress at the guard's recorded location. Safe to call
// via defer, including on the panicking path.
func (g *ScopeGuard) Close() { g.inner.Close() }

// PrintStats writes every recorded checkpoint's aggregate statistics to w,
// one line per id. A no-op if statistics were disabled via
// WithStatistics(false).
func (m *Monitor) PrintStats(w *os.File) { m.inner.PrintStats(w) }
