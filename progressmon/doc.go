// Package progressmon implements a deadline-progress monitor for
// multithreaded, latency-sensitive Go programs.
//
// Goroutines annotate their code with progress expectations ("I expect to
// reach the next confirmation within T") and progress confirmations ("I
// reached it"). Violations are detected two ways — by the confirming
// goroutine itself, and by an independent watchdog goroutine — and
// dispatched to a per-goroutine handler. The package also aggregates
// per-checkpoint latency statistics.
//
// # Quick Start
//
//	mon := progressmon.New()
//	mon.StartWatchdog()
//	defer mon.StopWatchdog()
//
//	func worker() {
//		mon.RegisterThread()
//		defer mon.DeregisterThread()
//
//		mon.SetHandler(func(e *progressmon.Entry) {
//			log.Printf("worker stalled: checkpoint %d at %s", e.ID, e.Location)
//		})
//
//		for job := range jobs {
//			g := mon.NewScopeGuard(200*time.Millisecond, 1, progressmon.Location{
//				File: "worker.go", Line: 10, Function: "worker",
//			})
//			process(job)
//			g.Close()
//		}
//	}
//
// # Modes
//
// A Monitor runs in one of three modes, selected with WithMode:
//   - Off: ExpectProgressIn/ConfirmProgress are no-ops.
//   - Passive: expectations and confirmations are tracked and can
//     self-detect violations, but no watchdog runs.
//   - Active (the default): both self-detection and watchdog detection are
//     live.
//
// # Nesting
//
// ExpectProgressIn/ConfirmProgress pairs (or ScopeGuards) nest like a
// stack: every ExpectProgressIn must be matched by exactly one
// ConfirmProgress on the same goroutine, in LIFO order. Deadlines need not
// be monotonic across the nesting.
//
// # Handler contract
//
// A Handler may be called from either the owning goroutine or the watchdog
// goroutine; it must be reentrant, short, and must not call
// ExpectProgressIn/ConfirmProgress on the monitor while executing.
package progressmon
