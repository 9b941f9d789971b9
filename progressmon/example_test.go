package progressmon_test

import (
	"fmt"
	"time"

	"github.com/kolkov/progressmon"
)

// Example demonstrates a single expect/confirm pair that completes well
// within its deadline, so no handler is ever invoked.
func Example() {
	mon := progressmon.New(progressmon.WithMode(progressmon.Passive))
	mon.RegisterThread()
	defer mon.DeregisterThread()

	loc := progressmon.Location{File: "example_test.go", Line: 1, Function: "Example"}
	mon.ExpectProgressIn(time.Hour, 1, loc)
	mon.ConfirmProgress(loc)

	fmt.Println("progress confirmed within deadline")

	// Output:
	// progress confirmed within deadline
}

// Example_scopeGuard shows the scope-guard form, which confirms on Close
// even if the enclosing function returns early.
func Example_scopeGuard() {
	mon := progressmon.New(progressmon.WithMode(progressmon.Passive))
	mon.RegisterThread()
	defer mon.DeregisterThread()

	func() {
		loc := progressmon.Location{File: "example_test.go", Line: 1, Function: "Example_scopeGuard"}
		g := mon.NewScopeGuard(time.Hour, 1, loc)
		defer g.Close()
		// ... work expected to finish well within an hour ...
	}()

	fmt.Println("scope closed, progress confirmed")

	// Output:
	// scope closed, progress confirmed
}

// Example_watchdog shows a goroutine that stalls past its deadline, letting
// the watchdog detect the violation instead of the goroutine itself. The
// violation line, whose delta is timing-dependent, goes to stderr; only
// the final message on stdout is checked against the Output block.
func Example_watchdog() {
	mon := progressmon.New(progressmon.WithWatchdogInterval(time.Millisecond))
	mon.StartWatchdog()
	defer mon.StopWatchdog()

	done := make(chan struct{})
	go func() {
		defer close(done)
		mon.RegisterThread()
		defer mon.DeregisterThread()

		detected := make(chan struct{})
		mon.SetHandler(func(e *progressmon.Entry) { close(detected) })

		loc := progressmon.Location{File: "example_test.go", Line: 1, Function: "Example_watchdog"}
		mon.ExpectProgressIn(5*time.Millisecond, 1, loc)
		<-detected // blocks until the watchdog notices the stall
		mon.ConfirmProgress(loc)
	}()
	<-done

	fmt.Println("watchdog detected the stalled goroutine")
	// Output:
	// watchdog detected the stalled goroutine
}
