// Package monlog wires the monitor's operational logging (registry
// exhaustion, the watchdog's start-up priority warning) to
// github.com/rs/zerolog.
//
// This is deliberately separate from the fixed-format violation diagnostics
// required by the specification (see package internal/monitor/api):
// those two lines are scraped by tooling and must never be reformatted by a
// logging backend, so they are written directly to os.Stderr with fmt,
// exactly as the original implementation and the teacher repository's own
// race-report banners both do for their "must be scraped" output.
package monlog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Set replaces the package-level logger. Intended for host applications
// that want monitor diagnostics folded into their own zerolog pipeline.
func Set(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Get returns the current package-level logger.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
