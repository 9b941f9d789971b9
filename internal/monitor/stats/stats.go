// Package stats implements per-checkpoint latency statistics: count,
// violation count, min, max, and incremental mean/variance.
//
// Grounded on original_source/include/monitoring/stats.hpp's stats_monitor
// singleton (a mutex-guarded map from checkpoint id to an incrementally
// updated aggregate), and on the teacher's own mutex-guarded aggregate
// counters (internal/race/detector/detector.go's PromotionStats + mu).
package stats

import (
	"math"
	"sync"
	"time"

	"github.com/kolkov/progressmon/internal/monitor/checkpoint"
)

// Aggregate holds the running statistics for one checkpoint id.
type Aggregate struct {
	ID         checkpoint.ID
	Count      uint64
	Violations uint64
	Min        time.Duration
	Max        time.Duration

	mean          float64
	meanOfSquares float64
}

// Mean returns the arithmetic mean of every runtime recorded for this id.
func (a *Aggregate) Mean() time.Duration {
	return time.Duration(a.mean)
}

// Variance returns the sample variance, using the bias-corrected estimator
// (n/(n-1))*(E[X^2] - E[X]^2), matching the original's derivation. Returns
// 0 when fewer than two samples have been recorded, since the estimator is
// undefined at n<2.
func (a *Aggregate) Variance() float64 {
	if a.Count < 2 {
		return 0
	}
	n := float64(a.Count)
	return (n / (n - 1)) * (a.meanOfSquares - a.mean*a.mean)
}

// StdDev returns the square root of Variance.
func (a *Aggregate) StdDev() float64 {
	return math.Sqrt(a.Variance())
}

// Monitor is a process-wide, mutex-guarded map from checkpoint id to its
// Aggregate. Updated by the confirming goroutine, and also by the watchdog
// for each entry it claims itself (recording the runtime up to its scan
// time as a violation); read by PrintStats (or any other reporting client).
type Monitor struct {
	mu    sync.Mutex
	byID  map[checkpoint.ID]*Aggregate
	order []checkpoint.ID
}

// NewMonitor creates an empty statistics monitor.
func NewMonitor() *Monitor {
	return &Monitor{byID: make(map[checkpoint.ID]*Aggregate)}
}

// Update folds one observed runtime for id into its running aggregate,
// marking it as a violation when violated is true.
func (m *Monitor) Update(id checkpoint.ID, runtime time.Duration, violated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg, ok := m.byID[id]
	if !ok {
		agg = &Aggregate{ID: id, Min: runtime, Max: runtime}
		m.byID[id] = agg
		m.order = append(m.order, id)
	}

	if violated {
		agg.Violations++
	}
	agg.Count++

	if runtime < agg.Min {
		agg.Min = runtime
	}
	if runtime > agg.Max {
		agg.Max = runtime
	}

	// Incremental mean/mean-of-squares, matching the original's derivation:
	// mean_n = (t + (n-1)*mean_{n-1}) / n.
	t := float64(runtime)
	n := float64(agg.Count)
	agg.mean = (t + (n-1)*agg.mean) / n
	agg.meanOfSquares = (t*t + (n-1)*agg.meanOfSquares) / n
}

// Snapshot returns a copy of the aggregate currently recorded for id, and
// whether one exists.
func (m *Monitor) Snapshot(id checkpoint.ID) (Aggregate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg, ok := m.byID[id]
	if !ok {
		return Aggregate{}, false
	}
	return *agg, true
}

// All returns a copy of every recorded aggregate, in the order their ids
// were first observed.
func (m *Monitor) All() []Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Aggregate, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.byID[id])
	}
	return out
}

// Reset clears every recorded aggregate. Intended for tests.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID = make(map[checkpoint.ID]*Aggregate)
	m.order = nil
}
