package rack

import (
	"sync/atomic"
	"time"
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Monitor compares the processing time of each block with the block period.
// It only observes: an overrun sets the warning flag of that block and is
// counted, nothing else happens.
//
// Begin and End are called from the audio goroutine; Stats may be called
// from anywhere.
type Monitor struct {
	budget time.Duration
	now    Clock
	start  time.Time

	blocks   atomic.Uint64
	overruns atomic.Uint64
	worst    atomic.Int64
}

// DeadlineStats is a snapshot of the monitor counters.
type DeadlineStats struct {
	Budget   time.Duration
	Blocks   uint64
	Overruns uint64
	Worst    time.Duration
}

// NewMonitor returns a monitor for the given block period. A nil clock
// selects time.Now.
func NewMonitor(budget time.Duration, clock Clock) *Monitor {
	if clock == nil {
		clock = time.Now
	}
	return &Monitor{budget: budget, now: clock}
}

// Budget returns the block period.
func (m *Monitor) Budget() time.Duration { return m.budget }

// Begin marks the start of a block.
func (m *Monitor) Begin() {
	m.start = m.now()
}

// End marks the end of the block started by the last Begin and reports
// whether it took longer than the budget.
func (m *Monitor) End() bool {
	elapsed := m.now().Sub(m.start)

	m.blocks.Add(1)
	for {
		w := m.worst.Load()
		if int64(elapsed) <= w || m.worst.CompareAndSwap(w, int64(elapsed)) {
			break
		}
	}

	if elapsed > m.budget {
		m.overruns.Add(1)
		return true
	}
	return false
}

// Stats returns the counters collected so far.
func (m *Monitor) Stats() DeadlineStats {
	return DeadlineStats{
		Budget:   m.budget,
		Blocks:   m.blocks.Load(),
		Overruns: m.overruns.Load(),
		Worst:    time.Duration(m.worst.Load()),
	}
}

// Reset clears the counters.
func (m *Monitor) Reset() {
	m.blocks.Store(0)
	m.overruns.Store(0)
	m.worst.Store(0)
}
