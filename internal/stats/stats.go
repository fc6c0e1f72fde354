// Package stats derives the end-of-run summary from finished PCBs and
// per-core cycle counters.
package stats

import (
	"time"

	"github.com/smpsim/coresim/internal/pcb"
)

// CoreCycles is a point-in-time snapshot of one core's busy/idle counts.
type CoreCycles struct {
	Busy uint64
	Idle uint64
}

// Statistics is the immutable end-of-run summary.
type Statistics struct {
	AvgWait        time.Duration
	AvgTurnaround  time.Duration
	AvgResponse    time.Duration
	CPUUtilization float64 // in [0,1]
	Throughput     float64 // finished processes per second
	ContextSwitches uint64

	TotalCount    int
	FinishedCount int
	FailedCount   int
}

// Compute derives Statistics from the finished list (both Finished and
// Failed terminal PCBs), the per-core busy/idle snapshot, and the
// scheduler's global context-switch counter.
func Compute(finished []*pcb.PCB, cores []CoreCycles, contextSwitches uint64, totalCount int) Statistics {
	s := Statistics{
		ContextSwitches: contextSwitches,
		TotalCount:      totalCount,
	}

	var waitSum, turnaroundSum, responseSum time.Duration
	var minArrival, maxFinish time.Time

	for _, p := range finished {
		switch p.State() {
		case pcb.Finished:
			s.FinishedCount++
		case pcb.Failed:
			s.FailedCount++
		}

		waitSum += p.WaitTotal()
		turnaroundSum += p.Turnaround()
		responseSum += p.Response()

		if a := p.Arrival(); !a.IsZero() && (minArrival.IsZero() || a.Before(minArrival)) {
			minArrival = a
		}
		if f := p.FinishTime(); f.After(maxFinish) {
			maxFinish = f
		}
	}

	n := len(finished)
	if n > 0 {
		s.AvgWait = waitSum / time.Duration(n)
		s.AvgTurnaround = turnaroundSum / time.Duration(n)
		s.AvgResponse = responseSum / time.Duration(n)
	}

	var busySum, totalSum uint64
	for _, c := range cores {
		busySum += c.Busy
		totalSum += c.Busy + c.Idle
	}
	if totalSum > 0 {
		s.CPUUtilization = float64(busySum) / float64(totalSum)
	}

	if !minArrival.IsZero() && !maxFinish.IsZero() {
		if interval := maxFinish.Sub(minArrival); interval > 0 {
			s.Throughput = float64(n) / interval.Seconds()
		}
	}

	return s
}
