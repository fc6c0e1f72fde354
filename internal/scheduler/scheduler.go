// Package scheduler implements the five ready-queue policies over a
// shared pool of cores: FCFS, SJN, Round-Robin, Priority and Preemptive
// Priority. All five share one admit/tick/statistics contract; only the
// ready-queue ordering and the quantum assigned at dispatch differ.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"

	"github.com/smpsim/coresim/internal/core"
	"github.com/smpsim/coresim/internal/ioman"
	"github.com/smpsim/coresim/internal/pcb"
	"github.com/smpsim/coresim/internal/simerr"
	"github.com/smpsim/coresim/internal/stats"
)

// PolicyKind names one of the five scheduling policies.
type PolicyKind string

const (
	FCFS               PolicyKind = "fcfs"
	SJN                PolicyKind = "sjn"
	RoundRobin         PolicyKind = "rr"
	Priority           PolicyKind = "prio"
	PriorityPreemptive PolicyKind = "prio_preempt"
)

// ValidPolicy reports whether k names one of the five supported policies.
func ValidPolicy(k PolicyKind) bool {
	switch k {
	case FCFS, SJN, RoundRobin, Priority, PriorityPreemptive:
		return true
	}
	return false
}

// entry wraps a ready PCB with the bookkeeping needed for ordering and
// tie-breaking, without mutating PCB itself for purely scheduling-local
// concerns.
type entry struct {
	p   *pcb.PCB
	seq uint64
}

// Scheduler drives one policy's admit/tick/statistics cycle over a fixed
// pool of cores sharing one memory hierarchy and one I/O manager.
type Scheduler struct {
	policy  PolicyKind
	quantum pcb.Quantum

	cores []*core.Core
	io    *ioman.Manager

	mu       sync.Mutex
	ready    []entry
	blocked  []*pcb.PCB
	finished []*pcb.PCB
	assigned map[int]*pcb.PCB // core ID -> PCB it was last dispatched, until reaped

	nextSeq      uint64
	totalCount   int
	shuttingDown bool

	contextSwitches atomic.Uint64
	clock           atomic.Uint64
}

// New constructs a Scheduler for policy over cores, sharing io for
// blocked-process bookkeeping. quantum is the configured Q used by rr and
// prio_preempt; the other policies always dispatch with pcb.Unbounded.
func New(policy PolicyKind, quantum pcb.Quantum, cores []*core.Core, io *ioman.Manager) *Scheduler {
	return &Scheduler{
		policy:   policy,
		quantum:  quantum,
		cores:    cores,
		io:       io,
		assigned: make(map[int]*pcb.PCB),
	}
}

// Admit enqueues p per the policy's ordering rule and records its arrival.
func (s *Scheduler) Admit(p *pcb.PCB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown {
		return fmt.Errorf("scheduler: admit: %w", simerr.ErrShutdownInProgress)
	}

	now := time.Now()
	p.Admit(now)
	p.EnterReady(now)
	s.totalCount++
	s.insertReady(entry{p: p, seq: s.nextSeq})
	s.nextSeq++
	return nil
}

// insertReady inserts e into the ready slice maintaining the policy's
// sort order; callers must hold mu.
func (s *Scheduler) insertReady(e entry) {
	s.ready = append(s.ready, e)
	sort.SliceStable(s.ready, func(i, j int) bool {
		return s.less(s.ready[i], s.ready[j])
	})
}

// less implements the per-policy ready-queue ordering: SJN ascending by
// EstimatedJobSize, Priority and PriorityPreemptive descending by
// Priority, FCFS and RoundRobin by enqueue sequence alone. Ties always
// break on enqueue sequence (FIFO).
func (s *Scheduler) less(a, b entry) bool {
	switch s.policy {
	case SJN:
		if a.p.EstimatedJobSize != b.p.EstimatedJobSize {
			return ascending(a.p.EstimatedJobSize, b.p.EstimatedJobSize)
		}
	case Priority, PriorityPreemptive:
		if a.p.Priority != b.p.Priority {
			return descending(a.p.Priority, b.p.Priority)
		}
	}
	return ascending(a.seq, b.seq)
}

// ascending and descending are the two ordering directions the policy
// table needs (job-size ascending, priority descending, sequence
// ascending for FIFO tie-break), generic over any ordered key.
func ascending[T constraints.Ordered](a, b T) bool  { return a < b }
func descending[T constraints.Ordered](a, b T) bool { return a > b }

// dispatchQuantum returns the quantum this policy assigns on dispatch.
func (s *Scheduler) dispatchQuantum() pcb.Quantum {
	switch s.policy {
	case RoundRobin, PriorityPreemptive:
		return s.quantum
	default:
		return pcb.Unbounded
	}
}

// Tick performs one scheduling step: advance clock, reap, unblock, (for
// prio_preempt) shorten a runner's quantum if a higher-priority process
// is waiting, then dispatch. A no-op once AllFinished is true.
func (s *Scheduler) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown {
		return fmt.Errorf("scheduler: tick: %w", simerr.ErrShutdownInProgress)
	}
	if s.allFinishedLocked() {
		return nil
	}

	s.clock.Add(1)

	for _, c := range s.cores {
		c.TickIdle()
	}

	s.reapLocked()
	s.unblockLocked()

	if s.policy == PriorityPreemptive {
		s.maybePreemptLocked()
	}

	s.dispatchLocked()

	return nil
}

// reapLocked inspects every core that finished its worker since the last
// tick and settles the detached PCB's terminal or re-ready state.
func (s *Scheduler) reapLocked() {
	for _, c := range s.cores {
		p, ok := s.assigned[c.ID]
		if !ok || !c.IsIdle() {
			continue
		}
		delete(s.assigned, c.ID)

		switch p.State() {
		case pcb.Finished, pcb.Failed:
			s.finished = append(s.finished, p)
		case pcb.Blocked:
			device, cost, ok := p.TakeIORequest()
			if !ok {
				device, cost = "unknown", 0
			}
			s.io.Submit(p, device, cost)
			s.blocked = append(s.blocked, p)
		case pcb.Ready:
			now := time.Now()
			p.EnterReady(now)
			s.insertReady(entry{p: p, seq: s.nextSeq})
			s.nextSeq++
		default:
			// Terminated worker left the PCB in an unexpected state: a
			// policy violation against a single process, not the
			// scheduler as a whole. Treat it as a diagnosed failure.
			p.Fail(time.Now(), fmt.Sprintf("reaped in unexpected state %s", p.State()))
			s.finished = append(s.finished, p)
		}
	}
}

// unblockLocked advances the I/O manager and moves any PCB it completed
// this tick from blocked back onto the ready queue.
func (s *Scheduler) unblockLocked() {
	done := s.io.Advance()
	if len(done) == 0 {
		return
	}
	doneSet := make(map[*pcb.PCB]bool, len(done))
	for _, p := range done {
		doneSet[p] = true
	}

	remaining := s.blocked[:0]
	for _, p := range s.blocked {
		if doneSet[p] {
			now := time.Now()
			p.EnterReady(now)
			s.insertReady(entry{p: p, seq: s.nextSeq})
			s.nextSeq++
		} else {
			remaining = append(remaining, p)
		}
	}
	s.blocked = remaining
}

// maybePreemptLocked shortens a running PCB's quantum when the ready
// queue's head strictly outranks it, per the prio_preempt rule. The
// runner keeps executing until its next instruction boundary, where the
// Core's worker observes the shortened quantum and yields.
func (s *Scheduler) maybePreemptLocked() {
	if len(s.ready) == 0 {
		return
	}
	head := s.ready[0].p

	for _, c := range s.cores {
		running, ok := s.assigned[c.ID]
		if !ok || c.IsIdle() {
			continue
		}
		if head.Priority > running.Priority {
			running.SetQuantum(0)
		}
	}
}

// dispatchLocked assigns ready PCBs to idle cores until either runs out.
func (s *Scheduler) dispatchLocked() {
	for _, c := range s.cores {
		if !c.IsIdle() || len(s.ready) == 0 {
			continue
		}
		e := s.ready[0]
		s.ready = s.ready[1:]

		now := time.Now()
		e.p.LeaveReady(now)
		e.p.SetQuantum(s.dispatchQuantum())
		s.contextSwitches.Add(1)

		s.assigned[c.ID] = e.p
		c.Dispatch(e.p)
	}
}

// AllFinished reports whether every admitted process has terminated and
// every subsystem is idle.
func (s *Scheduler) AllFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allFinishedLocked()
}

func (s *Scheduler) allFinishedLocked() bool {
	if s.totalCount == 0 {
		return false
	}
	if len(s.ready) != 0 || len(s.blocked) != 0 {
		return false
	}
	for _, c := range s.cores {
		if !c.IsIdle() {
			return false
		}
	}
	return len(s.finished) == s.totalCount && s.io.IsIdle()
}

// HasPending is the logical complement of AllFinished once admission has
// started.
func (s *Scheduler) HasPending() bool {
	s.mu.Lock()
	total := s.totalCount
	s.mu.Unlock()
	return total > 0 && !s.AllFinished()
}

// Statistics computes the end-of-run summary from the finished list and
// per-core cycle counters.
func (s *Scheduler) Statistics() stats.Statistics {
	s.mu.Lock()
	finished := append([]*pcb.PCB(nil), s.finished...)
	total := s.totalCount
	switches := s.contextSwitches.Load()
	s.mu.Unlock()

	cores := make([]stats.CoreCycles, len(s.cores))
	for i, c := range s.cores {
		cores[i] = stats.CoreCycles{Busy: c.BusyCycles(), Idle: c.IdleCycles()}
	}

	return stats.Compute(finished, cores, switches, total)
}

// Shutdown signals every core to stop, joins their workers, then drains
// once more to catch PCBs that finished just before shutdown. After
// Shutdown only Statistics and read accessors are valid.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()

	var g errgroup.Group
	for _, c := range s.cores {
		c := c
		g.Go(func() error {
			c.Stop()
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.reapLocked()
	s.mu.Unlock()
}

// Progress is a point-in-time snapshot of queue occupancy, for host
// drivers that want to render run-time status without reaching into
// scheduler internals.
type Progress struct {
	Clock    uint64
	Ready    int
	Blocked  int
	Running  int
	Finished int
	Total    int
}

// ProgressSnapshot reports the current queue occupancy across all cores.
func (s *Scheduler) ProgressSnapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	running := 0
	for _, c := range s.cores {
		if !c.IsIdle() {
			running++
		}
	}
	return Progress{
		Clock:    s.clock.Load(),
		Ready:    len(s.ready),
		Blocked:  len(s.blocked),
		Running:  running,
		Finished: len(s.finished),
		Total:    s.totalCount,
	}
}

// Clock returns the number of ticks processed so far.
func (s *Scheduler) Clock() uint64 { return s.clock.Load() }

// ContextSwitches returns the running global context-switch count.
func (s *Scheduler) ContextSwitches() uint64 { return s.contextSwitches.Load() }
