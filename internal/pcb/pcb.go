// Package pcb implements the Process Control Block: the per-process state
// record shared between a Core, a Scheduler and the instruction engine.
package pcb

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/smpsim/coresim/internal/regbank"
)

// State is one of the five execution states a process moves through.
// Transitions are driven exclusively by Core and Scheduler.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Quantum is the maximum number of instructions a process may run during
// one dispatch. Unbounded is an explicit, documented sentinel for "run to
// completion or block" — never a magic numeric cap.
type Quantum int32

// Unbounded means the process keeps the core until it blocks, finishes,
// faults, or (for preemptive-priority) is pre-empted by quantum shortening.
const Unbounded Quantum = -1

// MemWeights are the per-level cycle costs charged on a memory access.
type MemWeights struct {
	Cache     uint64
	Primary   uint64
	Secondary uint64
}

// DefaultMemWeights mirrors the reference simulator's defaults: an L1 hit
// is cheap, a primary-memory access is moderate, and secondary storage is
// an order of magnitude slower again.
var DefaultMemWeights = MemWeights{Cache: 1, Primary: 5, Secondary: 10}

// PCB is the unit of scheduling. State, assignedCore and the four
// lifecycle timestamps are guarded by mu because a core's worker and the
// scheduler's tick loop both touch them; the counters are independent
// atomics so hot per-instruction accounting never contends with state
// transitions.
type PCB struct {
	Pid      int
	Name     string
	Priority int

	// EstimatedJobSize is the SJN admission-time size estimate, in
	// instructions. Unused by the other policies.
	EstimatedJobSize uint64

	SegmentBase uint32
	SegmentSize uint32

	Weights MemWeights
	Regs    regbank.RegisterBank

	mu           sync.Mutex
	state        State
	assignedCore int
	quantum      Quantum

	arrival       time.Time
	start         time.Time
	finish        time.Time
	readyEnqueue  time.Time
	readyPending  bool
	failureReason string

	pendingIODevice string
	pendingIOCost   uint64

	pipelineCycles     atomic.Uint64
	reads              atomic.Uint64
	writes             atomic.Uint64
	accessesTotal      atomic.Uint64
	cacheHits          atomic.Uint64
	cacheMisses        atomic.Uint64
	primaryAccesses    atomic.Uint64
	secondaryAccesses  atomic.Uint64
	bytesCache         atomic.Uint64
	bytesPrimary       atomic.Uint64
	bytesSecondary     atomic.Uint64
	contextSwitches    atomic.Uint64
	ioCycles           atomic.Uint64
	waitTotalNanos     atomic.Int64
	memoryCycles       atomic.Uint64
}

// New constructs a PCB in the Ready state, not yet admitted (Arrival is
// zero until Admit stamps it).
func New(pid int, name string, priority int, quantum Quantum, weights MemWeights) *PCB {
	return &PCB{
		Pid:          pid,
		Name:         name,
		Priority:     priority,
		quantum:      quantum,
		assignedCore: -1,
		Weights:      weights,
	}
}

// State returns the current lifecycle state under the PCB's lock.
func (p *PCB) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState transitions the PCB to s.
func (p *PCB) SetState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// AssignedCore returns the id of the core currently running this PCB, or
// -1 if none.
func (p *PCB) AssignedCore() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assignedCore
}

// Quantum returns the quantum set for the current/next dispatch.
func (p *PCB) Quantum() Quantum {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quantum
}

// SetQuantum sets the quantum for the next dispatch. Used by the
// preemptive-priority policy to shorten a runner's remaining slice.
func (p *PCB) SetQuantum(q Quantum) {
	p.mu.Lock()
	p.quantum = q
	p.mu.Unlock()
}

// Dispatch marks the PCB Running on coreID, recording Start on first
// dispatch ever.
func (p *PCB) Dispatch(coreID int, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Running
	p.assignedCore = coreID
	if p.start.IsZero() {
		p.start = now
	}
}

// Admit records the arrival timestamp if this is the first admission.
func (p *PCB) Admit(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.arrival.IsZero() {
		p.arrival = now
	}
	p.state = Ready
}

// EnterReady stamps the moment the PCB joins the ready queue, for
// per-visit wait accounting.
func (p *PCB) EnterReady(now time.Time) {
	p.mu.Lock()
	p.state = Ready
	p.assignedCore = -1
	p.readyEnqueue = now
	p.readyPending = true
	p.mu.Unlock()
}

// LeaveReady accumulates wait_total for the interval just spent on the
// ready queue and returns the interval's duration.
func (p *PCB) LeaveReady(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.readyPending {
		return 0
	}
	p.readyPending = false
	d := now.Sub(p.readyEnqueue)
	if d > 0 {
		p.waitTotalNanos.Add(int64(d))
	}
	return d
}

// Block transitions the PCB to Blocked.
func (p *PCB) Block() {
	p.mu.Lock()
	p.state = Blocked
	p.assignedCore = -1
	p.mu.Unlock()
}

// BlockForIO transitions the PCB to Blocked and records the device/cost
// of the I/O request that caused it, for the scheduler to hand off to the
// I/O manager at reap time.
func (p *PCB) BlockForIO(device string, cost uint64) {
	p.mu.Lock()
	p.state = Blocked
	p.assignedCore = -1
	p.pendingIODevice = device
	p.pendingIOCost = cost
	p.mu.Unlock()
}

// TakeIORequest returns and clears the device/cost recorded by
// BlockForIO. ok is false if no request is pending.
func (p *PCB) TakeIORequest() (device string, cost uint64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingIODevice == "" {
		return "", 0, false
	}
	device, cost = p.pendingIODevice, p.pendingIOCost
	p.pendingIODevice = ""
	p.pendingIOCost = 0
	return device, cost, true
}

// Finish transitions the PCB to Finished and records the finish timestamp.
func (p *PCB) Finish(now time.Time) {
	p.mu.Lock()
	p.state = Finished
	p.assignedCore = -1
	p.finish = now
	p.mu.Unlock()
}

// Fail transitions the PCB to Failed, recording finish and a diagnostic.
func (p *PCB) Fail(now time.Time, reason string) {
	p.mu.Lock()
	p.state = Failed
	p.assignedCore = -1
	p.finish = now
	p.failureReason = reason
	p.mu.Unlock()
}

// FailureReason returns the diagnostic recorded by Fail, if any.
func (p *PCB) FailureReason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failureReason
}

// Arrival, Start and Finish expose the raw timestamps; zero means unset.
func (p *PCB) Arrival() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.arrival
}

func (p *PCB) Start() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start
}

func (p *PCB) FinishTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finish
}

// Turnaround is finish - arrival, or 0 if not yet finished.
func (p *PCB) Turnaround() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finish.IsZero() || p.arrival.IsZero() {
		return 0
	}
	return p.finish.Sub(p.arrival)
}

// Response is start - arrival, or 0 if the process never started.
func (p *PCB) Response() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.start.IsZero() || p.arrival.IsZero() {
		return 0
	}
	return p.start.Sub(p.arrival)
}

// WaitTotal is the accumulated time spent across every Ready interval.
func (p *PCB) WaitTotal() time.Duration {
	return time.Duration(p.waitTotalNanos.Load())
}

// --- memory/pipeline counters ---

func (p *PCB) IncPipelineCycles(n uint64) { p.pipelineCycles.Add(n) }
func (p *PCB) PipelineCycles() uint64     { return p.pipelineCycles.Load() }

func (p *PCB) IncReads()               { p.reads.Add(1); p.accessesTotal.Add(1) }
func (p *PCB) IncWrites()              { p.writes.Add(1); p.accessesTotal.Add(1) }
func (p *PCB) Reads() uint64           { return p.reads.Load() }
func (p *PCB) Writes() uint64          { return p.writes.Load() }
func (p *PCB) AccessesTotal() uint64   { return p.accessesTotal.Load() }

func (p *PCB) IncCacheHit()   { p.cacheHits.Add(1); p.bytesCache.Add(8) }
func (p *PCB) IncCacheMiss()  { p.cacheMisses.Add(1) }
func (p *PCB) CacheHits() uint64   { return p.cacheHits.Load() }
func (p *PCB) CacheMisses() uint64 { return p.cacheMisses.Load() }

func (p *PCB) IncPrimaryAccess()   { p.primaryAccesses.Add(1); p.bytesPrimary.Add(8) }
func (p *PCB) IncSecondaryAccess() { p.secondaryAccesses.Add(1); p.bytesSecondary.Add(8) }
func (p *PCB) PrimaryAccesses() uint64   { return p.primaryAccesses.Load() }
func (p *PCB) SecondaryAccesses() uint64 { return p.secondaryAccesses.Load() }

func (p *PCB) BytesCache() uint64     { return p.bytesCache.Load() }
func (p *PCB) BytesPrimary() uint64   { return p.bytesPrimary.Load() }
func (p *PCB) BytesSecondary() uint64 { return p.bytesSecondary.Load() }

func (p *PCB) IncContextSwitch()      { p.contextSwitches.Add(1) }
func (p *PCB) ContextSwitches() uint64 { return p.contextSwitches.Load() }

func (p *PCB) AddIOCycles(n uint64) { p.ioCycles.Add(n) }
func (p *PCB) IOCycles() uint64     { return p.ioCycles.Load() }

// IncMemoryCycles charges the weighted cost of a single memory access
// (the cache/primary/secondary weight from MemWeights) against the
// process's cumulative memory latency.
func (p *PCB) IncMemoryCycles(n uint64) { p.memoryCycles.Add(n) }
func (p *PCB) MemoryCycles() uint64     { return p.memoryCycles.Load() }

// CacheHitRate is this process's hits / (hits+misses), or 0 when it has
// made no cached accesses.
func (p *PCB) CacheHitRate() float64 {
	hits := p.CacheHits()
	total := hits + p.CacheMisses()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
