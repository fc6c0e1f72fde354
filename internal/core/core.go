// Package core implements a Core: one worker goroutine standing in for a
// real OS thread, a private L1 cache, and the dispatch/execute/idle state
// machine a Scheduler drives every tick.
package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/smpsim/coresim/internal/cache"
	"github.com/smpsim/coresim/internal/engine"
	"github.com/smpsim/coresim/internal/memory"
	"github.com/smpsim/coresim/internal/pcb"
)

// State is the Core's own lifecycle, distinct from the PCB's.
type State int32

const (
	Idle State = iota
	Busy
	Stopping
)

// Core owns one private L1 cache and runs at most one PCB at a time on
// its own goroutine, mirroring a dedicated OS worker thread.
type Core struct {
	ID int

	l1  *cache.Cache
	mem *memory.Hierarchy

	state atomic.Int32

	mu      sync.Mutex
	current *pcb.PCB
	done    chan struct{}

	busyCycles atomic.Uint64
	idleCycles atomic.Uint64
}

// New constructs a Core with its own private L1 of the given capacity and
// policy, bound to the shared memory hierarchy.
func New(id int, mem *memory.Hierarchy, l1Capacity int, l1Policy cache.Policy) *Core {
	return &Core{
		ID:  id,
		l1:  cache.New(l1Capacity, l1Policy),
		mem: mem,
	}
}

// IsIdle reports whether the core currently has no worker running.
func (c *Core) IsIdle() bool {
	return State(c.state.Load()) == Idle
}

// Current returns the PCB currently assigned to this core, or nil.
func (c *Core) Current() *pcb.PCB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// BusyCycles and IdleCycles are the per-core counters statistics need.
func (c *Core) BusyCycles() uint64 { return c.busyCycles.Load() }
func (c *Core) IdleCycles() uint64 { return c.idleCycles.Load() }

// TickIdle charges one idle cycle; callers invoke it once per tick for
// every core observed idle at the start of that tick.
func (c *Core) TickIdle() {
	if c.IsIdle() {
		c.idleCycles.Add(1)
	}
}

// Dispatch assigns p to this core and starts its worker goroutine.
// Precondition: the core is Idle. Panics (a PolicyViolation in the
// scheduler's terms) if dispatched while busy.
func (c *Core) Dispatch(p *pcb.PCB) {
	if !c.state.CompareAndSwap(int32(Idle), int32(Busy)) {
		panic("core: dispatch called while not idle")
	}

	c.mu.Lock()
	c.current = p
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	p.Dispatch(c.ID, time.Now())

	go c.runWorker(p, done)
}

// runWorker is the worker body: it steps the engine up to the PCB's
// quantum times, accounting busy cycles, and settles the PCB's terminal
// state before releasing the core back to Idle.
func (c *Core) runWorker(p *pcb.PCB, done chan struct{}) {
	defer close(done)

	executed := 0
	terminal := false

	for {
		if q := p.Quantum(); q != pcb.Unbounded && executed >= int(q) {
			break
		}
		if State(c.state.Load()) == Stopping {
			break
		}

		res := engine.Step(p, c.mem, c.l1)
		executed++
		p.IncPipelineCycles(1)
		c.busyCycles.Add(1)

		switch res.Kind {
		case engine.Continued:
			continue
		case engine.ProgramEnd:
			p.Finish(time.Now())
			terminal = true
		case engine.IORequest:
			p.AddIOCycles(res.Cost)
			p.BlockForIO(res.Device, res.Cost)
			terminal = true
		case engine.Exception:
			p.Fail(time.Now(), res.Reason)
			terminal = true
		}
		break
	}

	if !terminal {
		// Quantum expired with no terminal condition: back to Ready.
		p.SetState(pcb.Ready)
		p.IncContextSwitch()
	}

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.state.Store(int32(Idle))
}

// Join blocks until the core's current worker (if any) has finished.
// Safe to call on an idle core.
func (c *Core) Join() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Stop signals the worker to stop at its next instruction boundary and
// waits for it to exit. The core is left Idle.
func (c *Core) Stop() {
	c.state.Store(int32(Stopping))
	c.Join()
	c.state.Store(int32(Idle))
}

// L1 exposes the core's private cache, primarily for tests and reports
// that inspect per-core hit/miss behavior via the cache directly.
func (c *Core) L1() *cache.Cache { return c.l1 }
