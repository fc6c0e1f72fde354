package core

import (
	"testing"
	"time"

	"github.com/smpsim/coresim/internal/cache"
	"github.com/smpsim/coresim/internal/engine"
	"github.com/smpsim/coresim/internal/memory"
	"github.com/smpsim/coresim/internal/pcb"
)

func waitIdle(t *testing.T, c *Core) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !c.IsIdle() {
		if time.Now().After(deadline) {
			t.Fatalf("core did not return to idle in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDispatchRunsToCompletion(t *testing.T) {
	mem := memory.New(64, 0)
	c := New(0, mem, 8, cache.FIFO)

	p := pcb.New(1, "p", 0, pcb.Unbounded, pcb.DefaultMemWeights)
	_ = mem.Write(0, engine.Encode(engine.OpEnd, 0, 0, 0, 0, 0), p, nil)

	c.Dispatch(p)
	waitIdle(t, c)

	if p.State() != pcb.Finished {
		t.Fatalf("State() = %v, want Finished", p.State())
	}
	if p.PipelineCycles() != 1 {
		t.Fatalf("PipelineCycles() = %d, want 1", p.PipelineCycles())
	}
}

func TestDispatchWhileBusyPanics(t *testing.T) {
	mem := memory.New(64, 0)
	c := New(0, mem, 8, cache.FIFO)

	slow := pcb.New(1, "slow", 0, pcb.Unbounded, pcb.DefaultMemWeights)
	_ = mem.Write(0, engine.Encode(engine.OpAddi, 0, 1, 1, 0, 1), slow, nil)
	_ = mem.Write(1, engine.Encode(engine.OpJ, 0, 0, 0, 0, 0), slow, nil) // infinite loop
	c.Dispatch(slow)
	defer c.Stop()

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic dispatching to a busy core")
		}
	}()
	other := pcb.New(2, "other", 0, pcb.Unbounded, pcb.DefaultMemWeights)
	c.Dispatch(other)
}

func TestQuantumExpiryReturnsToReady(t *testing.T) {
	mem := memory.New(64, 0)
	c := New(0, mem, 8, cache.FIFO)

	p := pcb.New(1, "p", 0, pcb.Quantum(2), pcb.DefaultMemWeights)
	for i := 0; i < 10; i++ {
		_ = mem.Write(uint32(i), engine.Encode(engine.OpAddi, 0, 1, 1, 0, 1), p, nil)
	}

	c.Dispatch(p)
	waitIdle(t, c)

	if p.State() != pcb.Ready {
		t.Fatalf("State() = %v, want Ready after quantum expiry", p.State())
	}
	if p.PipelineCycles() != 2 {
		t.Fatalf("PipelineCycles() = %d, want 2", p.PipelineCycles())
	}
	if p.ContextSwitches() != 1 {
		t.Fatalf("ContextSwitches() = %d, want 1", p.ContextSwitches())
	}
}

func TestEngineExceptionFailsProcess(t *testing.T) {
	mem := memory.New(64, 0)
	c := New(0, mem, 8, cache.FIFO)

	p := pcb.New(1, "p", 0, pcb.Unbounded, pcb.DefaultMemWeights)
	_ = mem.Write(0, engine.Encode(engine.OpSpecial, engine.FunctDiv, 0, 0, 1, 0), p, nil)

	c.Dispatch(p)
	waitIdle(t, c)

	if p.State() != pcb.Failed {
		t.Fatalf("State() = %v, want Failed", p.State())
	}
	if p.FailureReason() == "" {
		t.Fatalf("expected a failure reason to be recorded")
	}
}
