// Package coresim is the facade tying the scheduler, cores, memory
// hierarchy and I/O manager together into one runnable simulation.
package coresim

import (
	"fmt"

	"github.com/smpsim/coresim/internal/config"
	"github.com/smpsim/coresim/internal/core"
	"github.com/smpsim/coresim/internal/ioman"
	"github.com/smpsim/coresim/internal/loader"
	"github.com/smpsim/coresim/internal/memory"
	"github.com/smpsim/coresim/internal/pcb"
	"github.com/smpsim/coresim/internal/report"
	"github.com/smpsim/coresim/internal/scheduler"
	"github.com/smpsim/coresim/internal/simerr"
	"github.com/smpsim/coresim/internal/stats"
)

// Simulation owns one cohort of cores, memory and I/O behind one
// scheduler, built from a validated Config.
type Simulation struct {
	cfg   config.Config
	mem   *memory.Hierarchy
	io    *ioman.Manager
	cores []*core.Core
	sched *scheduler.Scheduler
}

// New validates cfg and wires up a Simulation ready to admit processes.
func New(cfg config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mem := memory.New(cfg.MainMemoryWords, cfg.SecondaryMemoryWords)
	io := ioman.New()

	cores := make([]*core.Core, cfg.Cores)
	for i := range cores {
		cores[i] = core.New(i, mem, cfg.CacheCapacity, cfg.CachePolicy)
	}

	quantum := pcb.Quantum(cfg.Quantum)
	if cfg.NonPreemptive {
		quantum = pcb.Unbounded
	}

	sched := scheduler.New(scheduler.PolicyKind(cfg.Policy), quantum, cores, io)

	return &Simulation{cfg: cfg, mem: mem, io: io, cores: cores, sched: sched}, nil
}

// AdmitDescriptor loads a process descriptor's program into memory and
// admits the resulting PCB to the scheduler.
func (s *Simulation) AdmitDescriptor(d loader.ProcessDescriptor) error {
	quantum := pcb.Quantum(s.cfg.Quantum)
	if s.cfg.NonPreemptive {
		quantum = pcb.Unbounded
	}
	p, err := loader.Load(d, quantum, pcb.DefaultMemWeights, s.mem)
	if err != nil {
		return err
	}
	return s.sched.Admit(p)
}

// Run drives the scheduler's tick loop until every admitted process has
// terminated or maxCycles ticks have elapsed (0 = unbounded). It returns
// the number of ticks actually run.
func (s *Simulation) Run(maxCycles int) (int, error) {
	ticks := 0
	for !s.sched.AllFinished() {
		if maxCycles > 0 && ticks >= maxCycles {
			break
		}
		if err := s.sched.Tick(); err != nil {
			return ticks, fmt.Errorf("coresim: run: %w", err)
		}
		ticks++
	}
	return ticks, nil
}

// RunTicking drives the tick loop exactly like Run, but calls onTick with
// a progress snapshot after every tick, letting a host driver render live
// status (a one-line TTY readout, periodic plain-text lines, ...) without
// polling from a separate goroutine. onTick may be nil.
func (s *Simulation) RunTicking(maxCycles int, onTick func(scheduler.Progress)) (int, error) {
	ticks := 0
	for !s.sched.AllFinished() {
		if maxCycles > 0 && ticks >= maxCycles {
			break
		}
		if err := s.sched.Tick(); err != nil {
			return ticks, fmt.Errorf("coresim: run: %w", err)
		}
		ticks++
		if onTick != nil {
			onTick(s.sched.ProgressSnapshot())
		}
	}
	return ticks, nil
}

// Shutdown stops every core and drains the scheduler one last time. Only
// Statistics and Report are valid afterward.
func (s *Simulation) Shutdown() {
	s.sched.Shutdown()
}

// AllFinished reports whether every admitted process has terminated.
func (s *Simulation) AllFinished() bool { return s.sched.AllFinished() }

// Statistics computes the end-of-run summary.
func (s *Simulation) Statistics() stats.Statistics { return s.sched.Statistics() }

// Report builds the full per-core report row set for the current run.
func (s *Simulation) Report() report.Run {
	return report.Run{
		Policy: scheduler.PolicyKind(s.cfg.Policy),
		Cores:  len(s.cores),
		Stats:  s.sched.Statistics(),
		Rows:   report.CollectRows(s.cores),
	}
}

// EnsureRunnable is a narrow guard used by callers that want to fail
// fast with simerr.ErrConfig before doing any admission work.
func EnsureRunnable(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("coresim: %w", err)
	}
	return nil
}
