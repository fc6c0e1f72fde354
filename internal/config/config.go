// Package config holds the simulator's top-level configuration and its
// validation, the same shape as the flag-parsed options consumed by the
// host driver.
package config

import (
	"fmt"

	"github.com/smpsim/coresim/internal/cache"
	"github.com/smpsim/coresim/internal/scheduler"
	"github.com/smpsim/coresim/internal/simerr"
)

// Config is the fully-resolved set of knobs a simulation run needs.
type Config struct {
	Cores         int
	Quantum       int // in instructions; ignored (treated unbounded) when NonPreemptive
	Policy        scheduler.PolicyKind
	NonPreemptive bool

	CacheCapacity int
	CachePolicy   cache.Policy

	MainMemoryWords      int
	SecondaryMemoryWords int

	MaxCycles int // 0 = unbounded
}

// Default returns the documented CLI defaults: 2 cores, quantum 100,
// round-robin, a 64-word FIFO L1, and no cycle budget.
func Default() Config {
	return Config{
		Cores:                2,
		Quantum:              100,
		Policy:               scheduler.RoundRobin,
		CacheCapacity:         64,
		CachePolicy:           cache.FIFO,
		MainMemoryWords:      4096,
		SecondaryMemoryWords: 16384,
	}
}

// Validate rejects a Config that cannot build a working simulation,
// wrapping every failure in simerr.ErrConfig.
func (c Config) Validate() error {
	if c.Cores <= 0 {
		return fmt.Errorf("cores must be positive, got %d: %w", c.Cores, simerr.ErrConfig)
	}
	if !c.NonPreemptive && c.Quantum <= 0 {
		return fmt.Errorf("quantum must be positive, got %d: %w", c.Quantum, simerr.ErrConfig)
	}
	if !scheduler.ValidPolicy(c.Policy) {
		return fmt.Errorf("unknown policy %q: %w", c.Policy, simerr.ErrConfig)
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("cache capacity must be positive, got %d: %w", c.CacheCapacity, simerr.ErrConfig)
	}
	if c.MainMemoryWords <= 0 {
		return fmt.Errorf("main memory words must be positive, got %d: %w", c.MainMemoryWords, simerr.ErrConfig)
	}
	if c.SecondaryMemoryWords < 0 {
		return fmt.Errorf("secondary memory words must be non-negative, got %d: %w", c.SecondaryMemoryWords, simerr.ErrConfig)
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("max cycles must be non-negative, got %d: %w", c.MaxCycles, simerr.ErrConfig)
	}
	return nil
}
