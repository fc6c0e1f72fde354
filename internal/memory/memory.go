// Package memory implements the shared three-level memory hierarchy: a
// reader/writer-locked main+secondary store behind per-core private L1
// caches. Coherence between different cores' L1s is intentionally absent
// (write-through to the shared store, no invalidation broadcast) — see
// the design notes on non-coherent caching.
package memory

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/smpsim/coresim/internal/cache"
	"github.com/smpsim/coresim/internal/pcb"
	"github.com/smpsim/coresim/internal/simerr"
)

// Sentinel is the value returned by an address that has never been
// written, distinguishing "never written" from "written as zero".
const Sentinel uint64 = 0xDEADC0DEDEADC0DE

// Counters are the hierarchy-global, atomic access counters. They are
// safe to read concurrently with ongoing traffic; each field is a
// monotonic accumulator.
type Counters struct {
	CacheHits   atomic.Uint64
	CacheMisses atomic.Uint64
	RAMReads    atomic.Uint64
	RAMWrites   atomic.Uint64
	DiskReads   atomic.Uint64
	DiskWrites  atomic.Uint64
}

// Snapshot is an immutable copy of Counters for reporting.
type Snapshot struct {
	CacheHits, CacheMisses           uint64
	RAMReads, RAMWrites              uint64
	DiskReads, DiskWrites            uint64
}

// Hierarchy is the shared main+secondary store. Main and secondary are
// flat arrays of machine words (64-bit here); address space is
// [0, len(main)+len(secondary)), with addresses below len(main) landing
// in main and the rest offset into secondary.
type Hierarchy struct {
	mu        sync.RWMutex
	main      []uint64
	secondary []uint64
	mainLimit uint32

	counters Counters
}

// New allocates a hierarchy with mainWords words of main memory and
// secWords words of secondary storage, both pre-filled with Sentinel.
func New(mainWords, secWords int) *Hierarchy {
	h := &Hierarchy{
		main:      make([]uint64, mainWords),
		secondary: make([]uint64, secWords),
		mainLimit: uint32(mainWords),
	}
	for i := range h.main {
		h.main[i] = Sentinel
	}
	for i := range h.secondary {
		h.secondary[i] = Sentinel
	}
	return h
}

// Size returns the word counts of main and secondary memory.
func (h *Hierarchy) Size() (mainWords, secWords int) {
	return len(h.main), len(h.secondary)
}

// Snapshot returns a point-in-time copy of the global counters.
func (h *Hierarchy) Snapshot() Snapshot {
	return Snapshot{
		CacheHits:   h.counters.CacheHits.Load(),
		CacheMisses: h.counters.CacheMisses.Load(),
		RAMReads:    h.counters.RAMReads.Load(),
		RAMWrites:   h.counters.RAMWrites.Load(),
		DiskReads:   h.counters.DiskReads.Load(),
		DiskWrites:  h.counters.DiskWrites.Load(),
	}
}

func (h *Hierarchy) inRange(addr uint32) bool {
	return addr < h.mainLimit+uint32(len(h.secondary))
}

// Read implements the read path: consult l1 first,
// fall through to the locked shared store on a miss, and populate l1
// clean before returning.
func (h *Hierarchy) Read(addr uint32, p *pcb.PCB, l1 *cache.Cache) (uint64, error) {
	p.IncReads()

	if l1 != nil {
		if data, ok := l1.Get(addr); ok {
			p.IncCacheHit()
			p.IncMemoryCycles(p.Weights.Cache)
			h.counters.CacheHits.Add(1)
			return data, nil
		}
		return h.fillOnMiss(addr, p, l1)
	}

	return h.readShared(addr, p)
}

// readShared performs the locked access to main/secondary storage and
// charges the appropriate per-level weight and counters. It does not
// touch the L1 — callers decide whether/how to populate it.
func (h *Hierarchy) readShared(addr uint32, p *pcb.PCB) (uint64, error) {
	if !h.inRange(addr) {
		return 0, fmt.Errorf("memory: read addr=%d: %w", addr, simerr.ErrAddressOutOfRange)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if addr < h.mainLimit {
		p.IncPrimaryAccess()
		p.IncMemoryCycles(p.Weights.Primary)
		h.counters.RAMReads.Add(1)
		return h.main[addr], nil
	}
	p.IncSecondaryAccess()
	p.IncMemoryCycles(p.Weights.Secondary)
	h.counters.DiskReads.Add(1)
	return h.secondary[addr-h.mainLimit], nil
}

// Write implements the write-through, write-allocate path: a write miss first loads the line into l1 (clean) via
// the read path, then l1.Update marks it dirty locally while the same
// value is written through to the shared store under the exclusive
// lock.
func (h *Hierarchy) Write(addr uint32, data uint64, p *pcb.PCB, l1 *cache.Cache) error {
	if !h.inRange(addr) {
		return fmt.Errorf("memory: write addr=%d: %w", addr, simerr.ErrAddressOutOfRange)
	}

	p.IncWrites()

	if l1 != nil {
		if !l1.Contains(addr) {
			// "Perform the same underlying read as above to populate l1
			// clean": this charges cache_misses and the primary/secondary
			// weight exactly as a plain Read miss would, without
			// double-counting reads/accesses_total (already bumped above).
			// The residency check itself uses Contains, not Get, so a
			// write-allocate probe never pollutes the cache's own
			// Hits/Misses totals that report.CollectRows surfaces as
			// per-core cache_hits/cache_misses/hit_rate.
			if _, err := h.fillOnMiss(addr, p, l1); err != nil {
				return err
			}
		}
		l1.Update(addr, data)
	}

	h.mu.Lock()
	if addr < h.mainLimit {
		h.main[addr] = data
		h.counters.RAMWrites.Add(1)
	} else {
		h.secondary[addr-h.mainLimit] = data
		h.counters.DiskWrites.Add(1)
	}
	h.mu.Unlock()

	return nil
}

// fillOnMiss runs the miss branch of the read contract (charge
// cache_misses, read the shared store, insert into l1 clean) without the
// hit branch or the reads/accesses_total bookkeeping, so it can be reused
// by both Read and Write's write-allocate path.
func (h *Hierarchy) fillOnMiss(addr uint32, p *pcb.PCB, l1 *cache.Cache) (uint64, error) {
	p.IncCacheMiss()
	h.counters.CacheMisses.Add(1)

	data, err := h.readShared(addr, p)
	if err != nil {
		return 0, err
	}

	if l1 != nil {
		l1.Put(addr, data)
	}
	return data, nil
}
