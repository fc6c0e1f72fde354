// Package ioman implements the I/O Manager: it accepts blocked PCBs with
// a simulated device cost and advances them toward completion one tick
// at a time, without modeling real device contention.
package ioman

import (
	"sync"

	"github.com/smpsim/coresim/internal/pcb"
)

type request struct {
	p         *pcb.PCB
	device    string
	remaining uint64
	seq       uint64 // admission order, for FIFO tie-break among equal-cost requests
}

// Manager holds the active set of blocked-PCB I/O requests.
type Manager struct {
	mu       sync.Mutex
	active   []*request
	nextSeq  uint64
}

// New constructs an empty I/O Manager.
func New() *Manager {
	return &Manager{}
}

// Submit registers p as blocked on device for cost cycles.
func (m *Manager) Submit(p *pcb.PCB, device string, cost uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = append(m.active, &request{p: p, device: device, remaining: cost, seq: m.nextSeq})
	m.nextSeq++
}

// Advance decrements every active request's remaining cycles by one and
// transitions any that reach zero to Ready, returning the PCBs that
// completed this tick in FIFO order among equal-cost completions.
func (m *Manager) Advance() []*pcb.PCB {
	m.mu.Lock()
	defer m.mu.Unlock()

	var done []*pcb.PCB
	remaining := m.active[:0]
	for _, req := range m.active {
		if req.remaining > 0 {
			req.remaining--
		}
		if req.remaining == 0 {
			req.p.SetState(pcb.Ready)
			done = append(done, req.p)
		} else {
			remaining = append(remaining, req)
		}
	}
	m.active = remaining
	return done
}

// IsIdle reports whether there are no active I/O requests.
func (m *Manager) IsIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active) == 0
}

// ActiveCount returns the number of currently blocked requests.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
