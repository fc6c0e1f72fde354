package engine

import (
	"testing"

	"github.com/smpsim/coresim/internal/memory"
	"github.com/smpsim/coresim/internal/pcb"
)

func newProc(mem *memory.Hierarchy, base uint32, program []uint64) *pcb.PCB {
	p := pcb.New(1, "p", 0, pcb.Unbounded, pcb.DefaultMemWeights)
	p.SegmentBase = base
	p.Regs.PC = uint64(base)
	for i, w := range program {
		_ = mem.Write(base+uint32(i), w, p, nil)
	}
	return p
}

func TestAddiAndEnd(t *testing.T) {
	mem := memory.New(16, 0)
	program := []uint64{
		Encode(OpAddi, 0, 0, 1, 0, 41), // r1 = r0 + 41
		Encode(OpAddi, 0, 1, 1, 0, 1),  // r1 = r1 + 1
		Encode(OpEnd, 0, 0, 0, 0, 0),
	}
	p := newProc(mem, 0, program)

	for i := 0; i < 2; i++ {
		res := Step(p, mem, nil)
		if res.Kind != Continued {
			t.Fatalf("step %d: kind = %v, want Continued", i, res.Kind)
		}
	}
	if p.Regs.Get(1) != 42 {
		t.Fatalf("r1 = %d, want 42", p.Regs.Get(1))
	}
	if res := Step(p, mem, nil); res.Kind != ProgramEnd {
		t.Fatalf("final step kind = %v, want ProgramEnd", res.Kind)
	}
}

func TestRTypeAdd(t *testing.T) {
	mem := memory.New(16, 0)
	program := []uint64{
		Encode(OpAddi, 0, 0, 1, 0, 10),
		Encode(OpAddi, 0, 0, 2, 0, 32),
		Encode(OpSpecial, FunctAdd, 1, 2, 3, 0), // r3 = r1 + r2
	}
	p := newProc(mem, 0, program)
	for i := 0; i < 3; i++ {
		if res := Step(p, mem, nil); res.Kind != Continued {
			t.Fatalf("step %d: %v", i, res)
		}
	}
	if p.Regs.Get(3) != 42 {
		t.Fatalf("r3 = %d, want 42", p.Regs.Get(3))
	}
}

func TestDivisionByZeroIsException(t *testing.T) {
	mem := memory.New(16, 0)
	program := []uint64{
		Encode(OpSpecial, FunctDiv, 0, 0, 1, 0), // r1 = r0 / r0
	}
	p := newProc(mem, 0, program)
	res := Step(p, mem, nil)
	if res.Kind != Exception {
		t.Fatalf("kind = %v, want Exception", res.Kind)
	}
}

func TestBranchNotTaken(t *testing.T) {
	mem := memory.New(16, 0)
	program := []uint64{
		Encode(OpAddi, 0, 0, 1, 0, 5),
		Encode(OpBeq, 0, 1, 0, 0, 2), // r1 == r0? no -> fallthrough
		Encode(OpAddi, 0, 0, 2, 0, 1),
		Encode(OpEnd, 0, 0, 0, 0, 0),
	}
	p := newProc(mem, 0, program)
	for i := 0; i < 3; i++ {
		Step(p, mem, nil)
	}
	if p.Regs.Get(2) != 1 {
		t.Fatalf("r2 = %d, want 1 (branch not taken)", p.Regs.Get(2))
	}
}

func TestIORequest(t *testing.T) {
	mem := memory.New(16, 0)
	program := []uint64{EncodeIO(0, 100)}
	p := newProc(mem, 0, program)

	res := Step(p, mem, nil)
	if res.Kind != IORequest {
		t.Fatalf("kind = %v, want IORequest", res.Kind)
	}
	if res.Device != "disk" || res.Cost != 100 {
		t.Fatalf("got device=%q cost=%d, want disk/100", res.Device, res.Cost)
	}
}

func TestLoadStoreRoundTrip(t *testing.T) {
	mem := memory.New(16, 0)
	program := []uint64{
		Encode(OpAddi, 0, 0, 1, 0, 99),  // r1 = 99
		Encode(OpSw, 0, 0, 1, 0, 10),    // mem[r0+10] = r1
		Encode(OpLw, 0, 0, 2, 0, 10),    // r2 = mem[r0+10]
	}
	p := newProc(mem, 0, program)
	for i := 0; i < 3; i++ {
		if res := Step(p, mem, nil); res.Kind != Continued {
			t.Fatalf("step %d: %v", i, res)
		}
	}
	if p.Regs.Get(2) != 99 {
		t.Fatalf("r2 = %d, want 99", p.Regs.Get(2))
	}
}
