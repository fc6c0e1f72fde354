package loader

import (
	"strings"
	"testing"

	"github.com/smpsim/coresim/internal/memory"
	"github.com/smpsim/coresim/internal/pcb"
)

func TestDecodeAndLoad(t *testing.T) {
	doc := `{
		"processes": [
			{
				"pid": 1,
				"name": "p1",
				"priority": 3,
				"estimated_job_size": 2,
				"segment_base": 0,
				"program": [
					{"op": "addi", "rt": 1, "imm": 41},
					{"op": "addi", "rs": 1, "rt": 1, "imm": 1},
					{"op": "end"}
				]
			}
		]
	}`

	d, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(d.Processes) != 1 {
		t.Fatalf("len(Processes) = %d, want 1", len(d.Processes))
	}

	mem := memory.New(64, 0)
	p, err := Load(d.Processes[0], pcb.Unbounded, pcb.DefaultMemWeights, mem)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Pid != 1 || p.Priority != 3 || p.EstimatedJobSize != 2 {
		t.Fatalf("unexpected PCB fields: %+v", p)
	}
	if p.SegmentSize != 3 {
		t.Fatalf("SegmentSize = %d, want 3", p.SegmentSize)
	}
}

func TestUnknownMnemonicFails(t *testing.T) {
	d := ProcessDescriptor{Pid: 1, Program: []Instruction{{Op: "frobnicate"}}}
	mem := memory.New(64, 0)
	if _, err := Load(d, pcb.Unbounded, pcb.DefaultMemWeights, mem); err == nil {
		t.Fatalf("expected an error for an unknown mnemonic")
	}
}

func TestRawWordBypassesMnemonicTable(t *testing.T) {
	w := uint64(0x3F00000000000000) // OpEnd encoded directly
	d := ProcessDescriptor{Pid: 1, Program: []Instruction{{Word: &w}}}
	mem := memory.New(64, 0)
	p, err := Load(d, pcb.Unbounded, pcb.DefaultMemWeights, mem)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := mem.Read(0, p, nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != w {
		t.Fatalf("got %#x, want %#x", got, w)
	}
}
