// Package loader populates PCBs and writes program words into the
// memory hierarchy from a JSON process/program descriptor, a thin
// external collaborator outside the scheduling core.
package loader

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/smpsim/coresim/internal/engine"
	"github.com/smpsim/coresim/internal/memory"
	"github.com/smpsim/coresim/internal/pcb"
)

// Instruction is the JSON-visible mnemonic form of one encoded word. A
// descriptor may supply either Word directly or the symbolic fields;
// when Word is set it takes precedence and the symbolic fields are
// ignored.
type Instruction struct {
	Op     string  `json:"op"`
	Funct  string  `json:"funct,omitempty"`
	Rs     uint8   `json:"rs,omitempty"`
	Rt     uint8   `json:"rt,omitempty"`
	Rd     uint8   `json:"rd,omitempty"`
	Imm    int32   `json:"imm,omitempty"`
	Device uint8   `json:"device,omitempty"`
	Cost   uint16  `json:"cost,omitempty"`
	Word   *uint64 `json:"word,omitempty"`
}

// ProcessDescriptor is one JSON process entry: identity, scheduling
// inputs and its program text.
type ProcessDescriptor struct {
	Pid              int           `json:"pid"`
	Name             string        `json:"name"`
	Priority         int           `json:"priority"`
	EstimatedJobSize uint64        `json:"estimated_job_size"`
	SegmentBase      uint32        `json:"segment_base"`
	Program          []Instruction `json:"program"`
}

// Descriptor is the top-level JSON document: a batch of processes to
// admit.
type Descriptor struct {
	Processes []ProcessDescriptor `json:"processes"`
}

var mnemonics = map[string]engine.Opcode{
	"add": engine.OpSpecial, "sub": engine.OpSpecial, "and": engine.OpSpecial,
	"or": engine.OpSpecial, "mult": engine.OpSpecial, "div": engine.OpSpecial,
	"sll": engine.OpSpecial, "srl": engine.OpSpecial, "jr": engine.OpSpecial,
	"addi": engine.OpAddi, "li": engine.OpAddi, "andi": engine.OpAndi,
	"ori": engine.OpOri, "slti": engine.OpSlti,
	"lw": engine.OpLw, "sw": engine.OpSw,
	"beq": engine.OpBeq, "bne": engine.OpBne, "bgt": engine.OpBgt, "blt": engine.OpBlt,
	"j": engine.OpJ, "jal": engine.OpJal,
	"print": engine.OpPrint, "end": engine.OpEnd, "io": engine.OpIO,
}

var functs = map[string]engine.Opcode{
	"add": engine.FunctAdd, "sub": engine.FunctSub, "and": engine.FunctAnd,
	"or": engine.FunctOr, "mult": engine.FunctMul, "div": engine.FunctDiv,
	"sll": engine.FunctSll, "srl": engine.FunctSrl, "jr": engine.FunctJr,
}

// encode turns a symbolic Instruction into its one-word representation.
func encode(ins Instruction) (uint64, error) {
	if ins.Word != nil {
		return *ins.Word, nil
	}
	if ins.Op == "io" {
		return engine.EncodeIO(ins.Device, ins.Cost), nil
	}
	op, ok := mnemonics[ins.Op]
	if !ok {
		return 0, fmt.Errorf("loader: unknown mnemonic %q", ins.Op)
	}
	funct := functs[ins.Op] // zero value for non-R-type, which is correct
	return engine.Encode(op, funct, ins.Rs, ins.Rt, ins.Rd, ins.Imm), nil
}

// Decode parses a JSON descriptor document from r.
func Decode(r io.Reader) (Descriptor, error) {
	var d Descriptor
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Descriptor{}, fmt.Errorf("loader: decode: %w", err)
	}
	return d, nil
}

// Load builds a PCB for d and writes its program into mem starting at
// d.SegmentBase, via the memory hierarchy's own write path (so the
// load itself is visible to the global RAM-write counters like any
// other write).
func Load(d ProcessDescriptor, quantum pcb.Quantum, weights pcb.MemWeights, mem *memory.Hierarchy) (*pcb.PCB, error) {
	p := pcb.New(d.Pid, d.Name, d.Priority, quantum, weights)
	p.EstimatedJobSize = d.EstimatedJobSize
	p.SegmentBase = d.SegmentBase
	p.SegmentSize = uint32(len(d.Program))
	p.Regs.PC = uint64(d.SegmentBase)

	for i, ins := range d.Program {
		word, err := encode(ins)
		if err != nil {
			return nil, fmt.Errorf("loader: pid %d instruction %d: %w", d.Pid, i, err)
		}
		addr := d.SegmentBase + uint32(i)
		if err := mem.Write(addr, word, p, nil); err != nil {
			return nil, fmt.Errorf("loader: pid %d writing program: %w", d.Pid, err)
		}
	}
	return p, nil
}
