// Package engine is the external instruction engine: a deterministic,
// MIPS-like decoder/executor satisfying the Core's black-box contract —
// given a process's register bank and the memory hierarchy, advance one
// instruction and report a terminal condition (continue, program end, an
// I/O request, or a fault).
//
// Programs are stored as one 64-bit encoded instruction per memory word,
// starting at the PCB's segment_base. The program counter is an absolute
// word address into the hierarchy, so loader, engine and memory agree on
// a single addressing scheme without a separate code segment type.
package engine

import (
	"fmt"

	"github.com/smpsim/coresim/internal/cache"
	"github.com/smpsim/coresim/internal/memory"
	"github.com/smpsim/coresim/internal/pcb"
)

// Opcode identifies an instruction's operation. Numeric values follow the
// MIPS-like encoding used by the reference simulator's instruction table,
// with one addition (IO) for this simulator's explicit I/O-request model.
type Opcode uint8

const (
	OpSpecial Opcode = 0x00 // R-type: funct selects the operation
	OpAddi    Opcode = 0x08
	OpSlti    Opcode = 0x0A
	OpAndi    Opcode = 0x0C
	OpOri     Opcode = 0x0D
	OpLw      Opcode = 0x23
	OpSw      Opcode = 0x2B
	OpBeq     Opcode = 0x04
	OpBne     Opcode = 0x05
	OpBgt     Opcode = 0x07
	OpBlt     Opcode = 0x09
	OpJ       Opcode = 0x02
	OpJal     Opcode = 0x03
	OpPrint   Opcode = 0x3E
	OpEnd     Opcode = 0x3F
	// OpIO is not part of the original ISA; it is this simulator's
	// explicit instruction for issuing a blocking device request,
	// carrying a device id and cost encoded in the immediate field.
	OpIO Opcode = 0x3D
)

// R-type funct codes, selected when Opcode == OpSpecial.
const (
	FunctAdd Opcode = 0x20
	FunctSub Opcode = 0x22
	FunctAnd Opcode = 0x24
	FunctOr  Opcode = 0x25
	FunctMul Opcode = 0x18
	FunctDiv Opcode = 0x1A
	FunctSll Opcode = 0x00
	FunctSrl Opcode = 0x02
	FunctJr  Opcode = 0x08
)

// Devices recognized by OpIO's device-id field.
var Devices = [...]string{"disk", "net", "console", "timer"}

// word layout: [opcode:8][funct:8][rs:8][rt:8][rd:8][imm:24]
//
// imm is sign-extended from 24 bits for arithmetic/branch/load/store, and
// reinterpreted as {device:8, cost:16} for OpIO.

// Encode packs an instruction into its one-word memory representation.
func Encode(op, funct Opcode, rs, rt, rd uint8, imm int32) uint64 {
	u := uint64(imm) & 0xFFFFFF
	return uint64(op)<<56 | uint64(funct)<<48 | uint64(rs)<<40 | uint64(rt)<<32 | uint64(rd)<<24 | u
}

// EncodeIO packs an OpIO instruction with a device index and cycle cost.
func EncodeIO(device uint8, cost uint16) uint64 {
	imm := uint32(device)<<16 | uint32(cost)
	return uint64(OpIO)<<56 | uint64(imm)
}

func decode(w uint64) (op, funct Opcode, rs, rt, rd uint8, imm int32) {
	op = Opcode(w >> 56)
	funct = Opcode((w >> 48) & 0xFF)
	rs = uint8((w >> 40) & 0xFF)
	rt = uint8((w >> 32) & 0xFF)
	rd = uint8((w >> 24) & 0xFF)
	raw := uint32(w & 0xFFFFFF)
	if raw&0x800000 != 0 {
		raw |= 0xFF000000 // sign-extend 24 -> 32 bits
	}
	imm = int32(raw)
	return
}

// Kind classifies a Step's outcome.
type Kind int

const (
	Continued Kind = iota
	ProgramEnd
	IORequest
	Exception
)

// Result is the engine's report for one Step invocation.
type Result struct {
	Kind   Kind
	Device string
	Cost   uint64
	Reason string
}

// Step fetches, decodes and executes a single instruction for pcb against
// the shared hierarchy and the core's private l1, then writes results
// back to the register bank. Step is deterministic: identical register
// state, memory contents and PC always produce the same Result and the
// same register/PC mutation.
func Step(p *pcb.PCB, mem *memory.Hierarchy, l1 *cache.Cache) Result {
	regs := &p.Regs

	word, err := mem.Read(uint32(regs.PC), p, l1)
	if err != nil {
		return Result{Kind: Exception, Reason: err.Error()}
	}

	op, funct, rs, rt, rd, imm := decode(word)
	nextPC := regs.PC + 1

	switch op {
	case OpSpecial:
		res := stepR(regs, funct, rs, rt, rd)
		if res.Kind != Continued {
			return res
		}
		if funct == FunctJr {
			nextPC = regs.Get(rs)
		}

	case OpAddi:
		regs.Set(rt, uint64(int64(regs.Get(rs))+int64(imm)))
	case OpAndi:
		regs.Set(rt, regs.Get(rs)&uint64(uint32(imm)))
	case OpOri:
		regs.Set(rt, regs.Get(rs)|uint64(uint32(imm)))
	case OpSlti:
		if int64(regs.Get(rs)) < int64(imm) {
			regs.Set(rt, 1)
		} else {
			regs.Set(rt, 0)
		}

	case OpLw:
		addr := uint32(int64(regs.Get(rs)) + int64(imm))
		v, err := mem.Read(addr, p, l1)
		if err != nil {
			return Result{Kind: Exception, Reason: err.Error()}
		}
		regs.Set(rt, v)
	case OpSw:
		addr := uint32(int64(regs.Get(rs)) + int64(imm))
		if err := mem.Write(addr, regs.Get(rt), p, l1); err != nil {
			return Result{Kind: Exception, Reason: err.Error()}
		}

	case OpBeq:
		if regs.Get(rs) == regs.Get(rt) {
			nextPC = uint64(int64(nextPC) + int64(imm))
		}
	case OpBne:
		if regs.Get(rs) != regs.Get(rt) {
			nextPC = uint64(int64(nextPC) + int64(imm))
		}
	case OpBgt:
		if int64(regs.Get(rs)) > int64(regs.Get(rt)) {
			nextPC = uint64(int64(nextPC) + int64(imm))
		}
	case OpBlt:
		if int64(regs.Get(rs)) < int64(regs.Get(rt)) {
			nextPC = uint64(int64(nextPC) + int64(imm))
		}

	case OpJ:
		nextPC = uint64(imm)
	case OpJal:
		regs.Set(31, nextPC)
		nextPC = uint64(imm)

	case OpPrint:
		regs.PC = nextPC
		return Result{Kind: Continued}

	case OpEnd:
		return Result{Kind: ProgramEnd}

	case OpIO:
		device := "unknown"
		idx := (uint32(imm) >> 16) & 0xFF
		if int(idx) < len(Devices) {
			device = Devices[idx]
		}
		cost := uint64(uint32(imm) & 0xFFFF)
		regs.PC = nextPC
		return Result{Kind: IORequest, Device: device, Cost: cost}

	default:
		return Result{Kind: Exception, Reason: fmt.Sprintf("unknown opcode 0x%02x", op)}
	}

	regs.PC = nextPC
	return Result{Kind: Continued}
}

func stepR(regs interface {
	Get(uint8) uint64
	Set(uint8, uint64)
}, funct Opcode, rs, rt, rd uint8) Result {
	switch funct {
	case FunctAdd:
		regs.Set(rd, uint64(int64(regs.Get(rs))+int64(regs.Get(rt))))
	case FunctSub:
		regs.Set(rd, uint64(int64(regs.Get(rs))-int64(regs.Get(rt))))
	case FunctAnd:
		regs.Set(rd, regs.Get(rs)&regs.Get(rt))
	case FunctOr:
		regs.Set(rd, regs.Get(rs)|regs.Get(rt))
	case FunctMul:
		regs.Set(rd, uint64(int64(regs.Get(rs))*int64(regs.Get(rt))))
	case FunctDiv:
		divisor := int64(regs.Get(rt))
		if divisor == 0 {
			return Result{Kind: Exception, Reason: "division by zero"}
		}
		regs.Set(rd, uint64(int64(regs.Get(rs))/divisor))
	case FunctSll:
		regs.Set(rd, regs.Get(rt)<<uint(rs))
	case FunctSrl:
		regs.Set(rd, regs.Get(rt)>>uint(rs))
	case FunctJr:
		// handled by the caller, which needs the target for nextPC.
	default:
		return Result{Kind: Exception, Reason: fmt.Sprintf("unknown funct 0x%02x", funct)}
	}
	return Result{Kind: Continued}
}
