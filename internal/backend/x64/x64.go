// Package x64 implements the reference host backend: an assembler that
// lowers register-allocated HIR straight to x86-64 machine code bytes.
// Ground truth for the byte-emission idiom (a small buffer wrapper with
// Write/Write8u-style methods, gated verbose hex logging to stderr) is
// emit.go's BufferWrapper; ground truth for the sequence-table shape
// (a signature keyed by opcode and operand kinds, mapped to an emission
// functor) is original_source/src/alloy/backend/x64/x64_sequences.cc and
// lowering_table.h. Register-field encodings (ModRM/REX, add/sub/and/or/
// xor/cmp sharing one opcode-byte-per-operation form) follow
// mov_x86_64.go/add.go/cmp.go's byte layouts for the 64-bit reg/reg and
// reg/mem forms.
package x64

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/xyproto/dbtcore/internal/arena"
	"github.com/xyproto/dbtcore/internal/backend"
	"github.com/xyproto/dbtcore/internal/hir"
)

// VerboseMode gates the hex-dump-to-stderr tracing the teacher's own
// BufferWrapper performs on every byte written.
var VerboseMode = false

// contextBaseReg is the physical register (r13) permanently reserved to
// hold the guest PPCContext pointer; it is never handed out by
// RegisterAllocation's pool (see MachineInfo below).
const contextBaseReg = 13

// poolToPhysical maps a MachineInfo integer register-set index (0..13)
// to a physical x86-64 register encoding (0..15), skipping rsp(4,
// reserved for the host stack) and r13 (reserved as contextBaseReg).
var poolToPhysical = [14]int{0, 1, 2, 3, 5, 6, 7, 8, 9, 10, 11, 12, 14, 15}

// Backend is the x64 Backend implementation.
type Backend struct{}

// New returns the x64 backend.
func New() backend.Backend { return Backend{} }

func (Backend) MachineInfo() backend.MachineInfo {
	clobberedInt := make([]bool, len(poolToPhysical))
	for i, phys := range poolToPhysical {
		// System V AMD64: rax(0),rcx(1),rdx(2),rsi(6),rdi(7),r8-r11(8-11)
		// are caller-saved; rbx(3),rbp(5),r12(12),r14(14),r15(15) survive
		// a call.
		switch phys {
		case 0, 1, 2, 6, 7, 8, 9, 10, 11:
			clobberedInt[i] = true
		}
	}
	return backend.MachineInfo{
		Arch:               backend.ArchX86_64,
		IntRegisterCount:   len(poolToPhysical),
		FloatRegisterCount: 16,
		CallClobberedInt:   clobberedInt,
		CallClobberedFloat: make([]bool, 16),
	}
}

func (Backend) CreateAssembler() backend.Assembler { return &Assembler{} }

// buffer is an append-only byte sink with a Patch32 escape hatch for
// backpatching intra-function jump displacements once every block's
// start offset is known.
type buffer struct {
	bytes []byte
}

func (b *buffer) emit(bs ...byte) {
	b.bytes = append(b.bytes, bs...)
	if VerboseMode {
		for _, x := range bs {
			fmt.Fprintf(os.Stderr, " %02x", x)
		}
	}
}

func (b *buffer) emit32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.emit(tmp[:]...)
}

func (b *buffer) patch32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(b.bytes[offset:offset+4], v)
}

func (b *buffer) len() int { return len(b.bytes) }

// relocation records a 4-byte rel32 field at Offset that must be patched
// to point at TargetBlock's eventual start offset once every block has
// been emitted.
type relocation struct {
	Offset      int
	TargetBlock *hir.Block
	NextInstr   int // byte offset immediately after the jump, rel32's base
}

// Assembler lowers one function's HIR to x86-64 bytes, in a single
// forward pass that records forward-branch fixups and patches them once
// every block's start offset is known. scratch is a per-Assembler arena
// (grounded on arena.go's chunked bump allocator) that the finished byte
// sequence is copied into at the end of Assemble, so repeated compiles
// through the same Assembler reuse one growing backing store instead of
// handing a fresh heap slice to the garbage collector on every function;
// it is reset at the start of each Assemble, so nothing about a prior
// compile's addresses survives into the next.
type Assembler struct {
	scratch *arena.Arena
}

func (a *Assembler) Assemble(fn *hir.Function) (backend.Code, error) {
	if a.scratch == nil {
		a.scratch = arena.New(0)
	} else {
		a.scratch.Reset()
	}

	buf := &buffer{}
	blockStart := make(map[*hir.Block]int, len(fn.Blocks))
	var relocs []relocation

	for _, blk := range fn.Blocks {
		blockStart[blk] = buf.len()
		for _, instr := range blk.Instrs() {
			if err := emitInstr(buf, instr, &relocs); err != nil {
				return backend.Code{}, fmt.Errorf("x64: block %d instr %d: %w", blk.ID, instr.ID, err)
			}
		}
	}

	for _, r := range relocs {
		target, ok := blockStart[r.TargetBlock]
		if !ok {
			return backend.Code{}, fmt.Errorf("x64: branch target block %d not in function", r.TargetBlock.ID)
		}
		buf.patch32(r.Offset, uint32(int32(target-r.NextInstr)))
	}

	final := a.scratch.Alloc(len(buf.bytes), 1)
	copy(final, buf.bytes)

	return backend.Code{
		Bytes:     final,
		StackSize: 0,
		Unwind:    backend.UnwindDescriptor{StackSize: 0},
	}, nil
}

func physicalReg(v *hir.Value) (reg int, err error) {
	if v.Assign.Kind != hir.AssignRegister {
		return 0, fmt.Errorf("value not register-assigned (spilled operands are not yet supported by this backend)")
	}
	if v.Assign.Reg < 0 || v.Assign.Reg >= len(poolToPhysical) {
		return 0, fmt.Errorf("register index %d out of range", v.Assign.Reg)
	}
	return poolToPhysical[v.Assign.Reg], nil
}

// rex builds a REX prefix: W (64-bit operand), R (reg field extension),
// X (index field extension, unused here), B (rm/base field extension).
func rex(w, r, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if b {
		v |= 0x01
	}
	return v
}

func modrmDirect(regField, rmField int) byte {
	return 0xC0 | byte(regField&7)<<3 | byte(rmField&7)
}

func modrmDisp32(regField, rmField int) byte {
	return 0x80 | byte(regField&7)<<3 | byte(rmField&7)
}

// emitMovRegReg writes `mov dst, src` (64-bit general-purpose register).
func emitMovRegReg(buf *buffer, dst, src int) {
	buf.emit(rex(true, src >= 8, dst >= 8), 0x89, modrmDirect(src, dst))
}

// emitBinOpRegReg writes a two-operand `op dst, src` using the reg/reg
// form shared by add(0x01)/or(0x09)/and(0x21)/sub(0x29)/xor(0x31).
func emitBinOpRegReg(buf *buffer, opcodeByte byte, dst, src int) {
	buf.emit(rex(true, src >= 8, dst >= 8), opcodeByte, modrmDirect(src, dst))
}

// emitMovRegFromContext writes `mov dst, [contextBaseReg+disp32]`.
func emitMovRegFromContext(buf *buffer, dst int, disp uint64) {
	buf.emit(rex(true, dst >= 8, contextBaseReg >= 8), 0x8B, modrmDisp32(dst, contextBaseReg))
	buf.emit32(uint32(disp))
}

// emitMovContextFromReg writes `mov [contextBaseReg+disp32], src`.
func emitMovContextFromReg(buf *buffer, disp uint64, src int) {
	buf.emit(rex(true, src >= 8, contextBaseReg >= 8), 0x89, modrmDisp32(src, contextBaseReg))
	buf.emit32(uint32(disp))
}

func binOpcodeByte(op hir.Opcode) (byte, bool) {
	switch op {
	case hir.OpAdd:
		return 0x01, true
	case hir.OpOr:
		return 0x09, true
	case hir.OpAnd:
		return 0x21, true
	case hir.OpSub:
		return 0x29, true
	case hir.OpXor:
		return 0x31, true
	default:
		return 0, false
	}
}

// emitInstr lowers one HIR instruction. It performs the two-address
// fixup x86 requires (dest must equal src1's physical register) by
// emitting a `mov dst, src1` ahead of the real op whenever
// RegisterAllocation gave them different registers -- x86's arithmetic
// opcodes only ever encode two operands, overwriting the second in
// place.
func emitInstr(buf *buffer, instr *hir.Instr, relocs *[]relocation) error {
	switch instr.Opcode {
	case hir.OpLoadContext:
		dst, err := physicalReg(instr.Dest)
		if err != nil {
			return err
		}
		emitMovRegFromContext(buf, dst, instr.Src1.Offset)
		return nil

	case hir.OpStoreContext:
		src, err := physicalReg(instr.Src2.Value)
		if err != nil {
			return err
		}
		emitMovContextFromReg(buf, instr.Src1.Offset, src)
		return nil

	case hir.OpAdd, hir.OpSub, hir.OpAnd, hir.OpOr, hir.OpXor:
		opByte, ok := binOpcodeByte(instr.Opcode)
		if !ok {
			return fmt.Errorf("unreachable: %s not a recognized binary opcode", instr.Opcode)
		}
		dst, err := physicalReg(instr.Dest)
		if err != nil {
			return err
		}
		src1, err := physicalReg(instr.Src1.Value)
		if err != nil {
			return err
		}
		src2, err := physicalReg(instr.Src2.Value)
		if err != nil {
			return err
		}
		if dst != src1 {
			emitMovRegReg(buf, dst, src1)
		}
		emitBinOpRegReg(buf, opByte, dst, src2)
		return nil

	case hir.OpReturn:
		buf.emit(0xC3)
		return nil

	case hir.OpBranch:
		buf.emit(0xE9)
		off := buf.len()
		buf.emit32(0)
		*relocs = append(*relocs, relocation{Offset: off, TargetBlock: instr.Src1.Label.Block, NextInstr: buf.len()})
		return nil

	case hir.OpBranchTrue, hir.OpBranchFalse:
		cond, err := physicalReg(instr.Src1.Value)
		if err != nil {
			return err
		}
		// test cond, cond
		buf.emit(rex(true, cond >= 8, cond >= 8), 0x85, modrmDirect(cond, cond))
		// jnz (branch_true) / jz (branch_false), near form
		jccByte := byte(0x85)
		if instr.Opcode == hir.OpBranchFalse {
			jccByte = 0x84
		}
		buf.emit(0x0F, jccByte)
		off := buf.len()
		buf.emit32(0)
		*relocs = append(*relocs, relocation{Offset: off, TargetBlock: instr.Src2.Label.Block, NextInstr: buf.len()})
		return nil

	default:
		// Atomics, vector ops, calls, and traps are not yet lowered by
		// this reference backend -- the interpreter backend (internal/
		// backend/ivm) covers them for the demo scenarios that need them.
		return fmt.Errorf("x64: opcode %s has no sequence-table entry yet", instr.Opcode)
	}
}
