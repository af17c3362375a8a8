package ppc

import "github.com/xyproto/dbtcore/internal/hir"

// LabelResolver maps a guest branch target address to a builder label.
// The scanner supplies one per function translation, since a forward
// branch's target block may not exist yet when the branch instruction
// itself is lifted; carrying it on LiftContext rather than in global
// state keeps Lift safe to call from multiple functions compiling in
// parallel.
type LabelResolver func(target uint32) *hir.Label

// LiftContext carries the per-function state a lifter needs beyond the
// instruction itself.
type LiftContext struct {
	Resolve LabelResolver
}

// LiftFunc lifts one instruction at cia (current instruction address) into
// b's current block. It returns false if the encoding is unrecognized --
// the caller lifts an OpTrap instead per spec.md's decode-error policy.
type LiftFunc func(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool

// primaryTable dispatches on the 6-bit primary opcode (bits 0-5).
var primaryTable = map[uint32]LiftFunc{}

// extendedTable31 dispatches X/XO-form instructions whose primary opcode is
// 31 (the bulk of the integer ALU and load/store-indexed encodings) on
// their 10-bit extended opcode, bits 21-30.
var extendedTable31 = map[uint32]LiftFunc{}

// extendedTable63 dispatches floating-point X-form instructions (primary
// opcode 63) the same way.
var extendedTable63 = map[uint32]LiftFunc{}

// register installs fn as the lifter for primary opcode op. Called from
// each per-mnemonic file's init(), mirroring the teacher's convention of
// letting each add.go/mov.go/cmp.go register its own encodings rather than
// listing every mnemonic in one central switch.
func register(op uint32, fn LiftFunc) { primaryTable[op] = fn }

// registerExtended31 installs fn for extended opcode xop under primary
// opcode 31.
func registerExtended31(xop uint32, fn LiftFunc) { extendedTable31[xop] = fn }

// registerExtended63 installs fn for extended opcode xop under primary
// opcode 63.
func registerExtended63(xop uint32, fn LiftFunc) { extendedTable63[xop] = fn }

// Lift dispatches instr to its registered lifter and emits the resulting
// HIR into b's current block. It reports whether the encoding was
// recognized; an unrecognized encoding is the caller's cue to emit a trap
// instead, per the decode-error policy in spec.md §7.
func Lift(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	op := instr.Opcode()
	switch op {
	case 31:
		if fn, ok := extendedTable31[instr.ExtendedOpcode()]; ok {
			return fn(b, instr, cia, lc)
		}
		return false
	case 63:
		if fn, ok := extendedTable63[instr.ExtendedOpcode()]; ok {
			return fn(b, instr, cia, lc)
		}
		return false
	default:
		if fn, ok := primaryTable[op]; ok {
			return fn(b, instr, cia, lc)
		}
		return false
	}
}
