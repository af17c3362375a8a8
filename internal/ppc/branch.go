package ppc

import "github.com/xyproto/dbtcore/internal/hir"

// bc BO, BI, target -- primary opcode 16 (B-form). This lifter covers the
// three BO encodings compiler-generated code actually emits for a simple
// conditional branch: "always" (mnemonic "b", BO=20), "branch if true"
// (BO=12, e.g. beq/blt/bgt), and "branch if false" (BO=4, e.g. bne/bge).
// CTR-counting branches (bdnz and friends) are not emitted by the
// compilers this core targets and are left unrecognized, which the
// scanner turns into a trap per the decode-error policy.
const (
	boAlways = 20
	boTrue   = 12
	boFalse  = 4
)

// crBitOffset returns the context offset of the packed cr field byte and
// the bit position (3=LT, 2=GT, 1=EQ, 0=SO) BI selects within it.
func crBitOffset(bi uint32) (fieldOffset uint64, bitPos int8) {
	crf := bi / 4
	switch bi % 4 {
	case 0:
		bitPos = 3
	case 1:
		bitPos = 2
	case 2:
		bitPos = 1
	case 3:
		bitPos = 0
	}
	return CRFieldOffset(int(crf)), bitPos
}

func liftBC(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	if lc == nil || lc.Resolve == nil {
		return false
	}
	target := uint32(int64(cia) + int64(instr.BDOffset()))
	if instr.AABit() {
		target = uint32(instr.BDOffset())
	}
	label := lc.Resolve(target)
	if label == nil {
		return false
	}

	switch instr.BO() {
	case boAlways:
		b.Branch(label)
	case boTrue, boFalse:
		fieldOff, bitPos := crBitOffset(instr.BI())
		crByte := b.LoadContext(fieldOff, hir.TypeI8)
		bit := b.And(b.Shr(crByte, b.I8(bitPos)), b.I8(1))
		cond := b.CmpNe(bit, b.I8(0))
		if instr.BO() == boTrue {
			b.BranchTrue(cond, label)
		} else {
			b.BranchFalse(cond, label)
		}
	default:
		return false
	}
	return true
}

func init() {
	register(16, liftBC)
}
