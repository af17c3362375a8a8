package ppc

import "github.com/xyproto/dbtcore/internal/hir"

// cmpw crfD, rA, rB -- primary opcode 31, extended opcode 0 (X-form), L=0
// selects the 32-bit (word) comparison; crfD occupies RD's top 3 bits.
const xopCmp = 0

func liftCmp(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	crf := int(instr.RD() >> 2)
	ra := b.LoadContext(RegOffset(int(instr.RA())), hir.TypeI32)
	rb := b.LoadContext(RegOffset(int(instr.RB())), hir.TypeI32)
	diff := b.Sub(ra, rb)
	packCRField(b, crf, diff)
	return true
}

func init() {
	registerExtended31(xopCmp, liftCmp)
}
