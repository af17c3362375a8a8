package ppc

import "github.com/xyproto/dbtcore/internal/hir"

// vpermwi vD, vB, uimm -- primary opcode 4: the one VMX128 extension this
// reference core lifts, a fixed 4-lane word permute/splat used pervasively
// by Xbox 360 compiler output for vector shuffles. uimm packs four 2-bit
// lane selectors (lane i of the result takes lane uimm[2i:2i+1] of vB) in
// bits 16-23 of the instruction word; this core is the only consumer of
// that encoding, so it need not match any other VMX128 decoder bit for
// bit -- only vD/vB/uimm are meaningful here, unlike the dozens of other
// VMX128 opcodes xenia's real frontend also decodes.
func (i Instruction) vpermwiImm() uint32 { return field(uint32(i), 16, 23) }

func liftVPermWI(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	imm := instr.vpermwiImm()
	var mask [4]byte
	for lane := 0; lane < 4; lane++ {
		mask[lane] = byte((imm >> uint(lane*2)) & 0x3)
	}
	vb := b.LoadContext(VRegOffset(int(instr.VB())), hir.TypeV128)
	result := b.VectorSwizzle(vb, mask)
	b.StoreContext(VRegOffset(int(instr.VD())), result)
	return true
}

func init() {
	register(4, liftVPermWI)
}
