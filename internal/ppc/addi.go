package ppc

import "github.com/xyproto/dbtcore/internal/hir"

// addi rD, rA, SIMM -- primary opcode 14 (D-form). When RA == 0 the
// instruction is "li rD, SIMM" and reads no register (PPC defines r0 as
// literal zero in this one context, not the GPR).
func liftAddi(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	imm := b.I64(int64(instr.Imm16()))
	var result *hir.Value
	if instr.RA() == 0 {
		result = imm
	} else {
		ra := b.LoadContext(RegOffset(int(instr.RA())), hir.TypeI64)
		result = b.Add(ra, imm)
	}
	b.StoreContext(RegOffset(int(instr.RD())), result)
	return true
}

func init() {
	register(14, liftAddi)
}
