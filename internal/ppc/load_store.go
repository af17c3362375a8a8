package ppc

import "github.com/xyproto/dbtcore/internal/hir"

// lwz rD, disp(rA) -- primary opcode 32 (D-form): load word and zero,
// from guest memory, always big-endian per the PPC architecture.
func liftLwz(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	addr := effectiveAddress(b, instr)
	val := b.Load(addr, hir.TypeI32, hir.BigEndian)
	b.StoreContext(RegOffset(int(instr.RD())), b.ZeroExtend(val, hir.TypeI64))
	return true
}

// stw rS, disp(rA) -- primary opcode 36 (D-form): store word.
func liftStw(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	addr := effectiveAddress(b, instr)
	rs := b.LoadContext(RegOffset(int(instr.RS())), hir.TypeI64)
	narrow := b.Truncate(rs, hir.TypeI32)
	b.Store(addr, narrow, hir.BigEndian)
	return true
}

// effectiveAddress computes rA + disp for a D-form load/store, treating
// rA == 0 as a literal zero base per the PPC architecture.
func effectiveAddress(b *hir.HIRBuilder, instr Instruction) *hir.Value {
	disp := b.I64(int64(instr.Imm16()))
	if instr.RA() == 0 {
		return disp
	}
	ra := b.LoadContext(RegOffset(int(instr.RA())), hir.TypeI64)
	return b.Add(ra, disp)
}

func init() {
	register(32, liftLwz)
	register(36, liftStw)
}
