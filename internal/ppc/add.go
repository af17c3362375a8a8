package ppc

import "github.com/xyproto/dbtcore/internal/hir"

// add rD, rA, rB -- primary opcode 31, extended opcode 266 (XO-form).
// Ground truth for the lift shape: original_source's per-instruction
// translate functions in ppc_translator.h build one or two HIR ops per
// guest instruction and store the result back into the context; here that
// becomes a LoadContext/Add/StoreContext triple.
const xopAdd = 266

func liftAdd(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	ra := b.LoadContext(RegOffset(int(instr.RA())), hir.TypeI64)
	rb := b.LoadContext(RegOffset(int(instr.RB())), hir.TypeI64)
	sum := b.Add(ra, rb)
	b.StoreContext(RegOffset(int(instr.RD())), sum)
	if instr.RcBit() {
		updateCR0(b, sum)
	}
	return true
}

func init() {
	registerExtended31(xopAdd, liftAdd)
}

// updateCR0 packs {LT,GT,EQ,SO} for a signed comparison of v against zero
// into cr0's single byte field (bits 3/2/1/0), called by every Rc=1
// integer op. SO is approximated as always-clear since the core does not
// model the XER summary-overflow bit beyond the fixed-point add/subtract
// family, which never sets it here.
func updateCR0(b *hir.HIRBuilder, v *hir.Value) { packCRField(b, 0, v) }

// packCRField computes {LT,GT,EQ,SO=0} for v against zero and stores the
// packed byte into cr[field].
func packCRField(b *hir.HIRBuilder, field int, v *hir.Value) {
	zero := intZeroLike(b, v)
	lt := b.CmpSlt(v, zero)
	gt := b.CmpSlt(zero, v)
	eq := b.CmpEq(v, zero)
	packed := b.Or(b.Or(b.Shl(lt, b.I8(3)), b.Shl(gt, b.I8(2))), b.Shl(eq, b.I8(1)))
	b.StoreContext(CRFieldOffset(field), packed)
}

// intZeroLike returns a zero constant of v's integer type.
func intZeroLike(b *hir.HIRBuilder, v *hir.Value) *hir.Value {
	switch v.Type {
	case hir.TypeI8:
		return b.I8(0)
	case hir.TypeI16:
		return b.I16(0)
	case hir.TypeI32:
		return b.I32(0)
	default:
		return b.I64(0)
	}
}
