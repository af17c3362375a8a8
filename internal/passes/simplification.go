package passes

import "github.com/xyproto/dbtcore/internal/hir"

// Simplification applies algebraic identities (x^0=x, x*1=x, x*0=0,
// shift-of-shift-by-constant) and strength reduction of a constant power-
// of-two divisor into a shift, plus absorption of a redundant extend
// (zero_extend/sign_extend whose operand is already that width or wider
// in a way that makes the extend a no-op).
func Simplification(p *Pipeline, fn *hir.Function) {
	p.ValidateStage(StageConstantPropagation, "Simplification")

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs() {
			simplifyInstr(instr)
		}
	}

	p.AdvanceTo(StageSimplification)
}

func simplifyInstr(instr *hir.Instr) {
	switch instr.Opcode {
	case hir.OpXor, hir.OpOr, hir.OpAdd:
		if !identityIfConst(instr, instr.Src2, 0) {
			identityIfConst(instr, instr.Src1, 0)
		}
	case hir.OpMul:
		simplifyMul(instr)
	case hir.OpAnd:
		simplifyAnd(instr)
	case hir.OpDiv:
		simplifyDivByPowerOfTwo(instr)
	case hir.OpShl, hir.OpShr, hir.OpSar:
		simplifyShiftOfShift(instr)
	case hir.OpZeroExtend, hir.OpSignExtend:
		simplifyRedundantExtend(instr)
	}
}

// identityIfConst replaces instr's dest with its other operand when op is
// a constant equal to identity, and reports whether it did so.
func identityIfConst(instr *hir.Instr, op hir.Operand, identity uint64) bool {
	c, ok := constOperand(op)
	if !ok || c.ConstU64() != identity {
		return false
	}
	other := instr.Src1
	if op.Value == instr.Src1.Value {
		other = instr.Src2
	}
	if other.Kind != hir.OperandValue {
		return false
	}
	redirectUses(instr.Dest, other.Value)
	instr.Remove()
	return true
}

func simplifyMul(instr *hir.Instr) {
	if identityIfConst(instr, instr.Src2, 1) || identityIfConst(instr, instr.Src1, 1) {
		return
	}
	if c, ok := constOperand(instr.Src2); ok && c.ConstU64() == 0 {
		replaceWithConstant(instr, 0)
		return
	}
	if c, ok := constOperand(instr.Src1); ok && c.ConstU64() == 0 {
		replaceWithConstant(instr, 0)
	}
}

func simplifyAnd(instr *hir.Instr) {
	mask := uint64(1)<<uint(instr.Dest.Type.Size()*8) - 1
	if instr.Dest.Type.Size() == 8 {
		mask = ^uint64(0)
	}
	if c, ok := constOperand(instr.Src2); ok && c.ConstU64()&mask == mask {
		identityIfConst(instr, instr.Src2, mask)
	}
}

// simplifyDivByPowerOfTwo rewrites unsigned division by a constant power
// of two into a right shift.
func simplifyDivByPowerOfTwo(instr *hir.Instr) {
	c, ok := constOperand(instr.Src2)
	if !ok {
		return
	}
	v := c.ConstU64()
	if v == 0 || v&(v-1) != 0 {
		return
	}
	shiftAmount := uint64(0)
	for t := v; t > 1; t >>= 1 {
		shiftAmount++
	}
	instr.SetSrc2(hir.ValueOperand(hir.NewConstant(instr.Dest.Type, shiftAmount)))
	instr.Replace(hir.OpShr, instr.Flags)
}

// simplifyShiftOfShift merges two consecutive constant shifts by the same
// opcode into one, e.g. (x << 2) << 3 -> x << 5.
func simplifyShiftOfShift(instr *hir.Instr) {
	outerAmt, ok := constOperand(instr.Src2)
	if !ok {
		return
	}
	inner := instr.Src1
	if inner.Kind != hir.OperandValue || inner.Value.Def == nil || inner.Value.Def.Opcode != instr.Opcode {
		return
	}
	innerAmt, ok := constOperand(inner.Value.Def.Src2)
	if !ok {
		return
	}
	total := outerAmt.ConstU64() + innerAmt.ConstU64()
	instr.SetSrc1(inner.Value.Def.Src1)
	instr.SetSrc2(hir.ValueOperand(hir.NewConstant(instr.Dest.Type, total)))
}

// simplifyRedundantExtend drops a zero_extend/sign_extend whose source
// operand is already the destination's type.
func simplifyRedundantExtend(instr *hir.Instr) {
	if instr.Src1.Kind != hir.OperandValue {
		return
	}
	if instr.Src1.Value.Type != instr.Dest.Type {
		return
	}
	redirectUses(instr.Dest, instr.Src1.Value)
	instr.Remove()
}
