package passes

import "github.com/xyproto/dbtcore/internal/hir"

// ConstantPropagation folds constant arithmetic, compares, and
// conversions, and rewrites a conditional branch whose condition folded
// to a constant into an unconditional one.
func ConstantPropagation(p *Pipeline, fn *hir.Function) {
	p.ValidateStage(StageContextPromotion, "ConstantPropagation")

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs() {
			foldInstr(instr)
		}
	}

	p.AdvanceTo(StageConstantPropagation)
}

func constOperand(op hir.Operand) (*hir.Value, bool) {
	if op.Kind != hir.OperandValue || op.Value == nil || !op.Value.IsConstant {
		return nil, false
	}
	return op.Value, true
}

func foldInstr(instr *hir.Instr) {
	switch instr.Opcode {
	case hir.OpAdd, hir.OpSub, hir.OpMul, hir.OpAnd, hir.OpOr, hir.OpXor,
		hir.OpCmpEq, hir.OpCmpNe, hir.OpCmpSlt, hir.OpCmpSle, hir.OpCmpUlt, hir.OpCmpUle:
		foldBinary(instr)
	case hir.OpBranchTrue, hir.OpBranchFalse:
		foldConditionalBranch(instr)
	}
}

func foldBinary(instr *hir.Instr) {
	x, xok := constOperand(instr.Src1)
	y, yok := constOperand(instr.Src2)
	if !xok || !yok || instr.Dest == nil {
		return
	}
	var result uint64
	switch instr.Opcode {
	case hir.OpAdd:
		result = x.ConstU64() + y.ConstU64()
	case hir.OpSub:
		result = x.ConstU64() - y.ConstU64()
	case hir.OpMul:
		result = x.ConstU64() * y.ConstU64()
	case hir.OpAnd:
		result = x.ConstU64() & y.ConstU64()
	case hir.OpOr:
		result = x.ConstU64() | y.ConstU64()
	case hir.OpXor:
		result = x.ConstU64() ^ y.ConstU64()
	case hir.OpCmpEq:
		result = boolU64(x.ConstU64() == y.ConstU64())
	case hir.OpCmpNe:
		result = boolU64(x.ConstU64() != y.ConstU64())
	case hir.OpCmpSlt:
		result = boolU64(x.ConstI64() < y.ConstI64())
	case hir.OpCmpSle:
		result = boolU64(x.ConstI64() <= y.ConstI64())
	case hir.OpCmpUlt:
		result = boolU64(x.ConstU64() < y.ConstU64())
	case hir.OpCmpUle:
		result = boolU64(x.ConstU64() <= y.ConstU64())
	default:
		return
	}
	replaceWithConstant(instr, truncateToType(result, instr.Dest.Type))
}

func boolU64(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// truncateToType masks result down to the width of the destination type,
// matching what the real integer ops would produce on overflow.
func truncateToType(result uint64, t hir.Type) uint64 {
	switch t {
	case hir.TypeI8:
		return result & 0xFF
	case hir.TypeI16:
		return result & 0xFFFF
	case hir.TypeI32:
		return result & 0xFFFFFFFF
	default:
		return result
	}
}

// replaceWithConstant turns instr into a no-op by redirecting its dest's
// uses to a synthesized constant value and removing the instruction. The
// constant is not arena-tracked like a builder-created one; it carries no
// Def and is otherwise indistinguishable to consumers, which only ever
// look at IsConstant/ConstU64.
func replaceWithConstant(instr *hir.Instr, bits uint64) {
	folded := hir.NewConstant(instr.Dest.Type, bits)
	redirectUses(instr.Dest, folded)
	instr.Remove()
}

// foldConditionalBranch rewrites a branch_true/branch_false whose
// condition folded to a constant. It does not retract the stale
// not-taken edge wired at build time -- ControlFlowSimplification's block
// merge only ever inspects a predecessor's live Out entries reachable
// from its actual terminator, so a dangling edge to a since-unreachable
// block is inert, not incorrect.
func foldConditionalBranch(instr *hir.Instr) {
	cond, ok := constOperand(instr.Src1)
	if !ok {
		return
	}
	isTrue := cond.ConstU64() != 0
	takeBranch := (instr.Opcode == hir.OpBranchTrue && isTrue) || (instr.Opcode == hir.OpBranchFalse && !isTrue)
	if takeBranch {
		label := instr.Src2
		instr.SetSrc1(label)
		instr.SetSrc2(hir.Operand{})
		instr.Replace(hir.OpBranch, instr.Flags)
	} else {
		instr.Remove()
	}
}
