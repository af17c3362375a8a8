package passes

import "github.com/xyproto/dbtcore/internal/hir"

// ValidationError describes one structural defect Validation found.
// Multiple defects are collected rather than failing on the first, so a
// single run reports everything wrong with a miscompiled function.
type ValidationError struct {
	BlockID int
	InstrID int
	Reason  string
}

func (e ValidationError) Error() string {
	return e.Reason
}

// Validation is pass 8, the pipeline's final check: every
// non-constant value is defined exactly once (by construction, since
// HIRBuilder never reuses a Value across instructions -- this instead
// catches a pass that wired an operand to a stale Value after a
// redirectUses that should have retired it), every instruction's operand
// kinds match what its opcode expects, and every label operand resolves
// to a block that is actually reachable from the function's block list.
// cmd/dbtcore's optimize always runs it; config's validate_hir flag
// decides whether the errors it returns fail a scenario.
func Validation(p *Pipeline, fn *hir.Function) []ValidationError {
	p.ValidateStage(StageRegisterAllocation, "Validation")

	var errs []ValidationError
	seen := map[*hir.Value]bool{}

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs() {
			if instr.Dest != nil {
				if seen[instr.Dest] {
					errs = append(errs, ValidationError{blk.ID, instr.ID, "value redefined by more than one instruction"})
				}
				seen[instr.Dest] = true
			}
			errs = append(errs, validateOperandKinds(blk, instr)...)
			errs = append(errs, validateLabelTargets(fn, blk, instr)...)
		}
	}

	p.AdvanceTo(StageValidation)
	return errs
}

// validateOperandKinds checks that each opcode's operands carry the kind
// that opcode's builder method would have produced -- catches a pass that
// wrote raw offset or label data into the wrong slot.
func validateOperandKinds(blk *hir.Block, instr *hir.Instr) []ValidationError {
	var errs []ValidationError
	expect := func(ok bool, reason string) {
		if !ok {
			errs = append(errs, ValidationError{blk.ID, instr.ID, reason})
		}
	}

	switch instr.Opcode {
	case hir.OpLoadContext, hir.OpStoreContext:
		expect(instr.Src1.Kind == hir.OperandOffset, "load_context/store_context requires an offset operand in src1")
	case hir.OpBranch:
		expect(instr.Src1.Kind == hir.OperandLabel, "branch requires a label operand in src1")
	case hir.OpBranchTrue, hir.OpBranchFalse:
		expect(instr.Src1.Kind == hir.OperandValue, "conditional branch requires a value condition in src1")
		expect(instr.Src2.Kind == hir.OperandLabel, "conditional branch requires a label operand in src2")
	case hir.OpCall:
		expect(instr.Src1.Kind == hir.OperandSymbol, "call requires a symbol operand in src1")
	case hir.OpCallIndirect:
		expect(instr.Src1.Kind == hir.OperandValue, "call_indirect requires a value operand in src1")
	}
	return errs
}

// validateLabelTargets checks that any label operand on instr names a
// block still present in fn's block list -- a pass that removed a block
// without retargeting every branch into it would leave a dangling label.
func validateLabelTargets(fn *hir.Function, blk *hir.Block, instr *hir.Instr) []ValidationError {
	var errs []ValidationError
	for _, op := range [3]hir.Operand{instr.Src1, instr.Src2, instr.Src3} {
		if op.Kind != hir.OperandLabel {
			continue
		}
		if op.Label.Block == nil {
			errs = append(errs, ValidationError{blk.ID, instr.ID, "label operand has no bound block"})
			continue
		}
		if !blockInFunction(fn, op.Label.Block) {
			errs = append(errs, ValidationError{blk.ID, instr.ID, "label operand targets a block outside the function"})
		}
	}
	return errs
}

func blockInFunction(fn *hir.Function, target *hir.Block) bool {
	for _, b := range fn.Blocks {
		if b == target {
			return true
		}
	}
	return false
}
