package passes

import "github.com/xyproto/dbtcore/internal/hir"

// DeadCodeElimination removes instructions whose destination has no
// remaining uses and which carry no side effect (IsVolatile()==false).
// Runs to a local fixpoint within one pass since removing one dead instr
// can make its operands' defining instructions dead in turn.
func DeadCodeElimination(p *Pipeline, fn *hir.Function) {
	p.ValidateStage(StageSimplification, "DeadCodeElimination")

	changed := true
	for changed {
		changed = false
		for _, blk := range fn.Blocks {
			for _, instr := range blk.Instrs() {
				if instr.Dest == nil || instr.IsVolatile() {
					continue
				}
				if instr.Dest.UseCount() == 0 {
					instr.Remove()
					changed = true
				}
			}
		}
	}

	p.AdvanceTo(StageDeadCodeElimination)
}
