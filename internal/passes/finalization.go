package passes

import (
	"fmt"

	"github.com/xyproto/dbtcore/internal/hir"
)

// Finalization assigns block ordinals in the function's current (post-
// simplification) block order, names every still-unnamed label, and
// removes an unconditional branch whose target is the lexically next
// block (a pure fallthrough needs no instruction).
func Finalization(p *Pipeline, fn *hir.Function) {
	p.ValidateStage(StageControlFlowSimplification, "Finalization")

	for i, blk := range fn.Blocks {
		blk.Ordinal = i
		for li, l := range blk.Labels {
			if l.Name == "" {
				l.Name = fmt.Sprintf("L%d_%d", i, li)
			}
		}
	}

	for i, blk := range fn.Blocks {
		term := blk.Terminator()
		if term == nil || term.Opcode != hir.OpBranch {
			continue
		}
		if term.Src1.Kind != hir.OperandLabel || term.Src1.Label.Block == nil {
			continue
		}
		if i+1 < len(fn.Blocks) && term.Src1.Label.Block == fn.Blocks[i+1] {
			term.Remove()
		}
	}

	p.AdvanceTo(StageFinalization)
}
