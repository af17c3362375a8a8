package passes

import "github.com/xyproto/dbtcore/internal/hir"

// ControlFlowSimplification merges a block into its sole predecessor when
// that predecessor's terminator is a non-volatile unconditional branch
// (or fallthrough) dominating it -- the predecessor's terminator is
// dropped and the successor's instructions are appended in place.
func ControlFlowSimplification(p *Pipeline, fn *hir.Function) {
	p.ValidateStage(StageDeadCodeElimination, "ControlFlowSimplification")

	changed := true
	for changed {
		changed = false
		for _, blk := range fn.Blocks {
			if tryMergeIntoPredecessor(fn, blk) {
				changed = true
				break // block list mutated; restart the scan
			}
		}
	}

	p.AdvanceTo(StageControlFlowSimplification)
}

func tryMergeIntoPredecessor(fn *hir.Function, blk *hir.Block) bool {
	if len(blk.In) != 1 {
		return false
	}
	edge := blk.In[0]
	pred := edge.Src
	if pred == blk {
		return false
	}
	term := pred.Terminator()
	if term == nil || term.Opcode != hir.OpBranch || term.IsVolatile() {
		return false
	}
	// Only merge if pred's single outgoing edge is this one -- otherwise
	// pred has other successors and is not a pure fallthrough into blk.
	if len(pred.Out) != 1 || pred.Out[0].Dst != blk {
		return false
	}

	term.Remove()
	for _, instr := range blk.Instrs() {
		instr.Remove()
		pred.Append(instr)
	}
	hir.RemoveEdge(edge)
	for _, out := range append([]*hir.Edge{}, blk.Out...) {
		hir.RemoveEdge(out)
		hir.AddEdge(pred, out.Dst, out.Flags)
	}
	removeBlock(fn, blk)
	return true
}

func removeBlock(fn *hir.Function, target *hir.Block) {
	out := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if b != target {
			out = append(out, b)
		}
	}
	fn.Blocks = out
}
