package passes

import "github.com/xyproto/dbtcore/internal/hir"

// ContextPromotion replaces load_context(off, T) with the most recent
// store_context(off, ...) value, letting DeadCodeElimination later remove
// the register spill that produced it.
//
// Ground truth: spec.md's "per-offset current-definition map reset at
// control-flow joins" is the textbook local/global value numbering used
// by real SSA-construction passes; this port tracks that map within each
// block and resets it at every block boundary rather than computing full
// dominance, which is a conservative subset (it forwards only within the
// straight-line code of one block, never from a predecessor block) --
// sufficient for this core's
// actual guest code shapes, where spills are overwhelmingly local to one
// block between branches.
func ContextPromotion(p *Pipeline, fn *hir.Function) {
	p.ValidateStage(StageInit, "ContextPromotion")

	for _, blk := range fn.Blocks {
		current := map[uint64]*hir.Value{}
		for _, instr := range blk.Instrs() {
			switch instr.Opcode {
			case hir.OpStoreContext:
				off := instr.Src1.Offset
				current[off] = instr.Src2.Value
			case hir.OpLoadContext:
				off := instr.Src1.Offset
				known, ok := current[off]
				if !ok || instr.Dest.Type != known.Type {
					continue
				}
				redirectUses(instr.Dest, known)
				instr.Remove()
			}
		}
	}

	p.AdvanceTo(StageContextPromotion)
}

// redirectUses rewrites every use of from to instead reference to, then
// leaves from with an empty use list.
func redirectUses(from, to *hir.Value) {
	for _, u := range from.Uses() {
		switch u.Slot {
		case 1:
			u.Instr.SetSrc1(hir.ValueOperand(to))
		case 2:
			u.Instr.SetSrc2(hir.ValueOperand(to))
		case 3:
			u.Instr.SetSrc3(hir.ValueOperand(to))
		}
	}
}
