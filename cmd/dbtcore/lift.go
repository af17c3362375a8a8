package main

import (
	"fmt"

	"github.com/xyproto/dbtcore/internal/backend"
	"github.com/xyproto/dbtcore/internal/cerrors"
	"github.com/xyproto/dbtcore/internal/hir"
	"github.com/xyproto/dbtcore/internal/memory"
	"github.com/xyproto/dbtcore/internal/passes"
	"github.com/xyproto/dbtcore/internal/ppc"
)

// bigEndianReader adapts guest memory to the scanner/lifter's big-endian
// instruction-word reader contract.
func bigEndianReader(mem *memory.Memory) func(addr uint32) (ppc.Instruction, bool) {
	return func(addr uint32) (ppc.Instruction, bool) {
		bs := mem.Translate(addr, 4)
		if bs == nil {
			return 0, false
		}
		w := uint32(bs[0])<<24 | uint32(bs[1])<<16 | uint32(bs[2])<<8 | uint32(bs[3])
		return ppc.Instruction(w), true
	}
}

// liftFunction runs the scan and lift phases over the guest function at
// entry, producing unoptimized HIR: one builder block per block the
// scanner discovered, every forward and backward branch resolved against
// a label minted up front so a later block's branch target always
// exists by the time Lift needs it. The second return value is the
// address just past the function's last instruction -- the max End over
// every block the scanner found, since blocks aren't guaranteed to come
// back in address order.
func liftFunction(mem *memory.Memory, entry uint32, log *cerrors.Logger) (*hir.Function, uint64, error) {
	read := bigEndianReader(mem)

	bounds, _, err := ppc.Scan(read, entry)
	if err != nil {
		return nil, 0, fmt.Errorf("scanning guest function at %#010x: %w", entry, err)
	}
	var endAddress uint32
	for _, blk := range bounds {
		if blk.End > endAddress {
			endAddress = blk.End
		}
	}

	b := hir.NewHIRBuilder()
	labels := make(map[uint32]*hir.Label, len(bounds))
	for _, blk := range bounds {
		labels[blk.Start] = b.Label(fmt.Sprintf("loc_%08x", blk.Start))
	}
	lc := &ppc.LiftContext{Resolve: func(target uint32) *hir.Label { return labels[target] }}

	for _, blk := range bounds {
		// MarkLabel is safe on the very first block too: with no
		// current block yet it wires no fallthrough edge, matching
		// AppendBlock's own no-predecessor behavior.
		b.MarkLabel(labels[blk.Start])
		for addr := blk.Start; addr < blk.End; addr += 4 {
			instr, ok := read(addr)
			if !ok {
				return nil, 0, fmt.Errorf("reading guest instruction at %#010x", addr)
			}
			if ppc.Classify(instr) == ppc.ClassReturn {
				// a plain blr ends the guest function.
				b.Return()
				continue
			}
			if !ppc.Lift(b, instr, addr, lc) {
				log.Debugf("unrecognized encoding %#08x at %#010x, lowering to trap", uint32(instr), addr)
				b.Trap(0, uint64(addr))
			}
		}
		if b.CurrentBlock().Terminator() == nil {
			b.Return()
		}
	}

	return b.Function(), uint64(endAddress), nil
}

// optimize runs fn through the fixed eight-stage pipeline spec.md §4
// defines, in order, against the given backend's register file.
func optimize(fn *hir.Function, info backend.MachineInfo, verbose bool) (*passes.Pipeline, []passes.ValidationError) {
	p := passes.NewPipeline(verbose)
	p.AdvanceTo(passes.StageContextPromotion)
	passes.ContextPromotion(p, fn)
	p.AdvanceTo(passes.StageConstantPropagation)
	passes.ConstantPropagation(p, fn)
	p.AdvanceTo(passes.StageSimplification)
	passes.Simplification(p, fn)
	p.AdvanceTo(passes.StageDeadCodeElimination)
	passes.DeadCodeElimination(p, fn)
	p.AdvanceTo(passes.StageControlFlowSimplification)
	passes.ControlFlowSimplification(p, fn)
	p.AdvanceTo(passes.StageFinalization)
	passes.Finalization(p, fn)
	p.AdvanceTo(passes.StageRegisterAllocation)
	passes.RegisterAllocation(p, fn, info)
	p.AdvanceTo(passes.StageValidation)
	errs := passes.Validation(p, fn)
	return p, errs
}
