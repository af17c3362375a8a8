package passes

import (
	"sort"

	"github.com/xyproto/dbtcore/internal/backend"
	"github.com/xyproto/dbtcore/internal/hir"
)

// LiveInterval is one value's live range over the linear instruction
// position Finalization's block order induces: Start is the position of
// its defining instruction, End the position of its furthest use. Ground
// truth: register_allocator.go's LiveInterval, generalized from a named
// AST variable to a hir.Value and from a source-line position to an
// instruction ordinal.
type LiveInterval struct {
	Value *hir.Value
	Start int
	End   int
}

// RegisterAllocation is pass 7: linear-scan over Finalization's ordinal
// order, assigning each non-constant value a host register or a spill
// slot and recording the result on hir.Value.Assign. Integer and
// float/vector values draw from disjoint pools sized by info, per
// spec.md §4.5. Ground truth: register_allocator.go's
// RegisterAllocator.AllocateRegisters (expire-then-allocate-or-spill loop
// over intervals sorted by start, spill-the-longest-running-interval
// heuristic), generalized from per-architecture string register names to
// MachineInfo-sized integer register-set indices.
//
// Two-address fixup (x86's destination-equals-source1 constraint) is not
// performed here -- it is architecture-specific and handled by the x64
// assembler when it lowers a register-allocated instruction whose dest
// and src1 landed in different registers.
func RegisterAllocation(p *Pipeline, fn *hir.Function, info backend.MachineInfo) {
	p.ValidateStage(StageFinalization, "RegisterAllocation")

	intIntervals, floatIntervals := buildLiveIntervals(fn)

	sort.Slice(intIntervals, func(i, j int) bool { return intIntervals[i].Start < intIntervals[j].Start })
	sort.Slice(floatIntervals, func(i, j int) bool { return floatIntervals[i].Start < floatIntervals[j].Start })

	spillBase := allocatePool(intIntervals, info.IntRegisterCount, 0)
	allocatePool(floatIntervals, info.FloatRegisterCount, spillBase)

	p.AdvanceTo(StageRegisterAllocation)
}

// buildLiveIntervals assigns every instruction a linear position (stamped
// onto Instr.Ordinal for the backend's later use) and, for each
// non-constant value defined along the way, grows its interval's End to
// the position of every subsequent use it finds.
func buildLiveIntervals(fn *hir.Function) (ints, floats []*LiveInterval) {
	byValue := map[*hir.Value]*LiveInterval{}
	pos := 0
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs() {
			instr.Ordinal = uint32(pos)

			if instr.Dest != nil {
				iv := &LiveInterval{Value: instr.Dest, Start: pos, End: pos}
				byValue[instr.Dest] = iv
				if instr.Dest.Type.IsFloat() {
					floats = append(floats, iv)
				} else {
					ints = append(ints, iv)
				}
			}

			for _, op := range [3]hir.Operand{instr.Src1, instr.Src2, instr.Src3} {
				if op.Kind != hir.OperandValue || op.Value == nil || op.Value.IsConstant {
					continue
				}
				if iv, ok := byValue[op.Value]; ok && pos > iv.End {
					iv.End = pos
				}
			}

			pos++
		}
	}
	return ints, floats
}

// allocatePool runs linear-scan allocation over intervals (already sorted
// by Start) against a pool of regCount registers, assigning spill slots
// starting at spillBase to whatever doesn't fit. Returns the next free
// spill slot for a caller allocating a second, disjoint pool to continue
// numbering from.
func allocatePool(intervals []*LiveInterval, regCount int, spillBase int) int {
	active := make([]*LiveInterval, 0, regCount)
	free := make([]int, regCount)
	for i := 0; i < regCount; i++ {
		free[i] = i
	}

	for _, cur := range intervals {
		active, free = expireOldIntervals(active, free, cur.Start)

		if len(free) == 0 {
			spillBase = spillAtInterval(active, cur, spillBase)
			continue
		}

		reg := free[len(free)-1]
		free = free[:len(free)-1]
		cur.Value.Assign = hir.Assignment{Kind: hir.AssignRegister, Reg: reg}
		active = append(active, cur)
	}

	return spillBase
}

// expireOldIntervals drops from active every interval whose End precedes
// start, returning each one's register to the free pool.
func expireOldIntervals(active []*LiveInterval, free []int, start int) ([]*LiveInterval, []int) {
	remaining := active[:0]
	for _, a := range active {
		if a.End < start {
			free = append(free, a.Value.Assign.Reg)
		} else {
			remaining = append(remaining, a)
		}
	}
	return remaining, free
}

// spillAtInterval picks whichever of cur or an active interval extends
// furthest into the future and spills it to a fresh stack slot, handing
// its register (if it had one) to the other. Spilling the longest-running
// interval frees the most register pressure for what comes next.
func spillAtInterval(active []*LiveInterval, cur *LiveInterval, spillBase int) int {
	worstIdx := -1
	for i, a := range active {
		if worstIdx == -1 || a.End > active[worstIdx].End {
			worstIdx = i
		}
	}

	if worstIdx == -1 || active[worstIdx].End <= cur.End {
		cur.Value.Assign = hir.Assignment{Kind: hir.AssignSpill, Slot: spillBase}
		return spillBase + 1
	}

	cur.Value.Assign = active[worstIdx].Value.Assign
	active[worstIdx].Value.Assign = hir.Assignment{Kind: hir.AssignSpill, Slot: spillBase}
	active[worstIdx] = cur
	return spillBase + 1
}
