package passes

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xyproto/dbtcore/internal/backend"
	"github.com/xyproto/dbtcore/internal/hir"
)

// finalizedFunction builds a one-block function as if Finalization had
// already assigned block ordinals, the precondition RegisterAllocation's
// ValidateStage call enforces.
func finalizedFunction(build func(b *hir.HIRBuilder)) *hir.Function {
	b := hir.NewHIRBuilder()
	b.AppendBlock()
	build(b)
	fn := b.Function()
	for i, blk := range fn.Blocks {
		blk.Ordinal = i
	}
	return fn
}

// atStage positions a fresh Pipeline as though it had just reached stage,
// bypassing the earlier passes this package's tests don't exercise.
func atStage(stage Stage) *Pipeline {
	p := NewPipeline(false)
	p.current = stage
	p.history = []Stage{stage}
	return p
}

// allAssignments collects every instruction's Dest across fn, the shape
// every "for all register-allocated values..." invariant below
// quantifies over.
func allAssignments(fn *hir.Function) []*hir.Value {
	var out []*hir.Value
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs() {
			if instr.Dest != nil {
				out = append(out, instr.Dest)
			}
		}
	}
	return out
}

var _ = Describe("RegisterAllocation", func() {
	It("assigns every destination a register within the int pool's capacity", func() {
		fn := finalizedFunction(func(b *hir.HIRBuilder) {
			x := b.LoadContext(0, hir.TypeI32)
			y := b.LoadContext(8, hir.TypeI32)
			sum := b.Add(x, y)
			b.StoreContext(16, sum)
			b.Return()
		})

		info := backend.MachineInfo{IntRegisterCount: 8, FloatRegisterCount: 4}
		RegisterAllocation(atStage(StageFinalization), fn, info)

		for _, v := range allAssignments(fn) {
			Expect(v.Assign.Kind).To(Equal(hir.AssignRegister))
			Expect(v.Assign.Reg).To(BeNumerically(">=", 0))
			Expect(v.Assign.Reg).To(BeNumerically("<", info.IntRegisterCount))
		}
	})

	It("spills when four simultaneously-live values contend for one register", func() {
		fn := finalizedFunction(func(b *hir.HIRBuilder) {
			a := b.LoadContext(0, hir.TypeI32)
			c := b.LoadContext(4, hir.TypeI32)
			d := b.LoadContext(8, hir.TypeI32)
			e := b.LoadContext(12, hir.TypeI32)
			s1 := b.Add(a, c)
			s2 := b.Add(s1, d)
			s3 := b.Add(s2, e)
			b.StoreContext(16, s3)
			b.Return()
		})

		info := backend.MachineInfo{IntRegisterCount: 1, FloatRegisterCount: 1}
		RegisterAllocation(atStage(StageFinalization), fn, info)

		var kinds []hir.AssignmentKind
		for _, v := range allAssignments(fn) {
			kinds = append(kinds, v.Assign.Kind)
		}
		Expect(kinds).To(ContainElement(hir.AssignSpill))
	})

	It("keeps the integer and float/vector pools disjoint", func() {
		fn := finalizedFunction(func(b *hir.HIRBuilder) {
			i := b.LoadContext(0, hir.TypeI32)
			f := b.LoadContext(8, hir.TypeF64)
			_ = b.Add(i, i)
			_ = b.LoadContext(16, hir.TypeF64)
			b.StoreContext(24, f)
			b.Return()
		})

		info := backend.MachineInfo{IntRegisterCount: 4, FloatRegisterCount: 4}
		RegisterAllocation(atStage(StageFinalization), fn, info)

		for _, v := range allAssignments(fn) {
			if v.Assign.Kind != hir.AssignRegister || !v.Type.IsFloat() {
				continue
			}
			Expect(v.Assign.Reg).To(BeNumerically("<", info.FloatRegisterCount))
		}
	})

	// For every integer-pool capacity in this table, a single three-deep
	// dependency chain (no two values simultaneously live beyond the
	// current partial sum) must never spill -- one live value always
	// fits even a one-register pool.
	DescribeTable("never spills a single live integer chain regardless of pool size",
		func(intRegisters int) {
			fn := finalizedFunction(func(b *hir.HIRBuilder) {
				x := b.LoadContext(0, hir.TypeI32)
				y := b.LoadContext(4, hir.TypeI32)
				sum := b.Add(x, y)
				b.StoreContext(8, sum)
				b.Return()
			})

			info := backend.MachineInfo{IntRegisterCount: intRegisters, FloatRegisterCount: 1}
			RegisterAllocation(atStage(StageFinalization), fn, info)

			for _, v := range allAssignments(fn) {
				Expect(v.Assign.Kind).To(Equal(hir.AssignRegister))
			}
		},
		Entry("one register", 1),
		Entry("two registers", 2),
		Entry("eight registers", 8),
		Entry("sixteen registers", 16),
	)
})
