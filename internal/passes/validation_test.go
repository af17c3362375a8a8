package passes

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xyproto/dbtcore/internal/hir"
)

// regAllocatedFunction builds a finalized function and rubber-stamps
// every destination into register 0, the precondition Validation's
// ValidateStage call enforces.
func regAllocatedFunction(build func(b *hir.HIRBuilder)) *hir.Function {
	fn := finalizedFunction(build)
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs() {
			if instr.Dest != nil {
				instr.Dest.Assign = hir.Assignment{Kind: hir.AssignRegister, Reg: 0}
			}
		}
	}
	return fn
}

var _ = Describe("Validation", func() {
	It("accepts a well-formed function", func() {
		fn := regAllocatedFunction(func(b *hir.HIRBuilder) {
			x := b.LoadContext(0, hir.TypeI32)
			y := b.I32(1)
			sum := b.Add(x, y)
			b.StoreContext(8, sum)
			b.Return()
		})

		p := atStage(StageRegisterAllocation)
		errs := Validation(p, fn)

		Expect(errs).To(BeEmpty())
		Expect(p.CurrentStage()).To(Equal(StageValidation))
	})

	It("catches a label with no bound block", func() {
		fn := regAllocatedFunction(func(b *hir.HIRBuilder) {
			l := b.Label("orphan")
			b.Branch(l)
		})

		errs := Validation(atStage(StageRegisterAllocation), fn)
		Expect(errs).NotTo(BeEmpty())
	})

	It("catches an operand-kind mismatch", func() {
		fn := regAllocatedFunction(func(b *hir.HIRBuilder) {
			b.Return()
		})
		// Deliberately corrupt the instruction's operand kind after
		// construction to simulate a buggy pass.
		instr := fn.Blocks[0].First()
		instr.Opcode = hir.OpLoadContext
		instr.SetSrc1(hir.Operand{})

		errs := Validation(atStage(StageRegisterAllocation), fn)
		Expect(errs).NotTo(BeEmpty())
	})
})
