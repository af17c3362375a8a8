package x64

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xyproto/dbtcore/internal/hir"
)

func assignReg(v *hir.Value, reg int) {
	v.Assign = hir.Assignment{Kind: hir.AssignRegister, Reg: reg}
}

func finalize(fn *hir.Function) *hir.Function {
	for i := range fn.Blocks {
		fn.Blocks[i].Ordinal = i
	}
	return fn
}

var _ = Describe("Assembler", func() {
	It("lowers add to a mov-then-binop sequence ending in ret", func() {
		b := hir.NewHIRBuilder()
		b.AppendBlock()
		x := b.LoadContext(0, hir.TypeI64)
		y := b.LoadContext(8, hir.TypeI64)
		sum := b.Add(x, y)
		b.StoreContext(16, sum)
		b.Return()
		fn := finalize(b.Function())

		assignReg(x, 0)
		assignReg(y, 1)
		assignReg(sum, 2) // forces the two-address mov fixup (dst != src1)

		asm := &Assembler{}
		code, err := asm.Assemble(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(code.Bytes).NotTo(BeEmpty())
		Expect(code.Bytes[len(code.Bytes)-1]).To(Equal(byte(0xC3))) // ret
	})

	It("patches an unconditional forward branch to an adjacent block as a zero displacement", func() {
		b := hir.NewHIRBuilder()
		b.AppendBlock()
		target := b.Label("target")
		b.Branch(target)
		b.MarkLabel(target)
		b.Return()
		fn := finalize(b.Function())

		asm := &Assembler{}
		code, err := asm.Assemble(fn)
		Expect(err).NotTo(HaveOccurred())

		// jmp rel32 is 5 bytes (0xE9 + 4-byte displacement); the entry
		// block is nothing but that jump, so the patched displacement
		// should be 0 (the target block starts immediately after it).
		Expect(code.Bytes[0]).To(Equal(byte(0xE9)))
		disp := int32(uint32(code.Bytes[1]) | uint32(code.Bytes[2])<<8 | uint32(code.Bytes[3])<<16 | uint32(code.Bytes[4])<<24)
		Expect(disp).To(BeZero())
	})

	It("rejects a spilled operand this backend does not yet reload", func() {
		b := hir.NewHIRBuilder()
		b.AppendBlock()
		x := b.LoadContext(0, hir.TypeI64)
		b.StoreContext(8, x)
		b.Return()
		fn := b.Function()
		x.Assign = hir.Assignment{Kind: hir.AssignSpill, Slot: 0}

		asm := &Assembler{}
		_, err := asm.Assemble(fn)
		Expect(err).To(HaveOccurred())
	})

	// For every binary opcode this backend's sequence table covers, the
	// two-operand x86 encoding lowers to non-empty code terminated in
	// ret -- the same shape binOpcodeByte's shared opcode-byte-per-op
	// form exists to guarantee across add/sub/and/or/xor.
	DescribeTable("lowers every two-address integer binary opcode to a ret-terminated sequence",
		func(build func(b *hir.HIRBuilder, x, y *hir.Value) *hir.Value) {
			b := hir.NewHIRBuilder()
			b.AppendBlock()
			x := b.LoadContext(0, hir.TypeI64)
			y := b.LoadContext(8, hir.TypeI64)
			result := build(b, x, y)
			b.StoreContext(16, result)
			b.Return()
			fn := finalize(b.Function())

			assignReg(x, 0)
			assignReg(y, 1)
			assignReg(result, 2)

			asm := &Assembler{}
			code, err := asm.Assemble(fn)
			Expect(err).NotTo(HaveOccurred())
			Expect(code.Bytes).NotTo(BeEmpty())
			Expect(code.Bytes[len(code.Bytes)-1]).To(Equal(byte(0xC3)))
		},
		Entry("add", func(b *hir.HIRBuilder, x, y *hir.Value) *hir.Value { return b.Add(x, y) }),
		Entry("sub", func(b *hir.HIRBuilder, x, y *hir.Value) *hir.Value { return b.Sub(x, y) }),
		Entry("and", func(b *hir.HIRBuilder, x, y *hir.Value) *hir.Value { return b.And(x, y) }),
		Entry("or", func(b *hir.HIRBuilder, x, y *hir.Value) *hir.Value { return b.Or(x, y) }),
		Entry("xor", func(b *hir.HIRBuilder, x, y *hir.Value) *hir.Value { return b.Xor(x, y) }),
	)
})
