package ivm

import (
	"testing"

	"github.com/xyproto/dbtcore/internal/hir"
	"github.com/xyproto/dbtcore/internal/memory"
	"github.com/xyproto/dbtcore/internal/ppc"
)

func TestExecuteAddStoresSumInContext(t *testing.T) {
	b := hir.NewHIRBuilder()
	b.AppendBlock()
	x := b.LoadContext(ppc.RegOffset(3), hir.TypeI64)
	y := b.LoadContext(ppc.RegOffset(4), hir.TypeI64)
	b.StoreContext(ppc.RegOffset(5), b.Add(x, y))
	b.Return()
	fn := b.Function()

	ctx := &ppc.Context{}
	ctx.R[3] = 10
	ctx.R[4] = 32

	mem, err := memory.New(4096)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	defer mem.Close()

	if err := New().Execute(fn, ctx, mem); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ctx.R[5] != 42 {
		t.Fatalf("R5 = %d, want 42", ctx.R[5])
	}
}

func TestExecuteConditionalBranchTakesTrueEdge(t *testing.T) {
	b := hir.NewHIRBuilder()
	b.AppendBlock()
	taken := b.Label("taken")

	cond := b.CmpEq(b.I32(1), b.I32(1))
	b.BranchTrue(cond, taken) // terminates the entry block

	// Fallthrough (not-taken) path: the next appended block in program order.
	b.AppendBlock()
	b.StoreContext(ppc.RegOffset(10), b.I64(0))
	b.Return()

	b.MarkLabel(taken)
	b.StoreContext(ppc.RegOffset(10), b.I64(1))
	b.Return()

	fn := b.Function()

	ctx := &ppc.Context{}
	mem, err := memory.New(4096)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	defer mem.Close()

	if err := New().Execute(fn, ctx, mem); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ctx.R[10] != 1 {
		t.Fatalf("R10 = %d, want 1 (true branch should have been taken)", ctx.R[10])
	}
}
