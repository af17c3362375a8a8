package runtime

import (
	"testing"

	"github.com/xyproto/dbtcore/internal/hir"
	"github.com/xyproto/dbtcore/internal/memory"
	"github.com/xyproto/dbtcore/internal/ppc"
)

func TestFunctionCallInterpretsHIRAgainstThreadContext(t *testing.T) {
	b := hir.NewHIRBuilder()
	b.AppendBlock()
	x := b.LoadContext(0, hir.TypeI64)
	y := b.LoadContext(8, hir.TypeI64)
	sum := b.Add(x, y)
	b.StoreContext(16, sum)
	b.Return()
	fnHIR := b.Function()

	mod := NewModule(nil, "test")
	fi := NewFunctionInfo(mod, 0x1000)
	fn := NewFunction(fi, fnHIR)

	mem, err := memory.New(1 << 20)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	defer mem.Close()
	ts := &ThreadState{Memory: mem, Context: &ppc.Context{}}
	ts.Context.R[0] = 10
	ts.Context.R[1] = 32

	if err := fn.Call(ts, 0); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if ts.Context.R[2] != 42 {
		t.Fatalf("expected R[2] == 42, got %d", ts.Context.R[2])
	}
}

func TestFunctionCallRunsExternHandlerInsteadOfHIR(t *testing.T) {
	mod := NewModule(nil, "test")
	fi := NewFunctionInfo(mod, 0x2000)
	called := false
	fi.SetupExtern(func(ts *ThreadState) error {
		called = true
		return nil
	})
	fn := NewFunction(fi, nil)

	if err := fn.Call(&ThreadState{}, 0); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !called {
		t.Fatal("expected the extern handler to run")
	}
}
