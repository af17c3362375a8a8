package runtime

import (
	"errors"
	"testing"

	"github.com/xyproto/dbtcore/internal/backend"
	"github.com/xyproto/dbtcore/internal/hir"
	"github.com/xyproto/dbtcore/internal/passes"
	"github.com/xyproto/dbtcore/internal/ppc"
)

// optimizeForTest runs fn through the first seven stages of the pipeline
// cmd/dbtcore/lift.go's optimize runs (all but Validation),
// register-allocating against info
// so the result is eligible for native assembly.
func optimizeForTest(fn *hir.Function, info backend.MachineInfo) {
	p := passes.NewPipeline(false)
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
}

func TestProcessorExecuteLiftsOnceAndCachesEntry(t *testing.T) {
	proc, err := Setup(1 << 20)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer proc.Close()

	lifts := 0
	lift := func(address uint64) (*hir.Function, uint64, error) {
		lifts++
		b := hir.NewHIRBuilder()
		b.AppendBlock()
		b.Return()
		return b.Function(), address + 4, nil
	}

	ts := proc.NewThread("main")
	if err := proc.Execute(ts, 0x1000, 0, lift); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if err := proc.Execute(ts, 0x1000, 0, lift); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if lifts != 1 {
		t.Fatalf("expected exactly one lift call, got %d", lifts)
	}
}

func TestProcessorExecuteMarksEntryFailedOnLiftError(t *testing.T) {
	proc, err := Setup(1 << 20)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer proc.Close()

	boom := errors.New("boom")
	ts := proc.NewThread("main")
	err = proc.Execute(ts, 0x2000, 0, func(uint64) (*hir.Function, uint64, error) { return nil, 0, boom })
	if err == nil {
		t.Fatal("expected an error")
	}

	err = proc.Execute(ts, 0x2000, 0, func(uint64) (*hir.Function, uint64, error) {
		t.Fatal("lift should not be retried for a previously failed entry")
		return nil, 0, nil
	})
	if err == nil {
		t.Fatal("expected the second call to report the prior failure")
	}
}

// TestProcessorExecuteRunsNativeCodeWhenAssemblySucceeds lifts a function
// built entirely from opcodes x64.Assembler lowers (context loads/stores
// and an add), register-allocates it against Processor's own
// NativeMachineInfo, and checks that Execute actually placed and ran
// native code rather than falling back to the interpreter.
func TestProcessorExecuteRunsNativeCodeWhenAssemblySucceeds(t *testing.T) {
	proc, err := Setup(1 << 20)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer proc.Close()

	lift := func(address uint64) (*hir.Function, uint64, error) {
		b := hir.NewHIRBuilder()
		b.AppendBlock()
		x := b.LoadContext(ppc.RegOffset(3), hir.TypeI64)
		y := b.LoadContext(ppc.RegOffset(4), hir.TypeI64)
		b.StoreContext(ppc.RegOffset(5), b.Add(x, y))
		b.Return()
		fn := b.Function()
		optimizeForTest(fn, proc.NativeMachineInfo())
		return fn, address + 8, nil
	}

	ts := proc.NewThread("main")
	ts.Context.R[3] = 10
	ts.Context.R[4] = 32

	if err := proc.Execute(ts, 0x4000, 0, lift); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ts.Context.R[5] != 42 {
		t.Fatalf("R[5] = %d, want 42", ts.Context.R[5])
	}

	entry := proc.Entries.Get(0x4000)
	if entry == nil {
		t.Fatal("expected a ready entry at 0x4000")
	}
	if entry.Function.Native == nil {
		t.Fatal("expected Execute to have assembled and placed native code for this function")
	}
}

// TestProcessorExecutePopulatesEndAddressForFindWithAddress compiles a
// function through a real Execute call (not a hand-built Entry) and
// checks that EntryTable.FindWithAddress can locate it by a mid-function
// address, proving EndAddress is actually threaded through from lift.
func TestProcessorExecutePopulatesEndAddressForFindWithAddress(t *testing.T) {
	proc, err := Setup(1 << 20)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer proc.Close()

	const start = 0x5000
	const end = 0x5010

	lift := func(address uint64) (*hir.Function, uint64, error) {
		b := hir.NewHIRBuilder()
		b.AppendBlock()
		b.Return()
		return b.Function(), end, nil
	}

	ts := proc.NewThread("main")
	if err := proc.Execute(ts, start, 0, lift); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	found := proc.Entries.FindWithAddress(start + 4)
	if len(found) != 1 {
		t.Fatalf("expected to find the compiled function, got %d matches", len(found))
	}
	if found[0].Address != start {
		t.Fatalf("found function at %#x, want %#x", found[0].Address, start)
	}
	if got := proc.Entries.FindWithAddress(end); len(got) != 0 {
		t.Fatalf("expected no match at the exclusive end address, got %+v", got)
	}
}
