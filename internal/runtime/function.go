package runtime

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/xyproto/dbtcore/internal/backend"
	"github.com/xyproto/dbtcore/internal/backend/ivm"
	"github.com/xyproto/dbtcore/internal/codecache"
	"github.com/xyproto/dbtcore/internal/hir"
	"github.com/xyproto/dbtcore/internal/thunks"
)

// Breakpoint marks a guest address a debugger wants execution to stop
// at before running the instruction originally found there.
type Breakpoint struct {
	Address uint64
}

// Function is one compiled guest function: the lifted HIR (kept for the
// interpreter backend and for disassembly), the assembled machine code
// and its codecache.Placement when a native backend successfully
// assembled one, and the bookkeeping original_source attaches
// per-function (debug info, breakpoints).
//
// Call prefers Native when Processor.Execute managed to assemble and
// place the function: it builds a thunks.HostToGuestThunk binding the
// placed code to ts's guest context and enters it directly, so compiled
// functions actually run as host machine code rather than only ever
// being interpreted. Native is nil whenever the x64 backend couldn't
// lower every opcode the function uses (atomics, vector ops, calls,
// traps -- see x64.emitInstr's default case), in which case Call falls
// back to the ivm interpreter, which covers every opcode HIR can
// express.
type Function struct {
	Address    uint64
	SymbolInfo *FunctionInfo
	HIR        *hir.Function
	Code       *backend.Code
	Native     *codecache.Placement
	DebugInfo  *DebugInfo

	mu          sync.Mutex
	breakpoints []*Breakpoint
}

// NewFunction wraps fn's lifted HIR under symbolInfo.
func NewFunction(symbolInfo *FunctionInfo, fn *hir.Function) *Function {
	f := &Function{Address: symbolInfo.Address, SymbolInfo: symbolInfo, HIR: fn}
	symbolInfo.Function = f
	return f
}

// AddBreakpoint installs bp, returned for later removal.
func (f *Function) AddBreakpoint(bp *Breakpoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breakpoints = append(f.breakpoints, bp)
}

// RemoveBreakpoint uninstalls bp if present.
func (f *Function) RemoveBreakpoint(bp *Breakpoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.breakpoints {
		if b == bp {
			f.breakpoints = append(f.breakpoints[:i], f.breakpoints[i+1:]...)
			return
		}
	}
}

// FindBreakpoint reports whether a breakpoint is installed at address.
func (f *Function) FindBreakpoint(address uint64) *Breakpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.breakpoints {
		if b.Address == address {
			return b
		}
	}
	return nil
}

// Call invokes the function with ts bound as the active thread: the
// extern handler (BehaviorExtern), the placed native code (Native), or
// the ivm interpreter over the lifted HIR, in that order of preference.
func (f *Function) Call(ts *ThreadState, returnAddress uint64) error {
	if f.SymbolInfo != nil && f.SymbolInfo.Behavior == BehaviorExtern {
		return f.SymbolInfo.Extern(ts)
	}
	if f.Native != nil && ts.Runtime != nil && ts.Runtime.Code != nil {
		return f.callNative(ts)
	}
	if f.HIR == nil {
		return fmt.Errorf("runtime: function %#010x has no lifted body to execute", f.Address)
	}
	interp := ivm.New()
	return interp.Execute(f.HIR, ts.Context, ts.Memory)
}

// callNative places a host-to-guest thunk binding f.Native's address to
// ts's PPCContext and enters it. A fresh thunk is placed per call since
// the context pointer it bakes in is per-thread -- ts.Runtime.Code's
// chunk allocator has no per-function reuse slot to key one on.
func (f *Function) callNative(ts *ThreadState) error {
	contextAddr := uintptr(unsafe.Pointer(ts.Context))
	thunkCode := thunks.HostToGuestThunk(f.Native.Address, contextAddr)
	placement, err := ts.Runtime.Code.PlaceCode(backend.Code{Bytes: thunkCode})
	if err != nil {
		return fmt.Errorf("runtime: placing host-to-guest thunk for %#010x: %w", f.Address, err)
	}

	entry := placement.Address
	call := *(*func())(unsafe.Pointer(&entry))
	call()
	return nil
}
