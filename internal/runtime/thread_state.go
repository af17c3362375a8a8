package runtime

import (
	"sync/atomic"

	"github.com/xyproto/dbtcore/internal/memory"
	"github.com/xyproto/dbtcore/internal/ppc"
)

// ThreadState owns one guest thread's register context and its view of
// guest memory. Unlike original_source/src/alloy/runtime/thread_state.h,
// which keeps the "current" ThreadState in a static/thread-local slot
// recovered by Bind/Get/GetThreadID, this port threads *ThreadState
// explicitly through Function.Call and Processor.Execute -- idiomatic Go
// has no implicit per-goroutine storage, and a package global would
// force every goroutine running guest code onto a single lock. Bind/
// Current/ThreadID below exist only for diagnostics and tests that want
// the old global-lookup convenience; nothing on the hot JIT path calls
// them.
type ThreadState struct {
	Runtime  *Processor
	Memory   *memory.Memory
	Context  *ppc.Context
	ThreadID uint32
	Name     string
}

// NewThreadState allocates a context-carrying thread state bound to
// proc's memory.
func NewThreadState(proc *Processor, threadID uint32, name string) *ThreadState {
	return &ThreadState{
		Runtime:  proc,
		Memory:   proc.Memory,
		Context:  &ppc.Context{},
		ThreadID: threadID,
		Name:     name,
	}
}

var current atomic.Pointer[ThreadState]

// Bind installs ts as the diagnostic-only "current" thread state.
func Bind(ts *ThreadState) { current.Store(ts) }

// Current returns whatever ThreadState Bind last installed, or nil.
func Current() *ThreadState { return current.Load() }

// CurrentThreadID returns Current's ThreadID, or 0 if none is bound.
func CurrentThreadID() uint32 {
	if ts := current.Load(); ts != nil {
		return ts.ThreadID
	}
	return 0
}
