package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/xyproto/dbtcore/internal/backend"
	"github.com/xyproto/dbtcore/internal/backend/x64"
	"github.com/xyproto/dbtcore/internal/codecache"
	"github.com/xyproto/dbtcore/internal/hir"
	"github.com/xyproto/dbtcore/internal/memory"
)

// Processor owns the guest memory, the module list, the code-cache entry
// table, and the executable code cache native-assembled functions are
// placed into, and is the host-facing entry point for compiling and
// running guest code, grounded on include/xenia/cpu/processor.h.
type Processor struct {
	Memory  *memory.Memory
	Entries *EntryTable
	Code    *codecache.Cache

	mu      sync.Mutex
	modules []*Module

	nextThreadID atomic.Uint32

	nativeAsm  backend.Assembler
	nativeInfo backend.MachineInfo
}

// Setup constructs a Processor backed by a freshly mapped guest address
// space of the given size, with its own x64 assembler and native code
// cache ready to place whatever Execute manages to assemble.
func Setup(memSize int) (*Processor, error) {
	mem, err := memory.New(memSize)
	if err != nil {
		return nil, fmt.Errorf("runtime: setting up guest memory: %w", err)
	}
	nativeBackend := x64.New()
	return &Processor{
		Memory:     mem,
		Entries:    NewEntryTable(),
		Code:       codecache.New(0),
		nativeAsm:  nativeBackend.CreateAssembler(),
		nativeInfo: nativeBackend.MachineInfo(),
	}, nil
}

// Close unmaps the processor's guest memory and native code cache. Not
// safe to call while any compiled guest thread might still be running.
func (p *Processor) Close() error {
	if err := p.Code.Close(); err != nil {
		_ = p.Memory.Close()
		return fmt.Errorf("runtime: closing native code cache: %w", err)
	}
	return p.Memory.Close()
}

// AddModule registers mod with the processor.
func (p *Processor) AddModule(mod *Module) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modules = append(p.modules, mod)
}

// ResolveFunction returns the Module containing address, or nil if no
// registered module claims it.
func (p *Processor) ResolveFunction(address uint64) *Module {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, mod := range p.modules {
		if mod.ContainsAddress(address) {
			return mod
		}
	}
	return nil
}

// NewThread allocates a ThreadState with a fresh thread id, bumping the
// processor's monotonic counter.
func (p *Processor) NewThread(name string) *ThreadState {
	id := p.nextThreadID.Add(1)
	return NewThreadState(p, id, name)
}

// NativeMachineInfo describes the register file Processor's native
// assembler targets, for a lift closure's register-allocation pass to
// allocate against -- assembling HIR allocated for a different register
// count is a lifting bug, not something Execute can recover from.
func (p *Processor) NativeMachineInfo() backend.MachineInfo { return p.nativeInfo }

// Execute compiles (if needed) and runs the function at address on ts,
// spinning through the EntryTable's Compiling state if another goroutine
// is already producing it. lift must lift the guest code at address into
// HIR, run it through the full optimizer pipeline (register-allocated
// against NativeMachineInfo), and report the address just past the
// function's last instruction; Execute only decides *whether* lift needs
// to run, not how.
//
// Once lifted, Execute tries to assemble the HIR through its x64
// assembler and place the result in its native code cache; a function
// using an opcode the assembler doesn't lower yet (atomics, vector ops,
// calls, traps) simply fails to assemble, and the resulting Function
// runs through the ivm interpreter instead -- Assemble's error is the
// fallback signal, not a reason to fail the compile.
func (p *Processor) Execute(ts *ThreadState, address uint64, returnAddress uint64, lift func(uint64) (*hir.Function, uint64, error)) error {
	entry, status := p.Entries.GetOrCreate(address)
	if status == EntryReady {
		return entry.Function.Call(ts, returnAddress)
	}
	if status == EntryFailed {
		return fmt.Errorf("runtime: function %#010x previously failed to compile", address)
	}
	if status != EntryNew {
		// Another goroutine finished compiling while we were re-checking;
		// GetOrCreate's spin-wait already guarantees entry.Status is
		// settled here.
		if entry.Status == EntryReady {
			return entry.Function.Call(ts, returnAddress)
		}
		return fmt.Errorf("runtime: function %#010x previously failed to compile", address)
	}

	fnHIR, endAddress, err := lift(address)
	if err != nil {
		p.Entries.MarkFailed(entry)
		return fmt.Errorf("runtime: lifting function %#010x: %w", address, err)
	}

	fi := NewFunctionInfo(nil, address)
	fi.EndAddress = endAddress
	fn := NewFunction(fi, fnHIR)
	if native, asmErr := p.assembleNative(fnHIR); asmErr == nil {
		fn.Native = native
	}

	entry.EndAddress = endAddress
	entry.Function = fn
	p.Entries.MarkReady(entry, fn)
	return fn.Call(ts, returnAddress)
}

// assembleNative lowers fn through the processor's x64 assembler and
// places the result in its native code cache. Any failure (an
// unsupported opcode, an unallocated operand) is reported to the caller
// to decide whether to fall back, never treated as fatal to the compile.
func (p *Processor) assembleNative(fn *hir.Function) (*codecache.Placement, error) {
	code, err := p.nativeAsm.Assemble(fn)
	if err != nil {
		return nil, err
	}
	return p.Code.PlaceCode(code)
}
