// Package backend defines the contract every host-code generator
// implements: a MachineInfo register-set descriptor RegisterAllocation
// consults, a Code result type the code cache stores, and the Assembler
// interface a Backend hands out. Concrete backends (x64, ivm) live in
// their own subpackages.
//
// Ground truth for the interface-per-concern shape: target.go's
// Target/TargetImpl split (an interface plus one concrete struct per
// axis of variation) -- generalized here from ISA+OS selection to
// ISA-only, since the DBT core's "OS" axis (which the teacher uses for
// object-file format selection) has no analog once AOT persistence is
// out of scope.
package backend

import "github.com/xyproto/dbtcore/internal/hir"

// Arch identifies a host instruction set the assembler can target.
type Arch uint8

const (
	ArchX86_64 Arch = iota
	ArchARM64
	ArchRiscv64
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchARM64:
		return "arm64"
	case ArchRiscv64:
		return "riscv64"
	default:
		return "unknown"
	}
}

// MachineInfo describes one backend's register file to RegisterAllocation:
// how many integer and float/vector registers are available for
// allocation (reserving any the backend hardcodes for its own use, e.g.
// a context-base pointer), and which are clobbered across a call.
type MachineInfo struct {
	Arch Arch

	// IntRegisterCount/FloatRegisterCount are how many registers
	// RegisterAllocation may assign to I8..I64/F32..V128 values,
	// respectively -- disjoint pools per spec.md §4.5.
	IntRegisterCount   int
	FloatRegisterCount int

	// CallClobberedInt/CallClobberedFloat mark, by register-set index,
	// which registers a call instruction clobbers (the caller-saved
	// set). RegisterAllocation does not read these fields; it sizes its
	// pools from the two counts above only.
	CallClobberedInt   []bool
	CallClobberedFloat []bool
}

// UnwindDescriptor is a host-specific annotation letting a signal/fault
// handler walk one stack frame of compiled code back to its caller.
// Backend-defined payload; the code cache stores it opaquely.
type UnwindDescriptor struct {
	StackSize int
	Payload   []byte
}

// Code is one function's assembled machine code, ready for the code
// cache to place.
type Code struct {
	Bytes     []byte
	StackSize int
	Unwind    UnwindDescriptor
}

// Assembler lowers one function's finalized, register-allocated HIR into
// host machine code.
type Assembler interface {
	Assemble(fn *hir.Function) (Code, error)
}

// Backend is the per-architecture factory a Processor is configured
// with: it describes its register file and hands out assemblers. Thunk
// generation lives in internal/thunks, outside this interface.
type Backend interface {
	MachineInfo() MachineInfo
	CreateAssembler() Assembler
}
