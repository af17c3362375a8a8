// Package ppc implements the 32-bit big-endian PowerPC guest frontend: the
// register-file layout lifters and the backend agree on, the scanner that
// discovers a function's blocks, the decoder tables that dispatch each
// instruction word to a lifter, and the lifters themselves. Ground truth:
// original_source/src/alloy/frontend/ppc (ppc_context.cc, ppc_frontend.h,
// ppc_translator.h) for naming, generalized here the way the teacher keeps
// one source file per concern rather than one monolithic translation unit.
package ppc

import "unsafe"

// Context is the guest register file: PPCContext from spec.md §3, Go's take
// on alloy::frontend::ppc::PPCContext. Its field offsets are a public
// contract -- hir.LoadContext/StoreContext instructions are keyed by byte
// offset into this struct, and the x64 backend bakes those offsets in as
// displacement immediates, so fields must never be reordered; append only.
type Context struct {
	// R holds the 32 general-purpose registers, r0..r31.
	R [32]uint64
	// F holds the 32 floating-point registers, f0..f31.
	F [32]float64
	// V holds the 128 vector registers, v0..v127, each 128 bits wide.
	V [128][16]byte

	// CR is the condition register: 8 nibble-wide fields cr0..cr7, each
	// carrying {LT, GT, EQ, SO} in its low 4 bits.
	CR [8]uint8

	XER  uint64
	LR   uint64
	CTR  uint64
	// FPSCR is the floating-point status/control register.
	FPSCR uint64
	// MSR is the machine state register (only the bits the core cares
	// about -- interrupt/FP/VMX enables -- are meaningful here).
	MSR uint64

	// ReserveAddress and ReserveValue back lwarx/stwcx.: the address
	// last reserved by a load-and-reserve, and the value observed there
	// at reservation time.
	ReserveAddress uint64
	ReserveValue   uint64

	// Membase is the host pointer at which guest address 0 resides;
	// baked into the backend as an immediate once at context creation.
	Membase uintptr

	// ThreadStatePtr is an opaque back-pointer to the owning
	// runtime.ThreadState, read by extern/builtin call thunks that need
	// to recover the current thread's runtime without a global.
	ThreadStatePtr uintptr
}

// Field offsets into Context, computed once via unsafe.Offsetof and
// consulted by every lifter that emits LoadContext/StoreContext instead of
// hand-computing them at each call site.
var (
	OffsetR              = uint64(unsafe.Offsetof(Context{}.R))
	OffsetF              = uint64(unsafe.Offsetof(Context{}.F))
	OffsetV              = uint64(unsafe.Offsetof(Context{}.V))
	OffsetCR             = uint64(unsafe.Offsetof(Context{}.CR))
	OffsetXER            = uint64(unsafe.Offsetof(Context{}.XER))
	OffsetLR             = uint64(unsafe.Offsetof(Context{}.LR))
	OffsetCTR            = uint64(unsafe.Offsetof(Context{}.CTR))
	OffsetFPSCR          = uint64(unsafe.Offsetof(Context{}.FPSCR))
	OffsetMSR            = uint64(unsafe.Offsetof(Context{}.MSR))
	OffsetReserveAddress = uint64(unsafe.Offsetof(Context{}.ReserveAddress))
	OffsetReserveValue   = uint64(unsafe.Offsetof(Context{}.ReserveValue))
	OffsetMembase        = uint64(unsafe.Offsetof(Context{}.Membase))
)

// RegOffset returns the byte offset of r[n] within Context.
func RegOffset(n int) uint64 { return OffsetR + uint64(n)*8 }

// FRegOffset returns the byte offset of f[n] within Context.
func FRegOffset(n int) uint64 { return OffsetF + uint64(n)*8 }

// VRegOffset returns the byte offset of v[n] within Context.
func VRegOffset(n int) uint64 { return OffsetV + uint64(n)*16 }

// CRFieldOffset returns the byte offset of condition-register field n
// (0..7).
func CRFieldOffset(n int) uint64 { return OffsetCR + uint64(n) }
