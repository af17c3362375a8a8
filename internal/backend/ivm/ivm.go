// Package ivm implements the "intcode" oracle backend: a direct
// tree-walking evaluator over one function's HIR, used to cross-check the
// x64 backend's output and to drive the demo scenarios that don't yet
// have an x64 sequence-table entry. Ground truth:
// original_source/src/alloy/backend/ivm/ivm_intcode.h's
// IntCode-per-opcode dispatch loop, ported from a bytecode-threaded
// interpreter to a direct switch over hir.Instr since this port has no
// separate bytecode encoding step.
package ivm

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/xyproto/dbtcore/internal/hir"
	"github.com/xyproto/dbtcore/internal/memory"
	"github.com/xyproto/dbtcore/internal/ppc"
)

// TrapError reports that the interpreted function hit an OpTrap.
type TrapError struct {
	Code uint64
	CIA  uint64
}

func (e TrapError) Error() string {
	return fmt.Sprintf("ivm: trap %d at guest address %#x", e.Code, e.CIA)
}

// Interpreter evaluates one hir.Function's blocks in sequence, following
// its control-flow edges, against a guest register context and memory.
// It carries no persistent state between Execute calls.
type Interpreter struct{}

// New returns a ready-to-use interpreter.
func New() *Interpreter { return &Interpreter{} }

// Execute runs fn to completion (a return or an unrecoverable trap/error),
// mutating ctx and mem in place exactly as the x64 backend's compiled
// code would.
func (it *Interpreter) Execute(fn *hir.Function, ctx *ppc.Context, mem *memory.Memory) error {
	if len(fn.Blocks) == 0 {
		return nil
	}

	blockIndex := map[*hir.Block]int{}
	for i, b := range fn.Blocks {
		blockIndex[b] = i
	}

	vals := map[*hir.Value]uint64{}
	vecs := map[*hir.Value][16]byte{}

	cur := fn.Blocks[0]
	for cur != nil {
		pos := blockIndex[cur]
		var next *hir.Block
		branched := false
		halted := false

		for _, instr := range cur.Instrs() {
			n, br, h, err := it.step(instr, ctx, mem, vals, vecs)
			if err != nil {
				return err
			}
			if br {
				next, branched = n, true
			}
			if h {
				halted = true
			}
		}

		switch {
		case halted:
			cur = nil
		case branched:
			cur = next
		case pos+1 < len(fn.Blocks):
			cur = fn.Blocks[pos+1]
		default:
			cur = nil
		}
	}
	return nil
}

func (it *Interpreter) step(
	instr *hir.Instr, ctx *ppc.Context, mem *memory.Memory,
	vals map[*hir.Value]uint64, vecs map[*hir.Value][16]byte,
) (next *hir.Block, branched, halted bool, err error) {
	switch instr.Opcode {
	case hir.OpLoadContext:
		if instr.Dest.Type == hir.TypeV128 {
			setVec(instr.Dest, loadCtxVec(ctx, instr.Src1.Offset), vecs)
		} else {
			setScalar(instr.Dest, loadCtxScalar(ctx, instr.Src1.Offset, instr.Dest.Type), vals)
		}

	case hir.OpStoreContext:
		v := instr.Src2.Value
		if v.Type == hir.TypeV128 {
			storeCtxVec(ctx, instr.Src1.Offset, getVec(instr.Src2, vecs))
		} else {
			storeCtxScalar(ctx, instr.Src1.Offset, v.Type, getScalar(instr.Src2, vals))
		}

	case hir.OpLoad:
		addr := uint32(getScalar(instr.Src1, vals))
		setScalar(instr.Dest, loadMem(mem, addr, instr.Dest.Type, instr.IsBigEndian()), vals)

	case hir.OpStore:
		addr := uint32(getScalar(instr.Src1, vals))
		v := instr.Src2.Value
		storeMem(mem, addr, v.Type, getScalar(instr.Src2, vals), instr.IsBigEndian())

	case hir.OpAdd:
		binOp(instr, vals, func(x, y uint64) uint64 { return x + y })
	case hir.OpSub:
		binOp(instr, vals, func(x, y uint64) uint64 { return x - y })
	case hir.OpMul:
		binOp(instr, vals, func(x, y uint64) uint64 { return x * y })
	case hir.OpDiv:
		binOp(instr, vals, func(x, y uint64) uint64 {
			if y == 0 {
				return 0
			}
			return x / y
		})
	case hir.OpAnd:
		binOp(instr, vals, func(x, y uint64) uint64 { return x & y })
	case hir.OpOr:
		binOp(instr, vals, func(x, y uint64) uint64 { return x | y })
	case hir.OpXor:
		binOp(instr, vals, func(x, y uint64) uint64 { return x ^ y })
	case hir.OpShl:
		binOp(instr, vals, func(x, y uint64) uint64 { return x << (y & 63) })
	case hir.OpShr:
		binOp(instr, vals, func(x, y uint64) uint64 { return x >> (y & 63) })
	case hir.OpSar:
		binOp(instr, vals, func(x, y uint64) uint64 {
			width := uint(instr.Dest.Type.Size() * 8)
			signed := signExtendTo64(x, width)
			return uint64(signed>>(y&63)) & widthMask(width)
		})

	case hir.OpNot:
		setScalar(instr.Dest, truncateTo(^getScalar(instr.Src1, vals), instr.Dest.Type), vals)
	case hir.OpNeg:
		setScalar(instr.Dest, truncateTo(-getScalar(instr.Src1, vals), instr.Dest.Type), vals)

	case hir.OpCmpEq:
		cmp(instr, vals, func(x, y uint64) bool { return x == y })
	case hir.OpCmpNe:
		cmp(instr, vals, func(x, y uint64) bool { return x != y })
	case hir.OpCmpSlt:
		cmpSigned(instr, vals, func(x, y int64) bool { return x < y })
	case hir.OpCmpSle:
		cmpSigned(instr, vals, func(x, y int64) bool { return x <= y })
	case hir.OpCmpUlt:
		cmp(instr, vals, func(x, y uint64) bool { return x < y })
	case hir.OpCmpUle:
		cmp(instr, vals, func(x, y uint64) bool { return x <= y })

	case hir.OpZeroExtend:
		setScalar(instr.Dest, getScalar(instr.Src1, vals), vals)
	case hir.OpSignExtend:
		srcWidth := uint(instr.Src1.Value.Type.Size() * 8)
		signed := signExtendTo64(getScalar(instr.Src1, vals), srcWidth)
		setScalar(instr.Dest, truncateTo(uint64(signed), instr.Dest.Type), vals)
	case hir.OpTruncate:
		setScalar(instr.Dest, truncateTo(getScalar(instr.Src1, vals), instr.Dest.Type), vals)

	case hir.OpSelect:
		if getScalar(instr.Src1, vals) != 0 {
			setScalar(instr.Dest, getScalar(instr.Src2, vals), vals)
		} else {
			setScalar(instr.Dest, getScalar(instr.Src3, vals), vals)
		}

	case hir.OpVectorSwizzle:
		src := getVec(instr.Src1, vecs)
		mask := instr.Src2.Offset
		var out [16]byte
		for lane := 0; lane < 4; lane++ {
			sel := (mask >> uint(lane*8)) & 0x3
			copy(out[lane*4:lane*4+4], src[sel*4:sel*4+4])
		}
		setVec(instr.Dest, out, vecs)

	case hir.OpVectorExtract:
		src := getVec(instr.Src1, vecs)
		lane := instr.Src2.Offset
		bits := binary.LittleEndian.Uint32(src[lane*4 : lane*4+4])
		setScalar(instr.Dest, uint64(bits), vals)

	case hir.OpVectorInsert:
		out := getVec(instr.Src1, vecs)
		lane := instr.Src2.Offset
		binary.LittleEndian.PutUint32(out[lane*4:lane*4+4], uint32(getScalar(instr.Src3, vals)))
		setVec(instr.Dest, out, vecs)

	case hir.OpAtomicCompareExchange:
		addr := uint32(getScalar(instr.Src1, vals))
		expected := uint32(getScalar(instr.Src2, vals))
		newVal := uint32(getScalar(instr.Src3, vals))
		region := mem.Translate(addr, 4)
		cur := binary.BigEndian.Uint32(region)
		if cur == expected {
			binary.BigEndian.PutUint32(region, newVal)
			setScalar(instr.Dest, 1, vals)
		} else {
			setScalar(instr.Dest, 0, vals)
		}

	case hir.OpBranch:
		branched, next = true, instr.Src1.Label.Block
	case hir.OpBranchTrue:
		if getScalar(instr.Src1, vals) != 0 {
			branched, next = true, instr.Src2.Label.Block
		}
	case hir.OpBranchFalse:
		if getScalar(instr.Src1, vals) == 0 {
			branched, next = true, instr.Src2.Label.Block
		}

	case hir.OpReturn:
		halted = true
	case hir.OpTrap:
		err = TrapError{Code: instr.Src1.Offset, CIA: instr.Src2.Offset}
	case hir.OpCall, hir.OpCallIndirect:
		err = fmt.Errorf("ivm: %s not supported by the interpreter backend", instr.Opcode)
	case hir.OpNop, hir.OpVectorConst:
		// no-op
	default:
		err = fmt.Errorf("ivm: unhandled opcode %s", instr.Opcode)
	}
	return next, branched, halted, err
}

func getScalar(op hir.Operand, vals map[*hir.Value]uint64) uint64 {
	if op.Kind != hir.OperandValue || op.Value == nil {
		return 0
	}
	if op.Value.IsConstant {
		return op.Value.ConstU64()
	}
	return vals[op.Value]
}

func setScalar(dest *hir.Value, bits uint64, vals map[*hir.Value]uint64) {
	vals[dest] = bits
}

func getVec(op hir.Operand, vecs map[*hir.Value][16]byte) [16]byte {
	if op.Kind != hir.OperandValue || op.Value == nil {
		return [16]byte{}
	}
	if op.Value.IsConstant {
		return op.Value.ConstVec128()
	}
	return vecs[op.Value]
}

func setVec(dest *hir.Value, v [16]byte, vecs map[*hir.Value][16]byte) {
	vecs[dest] = v
}

func binOp(instr *hir.Instr, vals map[*hir.Value]uint64, f func(x, y uint64) uint64) {
	x, y := getScalar(instr.Src1, vals), getScalar(instr.Src2, vals)
	setScalar(instr.Dest, truncateTo(f(x, y), instr.Dest.Type), vals)
}

func cmp(instr *hir.Instr, vals map[*hir.Value]uint64, f func(x, y uint64) bool) {
	x, y := getScalar(instr.Src1, vals), getScalar(instr.Src2, vals)
	setScalar(instr.Dest, boolU64(f(x, y)), vals)
}

func cmpSigned(instr *hir.Instr, vals map[*hir.Value]uint64, f func(x, y int64) bool) {
	width := uint(instr.Src1.Value.Type.Size() * 8)
	x := signExtendTo64(getScalar(instr.Src1, vals), width)
	y := signExtendTo64(getScalar(instr.Src2, vals), width)
	setScalar(instr.Dest, boolU64(f(x, y)), vals)
}

func boolU64(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func widthMask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

func truncateTo(v uint64, t hir.Type) uint64 {
	return v & widthMask(uint(t.Size()*8))
}

func signExtendTo64(v uint64, width uint) int64 {
	if width >= 64 {
		return int64(v)
	}
	shift := 64 - width
	return int64(v<<shift) >> shift
}

// loadCtxScalar/storeCtxScalar address ctx as a raw byte blob at offset,
// exactly as the x64 backend's [r13+offset] addressing does, r13
// holding the context pointer --
// that shared contract is the entire point of LoadContext/StoreContext
// carrying a raw byte offset instead of a named field reference.
func loadCtxScalar(ctx *ppc.Context, offset uint64, t hir.Type) uint64 {
	p := unsafe.Add(unsafe.Pointer(ctx), uintptr(offset))
	switch t {
	case hir.TypeI8:
		return uint64(*(*uint8)(p))
	case hir.TypeI16:
		return uint64(*(*uint16)(p))
	case hir.TypeI32, hir.TypeF32:
		return uint64(*(*uint32)(p))
	default:
		return *(*uint64)(p)
	}
}

func storeCtxScalar(ctx *ppc.Context, offset uint64, t hir.Type, bits uint64) {
	p := unsafe.Add(unsafe.Pointer(ctx), uintptr(offset))
	switch t {
	case hir.TypeI8:
		*(*uint8)(p) = uint8(bits)
	case hir.TypeI16:
		*(*uint16)(p) = uint16(bits)
	case hir.TypeI32, hir.TypeF32:
		*(*uint32)(p) = uint32(bits)
	default:
		*(*uint64)(p) = bits
	}
}

func loadCtxVec(ctx *ppc.Context, offset uint64) [16]byte {
	p := unsafe.Add(unsafe.Pointer(ctx), uintptr(offset))
	return *(*[16]byte)(p)
}

func storeCtxVec(ctx *ppc.Context, offset uint64, v [16]byte) {
	p := unsafe.Add(unsafe.Pointer(ctx), uintptr(offset))
	*(*[16]byte)(p) = v
}

func loadMem(mem *memory.Memory, addr uint32, t hir.Type, bigEndian bool) uint64 {
	b := mem.Translate(addr, t.Size())
	if bigEndian {
		return beToU64(b)
	}
	return leToU64(b)
}

func storeMem(mem *memory.Memory, addr uint32, t hir.Type, bits uint64, bigEndian bool) {
	b := mem.Translate(addr, t.Size())
	if bigEndian {
		u64ToBE(b, bits)
	} else {
		u64ToLE(b, bits)
	}
}

func beToU64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func leToU64(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func u64ToBE(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func u64ToLE(b []byte, v uint64) {
	for i := 0; i < len(b); i++ {
		b[i] = byte(v)
		v >>= 8
	}
}
