package hir

import "math"

// HIRBuilder is the frontend's factory for HIR nodes: one method per
// opcode, a current-block cursor, and monotonic ordinal counters for
// values/instructions/blocks/labels. Ground truth: the teacher's
// one-factory-method-per-mnemonic convention (add.go, cmp.go, mov.go,
// ...) generalized from emitting host bytes to emitting typed IR nodes.
//
// HIR nodes are ordinary heap-allocated Go structs linked by pointers
// (Value.Def, the Use lists, Instr.Prev/Next, Block.In/Out). The ids the
// builder hands out are labels only: nodes are not stored in builder-owned
// slices or looked up by id, and the builder holds no Arena.
type HIRBuilder struct {
	valueSeq int
	instrSeq int
	blockSeq int
	labelSeq int

	fn  *Function
	cur *Block
}

// NewHIRBuilder creates a builder ready to construct one function's HIR.
func NewHIRBuilder() *HIRBuilder {
	b := &HIRBuilder{}
	b.Reset()
	return b
}

// Reset discards the current function and starts a fresh one, reusing
// the builder's counters from zero -- mirrors Arena.Reset's
// rewind-without-free semantics at the HIR layer.
func (b *HIRBuilder) Reset() {
	b.valueSeq, b.instrSeq, b.blockSeq, b.labelSeq = 0, 0, 0, 0
	b.fn = &Function{Builder: b}
	b.cur = nil
}

// Function returns the in-progress function.
func (b *HIRBuilder) Function() *Function { return b.fn }

// AppendBlock creates a new block, appends it to the function, and makes
// it the current block (without wiring any edge into it -- callers that
// want a fallthrough edge should use MarkLabel or add one explicitly).
func (b *HIRBuilder) AppendBlock() *Block {
	blk := &Block{ID: b.blockSeq}
	b.blockSeq++
	b.fn.Blocks = append(b.fn.Blocks, blk)
	b.cur = blk
	return blk
}

// CurrentBlock returns the cursor block.
func (b *HIRBuilder) CurrentBlock() *Block { return b.cur }

// Label declares a named branch target not yet bound to a block.
func (b *HIRBuilder) Label(name string) *Label {
	l := &Label{ID: b.labelSeq, Name: name}
	b.labelSeq++
	return l
}

// MarkLabel appends a new block, binds the label to it, and wires an
// unconditional fallthrough edge from the previously-current block (if
// any and if it does not already end in a terminator).
func (b *HIRBuilder) MarkLabel(l *Label) *Block {
	prev := b.cur
	blk := b.AppendBlock()
	l.Block = blk
	blk.Labels = append(blk.Labels, l)
	if prev != nil && prev.Terminator() == nil {
		AddEdge(prev, blk, EdgeUnconditional)
	}
	return blk
}

func (b *HIRBuilder) newValue(t Type) *Value {
	v := &Value{ID: b.valueSeq, Type: t}
	b.valueSeq++
	return v
}

func (b *HIRBuilder) newInstr(op Opcode, flags Flag) *Instr {
	i := &Instr{ID: b.instrSeq, Opcode: op, Flags: flags}
	b.instrSeq++
	b.cur.Append(i)
	return i
}

// --- typed constants ---

func (b *HIRBuilder) I8(x int8) *Value   { return b.intConst(TypeI8, uint64(uint8(x))) }
func (b *HIRBuilder) I16(x int16) *Value { return b.intConst(TypeI16, uint64(uint16(x))) }
func (b *HIRBuilder) I32(x int32) *Value { return b.intConst(TypeI32, uint64(uint32(x))) }
func (b *HIRBuilder) I64(x int64) *Value { return b.intConst(TypeI64, uint64(x)) }

func (b *HIRBuilder) intConst(t Type, bits uint64) *Value {
	v := b.newValue(t)
	v.IsConstant = true
	v.constBits = bits
	return v
}

func (b *HIRBuilder) F32(x float32) *Value {
	v := b.newValue(TypeF32)
	v.IsConstant = true
	v.constBits = uint64(math.Float32bits(x))
	return v
}

func (b *HIRBuilder) F64(x float64) *Value {
	v := b.newValue(TypeF64)
	v.IsConstant = true
	v.constBits = math.Float64bits(x)
	return v
}

// Vec128 builds a constant 128-bit vector from four logical lanes in
// order 0..3 (xyzw), each interpreted as raw 32-bit words -- the spec
// requires externally-visible lane order to stay logical even though a
// backend may store lanes reversed internally.
func (b *HIRBuilder) Vec128(lane0, lane1, lane2, lane3 uint32) *Value {
	v := b.newValue(TypeV128)
	v.IsConstant = true
	putLE32(v.constVec[0:4], lane0)
	putLE32(v.constVec[4:8], lane1)
	putLE32(v.constVec[8:12], lane2)
	putLE32(v.constVec[12:16], lane3)
	return v
}

func putLE32(b []byte, x uint32) {
	b[0] = byte(x)
	b[1] = byte(x >> 8)
	b[2] = byte(x >> 16)
	b[3] = byte(x >> 24)
}

// VecLane reads back logical lane i (0..3) of a constant vector value.
func VecLane(v *Value, i int) uint32 {
	o := i * 4
	b := v.constVec[o : o+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// --- context access ---

// LoadContext reads field offset (into the guest PPCContext) as type t.
func (b *HIRBuilder) LoadContext(offset uint64, t Type) *Value {
	i := b.newInstr(OpLoadContext, FlagNone)
	i.SetSrc1(OffsetOperand(offset))
	dest := b.newValue(t)
	dest.Def = i
	i.Dest = dest
	return dest
}

// StoreContext writes v into field offset of the guest PPCContext.
func (b *HIRBuilder) StoreContext(offset uint64, v *Value) *Instr {
	i := b.newInstr(OpStoreContext, FlagVolatile)
	i.SetSrc1(OffsetOperand(offset))
	i.SetSrc2(ValueOperand(v))
	return i
}

// --- guest memory access ---

// Load reads type t from guest address addr (an I32/I64 value holding a
// guest pointer), honoring the given endianness.
func (b *HIRBuilder) Load(addr *Value, t Type, end Endianness) *Value {
	i := b.newInstr(OpLoad, FlagNone)
	i.SetSrc1(ValueOperand(addr))
	if end == BigEndian {
		i.Flags |= flagBigEndian
	}
	dest := b.newValue(t)
	dest.Def = i
	i.Dest = dest
	return dest
}

// Store writes v to guest address addr with the given endianness.
func (b *HIRBuilder) Store(addr, v *Value, end Endianness) *Instr {
	i := b.newInstr(OpStore, FlagVolatile)
	if end == BigEndian {
		i.Flags |= flagBigEndian
	}
	i.SetSrc1(ValueOperand(addr))
	i.SetSrc2(ValueOperand(v))
	return i
}

// flagBigEndian reuses the Flag bit space above FlagCommutative; it is
// opcode-local (only meaningful on OpLoad/OpStore) rather than a
// general-purpose Instr flag, so it is not part of the exported Flag set.
const flagBigEndian Flag = 1 << 16

// IsBigEndian reports whether a Load/Store instruction carries the
// big-endian flag.
func (i *Instr) IsBigEndian() bool { return i.Flags&flagBigEndian != 0 }

// --- binary arithmetic / logic ---

func (b *HIRBuilder) binary(op Opcode, x, y *Value) *Value {
	i := b.newInstr(op, FlagNone)
	i.SetSrc1(ValueOperand(x))
	i.SetSrc2(ValueOperand(y))
	dest := b.newValue(x.Type)
	dest.Def = i
	i.Dest = dest
	return dest
}

func (b *HIRBuilder) Add(x, y *Value) *Value { return b.binary(OpAdd, x, y) }
func (b *HIRBuilder) Sub(x, y *Value) *Value { return b.binary(OpSub, x, y) }
func (b *HIRBuilder) Mul(x, y *Value) *Value { return b.binary(OpMul, x, y) }
func (b *HIRBuilder) Div(x, y *Value) *Value { return b.binary(OpDiv, x, y) }
func (b *HIRBuilder) And(x, y *Value) *Value { return b.binary(OpAnd, x, y) }
func (b *HIRBuilder) Or(x, y *Value) *Value  { return b.binary(OpOr, x, y) }
func (b *HIRBuilder) Xor(x, y *Value) *Value { return b.binary(OpXor, x, y) }
func (b *HIRBuilder) Shl(x, y *Value) *Value { return b.binary(OpShl, x, y) }
func (b *HIRBuilder) Shr(x, y *Value) *Value { return b.binary(OpShr, x, y) }
func (b *HIRBuilder) Sar(x, y *Value) *Value { return b.binary(OpSar, x, y) }

func (b *HIRBuilder) unary(op Opcode, x *Value) *Value {
	i := b.newInstr(op, FlagNone)
	i.SetSrc1(ValueOperand(x))
	dest := b.newValue(x.Type)
	dest.Def = i
	i.Dest = dest
	return dest
}

func (b *HIRBuilder) Not(x *Value) *Value { return b.unary(OpNot, x) }
func (b *HIRBuilder) Neg(x *Value) *Value { return b.unary(OpNeg, x) }

func (b *HIRBuilder) compare(op Opcode, x, y *Value) *Value {
	i := b.newInstr(op, FlagNone)
	i.SetSrc1(ValueOperand(x))
	i.SetSrc2(ValueOperand(y))
	dest := b.newValue(TypeI8)
	dest.Def = i
	i.Dest = dest
	return dest
}

func (b *HIRBuilder) CmpEq(x, y *Value) *Value  { return b.compare(OpCmpEq, x, y) }
func (b *HIRBuilder) CmpNe(x, y *Value) *Value  { return b.compare(OpCmpNe, x, y) }
func (b *HIRBuilder) CmpSlt(x, y *Value) *Value { return b.compare(OpCmpSlt, x, y) }
func (b *HIRBuilder) CmpSle(x, y *Value) *Value { return b.compare(OpCmpSle, x, y) }
func (b *HIRBuilder) CmpUlt(x, y *Value) *Value { return b.compare(OpCmpUlt, x, y) }
func (b *HIRBuilder) CmpUle(x, y *Value) *Value { return b.compare(OpCmpUle, x, y) }

// --- conversions ---

func (b *HIRBuilder) convert(op Opcode, x *Value, t Type) *Value {
	i := b.newInstr(op, FlagNone)
	i.SetSrc1(ValueOperand(x))
	dest := b.newValue(t)
	dest.Def = i
	i.Dest = dest
	return dest
}

func (b *HIRBuilder) ZeroExtend(x *Value, t Type) *Value { return b.convert(OpZeroExtend, x, t) }
func (b *HIRBuilder) SignExtend(x *Value, t Type) *Value { return b.convert(OpSignExtend, x, t) }
func (b *HIRBuilder) Truncate(x *Value, t Type) *Value   { return b.convert(OpTruncate, x, t) }

// Select picks a or c depending on cond (nonzero selects a).
func (b *HIRBuilder) Select(cond, a, c *Value) *Value {
	i := b.newInstr(OpSelect, FlagNone)
	i.SetSrc1(ValueOperand(cond))
	i.SetSrc2(ValueOperand(a))
	i.SetSrc3(ValueOperand(c))
	dest := b.newValue(a.Type)
	dest.Def = i
	i.Dest = dest
	return dest
}

// --- vector ops ---

// VectorSwizzle reorders v's four logical lanes according to mask (each
// entry 0..3), in logical lane order regardless of backend internal
// storage order.
func (b *HIRBuilder) VectorSwizzle(v *Value, mask [4]byte) *Value {
	i := b.newInstr(OpVectorSwizzle, FlagNone)
	i.SetSrc1(ValueOperand(v))
	maskWord := uint64(mask[0]) | uint64(mask[1])<<8 | uint64(mask[2])<<16 | uint64(mask[3])<<24
	i.SetSrc2(OffsetOperand(maskWord))
	dest := b.newValue(TypeV128)
	dest.Def = i
	i.Dest = dest
	return dest
}

// VectorExtract pulls logical lane `lane` out of v as an F32/I32 scalar.
func (b *HIRBuilder) VectorExtract(v *Value, lane int, elemType Type) *Value {
	i := b.newInstr(OpVectorExtract, FlagNone)
	i.SetSrc1(ValueOperand(v))
	i.SetSrc2(OffsetOperand(uint64(lane)))
	dest := b.newValue(elemType)
	dest.Def = i
	i.Dest = dest
	return dest
}

// VectorInsert writes scalar into logical lane `lane` of v, returning the
// updated vector.
func (b *HIRBuilder) VectorInsert(v *Value, lane int, scalar *Value) *Value {
	i := b.newInstr(OpVectorInsert, FlagNone)
	i.SetSrc1(ValueOperand(v))
	i.SetSrc2(OffsetOperand(uint64(lane)))
	i.SetSrc3(ValueOperand(scalar))
	dest := b.newValue(TypeV128)
	dest.Def = i
	i.Dest = dest
	return dest
}

// --- atomics (lwarx/stwcx.) ---

// AtomicCompareExchange performs addr[0:width] := new iff the current
// value equals expected; returns an I8 success flag.
func (b *HIRBuilder) AtomicCompareExchange(addr, expected, newVal *Value) *Value {
	i := b.newInstr(OpAtomicCompareExchange, FlagVolatile)
	i.SetSrc1(ValueOperand(addr))
	i.SetSrc2(ValueOperand(expected))
	i.SetSrc3(ValueOperand(newVal))
	dest := b.newValue(TypeI8)
	dest.Def = i
	i.Dest = dest
	return dest
}

// --- control flow ---

func (b *HIRBuilder) Branch(l *Label) *Instr {
	i := b.newInstr(OpBranch, FlagVolatile)
	i.SetSrc1(LabelOperand(l))
	if l.Block != nil {
		AddEdge(b.cur, l.Block, EdgeUnconditional)
	}
	return i
}

func (b *HIRBuilder) BranchTrue(cond *Value, l *Label) *Instr {
	i := b.newInstr(OpBranchTrue, FlagVolatile)
	i.SetSrc1(ValueOperand(cond))
	i.SetSrc2(LabelOperand(l))
	if l.Block != nil {
		AddEdge(b.cur, l.Block, EdgeNone)
	}
	return i
}

func (b *HIRBuilder) BranchFalse(cond *Value, l *Label) *Instr {
	i := b.newInstr(OpBranchFalse, FlagVolatile)
	i.SetSrc1(ValueOperand(cond))
	i.SetSrc2(LabelOperand(l))
	if l.Block != nil {
		AddEdge(b.cur, l.Block, EdgeNone)
	}
	return i
}

// Call invokes a direct guest/extern target; flags are opcode-local
// (e.g. tail-call) and opaque to the HIR layer itself.
func (b *HIRBuilder) Call(target Symbol, flags Flag) *Instr {
	i := b.newInstr(OpCall, flags|FlagVolatile)
	i.SetSrc1(SymbolOperand(target))
	return i
}

func (b *HIRBuilder) CallIndirect(target *Value, flags Flag) *Instr {
	i := b.newInstr(OpCallIndirect, flags|FlagVolatile)
	i.SetSrc1(ValueOperand(target))
	return i
}

func (b *HIRBuilder) Return() *Instr {
	return b.newInstr(OpReturn, FlagVolatile)
}

// Trap lowers to a host-provided handler invocation at runtime; code
// identifies the trap reason (e.g. invalid_instruction) and cia is the
// guest address it occurred at.
func (b *HIRBuilder) Trap(code uint64, cia uint64) *Instr {
	i := b.newInstr(OpTrap, FlagVolatile)
	i.SetSrc1(OffsetOperand(code))
	i.SetSrc2(OffsetOperand(cia))
	return i
}
