package hir

// Opcode identifies an HIR instruction. The const list below and the
// opcodeTable literal at the bottom of this file are two separate
// hand-written lists, not generated from one source: opcodeTable is an
// array indexed by Opcode and sized by opcodeCount, so an opcode added to
// the const list without its own row gets a zero OpcodeInfo. Adding an
// opcode means adding it to both.
type Opcode uint16

const (
	OpNop Opcode = iota
	OpLoadContext
	OpStoreContext
	OpLoad
	OpStore
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpNot
	OpNeg
	OpShl
	OpShr
	OpSar
	OpCmpEq
	OpCmpNe
	OpCmpSlt
	OpCmpSle
	OpCmpUlt
	OpCmpUle
	OpZeroExtend
	OpSignExtend
	OpTruncate
	OpSelect
	OpVectorConst
	OpVectorSwizzle
	OpVectorExtract
	OpVectorInsert
	OpAtomicCompareExchange
	OpBranch
	OpBranchTrue
	OpBranchFalse
	OpCall
	OpCallIndirect
	OpReturn
	OpTrap
	opcodeCount
)

// Flags carried on an Instr, analogous to the original's per-instruction
// flag bits (e.g. VOLATILE inhibiting dead-code elimination).
type Flag uint32

const (
	FlagNone Flag = 0
	// FlagVolatile marks an instruction whose result must not be removed
	// by DeadCodeElimination even with a zero use count.
	FlagVolatile Flag = 1 << iota
	// FlagCommutative lets ConstantPropagation/Simplification reorder
	// operands freely when folding.
	FlagCommutative
)

// OpcodeInfo is the per-opcode metadata row: display name and whether the
// opcode is inherently side-effecting (and so always volatile regardless
// of the flags on a given instruction).
type OpcodeInfo struct {
	Name           string
	AlwaysVolatile bool
}

var opcodeTable = [opcodeCount]OpcodeInfo{
	OpNop:                   {"nop", false},
	OpLoadContext:           {"load_context", false},
	OpStoreContext:          {"store_context", true},
	OpLoad:                  {"load", false},
	OpStore:                 {"store", true},
	OpAdd:                   {"add", false},
	OpSub:                   {"sub", false},
	OpMul:                   {"mul", false},
	OpDiv:                   {"div", false},
	OpAnd:                   {"and", false},
	OpOr:                    {"or", false},
	OpXor:                   {"xor", false},
	OpNot:                   {"not", false},
	OpNeg:                   {"neg", false},
	OpShl:                   {"shl", false},
	OpShr:                   {"shr", false},
	OpSar:                   {"sar", false},
	OpCmpEq:                 {"cmp_eq", false},
	OpCmpNe:                 {"cmp_ne", false},
	OpCmpSlt:                {"cmp_slt", false},
	OpCmpSle:                {"cmp_sle", false},
	OpCmpUlt:                {"cmp_ult", false},
	OpCmpUle:                {"cmp_ule", false},
	OpZeroExtend:            {"zero_extend", false},
	OpSignExtend:            {"sign_extend", false},
	OpTruncate:              {"truncate", false},
	OpSelect:                {"select", false},
	OpVectorConst:           {"vector_const", false},
	OpVectorSwizzle:         {"vector_swizzle", false},
	OpVectorExtract:         {"vector_extract", false},
	OpVectorInsert:          {"vector_insert", false},
	OpAtomicCompareExchange: {"atomic_cmpxchg", true},
	OpBranch:                {"branch", true},
	OpBranchTrue:            {"branch_true", true},
	OpBranchFalse:           {"branch_false", true},
	OpCall:                  {"call", true},
	OpCallIndirect:          {"call_indirect", true},
	OpReturn:                {"return", true},
	OpTrap:                  {"trap", true},
}

// Info returns the opcode's metadata row.
func (o Opcode) Info() OpcodeInfo {
	if int(o) >= len(opcodeTable) {
		return OpcodeInfo{Name: "invalid"}
	}
	return opcodeTable[o]
}

func (o Opcode) String() string {
	return o.Info().Name
}
