// Package hir implements the typed, three-address intermediate
// representation that sits between the PPC frontend and the backend
// assembler. The node shapes are grounded on original_source/src/alloy/hir
// (Value, Instr, the SIG_TYPE_* enum) and on the teacher's one-opcode-
// one-factory-method convention in codegen.go. Nodes are heap-allocated
// Go structs linked by pointers, as in the original; they are not held
// in builder-owned slices or referenced by index.
package hir

// Type is the value type carried by every non-void HIR value.
type Type uint8

const (
	TypeI8 Type = iota
	TypeI16
	TypeI32
	TypeI64
	TypeF32
	TypeF64
	TypeV128
)

func (t Type) String() string {
	switch t {
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeV128:
		return "v128"
	default:
		return "unknown"
	}
}

// Size returns the type's width in bytes.
func (t Type) Size() int {
	switch t {
	case TypeI8:
		return 1
	case TypeI16:
		return 2
	case TypeI32:
		return 4
	case TypeI64, TypeF64:
		return 8
	case TypeF32:
		return 4
	case TypeV128:
		return 16
	default:
		return 0
	}
}

// IsFloat reports whether the type lives in the float/vector register set.
func (t Type) IsFloat() bool {
	return t == TypeF32 || t == TypeF64 || t == TypeV128
}

// Endianness tags a memory access's byte order.
type Endianness uint8

const (
	LittleEndian Endianness = iota
	BigEndian
)
