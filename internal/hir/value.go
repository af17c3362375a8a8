package hir

// AssignmentKind tags whether RegisterAllocation gave a Value a host
// register or a stack spill slot.
type AssignmentKind uint8

const (
	AssignNone AssignmentKind = iota
	AssignRegister
	AssignSpill
)

// Assignment is the result RegisterAllocation (pass 7) writes onto a
// Value; the backend consults it when lowering uses of that value.
type Assignment struct {
	Kind AssignmentKind
	Reg  int // register-set index when Kind == AssignRegister
	Slot int // spill-slot index when Kind == AssignSpill
}

// Use links one operand slot of one Instr back to the Value it reads,
// forming the doubly-linked use list the spec requires values to carry.
type Use struct {
	Value *Value
	Instr *Instr
	Slot  int // 1, 2, or 3 -- which of src1/src2/src3 this use occupies
	next  *Use
	prev  *Use
}

// Value is an SSA-like value: it carries a type, an optional defining
// instruction (nil for constants), and the list of instructions that use
// it. Constants are inline payload with no Def.
type Value struct {
	ID   int
	Type Type

	Def    *Instr // nil for constants
	usesHd *Use
	usesTl *Use

	IsConstant bool
	constBits  uint64 // I8..I64, F32 (low 32), F64 bit pattern
	constVec   [16]byte

	Assign Assignment
}

// addUse appends a new use of v at (instr, slot) and returns it.
func (v *Value) addUse(instr *Instr, slot int) *Use {
	u := &Use{Value: v, Instr: instr, Slot: slot}
	if v.usesTl == nil {
		v.usesHd, v.usesTl = u, u
	} else {
		u.prev = v.usesTl
		v.usesTl.next = u
		v.usesTl = u
	}
	return u
}

func (v *Value) removeUse(u *Use) {
	if u.prev != nil {
		u.prev.next = u.next
	} else {
		v.usesHd = u.next
	}
	if u.next != nil {
		u.next.prev = u.prev
	} else {
		v.usesTl = u.prev
	}
	u.prev, u.next = nil, nil
}

// Uses returns every use of v, in definition order.
func (v *Value) Uses() []*Use {
	var out []*Use
	for u := v.usesHd; u != nil; u = u.next {
		out = append(out, u)
	}
	return out
}

// UseCount reports how many operand slots currently read v.
func (v *Value) UseCount() int {
	n := 0
	for u := v.usesHd; u != nil; u = u.next {
		n++
	}
	return n
}

// NewConstant builds a standalone constant Value of type t carrying bits
// as its payload, without going through a HIRBuilder. Used by passes that
// fold an existing instruction down to a constant after the function has
// already been built -- the pass owns id uniqueness for any such value if
// it matters to that pass.
func NewConstant(t Type, bits uint64) *Value {
	return &Value{Type: t, IsConstant: true, constBits: bits}
}

// ConstI64 returns the value's constant payload reinterpreted as int64.
func (v *Value) ConstI64() int64 { return int64(v.constBits) }

// ConstU64 returns the value's constant payload as uint64.
func (v *Value) ConstU64() uint64 { return v.constBits }

// ConstF64Bits returns the value's constant payload as a float64 bit
// pattern (valid only when Type == TypeF64).
func (v *Value) ConstF64Bits() uint64 { return v.constBits }

// ConstVec128 returns the 16-byte constant vector payload.
func (v *Value) ConstVec128() [16]byte { return v.constVec }
