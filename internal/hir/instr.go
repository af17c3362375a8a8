package hir

// Instr is one HIR instruction: an opcode, up to three tagged operands,
// an optional destination value, and intra-block prev/next links. Ground
// truth: alloy::hir::Instr.
type Instr struct {
	ID      int
	Block   *Block
	Prev    *Instr
	Next    *Instr
	Opcode  Opcode
	Flags   Flag
	Ordinal uint32

	Dest *Value
	Src1 Operand
	Src2 Operand
	Src3 Operand

	src1Use *Use
	src2Use *Use
	src3Use *Use
}

// IsVolatile reports whether this instruction must survive dead-code
// elimination even with an unused destination.
func (i *Instr) IsVolatile() bool {
	return i.Flags&FlagVolatile != 0 || i.Opcode.Info().AlwaysVolatile
}

func (i *Instr) setOperand(slot int, op Operand) {
	var use **Use
	switch slot {
	case 1:
		use = &i.src1Use
	case 2:
		use = &i.src2Use
	case 3:
		use = &i.src3Use
	default:
		panic("hir: invalid operand slot")
	}
	if *use != nil {
		(*use).Value.removeUse(*use)
		*use = nil
	}
	if op.Kind == OperandValue && op.Value != nil {
		*use = op.Value.addUse(i, slot)
	}
	switch slot {
	case 1:
		i.Src1 = op
	case 2:
		i.Src2 = op
	case 3:
		i.Src3 = op
	}
}

// SetSrc1/SetSrc2/SetSrc3 rewrite an operand, maintaining the use list of
// whichever value it referenced previously and of the new value if any.
func (i *Instr) SetSrc1(op Operand) { i.setOperand(1, op) }
func (i *Instr) SetSrc2(op Operand) { i.setOperand(2, op) }
func (i *Instr) SetSrc3(op Operand) { i.setOperand(3, op) }

// Remove unlinks the instruction from its block and drops its uses of
// any operand values.
func (i *Instr) Remove() {
	if i.Prev != nil {
		i.Prev.Next = i.Next
	} else if i.Block != nil {
		i.Block.head = i.Next
	}
	if i.Next != nil {
		i.Next.Prev = i.Prev
	} else if i.Block != nil {
		i.Block.tail = i.Prev
	}
	i.setOperand(1, Operand{})
	i.setOperand(2, Operand{})
	i.setOperand(3, Operand{})
	i.Prev, i.Next, i.Block = nil, nil, nil
}

// Replace swaps this instruction's opcode and flags in place, leaving
// operands and dest untouched -- used by ConstantPropagation to turn a
// conditional branch with a constant condition into an unconditional one.
func (i *Instr) Replace(op Opcode, flags Flag) {
	i.Opcode = op
	i.Flags = flags
}

// MoveBefore relocates this instruction to sit immediately before other
// within other's block.
func (i *Instr) MoveBefore(other *Instr) {
	// unlink from the current position only; Remove would also drop the
	// operands' uses.
	if i.Prev != nil {
		i.Prev.Next = i.Next
	} else if i.Block != nil {
		i.Block.head = i.Next
	}
	if i.Next != nil {
		i.Next.Prev = i.Prev
	} else if i.Block != nil {
		i.Block.tail = i.Prev
	}
	i.Block = other.Block
	i.Prev = other.Prev
	i.Next = other
	if other.Prev != nil {
		other.Prev.Next = i
	} else {
		other.Block.head = i
	}
	other.Prev = i
}
