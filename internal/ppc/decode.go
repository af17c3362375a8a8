package ppc

// Instruction is one raw 32-bit big-endian PPC instruction word, already
// byte-swapped into host order by the scanner when it read guest memory.
type Instruction uint32

// field extracts PPC-numbered bits [first, last] (bit 0 is the MSB, per
// IBM/PPC convention) as an unsigned value.
func field(w uint32, first, last int) uint32 {
	nbits := last - first + 1
	shift := 31 - last
	mask := uint32(1)<<uint(nbits) - 1
	return (w >> uint(shift)) & mask
}

// Opcode returns the primary opcode, PPC bits 0-5.
func (i Instruction) Opcode() uint32 { return field(uint32(i), 0, 5) }

// RD returns the destination register field, bits 6-10.
func (i Instruction) RD() uint32 { return field(uint32(i), 6, 10) }

// RS is an alias of RD used where the field holds a source register
// (store/move forms read the same bit range as a source).
func (i Instruction) RS() uint32 { return i.RD() }

// RA returns bits 11-15.
func (i Instruction) RA() uint32 { return field(uint32(i), 11, 15) }

// RB returns bits 16-20.
func (i Instruction) RB() uint32 { return field(uint32(i), 16, 20) }

// RC returns bits 21-25 (third source register in four-operand VMX forms).
func (i Instruction) RC() uint32 { return field(uint32(i), 21, 25) }

// ExtendedOpcode returns the X/XO-form extended opcode, bits 21-30.
func (i Instruction) ExtendedOpcode() uint32 { return field(uint32(i), 21, 30) }

// OE returns the XO-form overflow-enable bit, bit 21 (only meaningful on
// the subset of XO-form instructions that define it).
func (i Instruction) OE() uint32 { return field(uint32(i), 21, 21) }

// RcBit returns the record-condition bit, the instruction's last bit.
func (i Instruction) RcBit() bool { return field(uint32(i), 31, 31) != 0 }

// AABit returns the D/B/I-form absolute-address bit, bit 30.
func (i Instruction) AABit() bool { return field(uint32(i), 30, 30) != 0 }

// LKBit returns the link bit, bit 31 -- set on instructions that also
// write LR (bl, bcl, ...).
func (i Instruction) LKBit() bool { return field(uint32(i), 31, 31) != 0 }

// Imm16 returns the D-form 16-bit immediate, bits 16-31, sign-extended.
func (i Instruction) Imm16() int32 {
	v := field(uint32(i), 16, 31)
	return int32(int16(v))
}

// Imm16U returns the D-form 16-bit immediate, zero-extended -- used by
// logical-immediate forms (andi., ori, ...) where no sign extension occurs.
func (i Instruction) Imm16U() uint32 { return field(uint32(i), 16, 31) }

// BO returns the branch-conditional BO field, bits 6-10.
func (i Instruction) BO() uint32 { return i.RD() }

// BI returns the branch-conditional BI field, bits 11-15.
func (i Instruction) BI() uint32 { return i.RA() }

// BDOffset returns the signed byte displacement encoded by a B-form
// instruction's BD field.
func (i Instruction) BDOffset() int32 {
	raw := field(uint32(i), 16, 29)
	shifted := raw << 2
	// Sign-extend from bit 15 of the 16-bit (raw<<2) quantity.
	if shifted&0x8000 != 0 {
		return int32(shifted) - 0x10000
	}
	return int32(shifted)
}

// LIOffset returns the signed byte displacement encoded by an I-form
// instruction's LI field (bits 6-29, 24-bit field shifted left 2).
func (i Instruction) LIOffset() int32 {
	raw := field(uint32(i), 6, 29)
	shifted := raw << 2
	if shifted&0x2000000 != 0 {
		return int32(shifted) - 0x4000000
	}
	return int32(shifted)
}

// VA, VB, VC, VD return the four VMX-form register fields -- same bit
// ranges as RD/RA/RB/RC, aliased for readability at vector lifter call
// sites.
func (i Instruction) VD() uint32 { return i.RD() }
func (i Instruction) VA() uint32 { return i.RA() }
func (i Instruction) VB() uint32 { return i.RB() }
func (i Instruction) VC() uint32 { return i.RC() }
