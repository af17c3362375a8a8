package main

// Tiny PPC instruction-word encoder, the inverse of internal/ppc/decode.go's
// field() bit extraction: each helper below packs a value into the same
// [first,last] bit range (bit 0 is the architectural MSB) that decode.go
// reads back out. This exists only so the demo scenarios below can be
// written as guest instruction words instead of hand-built HIR, matching
// how a real guest image arrives -- as bytes, not as pre-lifted IR.

func setField(word uint32, first, last int, value uint32) uint32 {
	nbits := last - first + 1
	shift := uint(31 - last)
	mask := uint32(1)<<uint(nbits) - 1
	return word | (value&mask)<<shift
}

func dform(primary, rd, ra uint32, imm int32) uint32 {
	w := setField(0, 0, 5, primary)
	w = setField(w, 6, 10, rd)
	w = setField(w, 11, 15, ra)
	w = setField(w, 16, 31, uint32(uint16(imm)))
	return w
}

func xform(primary, rd, ra, rb, xop uint32, rc bool) uint32 {
	w := setField(0, 0, 5, primary)
	w = setField(w, 6, 10, rd)
	w = setField(w, 11, 15, ra)
	w = setField(w, 16, 20, rb)
	w = setField(w, 21, 30, xop)
	if rc {
		w = setField(w, 31, 31, 1)
	}
	return w
}

// bcform encodes a B-form bc instruction: bo/bi select the condition,
// disp is the signed, word-aligned branch displacement.
func bcform(bo, bi uint32, disp int32) uint32 {
	w := setField(0, 0, 5, 16)
	w = setField(w, 6, 10, bo)
	w = setField(w, 11, 15, bi)
	raw := uint32(disp>>2) & 0x3FFF
	w = setField(w, 16, 29, raw)
	return w
}

// vxform encodes the vpermwi-shaped instruction (primary opcode 4): vd in
// bits 6-10, and an 8-bit combined field in bits 16-23 that the lifter
// reads two overlapping ways -- as the 4x2-bit lane-selector immediate
// (vpermwiImm, bits 16-23) and, via its high 5 bits, as VB (bits 16-20,
// the source vector register). Both readings come from the same word
// bits, so a caller picks one 8-bit value and gets a consistent
// (VB, lane mask) pair as a side effect.
func vxform(vd, combinedImm uint32) uint32 {
	w := setField(0, 0, 5, 4)
	w = setField(w, 6, 10, vd)
	w = setField(w, 16, 23, combinedImm)
	return w
}

const (
	xopAdd    = 266
	xopCmpw   = 0
	xopLwarx  = 20
	xopStwcx  = 150
	boTrue    = 12
	boAlways  = 20
	opAddi    = 14
	opLwz     = 32
	opExt31   = 31
	opExtBclr = 19
	xopBclr   = 16
)

func encAdd(rd, ra, rb uint32) uint32         { return xform(opExt31, rd, ra, rb, xopAdd, false) }
func encAddi(rd, ra uint32, imm int32) uint32 { return dform(opAddi, rd, ra, imm) }
func encCmpw(crf, ra, rb uint32) uint32       { return xform(opExt31, crf<<2, ra, rb, xopCmpw, false) }
func encLwz(rd, ra uint32, disp int32) uint32 { return dform(opLwz, rd, ra, disp) }
func encLwarx(rd, ra, rb uint32) uint32       { return xform(opExt31, rd, ra, rb, xopLwarx, false) }
func encStwcx(rs, ra, rb uint32) uint32       { return xform(opExt31, rs, ra, rb, xopStwcx, true) }
func encBeqCR0(disp int32) uint32             { return bcform(boTrue, 2, disp) } // BI=2 -> cr0 EQ
func encBlr() uint32                          { return xform(opExtBclr, boAlways, 0, 0, xopBclr, false) }
func encVPermWI(vd, combinedImm uint32) uint32 { return vxform(vd, combinedImm) }
