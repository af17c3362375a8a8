package ppc

import "testing"

// encodeBForm builds a primary-opcode-16 (bc) instruction word.
func encodeBForm(bo, bi uint32, bd int32, aa, lk bool) Instruction {
	w := (uint32(16) << 26) | (bo << 21) | (bi << 16) | ((uint32(bd/4) & 0x3fff) << 2)
	if aa {
		w |= 1 << 1
	}
	if lk {
		w |= 1
	}
	return Instruction(w)
}

// encodeXLReturn builds a plain `blr` (bclr, BO=always, LK=0).
func encodeXLReturn() Instruction {
	w := (uint32(19) << 26) | (boAlways << 21) | (16 << 1)
	return Instruction(w)
}

func encodeNop() Instruction {
	return Instruction(uint32(24) << 26) // ori r0, r0, 0
}

func TestScanStraightLineFunctionEndsAtReturn(t *testing.T) {
	code := map[uint32]Instruction{
		0x1000: Instruction(0), // nop-shaped ordinary instruction
		0x1004: encodeXLReturn(),
	}
	read := func(addr uint32) (Instruction, bool) {
		i, ok := code[addr]
		return i, ok
	}

	blocks, end, err := Scan(read, 0x1000)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if end != 0x1008 {
		t.Fatalf("end = %#x, want 0x1008", end)
	}
	if len(blocks) != 1 || blocks[0].Start != 0x1000 {
		t.Fatalf("blocks = %+v, want one block starting at 0x1000", blocks)
	}
}

func TestScanConditionalBranchDiscoversBothTargets(t *testing.T) {
	// 0x2000: bc (true, cr0 eq) -> 0x2010
	// 0x2004: nop (fallthrough)
	// 0x2008: blr
	// 0x2010: blr (branch target)
	code := map[uint32]Instruction{
		0x2000: encodeBForm(boTrue, 2, 0x10, false, false),
		0x2004: encodeNop(),
		0x2008: encodeXLReturn(),
		0x2010: encodeXLReturn(),
	}
	read := func(addr uint32) (Instruction, bool) {
		i, ok := code[addr]
		return i, ok
	}

	blocks, _, err := Scan(read, 0x2000)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	starts := map[uint32]bool{}
	for _, blk := range blocks {
		starts[blk.Start] = true
	}
	if !starts[0x2000] || !starts[0x2004] || !starts[0x2010] {
		t.Fatalf("blocks = %+v, missing an expected start", blocks)
	}
}
