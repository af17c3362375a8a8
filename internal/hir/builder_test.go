package hir

import "testing"

func TestAppendBlockAndCurrentBlock(t *testing.T) {
	b := NewHIRBuilder()
	blk := b.AppendBlock()
	if b.CurrentBlock() != blk {
		t.Fatalf("CurrentBlock() = %v, want %v", b.CurrentBlock(), blk)
	}
	if len(b.Function().Blocks) != 1 {
		t.Fatalf("Blocks = %d, want 1", len(b.Function().Blocks))
	}
}

func TestAddWiresUseList(t *testing.T) {
	b := NewHIRBuilder()
	b.AppendBlock()
	x := b.I32(1)
	y := b.I32(2)
	sum := b.Add(x, y)

	if sum.Def == nil || sum.Def.Opcode != OpAdd {
		t.Fatalf("Add did not produce an OpAdd-defined value")
	}
	if x.UseCount() != 1 || y.UseCount() != 1 {
		t.Fatalf("operand use counts = %d, %d, want 1, 1", x.UseCount(), y.UseCount())
	}
	if sum.Def.Src1.Value != x || sum.Def.Src2.Value != y {
		t.Fatalf("Add operands not wired to x, y")
	}
}

func TestMarkLabelWiresFallthroughEdge(t *testing.T) {
	b := NewHIRBuilder()
	entry := b.AppendBlock()
	l := b.Label("next")
	next := b.MarkLabel(l)

	if len(entry.Out) != 1 || entry.Out[0].Dst != next {
		t.Fatalf("fallthrough edge not wired from entry to next")
	}
	if len(next.In) != 1 || next.In[0].Src != entry {
		t.Fatalf("fallthrough edge not recorded on next.In")
	}
}

func TestBranchTrueWiresEdgeWhenTargetKnown(t *testing.T) {
	b := NewHIRBuilder()
	entry := b.AppendBlock()
	target := b.Label("target")
	targetBlock := b.MarkLabel(target)
	b.cur = entry // rewind cursor to branch from entry, not from targetBlock

	cond := b.I8(1)
	b.BranchTrue(cond, target)

	found := false
	for _, e := range entry.Out {
		if e.Dst == targetBlock {
			found = true
		}
	}
	if !found {
		t.Fatalf("BranchTrue did not wire an edge from entry to target")
	}
}

func TestLoadStoreRoundTripBigEndian(t *testing.T) {
	b := NewHIRBuilder()
	b.AppendBlock()
	addr := b.I32(0x1000)
	val := b.I32(0x2A)
	storeInstr := b.Store(addr, val, BigEndian)
	if !storeInstr.IsBigEndian() {
		t.Fatalf("Store did not set the big-endian flag")
	}

	loaded := b.Load(addr, TypeI32, BigEndian)
	if !loaded.Def.IsBigEndian() {
		t.Fatalf("Load did not set the big-endian flag")
	}
	if loaded.Type != TypeI32 {
		t.Fatalf("Load dest type = %v, want TypeI32", loaded.Type)
	}
}

func TestVectorSwizzleRoundTrip(t *testing.T) {
	b := NewHIRBuilder()
	b.AppendBlock()
	v := b.Vec128(10, 20, 30, 40)
	swz := b.VectorSwizzle(v, [4]byte{3, 2, 1, 0})

	if swz.Def.Opcode != OpVectorSwizzle {
		t.Fatalf("VectorSwizzle produced opcode %v", swz.Def.Opcode)
	}
	if swz.Def.Src2.Offset != 0x00010203 {
		t.Fatalf("swizzle mask encoded as %#x", swz.Def.Src2.Offset)
	}
}

func TestAtomicCompareExchangeIsVolatile(t *testing.T) {
	b := NewHIRBuilder()
	b.AppendBlock()
	addr := b.I32(0x2000)
	expected := b.I32(0)
	newVal := b.I32(1)
	result := b.AtomicCompareExchange(addr, expected, newVal)

	if !result.Def.IsVolatile() {
		t.Fatalf("AtomicCompareExchange instruction must be volatile")
	}
	if result.Type != TypeI8 {
		t.Fatalf("AtomicCompareExchange result type = %v, want TypeI8", result.Type)
	}
}

func TestResetRewindsCounters(t *testing.T) {
	b := NewHIRBuilder()
	b.AppendBlock()
	b.I32(1)
	b.Reset()
	if b.valueSeq != 0 || b.instrSeq != 0 || b.blockSeq != 0 {
		t.Fatalf("Reset did not rewind counters")
	}
	if len(b.Function().Blocks) != 0 {
		t.Fatalf("Reset did not discard previous function's blocks")
	}
}
