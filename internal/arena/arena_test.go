package arena

import "testing"

func TestAllocAdvancesOffset(t *testing.T) {
	a := New(64)
	p1 := a.Alloc(8, 8)
	p2 := a.Alloc(8, 8)
	if len(p1) != 8 || len(p2) != 8 {
		t.Fatalf("unexpected slice lengths: %d, %d", len(p1), len(p2))
	}
	p1[0] = 1
	if p2[0] == 1 {
		t.Fatalf("allocations overlap")
	}
}

func TestAllocSpillsIntoNewChunk(t *testing.T) {
	a := New(16)
	a.Alloc(12, 1)
	p := a.Alloc(12, 1)
	if len(p) != 12 {
		t.Fatalf("expected 12 byte allocation from new chunk, got %d", len(p))
	}
	if a.head == a.active {
		t.Fatalf("expected a second chunk to have been allocated")
	}
}

func TestResetRewindsWithoutFreeing(t *testing.T) {
	a := New(64)
	first := a.Alloc(8, 8)
	a.Reset()
	second := a.Alloc(8, 8)
	if &first[0] != &second[0] {
		t.Fatalf("expected Reset to reuse the same backing chunk")
	}
}

func TestCloneContentsFlattensChunks(t *testing.T) {
	a := New(8)
	b1 := a.Alloc(8, 1)
	copy(b1, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	b2 := a.Alloc(4, 1)
	copy(b2, []byte{9, 10, 11, 12})

	clone := a.CloneContents()
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if len(clone) != len(want) {
		t.Fatalf("clone length = %d, want %d", len(clone), len(want))
	}
	for i := range want {
		if clone[i] != want[i] {
			t.Fatalf("clone[%d] = %d, want %d", i, clone[i], want[i])
		}
	}
}

func TestAllocLargerThanChunkPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for oversized allocation")
		}
	}()
	a := New(16)
	a.Alloc(32, 1)
}
