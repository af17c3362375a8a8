package memory

import "testing"

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := New(64 * 1024)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestZeroFillCopy(t *testing.T) {
	m := newTestMemory(t)
	m.Fill(0x100, 16, 0xAB)
	dst := m.Translate(0x100, 16)
	for i, b := range dst {
		if b != 0xAB {
			t.Fatalf("byte %d = %#x, want 0xab", i, b)
		}
	}

	m.Copy(0x200, 0x100, 16)
	copied := m.Translate(0x200, 16)
	for i, b := range copied {
		if b != 0xAB {
			t.Fatalf("copied byte %d = %#x, want 0xab", i, b)
		}
	}

	m.Zero(0x100, 16)
	zeroed := m.Translate(0x100, 16)
	for i, b := range zeroed {
		if b != 0 {
			t.Fatalf("zeroed byte %d = %#x, want 0", i, b)
		}
	}
}

func TestSearchAligned(t *testing.T) {
	m := newTestMemory(t)
	needle := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	dst := m.Translate(0x1008, 4)
	copy(dst, needle)

	addr, ok := m.SearchAligned(0x1000, 0x2000, needle)
	if !ok || addr != 0x1008 {
		t.Fatalf("SearchAligned = (%#x, %v), want (0x1008, true)", addr, ok)
	}
}

func TestLwarxStwcxSuccessAndFailure(t *testing.T) {
	m := newTestMemory(t)
	dst := m.Translate(0x3000, 4)
	dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 42

	got := m.LoadAndReserve(0x3000)
	if got != 42 {
		t.Fatalf("LoadAndReserve = %d, want 42", got)
	}

	if !m.StoreConditional(0x3000, 99) {
		t.Fatalf("StoreConditional should succeed on a fresh reservation")
	}
	b := m.Translate(0x3000, 4)
	if b[3] != 99 {
		t.Fatalf("stored value = %d, want 99", b[3])
	}

	// the reservation was cleared by the successful store; a second
	// attempt without a new lwarx must fail.
	if m.StoreConditional(0x3000, 1) {
		t.Fatalf("StoreConditional should fail without a live reservation")
	}
}

func TestTranslateOutOfRangePanics(t *testing.T) {
	m := newTestMemory(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Translate to panic on out-of-range access")
		}
	}()
	m.Translate(1<<20, 4)
}
