package thunks

import "testing"

func TestHostToGuestThunkEndsInRetAndLoadsContextPointer(t *testing.T) {
	code := HostToGuestThunk(0x1000, 0x2000)
	if len(code) == 0 {
		t.Fatal("expected non-empty thunk")
	}
	if code[len(code)-1] != 0xC3 {
		t.Fatalf("expected thunk to end in ret, got %#x", code[len(code)-1])
	}
	// The context pointer load (mov r13, imm64) must appear somewhere
	// after the callee-saved pushes, encoding contextAddr's low byte.
	found := false
	for i := 0; i+9 < len(code); i++ {
		if code[i] == rex(true, false, true) && code[i+1] == 0xB8+5 { // r13 -> B8+(13&7)
			imm := uint64(0)
			for b := 0; b < 8; b++ {
				imm |= uint64(code[i+2+b]) << (8 * b)
			}
			if imm == 0x2000 {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected to find a mov r13, 0x2000 encoding in the thunk")
	}
}

func TestGuestToHostThunkPreservesContextPointerAcrossTheCall(t *testing.T) {
	code := GuestToHostThunk(0x3000)
	if code[0] != 0x41 || code[1] != 0x55 { // push r13: REX.B (0x41) + 0x50+5
		t.Fatalf("expected the thunk to begin by pushing r13, got %#x %#x", code[0], code[1])
	}
	if code[len(code)-1] != 0xC3 {
		t.Fatal("expected the thunk to end in ret")
	}
}
