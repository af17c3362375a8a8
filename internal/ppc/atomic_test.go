package ppc_test

import (
	"testing"

	"github.com/xyproto/dbtcore/internal/backend/ivm"
	"github.com/xyproto/dbtcore/internal/hir"
	"github.com/xyproto/dbtcore/internal/memory"
	"github.com/xyproto/dbtcore/internal/ppc"
)

// Extended opcodes of lwarx and stwcx. under primary opcode 31, the same
// values atomic.go registers.
const (
	xopLwarx = 20
	xopStwcx = 150
)

// encodeX packs an X-form instruction word (opcode 31's RD/RA/RB/xop/Rc
// layout) the way cmd/dbtcore/asm.go's xform does, without exporting that
// helper outside its package.
func encodeX(rd, ra, rb, xop uint32, rc bool) ppc.Instruction {
	w := uint32(31)<<26 | rd<<21 | ra<<16 | rb<<11 | xop<<1
	if rc {
		w |= 1
	}
	return ppc.Instruction(w)
}

// liftLwarxStwcx lifts and runs `lwarx r3,0,r4 ; stwcx. r5,0,r6`, reserving
// reserveAddr and then attempting to conditionally store to storeAddr.
// Both addresses are seeded with memInit, so a mismatched storeAddr still
// holds a value equal to the reservation -- the exact condition under
// which a value-only CAS would wrongly report success.
func liftLwarxStwcx(t *testing.T, reserveAddr, storeAddr uint32, memInit uint32) (*ppc.Context, *memory.Memory) {
	t.Helper()

	b := hir.NewHIRBuilder()
	b.AppendBlock()
	lc := &ppc.LiftContext{}

	// lwarx r3, 0, r4
	if !ppc.Lift(b, encodeX(3, 0, 4, xopLwarx, false), 0, lc) {
		t.Fatal("lwarx: unrecognized encoding")
	}
	// stwcx. r5, 0, r6
	if !ppc.Lift(b, encodeX(5, 0, 6, xopStwcx, true), 4, lc) {
		t.Fatal("stwcx.: unrecognized encoding")
	}
	b.Return()

	ctx := &ppc.Context{}
	ctx.R[4] = uint64(reserveAddr)
	ctx.R[5] = 0xCAFEBABE
	ctx.R[6] = uint64(storeAddr)

	mem, err := memory.New(1 << 16)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}

	for _, addr := range []uint32{reserveAddr, storeAddr} {
		region := mem.Translate(addr, 4)
		region[0] = byte(memInit >> 24)
		region[1] = byte(memInit >> 16)
		region[2] = byte(memInit >> 8)
		region[3] = byte(memInit)
	}

	if err := ivm.New().Execute(b.Function(), ctx, mem); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return ctx, mem
}

func TestStwcxSucceedsWhenAddressAndValueMatchReservation(t *testing.T) {
	ctx, mem := liftLwarxStwcx(t, 0x2000, 0x2000, 7)
	defer mem.Close()

	if ctx.CR[0] != 0x02 {
		t.Fatalf("cr0 = %#02x, want 0x02 (EQ set: reservation held)", ctx.CR[0])
	}
	stored := mem.Translate(0x2000, 4)
	if stored[0] != 0xCA || stored[1] != 0xFE || stored[2] != 0xBA || stored[3] != 0xBE {
		t.Fatalf("expected the reserved value to have been stored, got % x", stored[:4])
	}
}

func TestStwcxFailsWhenEffectiveAddressDiffersFromReservation(t *testing.T) {
	ctx, mem := liftLwarxStwcx(t, 0x2000, 0x3000, 7)
	defer mem.Close()

	if ctx.CR[0] != 0 {
		t.Fatalf("cr0 = %#02x, want 0x00 (reservation must fail on address mismatch)", ctx.CR[0])
	}
	if got := ctx.ReserveAddress; got != 0 {
		t.Fatalf("expected the reservation to be cleared after stwcx., got %#x", got)
	}
	stored := mem.Translate(0x3000, 4)
	if stored[0] != 0 || stored[1] != 0 || stored[2] != 0 || stored[3] != 7 {
		t.Fatalf("expected the mismatched store address to keep its seeded value (not the stored register), got % x", stored[:4])
	}
}
