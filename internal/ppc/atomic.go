package ppc

import "github.com/xyproto/dbtcore/internal/hir"

// lwarx rD, rA, rB -- primary opcode 31, extended opcode 20 (X-form):
// load word and reserve. Establishes a reservation on the effective
// address for a later stwcx. to test.
const xopLwarx = 20

func liftLwarx(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	addr := indexedAddress(b, instr)
	val := b.Load(addr, hir.TypeI32, hir.BigEndian)
	wide := b.ZeroExtend(val, hir.TypeI64)
	b.StoreContext(RegOffset(int(instr.RD())), wide)
	b.StoreContext(OffsetReserveAddress, addr)
	b.StoreContext(OffsetReserveValue, wide)
	return true
}

// stwcx. rS, rA, rB -- primary opcode 31, extended opcode 150 (X-form):
// store word conditional. Always records Rc=1 (the "." is not optional on
// this mnemonic): cr0's EQ bit reports success, LT/GT/SO are cleared.
const xopStwcx = 150

// liftStwcx lowers stwcx., which must fail -- without writing memory --
// whenever its effective address no longer matches the address lwarx
// reserved, in addition to the usual value-CAS failure. The address
// check is folded into the CAS itself: toStore is forced back to
// expected (a guaranteed no-op write) when the address doesn't match,
// so the underlying AtomicCompareExchange never observes a mismatched
// reservation as an opportunity to write, and the final success flag is
// And'd against the address check so a value that happens to already
// equal expected can't masquerade as a held reservation.
func liftStwcx(b *hir.HIRBuilder, instr Instruction, cia uint32, lc *LiftContext) bool {
	addr := indexedAddress(b, instr)
	rs := b.LoadContext(RegOffset(int(instr.RS())), hir.TypeI64)
	narrow := b.Truncate(rs, hir.TypeI32)

	reserveAddr := b.LoadContext(OffsetReserveAddress, hir.TypeI64)
	addrMatches := b.CmpEq(reserveAddr, addr)

	reserveVal := b.LoadContext(OffsetReserveValue, hir.TypeI64)
	expected := b.Truncate(reserveVal, hir.TypeI32)

	toStore := b.Select(addrMatches, narrow, expected)
	exchanged := b.AtomicCompareExchange(addr, expected, toStore)
	success := b.And(addrMatches, exchanged)

	b.StoreContext(OffsetReserveAddress, b.I64(0))

	packed := b.Shl(success, b.I8(1))
	b.StoreContext(CRFieldOffset(0), packed)
	return true
}

// indexedAddress computes rA + rB for an X-form indexed load/store,
// treating rA == 0 as a literal zero base.
func indexedAddress(b *hir.HIRBuilder, instr Instruction) *hir.Value {
	rb := b.LoadContext(RegOffset(int(instr.RB())), hir.TypeI64)
	if instr.RA() == 0 {
		return rb
	}
	ra := b.LoadContext(RegOffset(int(instr.RA())), hir.TypeI64)
	return b.Add(ra, rb)
}

func init() {
	registerExtended31(xopLwarx, liftLwarx)
	registerExtended31(xopStwcx, liftStwcx)
}
