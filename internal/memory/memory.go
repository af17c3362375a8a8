// Package memory implements the guest's flat, byte-addressable address
// space: a single host virtual-memory reservation whose base (membase) is
// the translation anchor for every guest pointer the frontend and backend
// deal with. Ground truth for the mmap-a-big-region-up-front idiom:
// hotreload_unix.go's AllocateExecutablePage, generalized from a
// per-function code page to one large reservation and from raw
// syscall.Syscall6 to golang.org/x/sys/unix (the teacher's own dependency,
// already used for inotify in filewatcher_unix.go).
package memory

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultSize is the guest address space size reserved by New when the
// caller does not specify one: 512 MiB, the low end of spec.md §4.2's
// 512 MiB-4 GiB range.
const DefaultSize = 512 * 1024 * 1024

// Memory owns the host reservation backing every guest address.
// host = membase + guest, computed once and baked in by the backend as an
// immediate (spec.md's stable-for-process-lifetime invariant).
type Memory struct {
	region []byte

	// reserveAddress/reserveValue back lwarx/stwcx.: the address last
	// reserved by a load-and-reserve and the 32-bit value observed
	// there at reservation time. Colocated here per spec.md §4.2 rather
	// than on ppc.Context, since Context only carries their byte
	// offsets for HIR load/store keying -- the live values belong to
	// whichever Memory backs a given thread.
	reserveAddress uint64
	reserveValue   uint64
}

// New reserves a size-byte guest address space. size is rounded up to the
// host page size by the underlying mmap call.
func New(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultSize
	}
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("memory: reserve %d bytes: %w", size, err)
	}
	return &Memory{region: region}, nil
}

// Close releases the host reservation. Not safe to call while any guest
// pointer derived from Membase is still in use.
func (m *Memory) Close() error {
	if m.region == nil {
		return nil
	}
	err := unix.Munmap(m.region)
	m.region = nil
	return err
}

// Membase returns the host address at which guest address 0 resides.
func (m *Memory) Membase() uintptr {
	if len(m.region) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&m.region[0]))
}

// Translate returns the size-byte host slice backing guest[addr:addr+size).
// It panics on an out-of-range access -- guest code reaching one is
// already a runtime error the caller's trap handler should have caught
// before ever calling Translate.
func (m *Memory) Translate(addr uint32, size int) []byte {
	end := uint64(addr) + uint64(size)
	if end > uint64(len(m.region)) {
		panic(fmt.Sprintf("memory: guest access [%#x, %#x) out of range (region size %d)", addr, end, len(m.region)))
	}
	return m.region[addr : uint64(addr)+uint64(size)]
}

// Zero fills guest[addr:addr+size) with zero bytes.
func (m *Memory) Zero(addr uint32, size int) {
	dst := m.Translate(addr, size)
	for i := range dst {
		dst[i] = 0
	}
}

// Fill writes value to every byte in guest[addr:addr+size).
func (m *Memory) Fill(addr uint32, size int, value byte) {
	dst := m.Translate(addr, size)
	for i := range dst {
		dst[i] = value
	}
}

// Copy copies size bytes from guest[src:src+size) to guest[dst:dst+size).
// Ranges may overlap; Go's copy handles that correctly for a single slice
// backing store.
func (m *Memory) Copy(dst, src uint32, size int) {
	dstSlice := m.Translate(dst, size)
	srcSlice := m.Translate(src, size)
	copy(dstSlice, srcSlice)
}

// SearchAligned scans guest[start:end) at 4-byte alignment for the first
// occurrence of needle (itself required to be a multiple of 4 bytes long),
// returning its guest address or (0, false) if not found.
func (m *Memory) SearchAligned(start, end uint32, needle []byte) (uint32, bool) {
	if len(needle) == 0 || len(needle)%4 != 0 {
		return 0, false
	}
	region := m.Translate(start, int(end-start))
	for off := 0; off+len(needle) <= len(region); off += 4 {
		if bytesEqual(region[off:off+len(needle)], needle) {
			return start + uint32(off), true
		}
	}
	return 0, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReserveAddress returns the address last reserved by LoadAndReserve.
func (m *Memory) ReserveAddress() uint64 { return m.reserveAddress }

// ReserveValue returns the 32-bit value observed at ReserveAddress when it
// was reserved.
func (m *Memory) ReserveValue() uint64 { return m.reserveValue }

// LoadAndReserve reads a big-endian 32-bit word from addr and records the
// reservation, backing the PPC lwarx instruction.
func (m *Memory) LoadAndReserve(addr uint32) uint32 {
	b := m.Translate(addr, 4)
	val := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	m.reserveAddress = uint64(addr)
	m.reserveValue = uint64(val)
	return val
}

// StoreConditional implements stwcx.: if addr still matches the live
// reservation and the memory there still holds the reserved value, writes
// newVal (big-endian) and reports success. Otherwise the reservation is
// cleared and the call reports failure without writing.
func (m *Memory) StoreConditional(addr uint32, newVal uint32) bool {
	if m.reserveAddress != uint64(addr) {
		m.reserveAddress = 0
		return false
	}
	b := m.Translate(addr, 4)
	cur := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	if cur != uint32(m.reserveValue) {
		m.reserveAddress = 0
		return false
	}
	b[0] = byte(newVal >> 24)
	b[1] = byte(newVal >> 16)
	b[2] = byte(newVal >> 8)
	b[3] = byte(newVal)
	m.reserveAddress = 0
	return true
}
