package codecache

import (
	"testing"

	"github.com/xyproto/dbtcore/internal/backend"
)

func TestPlaceCodeReturnsDistinctAddressesWithinAChunk(t *testing.T) {
	c := New(0)
	defer c.Close()

	a, err := c.PlaceCode(backend.Code{Bytes: []byte{0xC3}})
	if err != nil {
		t.Fatalf("PlaceCode: %v", err)
	}
	b, err := c.PlaceCode(backend.Code{Bytes: []byte{0x90, 0xC3}})
	if err != nil {
		t.Fatalf("PlaceCode: %v", err)
	}
	if a.Address == b.Address {
		t.Fatal("expected distinct placements to land at distinct addresses")
	}
	if len(b.Bytes) != 2 || b.Bytes[0] != 0x90 || b.Bytes[1] != 0xC3 {
		t.Fatalf("unexpected placed bytes: %v", b.Bytes)
	}
}

func TestPlaceCodeAllocatesANewChunkWhenTheCurrentOneIsFull(t *testing.T) {
	c := New(16) // tiny chunk size to force a rollover quickly
	defer c.Close()

	for i := 0; i < 4; i++ {
		if _, err := c.PlaceCode(backend.Code{Bytes: make([]byte, 10)}); err != nil {
			t.Fatalf("PlaceCode %d: %v", i, err)
		}
	}
	if len(c.chunks) < 2 {
		t.Fatalf("expected at least 2 chunks after overflowing a 16-byte chunk size, got %d", len(c.chunks))
	}
}

func TestPlaceCodeRejectsEmptyCode(t *testing.T) {
	c := New(0)
	defer c.Close()
	if _, err := c.PlaceCode(backend.Code{}); err == nil {
		t.Fatal("expected an error placing zero-length code")
	}
}

func TestPlacementsReturnsEveryPlacement(t *testing.T) {
	c := New(0)
	defer c.Close()
	for i := 0; i < 3; i++ {
		if _, err := c.PlaceCode(backend.Code{Bytes: []byte{0xC3}}); err != nil {
			t.Fatalf("PlaceCode %d: %v", i, err)
		}
	}
	if got := len(c.Placements()); got != 3 {
		t.Fatalf("expected 3 placements, got %d", got)
	}
}
