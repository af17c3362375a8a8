// Package codecache manages the executable host memory that holds
// compiled x64 machine code. It mirrors original_source's
// X64CodeCache/X64CodeChunk pair -- a mutex-protected list of fixed-size
// chunks, each carved up bump-allocator style as functions are placed --
// but the host region is reserved read-write and flipped to read-execute
// with golang.org/x/sys/unix.Mprotect rather than requested executable up
// front, since Go's own runtime reserves W^X regions the same way.
package codecache

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/xyproto/dbtcore/internal/backend"
)

// DefaultChunkSize matches original_source's X64CodeCache::DEFAULT_CHUNK_SIZE.
const DefaultChunkSize = 4 * 1024 * 1024

// Placement is the stable handle PlaceCode hands back: the code's host
// address, length, and the unwind metadata a caller needs to walk the
// stack through it.
type Placement struct {
	Address uintptr
	Bytes   []byte
	Unwind  backend.UnwindDescriptor
}

type chunk struct {
	region []byte
	offset int
}

// Cache is a mutex-serialized, append-only allocator over one or more
// mmap'd chunks, each independently protected PROT_READ|PROT_EXEC once
// its bytes are written.
type Cache struct {
	mu         sync.Mutex
	chunkSize  int
	chunks     []*chunk
	placements []*Placement
}

// New returns an empty cache using chunkSize-byte chunks (DefaultChunkSize
// if chunkSize <= 0).
func New(chunkSize int) *Cache {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Cache{chunkSize: chunkSize}
}

// PlaceCode copies code into the cache's current chunk (allocating a new
// one if it doesn't fit), protects the now-written bytes executable, and
// returns a stable Placement. The returned Placement.Bytes aliases the
// cache's own backing storage; callers must not hold onto it past a Close.
func (c *Cache) PlaceCode(code backend.Code) (*Placement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := len(code.Bytes)
	if size == 0 {
		return nil, fmt.Errorf("codecache: refusing to place zero-length code")
	}
	ch := c.activeChunk(size)
	if ch == nil {
		newChunk, err := c.allocateChunk(size)
		if err != nil {
			return nil, err
		}
		c.chunks = append(c.chunks, newChunk)
		ch = newChunk
	}

	if ch.offset > 0 {
		// An earlier placement left the chunk read-execute; make it
		// writable again without dropping execute, so code already placed
		// in it stays runnable while the new bytes are copied in.
		if err := unix.Mprotect(ch.region, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
			return nil, fmt.Errorf("codecache: mprotect chunk writable: %w", err)
		}
	}
	dst := ch.region[ch.offset : ch.offset+size]
	copy(dst, code.Bytes)
	// mprotect operates on whole pages, so re-protect the chunk's full
	// mmap'd region (already page-aligned/page-sized) rather than the
	// sub-slice just written.
	if err := unix.Mprotect(ch.region, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return nil, fmt.Errorf("codecache: mprotect chunk executable: %w", err)
	}
	ch.offset += size

	p := &Placement{
		Address: uintptr(unsafe.Pointer(&dst[0])),
		Bytes:   dst,
		Unwind:  code.Unwind,
	}
	c.placements = append(c.placements, p)
	return p, nil
}

// activeChunk returns the last chunk if it has room for size more bytes,
// or nil if a new chunk must be allocated.
func (c *Cache) activeChunk(size int) *chunk {
	if len(c.chunks) == 0 {
		return nil
	}
	last := c.chunks[len(c.chunks)-1]
	if last.offset+size > len(last.region) {
		return nil
	}
	return last
}

func (c *Cache) allocateChunk(minSize int) (*chunk, error) {
	size := c.chunkSize
	if minSize > size {
		size = minSize
	}
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("codecache: reserving a %d-byte chunk: %w", size, err)
	}
	return &chunk{region: region}, nil
}

// Close unmaps every chunk. Not safe to call while any placed code might
// still be executing.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, ch := range c.chunks {
		if err := unix.Munmap(ch.region); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.chunks = nil
	return firstErr
}

// Placements returns every Placement made so far, in allocation order.
func (c *Cache) Placements() []*Placement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Placement, len(c.placements))
	copy(out, c.placements)
	return out
}
