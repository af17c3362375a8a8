package runtime

import (
	"runtime"
	"sync"
)

// EntryStatus is the compile-state a code-cache Entry moves through.
type EntryStatus int

const (
	EntryNew EntryStatus = iota
	EntryCompiling
	EntryReady
	EntryFailed
)

// Entry records the compiled-code placement for one guest address range.
type Entry struct {
	Address    uint64
	EndAddress uint64
	Status     EntryStatus
	Function   *Function
}

// EntryTable maps guest entry-point addresses to Entries, serializing
// concurrent compilation requests for the same address so only one
// goroutine ever compiles a given function: a second caller spins until
// the first finishes, exactly as the original's GetOrCreate does with a
// mutex and a Sleep(0) busy-wait loop.
type EntryTable struct {
	mu sync.Mutex
	m  map[uint64]*Entry
}

// NewEntryTable returns an empty table.
func NewEntryTable() *EntryTable {
	return &EntryTable{m: make(map[uint64]*Entry)}
}

// Get returns the entry at address if it is ready, or nil otherwise --
// callers looking to execute already-compiled code use this, never
// GetOrCreate.
func (t *EntryTable) Get(address uint64) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.m[address]
	if e == nil || e.Status != EntryReady {
		return nil
	}
	return e
}

// GetOrCreate returns the existing entry at address, waiting out any
// in-progress compilation, or creates a new EntryCompiling placeholder
// and returns EntryNew so the caller knows it is responsible for
// compiling and then calling MarkReady/MarkFailed.
func (t *EntryTable) GetOrCreate(address uint64) (entry *Entry, priorStatus EntryStatus) {
	t.mu.Lock()
	e := t.m[address]
	if e != nil {
		for e.Status == EntryCompiling {
			t.mu.Unlock()
			runtime.Gosched()
			t.mu.Lock()
		}
		status := e.Status
		t.mu.Unlock()
		return e, status
	}
	e = &Entry{Address: address, Status: EntryCompiling}
	t.m[address] = e
	t.mu.Unlock()
	return e, EntryNew
}

// MarkReady attaches the compiled Function to entry and flips it ready,
// releasing any goroutine spinning on GetOrCreate.
func (t *EntryTable) MarkReady(entry *Entry, fn *Function) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry.Function = fn
	entry.Status = EntryReady
}

// MarkFailed flips entry to EntryFailed, releasing any spinning waiter
// with a state that tells them not to retry compilation themselves.
func (t *EntryTable) MarkFailed(entry *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry.Status = EntryFailed
}

// FindWithAddress returns every ready Function whose [Address,EndAddress)
// range contains address -- the reverse lookup original_source uses for
// symbolicating a return address during a crash/backtrace.
func (t *EntryTable) FindWithAddress(address uint64) []*Function {
	t.mu.Lock()
	defer t.mu.Unlock()
	var found []*Function
	for _, e := range t.m {
		if e.Status != EntryReady {
			continue
		}
		if address >= e.Address && address < e.EndAddress {
			found = append(found, e.Function)
		}
	}
	return found
}
