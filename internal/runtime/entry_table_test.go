package runtime

import (
	"sync"
	"testing"
	"time"
)

func TestEntryTableGetOrCreateFirstCallerCompiles(t *testing.T) {
	tbl := NewEntryTable()
	entry, status := tbl.GetOrCreate(0x1000)
	if status != EntryNew {
		t.Fatalf("expected EntryNew for a fresh address, got %v", status)
	}
	if entry.Status != EntryCompiling {
		t.Fatalf("expected the new entry to start Compiling, got %v", entry.Status)
	}
}

func TestEntryTableGetOrCreateWaitsForCompilingEntry(t *testing.T) {
	tbl := NewEntryTable()
	entry, _ := tbl.GetOrCreate(0x2000)

	var wg sync.WaitGroup
	wg.Add(1)
	var secondStatus EntryStatus
	go func() {
		defer wg.Done()
		_, secondStatus = tbl.GetOrCreate(0x2000)
	}()

	time.Sleep(10 * time.Millisecond)
	tbl.MarkReady(entry, &Function{Address: 0x2000})
	wg.Wait()

	if secondStatus != EntryReady {
		t.Fatalf("expected the waiting caller to observe EntryReady, got %v", secondStatus)
	}
}

func TestEntryTableGetReturnsNilUntilReady(t *testing.T) {
	tbl := NewEntryTable()
	entry, _ := tbl.GetOrCreate(0x3000)
	if got := tbl.Get(0x3000); got != nil {
		t.Fatalf("expected Get to return nil while compiling, got %+v", got)
	}
	tbl.MarkReady(entry, &Function{Address: 0x3000})
	if got := tbl.Get(0x3000); got == nil {
		t.Fatal("expected Get to return the entry once ready")
	}
}

func TestEntryTableFindWithAddressMatchesRange(t *testing.T) {
	tbl := NewEntryTable()
	entry, _ := tbl.GetOrCreate(0x4000)
	entry.EndAddress = 0x4010
	fn := &Function{Address: 0x4000}
	tbl.MarkReady(entry, fn)

	found := tbl.FindWithAddress(0x4004)
	if len(found) != 1 || found[0] != fn {
		t.Fatalf("expected to find the owning function, got %+v", found)
	}
	if found := tbl.FindWithAddress(0x5000); len(found) != 0 {
		t.Fatalf("expected no match outside the range, got %+v", found)
	}
}
