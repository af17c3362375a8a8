package runtime

import (
	"fmt"
	"sync"
)

// Module owns the symbol table for one guest image: every declared
// function and variable, keyed by guest address, grounded on
// original_source/src/alloy/runtime/module.h.
type Module struct {
	Name      string
	Processor *Processor

	mu   sync.Mutex
	syms map[uint64]symbolEntry
}

// NewModule returns an empty module named name, attached to proc.
func NewModule(proc *Processor, name string) *Module {
	return &Module{Name: name, Processor: proc, syms: make(map[uint64]symbolEntry)}
}

// ContainsAddress reports whether any declared symbol starts at
// address; modules with a known image base/size override this in
// spirit by declaring every address within range up front.
func (m *Module) ContainsAddress(address uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.syms[address]
	return ok
}

// LookupSymbol returns the symbol header declared at address, or nil.
func (m *Module) LookupSymbol(address uint64) *SymbolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.syms[address]
	if !ok {
		return nil
	}
	return e.header()
}

// DeclareFunction returns the FunctionInfo at address, creating one in
// StatusDeclared if none exists yet. The returned status is the symbol's
// state *before* this call, so a caller can tell "already being defined
// by someone else" from "I must define this now".
func (m *Module) DeclareFunction(address uint64) (*FunctionInfo, SymbolStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.syms[address]; ok {
		fi, ok := existing.(*FunctionInfo)
		if !ok {
			fi = NewFunctionInfo(m, address)
		}
		return fi, fi.Status
	}
	fi := NewFunctionInfo(m, address)
	fi.Status = StatusDeclared
	m.syms[address] = fi
	return fi, StatusDeclaring
}

// DeclareVariable returns the VariableInfo at address, creating one in
// StatusDeclared if none exists yet.
func (m *Module) DeclareVariable(address uint64) (*VariableInfo, SymbolStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.syms[address]; ok {
		vi, ok := existing.(*VariableInfo)
		if !ok {
			vi = NewVariableInfo(m, address)
		}
		return vi, vi.Status
	}
	vi := NewVariableInfo(m, address)
	vi.Status = StatusDeclared
	m.syms[address] = vi
	return vi, StatusDeclaring
}

// DefineFunction marks fi's symbol defined, attaching the now-compiled
// Function.
func (m *Module) DefineFunction(fi *FunctionInfo, fn *Function) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fi.Function = fn
	fi.Status = StatusDefined
}

// DefineVariable marks vi's symbol defined.
func (m *Module) DefineVariable(vi *VariableInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vi.Status = StatusDefined
}

// ForEachFunction calls visit once per declared function symbol, in no
// particular order -- callers that need a stable order should sort by
// Address themselves.
func (m *Module) ForEachFunction(visit func(*FunctionInfo)) {
	m.mu.Lock()
	snapshot := make([]symbolEntry, 0, len(m.syms))
	for _, e := range m.syms {
		snapshot = append(snapshot, e)
	}
	m.mu.Unlock()
	for _, e := range snapshot {
		if fi, ok := e.(*FunctionInfo); ok {
			visit(fi)
		}
	}
}

func (m *Module) String() string { return fmt.Sprintf("module %q", m.Name) }
