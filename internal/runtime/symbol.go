// Package runtime ties the compiled pieces together: a Module owns the
// symbol table for one guest image, an EntryTable maps guest addresses to
// compiled Functions with a Compiling/Ready state machine, and a
// ThreadState carries one guest thread's PPCContext and guest stack.
// Grounded on original_source/src/alloy/runtime/{symbol_info,entry_table,
// function,module,thread_state}.{h,cc}.
package runtime

// SymbolType distinguishes a function symbol from a data symbol.
type SymbolType int

const (
	SymbolFunction SymbolType = iota
	SymbolVariable
)

// SymbolStatus tracks how far along a symbol's declare/define lifecycle
// is, mirroring the original's SymbolInfo::Status (Declaring/Declared/
// Defining/Defined/Failed).
type SymbolStatus int

const (
	StatusDeclaring SymbolStatus = iota
	StatusDeclared
	StatusDefining
	StatusDefined
	StatusFailed
)

// SymbolInfo is the common header shared by FunctionInfo and VariableInfo.
type SymbolInfo struct {
	Type    SymbolType
	Status  SymbolStatus
	Module  *Module
	Address uint64
	Name    string
}

// symbolEntry is implemented by *FunctionInfo and *VariableInfo so a
// Module's symbol map can hold either behind one interface, recovering
// the concrete type via a type switch rather than an unsafe cast.
type symbolEntry interface {
	header() *SymbolInfo
}

func (fi *FunctionInfo) header() *SymbolInfo { return &fi.SymbolInfo }
func (vi *VariableInfo) header() *SymbolInfo { return &vi.SymbolInfo }

// FunctionBehavior distinguishes a normal lifted function from an extern
// (host-implemented) one, per the original's BEHAVIOR_DEFAULT/
// BEHAVIOR_EXTERN split.
type FunctionBehavior int

const (
	BehaviorDefault FunctionBehavior = iota
	BehaviorExtern
)

// ExternHandler is a host-implemented function body, invoked instead of
// compiled guest code when Behavior is BehaviorExtern.
type ExternHandler func(ts *ThreadState) error

// FunctionInfo describes one guest function: its address range, whether
// it is lifted or extern, and (once compiled) the Function that runs it.
type FunctionInfo struct {
	SymbolInfo
	EndAddress uint64
	Behavior   FunctionBehavior
	Extern     ExternHandler
	Function   *Function
}

// NewFunctionInfo returns a FunctionInfo in StatusDefining, matching the
// original's constructor-time default.
func NewFunctionInfo(mod *Module, address uint64) *FunctionInfo {
	return &FunctionInfo{
		SymbolInfo: SymbolInfo{Type: SymbolFunction, Status: StatusDefining, Module: mod, Address: address},
	}
}

// SetupExtern marks fi as host-implemented, to be invoked via handler
// instead of compiled through the pipeline.
func (fi *FunctionInfo) SetupExtern(handler ExternHandler) {
	fi.Behavior = BehaviorExtern
	fi.Extern = handler
}

// VariableInfo describes one guest data symbol (an exported global, a
// relocation target) with no associated compiled code.
type VariableInfo struct {
	SymbolInfo
}

// NewVariableInfo returns a VariableInfo in StatusDefining.
func NewVariableInfo(mod *Module, address uint64) *VariableInfo {
	return &VariableInfo{SymbolInfo{Type: SymbolVariable, Status: StatusDefining, Module: mod, Address: address}}
}
