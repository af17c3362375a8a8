// Package cerrors implements this core's error taxonomy and collector,
// ported from the teacher's errors.go: same leveled/categorized
// CompilerError shape and ErrorCollector.ShouldStop early-exit idiom,
// recategorized from source-language concerns (Syntax/Semantic/Codegen/
// Internal) to this domain's four categories (spec.md §7): Decode errors
// never stop the pipeline (they lower to a guest trap), Compile/Runtime/
// Resource errors are fatal and propagate a Status to Execute's caller.
package cerrors

import (
	"fmt"
	"strings"
)

// Category classifies what stage produced an error, per spec.md §7.
type Category int

const (
	// CategoryDecode marks a PPC instruction the frontend could not
	// lift; never fatal, always resolved by lowering the offending
	// instruction to a trap (spec.md §4.4).
	CategoryDecode Category = iota
	// CategoryCompile marks a failure in the HIR optimizer or backend
	// assembler -- a miscompiled function, fatal to that function's
	// translation.
	CategoryCompile
	// CategoryRuntime marks a failure while executing compiled code
	// (an unhandled trap, an out-of-range guest memory access).
	CategoryRuntime
	// CategoryResource marks exhaustion of a fixed resource (code cache
	// space, guest address space, spill-slot budget).
	CategoryResource
)

func (c Category) String() string {
	switch c {
	case CategoryDecode:
		return "decode"
	case CategoryCompile:
		return "compile"
	case CategoryRuntime:
		return "runtime"
	case CategoryResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Level is the error's severity.
type Level int

const (
	LevelWarning Level = iota
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Location pinpoints a guest address (and, for compile errors, the HIR
// instruction id) an error concerns -- the domain analog of the
// teacher's file:line:column SourceLocation.
type Location struct {
	GuestAddress uint64
	FunctionName string
	InstrID      int
}

func (l Location) String() string {
	if l.FunctionName == "" {
		return fmt.Sprintf("%#010x", l.GuestAddress)
	}
	return fmt.Sprintf("%s@%#010x (instr %d)", l.FunctionName, l.GuestAddress, l.InstrID)
}

// CompilerError is one diagnostic: leveled, categorized, located.
type CompilerError struct {
	Level    Level
	Category Category
	Message  string
	Location Location
}

func (e CompilerError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Level, e.Message)
}

// Format renders a multi-line, human-readable diagnostic.
func (e CompilerError) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]: %s\n", e.Level, e.Category, e.Message)
	fmt.Fprintf(&sb, "  --> %s\n", e.Location)
	return sb.String()
}

// Collector accumulates diagnostics across one function's translation,
// mirroring the teacher's ErrorCollector.ShouldStop idiom: decode-level
// warnings accumulate freely, but a fatal error should abort translation
// of the current function immediately rather than continuing to compile
// against a state already known to be wrong.
type Collector struct {
	errs []CompilerError
}

// Add records an error and returns it for convenient chaining into a
// function return.
func (c *Collector) Add(e CompilerError) CompilerError {
	c.errs = append(c.errs, e)
	return e
}

// ShouldStop reports whether any recorded error is fatal.
func (c *Collector) ShouldStop() bool {
	for _, e := range c.errs {
		if e.Level == LevelFatal {
			return true
		}
	}
	return false
}

// Errors returns every diagnostic recorded so far, in order.
func (c *Collector) Errors() []CompilerError {
	out := make([]CompilerError, len(c.errs))
	copy(out, c.errs)
	return out
}

// HasErrors reports whether any Error-or-above diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	for _, e := range c.errs {
		if e.Level >= LevelError {
			return true
		}
	}
	return false
}
