package cerrors

import (
	"fmt"
	"io"
	"os"
)

// Logger writes leveled diagnostics straight to a writer (stderr by
// default), gated by Debug/AlwaysDisasm flags -- the same
// VerboseMode-bool-plus-Fprintf idiom the teacher uses throughout
// compilation_pipeline.go/emit.go rather than a structured-logging
// library (see DESIGN.md for why none of the retrieved pack's
// dependencies fit this role).
type Logger struct {
	Out          io.Writer
	Debug        bool
	AlwaysDisasm bool
}

// NewLogger returns a Logger writing to os.Stderr.
func NewLogger(debug, alwaysDisasm bool) *Logger {
	return &Logger{Out: os.Stderr, Debug: debug, AlwaysDisasm: alwaysDisasm}
}

// Debugf writes a debug-level message only when Debug is set.
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || !l.Debug {
		return
	}
	fmt.Fprintf(l.Out, "debug: "+format+"\n", args...)
}

// Disasmf writes a disassembly-trace message only when either Debug or
// AlwaysDisasm is set -- always_disasm exists precisely to get this
// output without turning on every other debug message.
func (l *Logger) Disasmf(format string, args ...any) {
	if l == nil || !(l.Debug || l.AlwaysDisasm) {
		return
	}
	fmt.Fprintf(l.Out, "disasm: "+format+"\n", args...)
}

// Errorf always writes, regardless of flags -- errors are never opt-in.
func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.Out, "error: "+format+"\n", args...)
}
