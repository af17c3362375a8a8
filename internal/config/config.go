// Package config parses the six flags spec.md §6 names, reading each
// from the environment first and letting an explicit CLI flag override
// it -- the teacher's own env.v2 dependency provides exactly this
// fallback idiom (env-first, flag-overrides-env), already present in
// go.mod though unexercised by any teacher source file; this package is
// its first consumer.
package config

import (
	"flag"

	"github.com/xyproto/env/v2"
)

// Options holds the six recognised toggles/paths from spec.md §6.
type Options struct {
	Debug              bool
	AlwaysDisasm       bool
	ValidateHIR        bool
	BreakOnInstruction uint64
	BreakOnMemory      uint64
	TraceFile          string
}

// Default returns the environment-derived defaults, before any CLI flag
// override is applied.
func Default() Options {
	return Options{
		Debug:              env.Bool("DBTCORE_DEBUG"),
		AlwaysDisasm:       env.Bool("DBTCORE_ALWAYS_DISASM"),
		ValidateHIR:        env.Bool("DBTCORE_VALIDATE_HIR"),
		BreakOnInstruction: uint64(env.Int64("DBTCORE_BREAK_ON_INSTRUCTION")),
		BreakOnMemory:      uint64(env.Int64("DBTCORE_BREAK_ON_MEMORY")),
		TraceFile:          env.Str("DBTCORE_TRACE_FILE"),
	}
}

// RegisterFlags wires o's fields to a flag.FlagSet, so a CLI invocation
// overrides whatever the environment supplied as a starting default.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&o.Debug, "debug", o.Debug, "enable verbose diagnostic logging")
	fs.BoolVar(&o.AlwaysDisasm, "always_disasm", o.AlwaysDisasm, "always log backend disassembly, even without -debug")
	fs.BoolVar(&o.ValidateHIR, "validate_hir", o.ValidateHIR, "fail a scenario whose HIR has Validation errors (the pass itself always runs)")
	fs.Uint64Var(&o.BreakOnInstruction, "break_on_instruction", o.BreakOnInstruction, "guest instruction address to break on (parsed and stored only; nothing reads it and no trap is inserted)")
	fs.Uint64Var(&o.BreakOnMemory, "break_on_memory", o.BreakOnMemory, "guest memory address to watch (parsed and stored only; nothing reads it and no access check is inserted)")
	fs.StringVar(&o.TraceFile, "trace_file", o.TraceFile, "path to write the tracing channel's event log (empty disables tracing)")
}

// Parse builds Options from environment defaults overridden by args
// (typically os.Args[1:]).
func Parse(fs *flag.FlagSet, args []string) (Options, error) {
	o := Default()
	o.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	return o, nil
}
