// Command dbtcore is the demo entry point: it assembles a handful of
// guest PPC snippets as raw instruction words, lifts and compiles each
// one through the full pipeline, runs it against a fresh guest thread,
// and prints the resulting register state. Grounded on the teacher's
// main.go/cli.go shape -- flag-parsed options feeding a "compile one
// input, report the result" loop -- redirected at PPC snippets instead
// of Vibe67 source files.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/xyproto/dbtcore/internal/backend/ivm"
	"github.com/xyproto/dbtcore/internal/backend/x64"
	"github.com/xyproto/dbtcore/internal/cerrors"
	"github.com/xyproto/dbtcore/internal/config"
	"github.com/xyproto/dbtcore/internal/memory"
	"github.com/xyproto/dbtcore/internal/ppc"
	"github.com/xyproto/dbtcore/internal/runtime"
	"github.com/xyproto/dbtcore/internal/trace"
)

const versionString = "dbtcore 0.1.0"

// scenario is one guest snippet from spec.md §8: a name, the guest words
// it assembles to (already terminated in blr), and a setup function that
// seeds the thread's register file before Execute runs it.
type scenario struct {
	name  string
	words []uint32
	setup func(ctx *ppc.Context, mem *memory.Memory)
	show  func(ctx *ppc.Context) string
}

const scenarioBase = 0x1000

func scenarios() []scenario {
	return []scenario{
		{
			name:  "add",
			words: []uint32{encAdd(3, 4, 5), encBlr()},
			setup: func(ctx *ppc.Context, mem *memory.Memory) { ctx.R[4], ctx.R[5] = 11, 31 },
			show:  func(ctx *ppc.Context) string { return fmt.Sprintf("r3 = %d (expected 42)", ctx.R[3]) },
		},
		{
			name:  "addi",
			words: []uint32{encAddi(3, 4, 100), encBlr()},
			setup: func(ctx *ppc.Context, mem *memory.Memory) { ctx.R[4] = 42 },
			show:  func(ctx *ppc.Context) string { return fmt.Sprintf("r3 = %d (expected 142)", ctx.R[3]) },
		},
		{
			name: "cmp_beq_taken",
			// cmpw cr0, r4, r5 ; beq +8 (skip the next addi) ; addi r3,r0,1 ; addi r3,r0,2
			words: []uint32{
				encCmpw(0, 4, 5),
				encBeqCR0(8),
				encAddi(3, 0, 1),
				encAddi(3, 0, 2),
				encBlr(),
			},
			setup: func(ctx *ppc.Context, mem *memory.Memory) { ctx.R[4], ctx.R[5] = 7, 7 },
			show:  func(ctx *ppc.Context) string { return fmt.Sprintf("r3 = %d (expected 2, branch taken)", ctx.R[3]) },
		},
		{
			name:  "load_big_endian",
			words: []uint32{encLwz(3, 4, 0), encBlr()},
			setup: func(ctx *ppc.Context, mem *memory.Memory) {
				ctx.R[4] = 0x2000
				mem.Translate(0x2000, 4)[0] = 0xDE
				mem.Translate(0x2000, 4)[1] = 0xAD
				mem.Translate(0x2000, 4)[2] = 0xBE
				mem.Translate(0x2000, 4)[3] = 0xEF
			},
			show: func(ctx *ppc.Context) string { return fmt.Sprintf("r3 = %#010x (expected 0xdeadbeef)", ctx.R[3]) },
		},
		{
			name:  "lwarx_stwcx_success",
			words: []uint32{encLwarx(3, 0, 4), encStwcx(5, 0, 4), encBlr()},
			setup: func(ctx *ppc.Context, mem *memory.Memory) {
				ctx.R[4] = 0x2010
				ctx.R[5] = 0x12345678
				for i, bv := range []byte{0, 0, 0, 7} {
					mem.Translate(0x2010, 4)[i] = bv
				}
			},
			show: func(ctx *ppc.Context) string {
				return fmt.Sprintf("cr0 = %#02x (expected 0x02, EQ set: reservation held)", ctx.CR[0])
			},
		},
		{
			name:  "vector_swizzle",
			words: []uint32{encVPermWI(2, 0x1B), encBlr()}, // imm 0b00_01_10_11 -> lanes reversed
			setup: func(ctx *ppc.Context, mem *memory.Memory) {
				v := &ctx.V[int(0x1B>>3)] // VB derived from the top 5 bits of the combined immediate, per vxform
				for lane := 0; lane < 4; lane++ {
					putLE32(v[lane*4:lane*4+4], uint32(lane+1))
				}
			},
			show: func(ctx *ppc.Context) string {
				v := &ctx.V[2]
				return fmt.Sprintf("v2 lanes = [%d %d %d %d] (expected [4 3 2 1])",
					le32(v[0:4]), le32(v[4:8]), le32(v[8:12]), le32(v[12:16]))
			},
		},
	}
}

func putLE32(b []byte, x uint32) {
	b[0] = byte(x)
	b[1] = byte(x >> 8)
	b[2] = byte(x >> 16)
	b[3] = byte(x >> 24)
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func assemble(mem *memory.Memory, addr uint32, words []uint32) {
	for _, w := range words {
		dst := mem.Translate(addr, 4)
		dst[0] = byte(w >> 24)
		dst[1] = byte(w >> 16)
		dst[2] = byte(w >> 8)
		dst[3] = byte(w)
		addr += 4
	}
}

func main() {
	atexit.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("dbtcore", flag.ExitOnError)
	showVersion := fs.Bool("version", false, "print the version and exit")
	opts, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *showVersion {
		fmt.Println(versionString)
		return 0
	}

	log := cerrors.NewLogger(opts.Debug, opts.AlwaysDisasm)

	if opts.TraceFile != "" {
		f, err := os.Create(opts.TraceFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dbtcore: opening trace file: %v\n", err)
			return 1
		}
		tw, err := trace.NewWriter(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dbtcore: starting trace session: %v\n", err)
			return 1
		}
		atexit.Register(func() {
			tw.WriteEvent(trace.EventFunctionExit, 0, nil)
			f.Close()
		})
	}

	proc, err := runtime.Setup(64 * 1024 * 1024)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbtcore: %v\n", err)
		return 1
	}
	atexit.Register(func() { proc.Close() })

	info := x64.New().MachineInfo()
	interp := ivm.New()

	failures := 0
	for _, sc := range scenarios() {
		assemble(proc.Memory, scenarioBase, sc.words)

		ts := proc.NewThread(sc.name)
		sc.setup(ts.Context, proc.Memory)

		fn, _, err := liftFunction(proc.Memory, scenarioBase, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: lift failed: %v\n", sc.name, err)
			failures++
			continue
		}
		_, verrs := optimize(fn, info, opts.Debug)
		if opts.ValidateHIR && len(verrs) > 0 {
			fmt.Fprintf(os.Stderr, "%s: validation failed: %v\n", sc.name, verrs[0])
			failures++
			continue
		}

		if err := interp.Execute(fn, ts.Context, proc.Memory); err != nil {
			fmt.Fprintf(os.Stderr, "%s: execution failed: %v\n", sc.name, err)
			failures++
			continue
		}

		fmt.Printf("%-20s %s\n", sc.name, sc.show(ts.Context))
	}

	if failures > 0 {
		return 1
	}
	return 0
}
