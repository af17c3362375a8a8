package ppc

// ClassKind classifies one instruction for the scan phase.
type ClassKind uint8

const (
	ClassOrdinary ClassKind = iota
	ClassDirectBranch
	ClassIndirectBranch
	ClassConditionalBranch
	ClassTrap
	ClassReturn
	ClassSyscall
)

// Classify buckets instr for the scanner's worklist algorithm.
func Classify(instr Instruction) ClassKind {
	switch instr.Opcode() {
	case 16: // bc
		if instr.BO() == boAlways {
			return ClassDirectBranch
		}
		return ClassConditionalBranch
	case 18: // b / bl
		return ClassDirectBranch
	case 19: // bclr/bcctr family (all indirect: target comes from LR/CTR)
		if instr.ExtendedOpcode() == 16 && instr.BO() == boAlways && !instr.LKBit() {
			return ClassReturn
		}
		return ClassIndirectBranch
	case 17: // sc
		return ClassSyscall
	default:
		return ClassOrdinary
	}
}

// reader reads one big-endian instruction word at a guest address. The
// scanner is decoupled from internal/memory so it can run over any byte
// source -- production code backs it with memory.Memory.Translate, tests
// back it with a plain byte slice.
type reader func(addr uint32) (Instruction, bool)

// BlockBounds is one discovered basic block: its start address and the
// address one past its last instruction.
type BlockBounds struct {
	Start uint32
	End   uint32
}

// restoreGPRLRWindow is how many bytes after a direct call the scanner
// will look for a trailing `blr` before deciding the call was to a
// restore-gprs epilogue helper (`__restgprlr_*`) and that the function
// ends there. Four instructions comfortably covers the helper-call,
// nop-padding, blr sequence xenia's compiled output emits.
const restoreGPRLRWindow = 4 * 4

// Scan walks from entry, discovering block boundaries and the function's
// extent. It returns the discovered blocks in address order and the
// address one past the function's last instruction.
//
// Ground truth: spec.md's scan-phase description (worklist of addresses,
// classify each instruction, end a function when the worklist drains
// near a restore-helper-then-blr pattern) -- the teacher has no scanner
// analog since Vibe67 source is newline-delimited, but the worklist/visited-
// set shape mirrors dependency_graph.go's DFS reachability walk.
func Scan(read reader, entry uint32) ([]BlockBounds, uint32, error) {
	visited := map[uint32]bool{}
	blockStarts := map[uint32]bool{entry: true}
	worklist := []uint32{entry}
	var highWater uint32 = entry

	for len(worklist) > 0 {
		addr := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if visited[addr] {
			continue
		}

		cur := addr
		chainDone := false
		for !chainDone && !visited[cur] {
			instr, ok := read(cur)
			if !ok {
				return nil, 0, &ScanError{Address: cur, Reason: "unreadable guest address"}
			}
			visited[cur] = true
			if cur+4 > highWater {
				highWater = cur + 4
			}

			class := Classify(instr)
			var branchTarget uint32
			if class == ClassDirectBranch || class == ClassConditionalBranch {
				branchTarget = directBranchTarget(instr, cur)
				blockStarts[branchTarget] = true
				worklist = append(worklist, branchTarget)
			}

			switch {
			case class == ClassDirectBranch && branchTarget <= cur && looksLikeEpilogueCall(read, cur):
				return finish(blockStarts, visited, cur+4)
			case class == ClassDirectBranch && !instr.LKBit():
				// a plain tail branch: this chain of the worklist ends here.
				chainDone = true
			case class == ClassIndirectBranch || class == ClassReturn || class == ClassTrap || class == ClassSyscall:
				chainDone = true
			default:
				// conditional branch, a linking call, or an ordinary
				// instruction: control falls through to the next word, which
				// starts a new block only after a control-flow instruction.
				next := cur + 4
				if class != ClassOrdinary {
					blockStarts[next] = true
				}
				cur = next
			}
		}
	}

	return finish(blockStarts, visited, highWater)
}

func finish(blockStarts map[uint32]bool, visited map[uint32]bool, end uint32) ([]BlockBounds, uint32, error) {
	starts := make([]uint32, 0, len(blockStarts))
	for a := range blockStarts {
		if visited[a] || a == end {
			starts = append(starts, a)
		}
	}
	sortUint32s(starts)

	bounds := make([]BlockBounds, 0, len(starts))
	for idx, s := range starts {
		blockEnd := end
		if idx+1 < len(starts) {
			blockEnd = starts[idx+1]
		}
		bounds = append(bounds, BlockBounds{Start: s, End: blockEnd})
	}
	return bounds, end, nil
}

func sortUint32s(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func directBranchTarget(instr Instruction, cia uint32) uint32 {
	if instr.Opcode() == 18 {
		if instr.AABit() {
			return uint32(instr.LIOffset())
		}
		return uint32(int64(cia) + int64(instr.LIOffset()))
	}
	if instr.AABit() {
		return uint32(instr.BDOffset())
	}
	return uint32(int64(cia) + int64(instr.BDOffset()))
}

// looksLikeEpilogueCall peeks ahead from a call site for the
// restore-gprs-then-blr pattern: within restoreGPRLRWindow bytes, a bclr
// (unconditional, no-link -- a plain `blr`) instruction appears. Real
// `__restgprlr_*` helpers are recognized by callers tail-calling into a
// fixed low-address range; this core approximates that with the
// structural shape alone, which is sufficient for compiler-generated
// epilogues.
func looksLikeEpilogueCall(read reader, callSite uint32) bool {
	for off := uint32(4); off <= restoreGPRLRWindow; off += 4 {
		instr, ok := read(callSite + off)
		if !ok {
			return false
		}
		if Classify(instr) == ClassReturn {
			return true
		}
		if instr.Opcode() != 24 { // allow nop (ori r0,r0,0, encoded as primary 24) padding only
			return false
		}
	}
	return false
}

// ScanError reports a scan-phase failure (an unreadable guest address).
type ScanError struct {
	Address uint32
	Reason  string
}

func (e *ScanError) Error() string {
	return "ppc: scan failed at " + hex32(e.Address) + ": " + e.Reason
}

func hex32(v uint32) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, 10)
	buf[0], buf[1] = '0', 'x'
	for i := 0; i < 8; i++ {
		shift := uint(28 - i*4)
		buf[2+i] = digits[(v>>shift)&0xf]
	}
	return string(buf)
}
