package runtime

import "sort"

// DebugInfoFlags selects which disassembly/source-map artifacts a
// translation keeps around, per original_source's DEBUG_INFO_* bitmask.
type DebugInfoFlags int

const (
	DebugInfoNone              DebugInfoFlags = 0
	DebugInfoSourceDisasm      DebugInfoFlags = 1 << (iota - 1)
	DebugInfoHIRDisasm
	DebugInfoMachineCodeDisasm
	DebugInfoSourceMap
)

const (
	DebugInfoDefault = DebugInfoSourceMap
	DebugInfoAll     = DebugInfoSourceDisasm | DebugInfoHIRDisasm | DebugInfoMachineCodeDisasm | DebugInfoSourceMap
)

// SourceMapEntry correlates one guest instruction with its HIR position
// and emitted machine-code offset, for a debugger stepping guest code.
type SourceMapEntry struct {
	SourceOffset uint64
	BlockOrdinal int
	InstrOrdinal int
	CodeOffset   int
}

// DebugInfo holds the optional disassembly text and source map a
// Function carries when its owning module was compiled with debug
// flags set.
type DebugInfo struct {
	SourceDisasm      string
	HIRDisasm         string
	MachineCodeDisasm string
	sourceMap         []SourceMapEntry
}

// NewDebugInfo returns an empty DebugInfo.
func NewDebugInfo() *DebugInfo { return &DebugInfo{} }

// SetSourceMap installs entries sorted by SourceOffset, enabling the
// LookupSourceOffset binary search below.
func (d *DebugInfo) SetSourceMap(entries []SourceMapEntry) {
	d.sourceMap = append([]SourceMapEntry(nil), entries...)
	sort.Slice(d.sourceMap, func(i, j int) bool { return d.sourceMap[i].SourceOffset < d.sourceMap[j].SourceOffset })
}

// LookupSourceOffset finds the entry for the guest instruction at
// offset, or nil if none was recorded.
func (d *DebugInfo) LookupSourceOffset(offset uint64) *SourceMapEntry {
	i := sort.Search(len(d.sourceMap), func(i int) bool { return d.sourceMap[i].SourceOffset >= offset })
	if i < len(d.sourceMap) && d.sourceMap[i].SourceOffset == offset {
		return &d.sourceMap[i]
	}
	return nil
}

// LookupCodeOffset finds the source map entry whose emitted code begins
// at or before offset, the lookup direction a disassembler walking
// backwards from a faulting PC needs.
func (d *DebugInfo) LookupCodeOffset(offset int) *SourceMapEntry {
	var best *SourceMapEntry
	for i := range d.sourceMap {
		e := &d.sourceMap[i]
		if e.CodeOffset <= offset && (best == nil || e.CodeOffset > best.CodeOffset) {
			best = e
		}
	}
	return best
}
