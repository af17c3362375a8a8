package hir

// Block is a basic block: an instruction list, the labels that mark it,
// and its incoming/outgoing control-flow edges. Ordinal is assigned by
// the Finalization pass and is the order the backend emits blocks in.
type Block struct {
	ID      int
	Ordinal int

	head *Instr
	tail *Instr

	Labels []*Label
	In     []*Edge
	Out    []*Edge

	// LiveIn is a per-block set of context offsets. No pass in this
	// module sets or reads it.
	LiveIn map[uint64]bool
}

// Instrs returns every instruction in the block, head to tail.
func (b *Block) Instrs() []*Instr {
	var out []*Instr
	for i := b.head; i != nil; i = i.Next {
		out = append(out, i)
	}
	return out
}

// First returns the block's first instruction, or nil if empty.
func (b *Block) First() *Instr { return b.head }

// Last returns the block's last instruction, or nil if empty.
func (b *Block) Last() *Instr { return b.tail }

// Append adds instr to the end of the block's instruction list.
func (b *Block) Append(instr *Instr) {
	instr.Block = b
	instr.Prev = b.tail
	instr.Next = nil
	if b.tail != nil {
		b.tail.Next = instr
	} else {
		b.head = instr
	}
	b.tail = instr
}

// Terminator returns the block's last instruction if it is a control-flow
// opcode, else nil.
func (b *Block) Terminator() *Instr {
	if b.tail == nil {
		return nil
	}
	switch b.tail.Opcode {
	case OpBranch, OpBranchTrue, OpBranchFalse, OpReturn, OpTrap:
		return b.tail
	default:
		return nil
	}
}

// AddEdge links src -> dst, recording the edge on both blocks.
func AddEdge(src, dst *Block, flags EdgeFlag) *Edge {
	e := &Edge{Src: src, Dst: dst, Flags: flags}
	src.Out = append(src.Out, e)
	dst.In = append(dst.In, e)
	return e
}

// RemoveEdge unlinks e from both of its endpoints' edge lists.
func RemoveEdge(e *Edge) {
	e.Src.Out = removeEdge(e.Src.Out, e)
	e.Dst.In = removeEdge(e.Dst.In, e)
}

func removeEdge(edges []*Edge, target *Edge) []*Edge {
	out := edges[:0]
	for _, e := range edges {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}
