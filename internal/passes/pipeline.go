// Package passes implements the mid-level HIR optimizer: a fixed-order
// pipeline of passes running over one hir.Function between the PPC
// frontend and the backend assembler.
//
// Pipeline's validated-stage-transition shape is ported from the
// teacher's compilation_pipeline.go (CompilationPipeline.AdvanceTo,
// ValidateStage) -- same idea (an explicit stage enum, a table of valid
// transitions, panic on violation, stage history for diagnostics) against
// this domain's eight-stage sequence instead of the teacher's eleven ELF-
// pipeline stages.
package passes

import (
	"fmt"
	"os"
)

// Stage identifies one step of the compilation pipeline, in the fixed
// order spec.md §4.5 requires.
type Stage int

const (
	StageInit Stage = iota
	StageContextPromotion
	StageConstantPropagation
	StageSimplification
	StageDeadCodeElimination
	StageControlFlowSimplification
	StageFinalization
	StageRegisterAllocation
	StageValidation
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageContextPromotion:
		return "context_promotion"
	case StageConstantPropagation:
		return "constant_propagation"
	case StageSimplification:
		return "simplification"
	case StageDeadCodeElimination:
		return "dead_code_elimination"
	case StageControlFlowSimplification:
		return "control_flow_simplification"
	case StageFinalization:
		return "finalization"
	case StageRegisterAllocation:
		return "register_allocation"
	case StageValidation:
		return "validation"
	case StageComplete:
		return "complete"
	default:
		return fmt.Sprintf("unknown_stage(%d)", int(s))
	}
}

// nextStage is the fixed stage sequence; every entry but StageComplete has
// exactly one valid successor.
var nextStage = map[Stage]Stage{
	StageInit:                      StageContextPromotion,
	StageContextPromotion:          StageConstantPropagation,
	StageConstantPropagation:       StageSimplification,
	StageSimplification:            StageDeadCodeElimination,
	StageDeadCodeElimination:       StageControlFlowSimplification,
	StageControlFlowSimplification: StageFinalization,
	StageFinalization:              StageRegisterAllocation,
	StageRegisterAllocation:        StageValidation,
	StageValidation:                StageComplete,
}

// Pipeline tracks the current stage of one function's compilation and
// validates every transition against the fixed sequence above.
type Pipeline struct {
	current Stage
	history []Stage
	verbose bool
}

// NewPipeline creates a pipeline positioned at StageInit.
func NewPipeline(verbose bool) *Pipeline {
	return &Pipeline{current: StageInit, history: []Stage{StageInit}, verbose: verbose}
}

// CurrentStage returns the pipeline's current stage.
func (p *Pipeline) CurrentStage() Stage { return p.current }

// AdvanceTo moves the pipeline to stage, panicking if that is not the
// fixed sequence's next stage after the current one -- a pass running out
// of order is a programmer error in the compiler, not a recoverable guest
// condition.
func (p *Pipeline) AdvanceTo(stage Stage) {
	want, ok := nextStage[p.current]
	if !ok || want != stage {
		fmt.Fprintf(os.Stderr, "ERROR: invalid pass pipeline transition: %s -> %s\n", p.current, stage)
		fmt.Fprintf(os.Stderr, "stage history:\n")
		for i, s := range p.history {
			fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, s)
		}
		panic(fmt.Sprintf("passes: invalid stage transition %s -> %s", p.current, stage))
	}
	p.current = stage
	p.history = append(p.history, stage)
	if p.verbose {
		fmt.Fprintf(os.Stderr, "pipeline: advanced to %s\n", stage)
	}
}

// ValidateStage panics if the pipeline is not currently at expected --
// called at the top of each pass so a misordered call fails immediately
// rather than silently optimizing against stale assumptions.
func (p *Pipeline) ValidateStage(expected Stage, operation string) {
	if p.current != expected {
		panic(fmt.Sprintf("passes: operation %q requires stage %s, pipeline is at %s", operation, expected, p.current))
	}
}

// History returns the stages visited so far, in order.
func (p *Pipeline) History() []Stage {
	out := make([]Stage, len(p.history))
	copy(out, p.history)
	return out
}
