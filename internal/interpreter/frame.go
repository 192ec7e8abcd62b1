package interpreter

import (
	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// returnTarget is the sentinel Label.Target value used by the label each
// frame starts with, representing "branching past every structured block
// this function declared" i.e. an ordinary function return.
const returnTarget = -1

// Label is a structured-control target: the arity of values it expects on
// top of the stack when reached, and the value-stack height to truncate to.
type Label struct {
	Arity  int
	Height int
	Target int // instruction index a branch to this label resumes at
	IsLoop bool
}

// Frame is one dynamic activation record: function, locals, and the
// label/program-counter state needed to resume its caller. Exported so internal/interpreter's callers (debugger)
// can inspect the call chain, locals and program counter without a
// parallel snapshot type.
type Frame struct {
	Module      wasm.ModuleIndex
	Func        wasm.FuncHandle
	Locals      []api.Value
	ResultArity int

	// PC is the index into the current function's instruction vector of
	// the next instruction to execute.
	PC int

	// BaseHeight is the value-stack height when this frame was pushed
	// (below any of its own pushed values), the truncation target for an
	// ordinary return.
	BaseHeight int

	labels []Label
}

func newFrame(mod wasm.ModuleIndex, h wasm.FuncHandle, locals []api.Value, resultArity, baseHeight int) *Frame {
	f := &Frame{
		Module:      mod,
		Func:        h,
		Locals:      locals,
		ResultArity: resultArity,
		BaseHeight:  baseHeight,
	}
	f.labels = []Label{{Arity: resultArity, Height: baseHeight, Target: returnTarget}}
	return f
}

// pushLabel installs a new structured-control label at block/loop/if/try
// entry. target is the instruction index a branch to this label resumes
// at: for a loop, the instruction following the opener; for a non-loop
// block, the instruction following the matching `end`.
func (f *Frame) pushLabel(arity, height, target int, isLoop bool) {
	f.labels = append(f.labels, Label{Arity: arity, Height: height, Target: target, IsLoop: isLoop})
}

// popLabel removes the innermost label (an `end` reached by fallthrough),
// reporting whether any remain (false means the function's own implicit
// label was just popped, i.e. a natural return).
func (f *Frame) popLabel() bool {
	f.labels = f.labels[:len(f.labels)-1]
	return len(f.labels) > 0
}

// truncateLabelsForBranch pops every label above depth d, and depth d
// itself unless it is a loop (branching back into a loop keeps it live for
// future iterations).E "structured control flow".
func (f *Frame) truncateLabelsForBranch(d uint32) Label {
	idx := len(f.labels) - 1 - int(d)
	target := f.labels[idx]
	if target.IsLoop {
		f.labels = f.labels[:idx+1]
	} else {
		f.labels = f.labels[:idx]
	}
	return target
}

// Depth returns the frame's current structured-control nesting depth
// (number of open labels, function-return label excluded), used by
// testable-property assertions and debugger disassembly.
func (f *Frame) Depth() int { return len(f.labels) - 1 }
