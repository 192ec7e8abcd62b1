package interpreter

import (
	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// signalKind discriminates the outcome of a single step() call: the
// dispatch loop is a tail-call-shaped step(pc) -> Signal function, and
// Signal is one of Next/Jump/Call/Return/Trap.
type signalKind byte

const (
	sigNext signalKind = iota
	sigJump
	sigCall
	sigReturn
	sigTrap
)

// signal is the executor's per-step outcome. Only the fields relevant to
// Kind are meaningful, mirroring Instruction's own "tagged struct" shape.
type signal struct {
	kind signalKind

	jumpTo int // sigJump: new instruction index within the current frame

	callTarget wasm.FuncHandle // sigCall
	callArgs   []api.Value     // sigCall: arguments popped off the value stack
	tailCall   bool            // sigCall: true for return_call/return_call_indirect

	returnValues []api.Value // sigReturn: the finishing frame's result values

	trap *api.Trap // sigTrap
}
