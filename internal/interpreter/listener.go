package interpreter

import (
	"context"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// Listener is notified around every call a Thread makes, defined or host.
// Grounded in wazero's experimental.FunctionListener (Before/After pair
// around a call), narrowed to the handle/value vocabulary this module
// already carries instead of api.FunctionDefinition's encoded uint64
// slices. cmd/wasminspect's --trace flag wires a logrus-backed Listener;
// the interpreter itself never depends on a logging library.
type Listener interface {
	// Before is invoked just before args are pushed as the callee's locals.
	Before(ctx context.Context, h wasm.FuncHandle, fi *wasm.FunctionInstance, args []api.Value)
	// After is invoked once the call has returned or trapped.
	After(ctx context.Context, h wasm.FuncHandle, fi *wasm.FunctionInstance, results []api.Value, trap *api.Trap)
}

// SetListener installs l on e, or clears it when l is nil. There is one
// listener per Engine, not per Thread: a debugger session attaches it once
// at startup.
func (e *Engine) SetListener(l Listener) { e.listener = l }
