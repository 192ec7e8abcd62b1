package debugger

import (
	"fmt"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
	"github.com/nokotan/wasminspect/internal/interpreter"
	"github.com/nokotan/wasminspect/internal/wasm"
	"github.com/nokotan/wasminspect/internal/wasmdebug"
)

// Frame returns the current call chain, outermost first, rendering each
// entry from the callee's export name (falling back to DWARF subroutine
// info, then the bare handle) — spec §4.F's "human-readable names from
// exports/DWARF".
func (c *Controller) Frame() []string {
	if c.thread == nil {
		return nil
	}
	out := make([]string, 0, len(c.thread.Frames))
	for _, f := range c.thread.Frames {
		out = append(out, c.frameName(f))
	}
	return out
}

func (c *Controller) frameName(f *interpreter.Frame) string {
	fi := c.store.Func(f.Func)
	if fi.Name != "" {
		return fi.Name
	}
	if dw := c.dwarf[f.Module]; dw != nil && dw.Present() && fi.Body != nil {
		if subs := dw.Subroutines(uint64(fi.Body.Instructions[f.PC].Offset)); len(subs) > 0 {
			return subs[len(subs)-1].Name
		}
	}
	return f.Func.String()
}

// SourceLocation resolves the innermost frame's current program counter to
// a source file/line/column chain via DWARF (spec §6's
// `pc_to_source_location`), innermost frame first. Returns nil if the
// frame's module carries no usable DWARF data or nothing is running.
func (c *Controller) SourceLocation() []wasmdebug.SourceLocation {
	if c.thread == nil {
		return nil
	}
	f := c.thread.Current()
	if f == nil {
		return nil
	}
	dw := c.dwarf[f.Module]
	if dw == nil || !dw.Present() {
		return nil
	}
	fi := c.store.Func(f.Func)
	if fi.Body == nil {
		return nil
	}
	return dw.PCToLine(uint64(fi.Body.Instructions[f.PC].Offset))
}

// SourceLocals resolves the innermost frame's declared locals' static
// DWARF description (name and type expression, spec §6's
// `locals(function_handle, byte_offset)`) — the static shape only; current
// values come from Locals().
func (c *Controller) SourceLocals() []wasmdebug.Local {
	if c.thread == nil {
		return nil
	}
	f := c.thread.Current()
	if f == nil {
		return nil
	}
	dw := c.dwarf[f.Module]
	if dw == nil || !dw.Present() {
		return nil
	}
	fi := c.store.Func(f.Func)
	if fi.Body == nil {
		return nil
	}
	return dw.Locals(uint64(fi.Body.Instructions[f.PC].Offset))
}

// CurrentFrame returns the innermost frame's module index and declared
// parameter count, or (zero, false) if nothing is running.
func (c *Controller) CurrentFrame() (FunctionFrame, bool) {
	if c.thread == nil {
		return FunctionFrame{}, false
	}
	f := c.thread.Current()
	if f == nil {
		return FunctionFrame{}, false
	}
	fi := c.store.Func(f.Func)
	return FunctionFrame{ModuleIndex: f.Module, ArgumentCount: len(fi.Type.Params)}, true
}

// Locals returns a snapshot of the innermost frame's locals (declared
// parameters followed by the function's own local declarations).
func (c *Controller) Locals() []api.Value {
	if c.thread == nil {
		return nil
	}
	f := c.thread.Current()
	if f == nil {
		return nil
	}
	out := make([]api.Value, len(f.Locals))
	copy(out, f.Locals)
	return out
}

// Globals returns a snapshot of the innermost frame's module's globals, a
// first-class inspector over what would otherwise be implicit Store access.
func (c *Controller) Globals() []api.Value {
	if c.thread == nil {
		return nil
	}
	f := c.thread.Current()
	if f == nil {
		return nil
	}
	mi := c.store.Module(f.Module)
	out := make([]api.Value, len(mi.Globals))
	for i, g := range mi.Globals {
		out[i] = g.Value
	}
	return out
}

// StackValues returns a snapshot of the executor's entire value stack, in
// push order (bottom to top).
func (c *Controller) StackValues() []api.Value {
	if c.thread == nil {
		return nil
	}
	out := make([]api.Value, len(c.thread.Values))
	copy(out, c.thread.Values)
	return out
}

// Memory returns a snapshot of the innermost frame's module's first
// defined memory. When Config.WatchMemory is set, it also returns the
// bytes that changed since the previous Memory() call against the same
// module, per spec §4.F's watch_memory option.
func (c *Controller) Memory() ([]byte, []MemoryDelta, error) {
	if c.thread == nil {
		return nil, nil, &NotRunningError{}
	}
	f := c.thread.Current()
	if f == nil {
		return nil, nil, &NotRunningError{}
	}
	mi := c.store.Module(f.Module)
	if len(mi.Mems) == 0 {
		return nil, nil, nil
	}
	cur := mi.Mems[0].Data
	snapshot := make([]byte, len(cur))
	copy(snapshot, cur)

	if !c.config.WatchMemory {
		return snapshot, nil, nil
	}
	prev := c.prevMemory[f.Module]
	var deltas []MemoryDelta
	for i := 0; i < len(snapshot) && i < len(prev); i++ {
		if snapshot[i] != prev[i] {
			deltas = append(deltas, MemoryDelta{Offset: i, Old: prev[i], New: snapshot[i]})
		}
	}
	for i := len(prev); i < len(snapshot); i++ {
		deltas = append(deltas, MemoryDelta{Offset: i, Old: 0, New: snapshot[i]})
	}
	c.prevMemory[f.Module] = snapshot
	return snapshot, deltas, nil
}

// ReadMemory reads length bytes at offset from the innermost frame's
// module's first memory, used by the RPC proxy's LoadMemory command.
func (c *Controller) ReadMemory(offset, length uint32) ([]byte, error) {
	if c.thread == nil {
		return nil, &NotRunningError{}
	}
	f := c.thread.Current()
	mi := c.store.Module(f.Module)
	if len(mi.Mems) == 0 {
		return nil, fmt.Errorf("debugger: module has no memory")
	}
	mem := mi.Mems[0].Data
	if uint64(offset)+uint64(length) > uint64(len(mem)) {
		return nil, fmt.Errorf("debugger: read out of bounds: offset %d length %d memory size %d", offset, length, len(mem))
	}
	out := make([]byte, length)
	copy(out, mem[offset:offset+length])
	return out, nil
}

// WriteMemory writes bytes at offset into the innermost frame's module's
// first memory, used by the RPC proxy's StoreMemory command.
func (c *Controller) WriteMemory(offset uint32, data []byte) error {
	if c.thread == nil {
		return &NotRunningError{}
	}
	f := c.thread.Current()
	mi := c.store.Module(f.Module)
	if len(mi.Mems) == 0 {
		return fmt.Errorf("debugger: module has no memory")
	}
	mem := mi.Mems[0].Data
	if uint64(offset)+uint64(len(data)) > uint64(len(mem)) {
		return fmt.Errorf("debugger: write out of bounds: offset %d length %d memory size %d", offset, len(data), len(mem))
	}
	copy(mem[offset:], data)
	return nil
}

// Instructions returns the current frame's function body and the index of
// the instruction about to execute.
func (c *Controller) Instructions() ([]instruction.Instruction, int, error) {
	if c.thread == nil {
		return nil, 0, &NotRunningError{}
	}
	f := c.thread.Current()
	if f == nil {
		return nil, 0, &NotRunningError{}
	}
	fi := c.store.Func(f.Func)
	if fi.Body == nil {
		return nil, 0, fmt.Errorf("debugger: current function is a host function")
	}
	return fi.Body.Instructions, f.PC, nil
}

// Exports lists the main module's exports, used by the RPC proxy's Init
// response.
func (c *Controller) Exports() []wasm.Export {
	if c.mainModule == nil {
		return nil
	}
	out := make([]wasm.Export, len(c.mainModule.Exports))
	i := 0
	for _, e := range c.mainModule.Exports {
		out[i] = e
		i++
	}
	return out
}

// MemoryLength returns the current byte length of the main module's first
// memory, or 0 if it has none — used by the RPC proxy's Init response
// (spec §4.G: "respond Init{exports} carrying each memory's current byte
// length").
func (c *Controller) MemoryLength() int {
	if c.mainModule == nil || len(c.mainModule.Mems) == 0 {
		return 0
	}
	return len(c.mainModule.Mems[0].Data)
}
