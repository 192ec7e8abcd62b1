// Package debugger is wasminspect's control surface: the run/step state
// machine, function-level breakpoints, and the call-frame/locals/memory
// inspectors a REPL or RPC proxy drives the interpreter through. Grounded
// in the original Rust implementation's `crates/cli/src/commands/debugger.rs`
// Debugger trait (kept in _examples/original_source), reshaped around
// internal/interpreter's Engine/Thread and internal/wasm's Store instead of
// wasminspect-vm's own types.
package debugger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/binary"
	"github.com/nokotan/wasminspect/internal/features"
	"github.com/nokotan/wasminspect/internal/interpreter"
	"github.com/nokotan/wasminspect/internal/wasm"
	"github.com/nokotan/wasminspect/internal/wasmdebug"
)

// State is the controller's coarse run state.
type State byte

const (
	StateIdle State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// PauseReason names why a Paused controller stopped, per spec §4.F.
type PauseReason byte

const (
	// PauseNone is the zero value, meaningful only while State != Paused.
	PauseNone PauseReason = iota
	PauseHitBreakpoint
	PauseStepped
	PauseTrapped
	PauseHostSuspended
)

func (r PauseReason) String() string {
	switch r {
	case PauseHitBreakpoint:
		return "breakpoint"
	case PauseStepped:
		return "stepped"
	case PauseTrapped:
		return "trapped"
	case PauseHostSuspended:
		return "host-suspended"
	default:
		return "none"
	}
}

// StepStyle selects one of the three stepping granularities of spec §4.F.
type StepStyle byte

const (
	StepInstIn StepStyle = iota
	StepInstOver
	StepOut
)

// Breakpoint identifies where execution should pause. Only function-level
// breakpoints are supported, per spec §4.F.
type Breakpoint struct {
	FunctionName string
}

// RunResultKind discriminates a finished computation from one paused at a
// breakpoint.
type RunResultKind byte

const (
	RunFinish RunResultKind = iota
	RunBreakpoint
)

// RunResult is the outcome of Run or a Step call that runs to completion.
type RunResult struct {
	Kind   RunResultKind
	Values []api.Value
}

// FunctionFrame is the innermost call frame's coarse shape, per spec
// §4.F's current_frame() inspector.
type FunctionFrame struct {
	ModuleIndex   wasm.ModuleIndex
	ArgumentCount int
}

// Config holds the debugger-session options the original calls
// DebuggerOpts: whether Memory() diffs against the previous read, and the
// set of post-MVP proposals the engine is willing to execute.
type Config struct {
	WatchMemory bool
	Features    *features.Set
}

// MemoryDelta is one changed byte surfaced by Memory() when
// Config.WatchMemory is set.
type MemoryDelta struct {
	Offset   int
	Old, New byte
}

// Controller is the run/step state machine: it owns a Store and the
// interpreter Engine/Thread driving it, tracks breakpoints, and answers the
// inspection queries a REPL or RPC proxy needs. Not safe for concurrent use
// from more than one goroutine, matching the single-threaded cooperative
// execution model of spec §5.
type Controller struct {
	store  *wasm.Store
	engine *interpreter.Engine
	thread *interpreter.Thread

	config Config

	state       State
	pauseReason PauseReason
	lastTrap    *api.Trap

	breakpoints map[wasm.FuncHandle]struct{}
	// breakpointNames remembers a breakpoint set before its target module
	// was loaded, re-resolved on the next LoadModule.
	breakpointNames map[string]struct{}

	mainModule *wasm.ModuleInstance
	dwarf      map[wasm.ModuleIndex]*wasmdebug.Info

	prevMemory map[wasm.ModuleIndex][]byte
}

// New creates a Controller over an empty Store.
func New(config Config) *Controller {
	store := wasm.NewStore()
	eng := interpreter.NewEngine(store)
	if config.Features != nil {
		eng.WithFeatures(config.Features)
	}
	return &Controller{
		store:           store,
		engine:          eng,
		config:          config,
		breakpoints:     map[wasm.FuncHandle]struct{}{},
		breakpointNames: map[string]struct{}{},
		dwarf:           map[wasm.ModuleIndex]*wasmdebug.Info{},
		prevMemory:      map[wasm.ModuleIndex][]byte{},
	}
}

// Opts returns the controller's current Config.
func (c *Controller) Opts() Config { return c.config }

// SetOpts replaces the controller's Config.
func (c *Controller) SetOpts(config Config) {
	c.config = config
	if config.Features != nil {
		c.engine.WithFeatures(config.Features)
	}
}

// SetListener installs a call-trace listener on the underlying engine, or
// clears it when l is nil.
func (c *Controller) SetListener(l interpreter.Listener) { c.engine.SetListener(l) }

// Store exposes the underlying store for callers (the RPC proxy's Init
// handler) that need to register host modules or inspect exports directly.
func (c *Controller) Store() *wasm.Store { return c.store }

// ResetStore releases every loaded module and host registration together,
// per spec §3 Lifecycles ("on reset_store every module and instance is
// released together").
func (c *Controller) ResetStore() {
	c.store.Reset()
	c.state = StateIdle
	c.pauseReason = PauseNone
	c.lastTrap = nil
	c.mainModule = nil
	c.thread = nil
	c.breakpoints = map[wasm.FuncHandle]struct{}{}
	c.dwarf = map[wasm.ModuleIndex]*wasmdebug.Info{}
	c.prevMemory = map[wasm.ModuleIndex][]byte{}
}

// RegisterHostModule registers an embedder-provided module under name,
// exposing items to later imports. See wasm.Store.RegisterHostModule.
func (c *Controller) RegisterHostModule(name string, items map[string]wasm.HostItem) error {
	_, err := c.store.RegisterHostModule(name, items)
	return err
}

// LoadModule decodes and instantiates a module from raw bytes, registering
// it as the controller's "main" module (the one Run/SetBreakpoint resolve
// exports against when no explicit module is named). If the module
// declares a start function, it is invoked synchronously here; a trap
// rolls the instantiation back entirely, per spec §9's resolution of the
// start-function-trap Open Question ("pick roll-back as the safer
// default").
func (c *Controller) LoadModule(name string, raw []byte) error {
	mod, err := binary.DecodeModule(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("debugger: decode module: %w", err)
	}
	mi, err := c.store.Instantiate(name, mod)
	if err != nil {
		return fmt.Errorf("debugger: instantiate module: %w", err)
	}
	c.dwarf[mi.Index] = wasmdebug.Load(mod)

	if mi.StartFunc != nil {
		th := interpreter.NewThread(c.engine)
		if trap := th.PushCall(context.Background(), *mi.StartFunc, nil); trap != nil {
			c.store.UnloadLastModule()
			return fmt.Errorf("debugger: start function: %w", trap)
		}
		for {
			finished, _, trap := th.Step(context.Background())
			if trap != nil {
				c.store.UnloadLastModule()
				return fmt.Errorf("debugger: start function trapped: %w", trap)
			}
			if finished {
				break
			}
		}
	}

	c.mainModule = mi
	c.resolvePendingBreakpoints()
	return nil
}

func (c *Controller) resolvePendingBreakpoints() {
	if c.mainModule == nil {
		return
	}
	for name := range c.breakpointNames {
		if h, ok := c.lookupFunc(name); ok {
			c.breakpoints[h] = struct{}{}
			delete(c.breakpointNames, name)
		}
	}
}

// SetBreakpoint installs bp, resolving its target function against the
// main module at bind time. A name the main module doesn't (yet) export is
// remembered and re-resolved the next time LoadModule succeeds, so
// breakpoints can be set before the module they target is loaded.
func (c *Controller) SetBreakpoint(bp Breakpoint) error {
	if h, ok := c.lookupFunc(bp.FunctionName); ok {
		c.breakpoints[h] = struct{}{}
		return nil
	}
	c.breakpointNames[bp.FunctionName] = struct{}{}
	return nil
}

// ClearBreakpoint removes a previously set function breakpoint.
func (c *Controller) ClearBreakpoint(bp Breakpoint) {
	delete(c.breakpointNames, bp.FunctionName)
	if h, ok := c.lookupFunc(bp.FunctionName); ok {
		delete(c.breakpoints, h)
	}
}

// IsRunning reports whether the controller has a computation in flight
// (Running or Paused, as opposed to Idle).
func (c *Controller) IsRunning() bool { return c.state != StateIdle }

// State returns the controller's current coarse state.
func (c *Controller) State() State { return c.state }

// PauseReason returns why the controller is Paused; meaningless otherwise.
func (c *Controller) PauseReason() PauseReason { return c.pauseReason }

// LastTrap returns the trap that produced a Trapped pause, or nil.
func (c *Controller) LastTrap() *api.Trap { return c.lastTrap }

func (c *Controller) lookupFunc(name string) (wasm.FuncHandle, bool) {
	if c.mainModule == nil {
		return wasm.FuncHandle{}, false
	}
	exp, ok := c.mainModule.Export(name)
	if !ok || exp.Kind != api.ExternKindFunc {
		return wasm.FuncHandle{}, false
	}
	return wasm.FuncHandle{Module: c.mainModule.Index, Local: wasm.LocalIndex(exp.Index)}, true
}

// FuncType resolves a handle's signature, used by callers validating
// argument counts/types before Run (the RPC proxy's CallExported handler).
func (c *Controller) FuncType(h wasm.FuncHandle) api.FunctionType {
	return c.store.Func(h).Type
}

// LookupFunc exposes lookupFunc to callers outside the package (the RPC
// proxy resolves CallExported's target name the same way Run does).
func (c *Controller) LookupFunc(name string) (wasm.FuncHandle, error) {
	h, ok := c.lookupFunc(name)
	if !ok {
		return wasm.FuncHandle{}, &FunctionNotFoundError{Name: name}
	}
	return h, nil
}

// FunctionNotFoundError is raised when a named export does not resolve to
// a function in the controller's main module.
type FunctionNotFoundError struct{ Name string }

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("debugger: function %q not found", e.Name)
}

// NotRunningError is raised by Step when called with no computation in
// flight.
type NotRunningError struct{}

func (e *NotRunningError) Error() string { return "debugger: not running" }

// CallArgumentLengthMismatchError is raised when Run is given a number of
// arguments that disagrees with the callee's declared parameter count.
type CallArgumentLengthMismatchError struct {
	Want, Got int
}

func (e *CallArgumentLengthMismatchError) Error() string {
	return fmt.Sprintf("debugger: call argument length mismatch: want %d, got %d", e.Want, e.Got)
}

func (c *Controller) isBreakpoint(h wasm.FuncHandle) bool {
	_, ok := c.breakpoints[h]
	return ok
}
