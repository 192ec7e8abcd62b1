// Package interpreter is the virtual machine's executor: the value stack,
// label/frame stacks, instruction dispatch and trap generation. The shape
// follows wazero's internal/engine/interpreter
// (engine/moduleEngine/callEngine/callFrame), adapted to dispatch directly
// over internal/instruction.Instruction instead of lowering to a secondary
// wazeroir IR.
package interpreter

import (
	"context"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/features"
	"github.com/nokotan/wasminspect/internal/instruction"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// MaxCallDepth bounds the frame stack; exceeding it raises TrapStackOverflow.
const MaxCallDepth = 1024

// Engine owns a Store and caches each function's compile-time control-flow
// analysis, shared
// across every Thread running against the same store.
type Engine struct {
	Store    *wasm.Store
	compiled map[wasm.FuncHandle]*compiledFunc

	// Features gates which post-MVP proposal families the executor is
	// willing to actually run; the decoder lifts every opcode
	// unconditionally (internal/features docs this split), so this is the
	// one place that enforcement happens. Nil behaves as features.NewDefault
	// (every supported proposal on), matching the decoder's own
	// unconditional acceptance.
	Features *features.Set

	listener Listener
}

// NewEngine creates an Engine over store with every supported proposal
// enabled. The store is never shared across Engines in a way that would
// race. Use WithFeatures to narrow the enabled proposal set.
func NewEngine(store *wasm.Store) *Engine {
	return &Engine{Store: store, compiled: map[wasm.FuncHandle]*compiledFunc{}, Features: features.NewDefault()}
}

// WithFeatures narrows e's enabled proposal set, returning e for chaining.
func (e *Engine) WithFeatures(s *features.Set) *Engine {
	e.Features = s
	return e
}

func (e *Engine) featureSet() *features.Set {
	if e.Features == nil {
		return features.NewDefault()
	}
	return e.Features
}

func (e *Engine) compile(h wasm.FuncHandle) *compiledFunc {
	if cf, ok := e.compiled[h]; ok {
		return cf
	}
	fi := e.Store.Func(h)
	mi := e.Store.Module(h.Module)
	cf := &compiledFunc{ctrl: buildControlInfo(fi.Body.Instructions), body: fi.Body, mod: mi.Source}
	e.compiled[h] = cf
	return cf
}

// Thread is a single in-flight computation: a value stack and a frame
// stack
// execution model. A Thread is not reused across unrelated calls once it
// has finished (Finished reports when it is safe to discard).
type Thread struct {
	Engine *Engine
	Values []api.Value
	Frames []*Frame
}

// NewThread creates an empty Thread against eng.
func NewThread(eng *Engine) *Thread {
	return &Thread{Engine: eng}
}

// Finished reports whether the thread has no more frames to execute.
func (t *Thread) Finished() bool { return len(t.Frames) == 0 }

// Current returns the innermost (currently executing) frame, or nil if
// the thread has finished.
func (t *Thread) Current() *Frame {
	if len(t.Frames) == 0 {
		return nil
	}
	return t.Frames[len(t.Frames)-1]
}

func (t *Thread) push(v api.Value)    { t.Values = append(t.Values, v) }
func (t *Thread) pop() api.Value {
	v := t.Values[len(t.Values)-1]
	t.Values = t.Values[:len(t.Values)-1]
	return v
}
func (t *Thread) popN(n int) []api.Value {
	out := make([]api.Value, n)
	copy(out, t.Values[len(t.Values)-n:])
	t.Values = t.Values[:len(t.Values)-n]
	return out
}
func (t *Thread) peek() api.Value { return t.Values[len(t.Values)-1] }
func (t *Thread) peekAt(fromTop int) api.Value {
	return t.Values[len(t.Values)-1-fromTop]
}

// PushCall installs a new frame for h with args already validated against
// the callee's declared parameter types by the caller. It is the entry
// point both for an export invocation (debugger.Controller.Run) and for a
// Call/CallIndirect/host-call signal handled internally by Step.
func (t *Thread) PushCall(ctx context.Context, h wasm.FuncHandle, args []api.Value) *api.Trap {
	if len(t.Frames) >= MaxCallDepth {
		return api.NewTrap(api.TrapStackOverflow)
	}
	fi := t.Engine.Store.Func(h)
	if t.Engine.listener != nil {
		t.Engine.listener.Before(ctx, h, fi, args)
	}
	base := len(t.Values)
	if fi.Kind == wasm.FuncKindHost {
		// Host frames never execute instructions; Step resolves them
		// synchronously the moment they become Current (see stepHostCall).
		f := newFrame(h.Module, h, nil, len(fi.Type.Results), base)
		f.Locals = args
		t.Frames = append(t.Frames, f)
		return nil
	}
	locals := make([]api.Value, len(fi.Type.Params)+len(fi.Body.Locals))
	copy(locals, args)
	for i, lt := range fi.Body.Locals {
		locals[len(fi.Type.Params)+i] = api.Default(lt)
	}
	t.Frames = append(t.Frames, newFrame(h.Module, h, locals, len(fi.Type.Results), base))
	return nil
}

// Step executes exactly one instruction of the current frame, honoring
// calls by descending into them. It returns (finished, results, trap): finished
// is true once the frame stack empties, carrying the computation's final
// results; trap is non-nil if execution unwound via a Trap signal. Step
// on an already-finished Thread is a no-op returning finished=true.
func (t *Thread) Step(ctx context.Context) (finished bool, results []api.Value, trap *api.Trap) {
	f := t.Current()
	if f == nil {
		return true, nil, nil
	}

	fi := t.Engine.Store.Func(f.Func)
	if fi.Kind == wasm.FuncKindHost {
		return t.stepHostCall(ctx, f, fi)
	}

	cf := t.Engine.compile(f.Func)
	sig := t.dispatch(cf, f, fi)

	switch sig.kind {
	case sigNext:
		f.PC++
	case sigJump:
		f.PC = sig.jumpTo
	case sigTrap:
		return true, nil, sig.trap
	case sigReturn:
		t.Frames = t.Frames[:len(t.Frames)-1]
		t.Values = t.Values[:f.BaseHeight]
		for _, v := range sig.returnValues {
			t.push(v)
		}
		if t.Engine.listener != nil {
			t.Engine.listener.After(ctx, f.Func, fi, sig.returnValues, nil)
		}
		if len(t.Frames) == 0 {
			return true, sig.returnValues, nil
		}
		return false, nil, nil
	case sigCall:
		if sig.tailCall {
			t.Frames = t.Frames[:len(t.Frames)-1]
			t.Values = t.Values[:f.BaseHeight]
		} else {
			// f stays on the frame stack beneath the callee; advance past
			// the call site now so that when the callee later returns and
			// f becomes Current again, Step resumes at the instruction
			// following the call instead of re-dispatching it.
			f.PC++
		}
		if trap := t.PushCall(ctx, sig.callTarget, sig.callArgs); trap != nil {
			return true, nil, trap
		}
	}
	return false, nil, nil
}

// stepHostCall resolves a host frame the instant it becomes Current: the
// host bridge has no instruction stream to step through, so the entire
// call completes as a single Step.
func (t *Thread) stepHostCall(ctx context.Context, f *Frame, fi *wasm.FunctionInstance) (bool, []api.Value, *api.Trap) {
	args := f.Locals
	results := make([]api.Value, len(fi.Type.Results))
	hc := wasm.HostContext{Mem: t.Engine.Store.Module(f.Module).FirstMem()}
	err := fi.Host(ctx, args, results, hc, t.Engine.Store)

	t.Frames = t.Frames[:len(t.Frames)-1]
	t.Values = t.Values[:f.BaseHeight]
	if err != nil {
		trap := api.NewHostFunctionTrap(err)
		if t.Engine.listener != nil {
			t.Engine.listener.After(ctx, f.Func, fi, nil, trap)
		}
		return true, nil, trap
	}
	for _, v := range results {
		t.push(v)
	}
	if t.Engine.listener != nil {
		t.Engine.listener.After(ctx, f.Func, fi, results, nil)
	}
	if len(t.Frames) == 0 {
		return true, results, nil
	}
	return false, nil, nil
}

// dispatch executes the instruction at f.PC and reports the resulting
// Signal, without mutating f.PC itself (the caller applies Next/Jump). This
// is the tail-call-shaped step(pc) -> Signal function at the heart of the
// executor.
func (t *Thread) dispatch(cf *compiledFunc, f *Frame, fi *wasm.FunctionInstance) signal {
	in := cf.body.Instructions[f.PC]
	switch in.Op {
	case instruction.OpUnreachable:
		return trapSig(api.TrapUnreachable)
	case instruction.OpNop:
		return nextSig()

	case instruction.OpBlock, instruction.OpLoop, instruction.OpIf, instruction.OpTry:
		return t.stepBlockOpener(cf, f, in)
	case instruction.OpCatch, instruction.OpCatchAll:
		// No exception is ever in flight to dispatch to a handler in this
		// single-threaded, validated-input executor. Reaching a catch clause by ordinary fallthrough
		// means the try body completed normally, so exit the construct
		// the same way its `end` would: the label Try pushed already
		// carries the post-`end` target.
		top := f.labels[len(f.labels)-1]
		f.popLabel()
		return jumpSig(top.Target)
	case instruction.OpThrow:
		return trapSig(api.TrapUnreachable)
	case instruction.OpRethrow, instruction.OpDelegate:
		return nextSig()
	case instruction.OpElse:
		// Reached by fallthrough from the `if` branch: behaves like the
		// `end` of the if-true arm, jumping to the matching `end`.
		end := cf.ctrl.matchEnd[cf.ctrl.elseOpener[f.PC]]
		f.popLabel()
		return jumpSig(end + 1)
	case instruction.OpEnd:
		return t.stepEnd(f)
	case instruction.OpBr:
		return t.stepBranch(f, in.RelativeDepth)
	case instruction.OpBrIf:
		cond := t.pop()
		if cond.I32() != 0 {
			return t.stepBranch(f, in.RelativeDepth)
		}
		return nextSig()
	case instruction.OpBrTable:
		idx := t.pop().U32()
		depth := in.BrTable.Default
		if int(idx) < len(in.BrTable.Targets) {
			depth = in.BrTable.Targets[idx]
		}
		return t.stepBranch(f, depth)
	case instruction.OpReturn:
		return t.stepBranch(f, uint32(f.Depth()))

	case instruction.OpCall:
		return t.stepCall(f, in.FuncIndex, false)
	case instruction.OpReturnCall:
		if !t.Engine.featureSet().Have(features.TailCall) {
			return trapSig(api.TrapUnreachable)
		}
		return t.stepCall(f, in.FuncIndex, true)
	case instruction.OpCallIndirect:
		return t.stepCallIndirect(cf, f, in, false)
	case instruction.OpReturnCallIndirect:
		if !t.Engine.featureSet().Have(features.TailCall) {
			return trapSig(api.TrapUnreachable)
		}
		return t.stepCallIndirect(cf, f, in, true)

	case instruction.OpDrop:
		t.pop()
		return nextSig()
	case instruction.OpSelect, instruction.OpTypedSelect:
		cond := t.pop()
		b := t.pop()
		a := t.pop()
		if cond.I32() != 0 {
			t.push(a)
		} else {
			t.push(b)
		}
		return nextSig()

	case instruction.OpLocalGet:
		t.push(f.Locals[in.LocalIndex])
		return nextSig()
	case instruction.OpLocalSet:
		f.Locals[in.LocalIndex] = t.pop()
		return nextSig()
	case instruction.OpLocalTee:
		f.Locals[in.LocalIndex] = t.peek()
		return nextSig()
	case instruction.OpGlobalGet:
		h := t.globalHandle(f, in.GlobalIndex)
		t.push(t.Engine.Store.Global(h).Value)
		return nextSig()
	case instruction.OpGlobalSet:
		h := t.globalHandle(f, in.GlobalIndex)
		t.Engine.Store.Global(h).Value = t.pop()
		return nextSig()

	case instruction.OpRefNull:
		t.push(api.Default(in.ValType))
		return nextSig()
	case instruction.OpRefIsNull:
		v := t.pop()
		t.push(api.ValueI32(b2i32(v.IsNullRef())))
		return nextSig()
	case instruction.OpRefFunc:
		h := wasm.FuncHandle{Module: f.Module, Local: wasm.LocalIndex(in.FuncIndex)}
		t.push(api.ValueFuncRef(wasm.EncodeFuncRef(h), true))
		return nextSig()

	case instruction.OpI32Const:
		t.push(api.ValueI32(in.ConstI32))
		return nextSig()
	case instruction.OpI64Const:
		t.push(api.ValueI64(in.ConstI64))
		return nextSig()
	case instruction.OpF32Const:
		t.push(api.ValueF32FromBits(in.ConstF32Bits))
		return nextSig()
	case instruction.OpF64Const:
		t.push(api.ValueF64FromBits(in.ConstF64Bits))
		return nextSig()
	case instruction.OpV128Const:
		t.push(v128FromBytes(in.ConstV128))
		return nextSig()
	}

	if sig, ok := t.dispatchNumeric(in); ok {
		return sig
	}
	if sig, ok := t.dispatchMemory(f, in); ok {
		return sig
	}
	if sig, ok := t.dispatchTable(f, in); ok {
		return sig
	}
	if in.Op >= instruction.OpV128Load && in.Op <= instruction.OpSIMDPromoteLowF32x4 && !t.Engine.featureSet().Have(features.SIMD) {
		return trapSig(api.TrapUnreachable)
	}
	if sig, ok := t.dispatchSIMD(f, in); ok {
		return sig
	}
	if in.Op >= instruction.OpAtomicNotify && in.Op <= instruction.OpI64AtomicRmwCmpxchg && !t.Engine.featureSet().Have(features.Threads) {
		return trapSig(api.TrapUnreachable)
	}
	if sig, ok := t.dispatchAtomic(f, in); ok {
		return sig
	}
	return trapSig(api.TrapUnreachable)
}

func (t *Thread) globalHandle(f *Frame, idx uint32) wasm.GlobalHandle {
	return wasm.GlobalHandle{Module: f.Module, Local: wasm.LocalIndex(idx)}
}

func nextSig() signal               { return signal{kind: sigNext} }
func jumpSig(pc int) signal         { return signal{kind: sigJump, jumpTo: pc} }
func trapSig(k api.TrapKind) signal { return signal{kind: sigTrap, trap: api.NewTrap(k)} }

func b2i32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
