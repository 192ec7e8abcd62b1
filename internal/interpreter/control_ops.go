package interpreter

import (
	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// stepBlockOpener handles block/loop/if entry: pushing a label whose
// height is the value-stack height at the moment the opener executes
// (params, already on the stack from preceding instructions, are part of
// that height — a later branch to this label truncates back to it).
func (t *Thread) stepBlockOpener(cf *compiledFunc, f *Frame, in instruction.Instruction) signal {
	_, results := blockArity(cf.mod, in.Block)
	switch in.Op {
	case instruction.OpBlock, instruction.OpTry:
		end := cf.ctrl.matchEnd[f.PC]
		f.pushLabel(results, len(t.Values), end+1, false)
		return nextSig()
	case instruction.OpLoop:
		params, _ := blockArity(cf.mod, in.Block)
		f.pushLabel(params, len(t.Values), f.PC+1, true)
		return nextSig()
	case instruction.OpIf:
		cond := t.pop()
		end := cf.ctrl.matchEnd[f.PC]
		elseIdx, hasElse := cf.ctrl.matchElse[f.PC]
		f.pushLabel(results, len(t.Values), end+1, false)
		if cond.I32() != 0 {
			return nextSig()
		}
		if hasElse {
			return jumpSig(elseIdx + 1)
		}
		// Land on the `end` itself so stepEnd pops the label pushed above.
		return jumpSig(end)
	}
	return trapSig(api.TrapUnreachable)
}

// stepEnd handles a structured-control close reached by fallthrough: pop
// the innermost label, or, if that was the function's own implicit label,
// produce a Return signal carrying the top ResultArity stack values.
func (t *Thread) stepEnd(f *Frame) signal {
	if f.popLabel() {
		return nextSig()
	}
	values := make([]api.Value, f.ResultArity)
	copy(values, t.Values[len(t.Values)-f.ResultArity:])
	return signal{kind: sigReturn, returnValues: values}
}

// stepBranch implements `br`/`br_if`/`br_table`/`return` (return is
// modeled as a branch past every open label, depth == f.Depth()): pop
// every label above the target, truncate the value stack to the target's
// entry height, and preserve exactly its arity of values on top.
func (t *Thread) stepBranch(f *Frame, depth uint32) signal {
	target := f.truncateLabelsForBranch(depth)
	carried := make([]api.Value, target.Arity)
	copy(carried, t.Values[len(t.Values)-target.Arity:])
	if target.Target == returnTarget {
		return signal{kind: sigReturn, returnValues: carried}
	}
	t.Values = t.Values[:target.Height]
	for _, v := range carried {
		t.push(v)
	}
	return jumpSig(target.Target)
}

// stepCall implements `call`/`return_call`: funcIndex addresses the
// calling module's flat Funcs vector directly, matching the binary
// format's import-then-defined numbering.
func (t *Thread) stepCall(f *Frame, funcIndex uint32, tail bool) signal {
	h := wasm.FuncHandle{Module: f.Module, Local: wasm.LocalIndex(funcIndex)}
	fi := t.Engine.Store.Func(h)
	args := t.popN(len(fi.Type.Params))
	return signal{kind: sigCall, callTarget: h, callArgs: args, tailCall: tail}
}

// stepCallIndirect implements `call_indirect`/`return_call_indirect`: the
// three traps in resolution order are UndefinedElement (index out of table
// bounds), UninitializedElement (null slot) and IndirectCallTypeMismatch
// (resolved function's type disagrees with the callsite's declared type).
func (t *Thread) stepCallIndirect(cf *compiledFunc, f *Frame, in instruction.Instruction, tail bool) signal {
	idx := t.pop().U32()
	tableHandle := wasm.TableHandle{Module: f.Module, Local: wasm.LocalIndex(in.TableIndex)}
	table := t.Engine.Store.Table(tableHandle)
	if idx >= uint32(len(table.Refs)) {
		return trapSig(api.TrapUndefinedElement)
	}
	h, ok := wasm.DecodeFuncRef(table.Refs[idx])
	if !ok {
		return trapSig(api.TrapUninitializedElement)
	}
	fi := t.Engine.Store.Func(h)
	want := cf.mod.Types[in.TypeIndex]
	if !fi.Type.Equal(&want) {
		return trapSig(api.TrapIndirectCallTypeMismatch)
	}
	args := t.popN(len(fi.Type.Params))
	return signal{kind: sigCall, callTarget: h, callArgs: args, tailCall: tail}
}
