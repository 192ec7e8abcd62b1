package interpreter

import (
	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// controlInfo is the one-time-per-function result of matching every
// block/loop/if/try opener to its closing `end` (and, for `if`, its
// optional `else`), so branches resolve to a target instruction index
// without re-scanning the function body on every jump. Grounded in the
// same "precompute jump targets once, execute many times" shape as the
// teacher's wazeroir compilation pass, adapted to operate directly over
// instruction.Instruction rather than lowering to a separate IR first.
type controlInfo struct {
	matchEnd    map[int]int
	matchElse   map[int]int
	elseOpener  map[int]int // reverse of matchElse: else-instruction index -> its `if`'s index
}

// buildControlInfo scans insts once, precomputing the jump table used by
// every later step over the same function.
func buildControlInfo(insts []instruction.Instruction) controlInfo {
	ci := controlInfo{matchEnd: map[int]int{}, matchElse: map[int]int{}, elseOpener: map[int]int{}}
	var openers []int
	for i, in := range insts {
		switch in.Op {
		case instruction.OpBlock, instruction.OpLoop, instruction.OpIf, instruction.OpTry:
			openers = append(openers, i)
		case instruction.OpElse:
			if len(openers) > 0 {
				opener := openers[len(openers)-1]
				ci.matchElse[opener] = i
				ci.elseOpener[i] = opener
			}
		case instruction.OpEnd:
			if len(openers) > 0 {
				top := openers[len(openers)-1]
				openers = openers[:len(openers)-1]
				ci.matchEnd[top] = i
			}
		}
	}
	return ci
}

// compiledFunc is the Engine-cached, per-function result of compile-time
// analysis: the control-flow jump table plus the owning module's type
// table (needed to resolve a block's param/result arity from its
// BlockType at label-push time).
type compiledFunc struct {
	ctrl controlInfo
	body *wasm.FunctionBody
	mod  *wasm.Module
}

// blockArity resolves a structured-control opener's (params, results)
// counts from its BlockType immediate.
func blockArity(mod *wasm.Module, bt *instruction.BlockType) (params, results int) {
	if bt == nil {
		return 0, 0
	}
	switch bt.Kind {
	case instruction.BlockKindEmpty:
		return 0, 0
	case instruction.BlockKindValue:
		return 0, 1
	case instruction.BlockKindFuncType:
		ft := mod.Types[bt.TypeIndex]
		return len(ft.Params), len(ft.Results)
	default:
		return 0, 0
	}
}

// blockValueTypes resolves a BlockType's parameter and result type lists.
// The executor does not call it; block entry uses blockArity's counts.
func blockValueTypes(mod *wasm.Module, bt *instruction.BlockType) (params, results []api.ValueType) {
	if bt == nil {
		return nil, nil
	}
	switch bt.Kind {
	case instruction.BlockKindValue:
		return nil, []api.ValueType{bt.ValType}
	case instruction.BlockKindFuncType:
		ft := mod.Types[bt.TypeIndex]
		return ft.Params, ft.Results
	default:
		return nil, nil
	}
}
