package interpreter

import (
	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// dispatchTable handles the reference-types/bulk-memory table operators.
func (t *Thread) dispatchTable(f *Frame, in instruction.Instruction) (signal, bool) {
	switch in.Op {
	case instruction.OpTableGet:
		tbl := t.table(f, in.TableIndex)
		idx := t.pop().U32()
		if idx >= uint32(len(tbl.Refs)) {
			return trapSig(api.TrapOutOfBoundsTableAccess), true
		}
		t.push(refValue(tbl.ElemType, tbl.Refs[idx]))
	case instruction.OpTableSet:
		tbl := t.table(f, in.TableIndex)
		v := t.pop()
		idx := t.pop().U32()
		if idx >= uint32(len(tbl.Refs)) {
			return trapSig(api.TrapOutOfBoundsTableAccess), true
		}
		tbl.Refs[idx] = v.RefIndex()
	case instruction.OpTableInit:
		return t.tableInit(f, in)
	case instruction.OpElemDrop:
		t.Engine.Store.Module(f.Module).Elements[in.ElemIndex].Dropped = true
	case instruction.OpTableCopy:
		return t.tableCopy(f, in)
	case instruction.OpTableGrow:
		tbl := t.table(f, in.TableIndex)
		n := t.pop().U32()
		fill := t.pop()
		prev, ok := tbl.Grow(n, fill.RefIndex())
		if !ok {
			t.push(api.ValueI32(-1))
		} else {
			t.push(api.ValueU32(prev))
		}
	case instruction.OpTableSize:
		t.push(api.ValueU32(uint32(len(t.table(f, in.TableIndex).Refs))))
	case instruction.OpTableFill:
		tbl := t.table(f, in.TableIndex)
		n := t.pop().U32()
		v := t.pop()
		dst := t.pop().U32()
		if uint64(dst)+uint64(n) > uint64(len(tbl.Refs)) {
			return trapSig(api.TrapOutOfBoundsTableAccess), true
		}
		for i := uint32(0); i < n; i++ {
			tbl.Refs[dst+i] = v.RefIndex()
		}
	default:
		return signal{}, false
	}
	return nextSig(), true
}

func (t *Thread) table(f *Frame, idx uint32) *wasm.TableInstance {
	return t.Engine.Store.Table(wasm.TableHandle{Module: f.Module, Local: wasm.LocalIndex(idx)})
}

func refValue(elemType api.ValueType, ref uint64) api.Value {
	if elemType == api.ValueTypeExternRef {
		if ref == ^uint64(0) {
			return api.NullExternRef()
		}
		return api.ValueExternRef(ref, true)
	}
	if ref == ^uint64(0) {
		return api.NullFuncRef()
	}
	return api.ValueFuncRef(ref, true)
}

// tableInit implements `table.init`, populating a table range from a
// (possibly dropped) element segment; a dropped segment or an
// out-of-bounds range traps like memory.init does.
func (t *Thread) tableInit(f *Frame, in instruction.Instruction) (signal, bool) {
	n := t.pop().U32()
	src := t.pop().U32()
	dst := t.pop().U32()
	seg := t.Engine.Store.Module(f.Module).Elements[in.ElemIndex]
	if seg.Dropped || uint64(src)+uint64(n) > uint64(len(seg.FuncIndices)) {
		return trapSig(api.TrapOutOfBoundsTableAccess), true
	}
	tbl := t.table(f, in.TableIndex)
	if uint64(dst)+uint64(n) > uint64(len(tbl.Refs)) {
		return trapSig(api.TrapOutOfBoundsTableAccess), true
	}
	for i := uint32(0); i < n; i++ {
		h := wasm.FuncHandle{Module: f.Module, Local: wasm.LocalIndex(seg.FuncIndices[src+i])}
		tbl.Refs[dst+i] = wasm.EncodeFuncRef(h)
	}
	return signal{}, true
}

func (t *Thread) tableCopy(f *Frame, in instruction.Instruction) (signal, bool) {
	n := t.pop().U32()
	src := t.pop().U32()
	dst := t.pop().U32()
	srcTbl := t.table(f, in.ElemIndex) // decoder stores the source table index in ElemIndex for table.copy
	dstTbl := t.table(f, in.TableIndex)
	if uint64(src)+uint64(n) > uint64(len(srcTbl.Refs)) || uint64(dst)+uint64(n) > uint64(len(dstTbl.Refs)) {
		return trapSig(api.TrapOutOfBoundsTableAccess), true
	}
	copy(dstTbl.Refs[dst:dst+n], srcTbl.Refs[src:src+n])
	return signal{}, true
}
