package interpreter

import (
	"encoding/binary"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// dispatchMemory handles every MVP load/store, memory.size/memory.grow,
// and the bulk-memory operators, all against the module's first memory
// (the store rejects instantiating more than one). memory.size and
// memory.grow trap on a nonzero memory index; loads and stores do not
// look at their memarg's memory index.
func (t *Thread) dispatchMemory(f *Frame, in instruction.Instruction) (signal, bool) {
	switch in.Op {
	case instruction.OpI32Load:
		return t.load(f, in.Mem, 4, func(b []byte) api.Value { return api.ValueU32(binary.LittleEndian.Uint32(b)) })
	case instruction.OpI64Load:
		return t.load(f, in.Mem, 8, func(b []byte) api.Value { return api.ValueU64(binary.LittleEndian.Uint64(b)) })
	case instruction.OpF32Load:
		return t.load(f, in.Mem, 4, func(b []byte) api.Value { return api.ValueF32FromBits(binary.LittleEndian.Uint32(b)) })
	case instruction.OpF64Load:
		return t.load(f, in.Mem, 8, func(b []byte) api.Value { return api.ValueF64FromBits(binary.LittleEndian.Uint64(b)) })
	case instruction.OpI32Load8S:
		return t.load(f, in.Mem, 1, func(b []byte) api.Value { return api.ValueI32(int32(int8(b[0]))) })
	case instruction.OpI32Load8U:
		return t.load(f, in.Mem, 1, func(b []byte) api.Value { return api.ValueU32(uint32(b[0])) })
	case instruction.OpI32Load16S:
		return t.load(f, in.Mem, 2, func(b []byte) api.Value { return api.ValueI32(int32(int16(binary.LittleEndian.Uint16(b)))) })
	case instruction.OpI32Load16U:
		return t.load(f, in.Mem, 2, func(b []byte) api.Value { return api.ValueU32(uint32(binary.LittleEndian.Uint16(b))) })
	case instruction.OpI64Load8S:
		return t.load(f, in.Mem, 1, func(b []byte) api.Value { return api.ValueI64(int64(int8(b[0]))) })
	case instruction.OpI64Load8U:
		return t.load(f, in.Mem, 1, func(b []byte) api.Value { return api.ValueU64(uint64(b[0])) })
	case instruction.OpI64Load16S:
		return t.load(f, in.Mem, 2, func(b []byte) api.Value { return api.ValueI64(int64(int16(binary.LittleEndian.Uint16(b)))) })
	case instruction.OpI64Load16U:
		return t.load(f, in.Mem, 2, func(b []byte) api.Value { return api.ValueU64(uint64(binary.LittleEndian.Uint16(b))) })
	case instruction.OpI64Load32S:
		return t.load(f, in.Mem, 4, func(b []byte) api.Value { return api.ValueI64(int64(int32(binary.LittleEndian.Uint32(b)))) })
	case instruction.OpI64Load32U:
		return t.load(f, in.Mem, 4, func(b []byte) api.Value { return api.ValueU64(uint64(binary.LittleEndian.Uint32(b))) })

	case instruction.OpI32Store:
		return t.store(f, in.Mem, 4, func(b []byte, v api.Value) { binary.LittleEndian.PutUint32(b, v.U32()) })
	case instruction.OpI64Store:
		return t.store(f, in.Mem, 8, func(b []byte, v api.Value) { binary.LittleEndian.PutUint64(b, v.U64()) })
	case instruction.OpF32Store:
		return t.store(f, in.Mem, 4, func(b []byte, v api.Value) { binary.LittleEndian.PutUint32(b, v.F32Bits()) })
	case instruction.OpF64Store:
		return t.store(f, in.Mem, 8, func(b []byte, v api.Value) { binary.LittleEndian.PutUint64(b, v.F64Bits()) })
	case instruction.OpI32Store8:
		return t.store(f, in.Mem, 1, func(b []byte, v api.Value) { b[0] = byte(v.U32()) })
	case instruction.OpI32Store16:
		return t.store(f, in.Mem, 2, func(b []byte, v api.Value) { binary.LittleEndian.PutUint16(b, uint16(v.U32())) })
	case instruction.OpI64Store8:
		return t.store(f, in.Mem, 1, func(b []byte, v api.Value) { b[0] = byte(v.U64()) })
	case instruction.OpI64Store16:
		return t.store(f, in.Mem, 2, func(b []byte, v api.Value) { binary.LittleEndian.PutUint16(b, uint16(v.U64())) })
	case instruction.OpI64Store32:
		return t.store(f, in.Mem, 4, func(b []byte, v api.Value) { binary.LittleEndian.PutUint32(b, uint32(v.U64())) })

	case instruction.OpMemorySize:
		if in.Mem.MemoryIndex != 0 {
			return trapSig(api.TrapOutOfBoundsMemoryAccess), true
		}
		t.push(api.ValueU32(t.firstMem(f).SizePages()))
	case instruction.OpMemoryGrow:
		if in.Mem.MemoryIndex != 0 {
			return trapSig(api.TrapOutOfBoundsMemoryAccess), true
		}
		delta := t.pop().U32()
		prev, ok := t.firstMem(f).Grow(delta)
		if !ok {
			t.push(api.ValueI32(-1))
		} else {
			t.push(api.ValueU32(prev))
		}

	case instruction.OpMemoryInit:
		return t.memoryInit(f, in)
	case instruction.OpDataDrop:
		t.dataSeg(f, in.DataIndex).Dropped = true
	case instruction.OpMemoryCopy:
		return t.memoryCopy(f)
	case instruction.OpMemoryFill:
		return t.memoryFill(f)

	default:
		return signal{}, false
	}
	return nextSig(), true
}

func (t *Thread) firstMem(f *Frame) *wasm.MemoryInstance {
	mi := t.Engine.Store.Module(f.Module)
	return mi.Mems[0]
}

func (t *Thread) dataSeg(f *Frame, idx uint32) *wasm.DataSegmentInstance {
	return t.Engine.Store.Module(f.Module).Data[idx]
}

func effectiveAddr(mem instruction.MemArg, base uint32) (uint64, bool) {
	addr := uint64(base) + uint64(mem.Offset)
	if addr > uint64(^uint32(0)) {
		return 0, false
	}
	return addr, true
}

func (t *Thread) load(f *Frame, mem instruction.MemArg, width int, decode func([]byte) api.Value) (signal, bool) {
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+uint64(width) > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	t.push(decode(m.Data[addr : addr+uint64(width)]))
	return signal{}, true
}

func (t *Thread) store(f *Frame, mem instruction.MemArg, width int, encode func([]byte, api.Value)) (signal, bool) {
	v := t.pop()
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+uint64(width) > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	encode(m.Data[addr:addr+uint64(width)], v)
	return signal{}, true
}

// memoryInit implements `memory.init`: copies from a (possibly dropped)
// passive data segment into linear memory. A dropped segment or an
// out-of-bounds range traps OutOfBoundsMemoryAccess.
func (t *Thread) memoryInit(f *Frame, in instruction.Instruction) (signal, bool) {
	n := t.pop().U32()
	src := t.pop().U32()
	dst := t.pop().U32()
	seg := t.dataSeg(f, in.DataIndex)
	if seg.Dropped || uint64(src)+uint64(n) > uint64(len(seg.Bytes)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	m := t.firstMem(f)
	if uint64(dst)+uint64(n) > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	copy(m.Data[dst:dst+n], seg.Bytes[src:src+n])
	return signal{}, true
}

func (t *Thread) memoryCopy(f *Frame) (signal, bool) {
	n := t.pop().U32()
	src := t.pop().U32()
	dst := t.pop().U32()
	m := t.firstMem(f)
	if uint64(src)+uint64(n) > uint64(len(m.Data)) || uint64(dst)+uint64(n) > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	copy(m.Data[dst:dst+n], m.Data[src:src+n])
	return signal{}, true
}

func (t *Thread) memoryFill(f *Frame) (signal, bool) {
	n := t.pop().U32()
	val := byte(t.pop().U32())
	dst := t.pop().U32()
	m := t.firstMem(f)
	if uint64(dst)+uint64(n) > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	for i := uint32(0); i < n; i++ {
		m.Data[dst+i] = val
	}
	return signal{}, true
}
