package interpreter

import (
	"encoding/binary"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
)

// dispatchAtomic handles the threads-proposal atomic operators. Every
// program here runs on a single Thread against a single Store, so an atomic
// RMW/cmpxchg executes as its ordinary sequential equivalent and atomic.wait
// always observes its own immediately-preceding store: there is no second
// agent that could ever make it block.
func (t *Thread) dispatchAtomic(f *Frame, in instruction.Instruction) (signal, bool) {
	switch in.Op {
	case instruction.OpAtomicFence:
	case instruction.OpAtomicNotify:
		t.pop() // count
		t.pop() // addr
		t.push(api.ValueU32(0))
	case instruction.OpAtomicWait32:
		t.pop() // timeout
		t.pop() // expected
		t.pop() // addr
		t.push(api.ValueI32(1)) // "not-equal": nothing can block a single thread
	case instruction.OpAtomicWait64:
		t.pop()
		t.pop()
		t.pop()
		t.push(api.ValueI32(1))

	case instruction.OpI32AtomicLoad:
		return t.load(f, in.Mem, 4, func(b []byte) api.Value { return api.ValueU32(binary.LittleEndian.Uint32(b)) })
	case instruction.OpI64AtomicLoad:
		return t.load(f, in.Mem, 8, func(b []byte) api.Value { return api.ValueU64(binary.LittleEndian.Uint64(b)) })
	case instruction.OpI32AtomicLoad8U:
		return t.load(f, in.Mem, 1, func(b []byte) api.Value { return api.ValueU32(uint32(b[0])) })
	case instruction.OpI32AtomicLoad16U:
		return t.load(f, in.Mem, 2, func(b []byte) api.Value { return api.ValueU32(uint32(binary.LittleEndian.Uint16(b))) })
	case instruction.OpI64AtomicLoad8U:
		return t.load(f, in.Mem, 1, func(b []byte) api.Value { return api.ValueU64(uint64(b[0])) })
	case instruction.OpI64AtomicLoad16U:
		return t.load(f, in.Mem, 2, func(b []byte) api.Value { return api.ValueU64(uint64(binary.LittleEndian.Uint16(b))) })
	case instruction.OpI64AtomicLoad32U:
		return t.load(f, in.Mem, 4, func(b []byte) api.Value { return api.ValueU64(uint64(binary.LittleEndian.Uint32(b))) })

	case instruction.OpI32AtomicStore:
		return t.store(f, in.Mem, 4, func(b []byte, v api.Value) { binary.LittleEndian.PutUint32(b, v.U32()) })
	case instruction.OpI64AtomicStore:
		return t.store(f, in.Mem, 8, func(b []byte, v api.Value) { binary.LittleEndian.PutUint64(b, v.U64()) })
	case instruction.OpI32AtomicStore8:
		return t.store(f, in.Mem, 1, func(b []byte, v api.Value) { b[0] = byte(v.U32()) })
	case instruction.OpI32AtomicStore16:
		return t.store(f, in.Mem, 2, func(b []byte, v api.Value) { binary.LittleEndian.PutUint16(b, uint16(v.U32())) })
	case instruction.OpI64AtomicStore8:
		return t.store(f, in.Mem, 1, func(b []byte, v api.Value) { b[0] = byte(v.U64()) })
	case instruction.OpI64AtomicStore16:
		return t.store(f, in.Mem, 2, func(b []byte, v api.Value) { binary.LittleEndian.PutUint16(b, uint16(v.U64())) })
	case instruction.OpI64AtomicStore32:
		return t.store(f, in.Mem, 4, func(b []byte, v api.Value) { binary.LittleEndian.PutUint32(b, uint32(v.U64())) })

	case instruction.OpI32AtomicRmwAdd:
		return t.rmw32(f, in.Mem, func(cur, v uint32) uint32 { return cur + v })
	case instruction.OpI32AtomicRmw8AddU:
		return t.rmw8(f, in.Mem, func(cur, v uint8) uint8 { return cur + v })
	case instruction.OpI32AtomicRmw16AddU:
		return t.rmw16(f, in.Mem, func(cur, v uint16) uint16 { return cur + v })
	case instruction.OpI64AtomicRmwAdd:
		return t.rmw64(f, in.Mem, func(cur, v uint64) uint64 { return cur + v })
	case instruction.OpI64AtomicRmw8AddU:
		return t.rmw8as64(f, in.Mem, func(cur, v uint8) uint8 { return cur + v })
	case instruction.OpI64AtomicRmw16AddU:
		return t.rmw16as64(f, in.Mem, func(cur, v uint16) uint16 { return cur + v })
	case instruction.OpI64AtomicRmw32AddU:
		return t.rmw32as64(f, in.Mem, func(cur, v uint32) uint32 { return cur + v })

	case instruction.OpI32AtomicRmwSub:
		return t.rmw32(f, in.Mem, func(cur, v uint32) uint32 { return cur - v })
	case instruction.OpI32AtomicRmw8SubU:
		return t.rmw8(f, in.Mem, func(cur, v uint8) uint8 { return cur - v })
	case instruction.OpI32AtomicRmw16SubU:
		return t.rmw16(f, in.Mem, func(cur, v uint16) uint16 { return cur - v })
	case instruction.OpI64AtomicRmwSub:
		return t.rmw64(f, in.Mem, func(cur, v uint64) uint64 { return cur - v })
	case instruction.OpI64AtomicRmw8SubU:
		return t.rmw8as64(f, in.Mem, func(cur, v uint8) uint8 { return cur - v })
	case instruction.OpI64AtomicRmw16SubU:
		return t.rmw16as64(f, in.Mem, func(cur, v uint16) uint16 { return cur - v })
	case instruction.OpI64AtomicRmw32SubU:
		return t.rmw32as64(f, in.Mem, func(cur, v uint32) uint32 { return cur - v })

	case instruction.OpI32AtomicRmwAnd:
		return t.rmw32(f, in.Mem, func(cur, v uint32) uint32 { return cur & v })
	case instruction.OpI64AtomicRmwAnd:
		return t.rmw64(f, in.Mem, func(cur, v uint64) uint64 { return cur & v })
	case instruction.OpI32AtomicRmwOr:
		return t.rmw32(f, in.Mem, func(cur, v uint32) uint32 { return cur | v })
	case instruction.OpI64AtomicRmwOr:
		return t.rmw64(f, in.Mem, func(cur, v uint64) uint64 { return cur | v })
	case instruction.OpI32AtomicRmwXor:
		return t.rmw32(f, in.Mem, func(cur, v uint32) uint32 { return cur ^ v })
	case instruction.OpI64AtomicRmwXor:
		return t.rmw64(f, in.Mem, func(cur, v uint64) uint64 { return cur ^ v })
	case instruction.OpI32AtomicRmwXchg:
		return t.rmw32(f, in.Mem, func(cur, v uint32) uint32 { return v })
	case instruction.OpI64AtomicRmwXchg:
		return t.rmw64(f, in.Mem, func(cur, v uint64) uint64 { return v })

	case instruction.OpI32AtomicRmwCmpxchg:
		return t.cmpxchg32(f, in.Mem)
	case instruction.OpI64AtomicRmwCmpxchg:
		return t.cmpxchg64(f, in.Mem)

	default:
		return signal{}, false
	}
	return nextSig(), true
}

func (t *Thread) rmw32(f *Frame, mem instruction.MemArg, op func(cur, v uint32) uint32) (signal, bool) {
	v := t.pop().U32()
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+4 > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	b := m.Data[addr : addr+4]
	cur := binary.LittleEndian.Uint32(b)
	binary.LittleEndian.PutUint32(b, op(cur, v))
	t.push(api.ValueU32(cur))
	return signal{}, true
}

func (t *Thread) rmw64(f *Frame, mem instruction.MemArg, op func(cur, v uint64) uint64) (signal, bool) {
	v := t.pop().U64()
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+8 > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	b := m.Data[addr : addr+8]
	cur := binary.LittleEndian.Uint64(b)
	binary.LittleEndian.PutUint64(b, op(cur, v))
	t.push(api.ValueU64(cur))
	return signal{}, true
}

func (t *Thread) rmw8(f *Frame, mem instruction.MemArg, op func(cur, v uint8) uint8) (signal, bool) {
	v := uint8(t.pop().U32())
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+1 > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	cur := m.Data[addr]
	m.Data[addr] = op(cur, v)
	t.push(api.ValueU32(uint32(cur)))
	return signal{}, true
}

func (t *Thread) rmw16(f *Frame, mem instruction.MemArg, op func(cur, v uint16) uint16) (signal, bool) {
	v := uint16(t.pop().U32())
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+2 > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	b := m.Data[addr : addr+2]
	cur := binary.LittleEndian.Uint16(b)
	binary.LittleEndian.PutUint16(b, op(cur, v))
	t.push(api.ValueU32(uint32(cur)))
	return signal{}, true
}

func (t *Thread) rmw8as64(f *Frame, mem instruction.MemArg, op func(cur, v uint8) uint8) (signal, bool) {
	v := uint8(t.pop().U64())
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+1 > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	cur := m.Data[addr]
	m.Data[addr] = op(cur, v)
	t.push(api.ValueU64(uint64(cur)))
	return signal{}, true
}

func (t *Thread) rmw16as64(f *Frame, mem instruction.MemArg, op func(cur, v uint16) uint16) (signal, bool) {
	v := uint16(t.pop().U64())
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+2 > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	b := m.Data[addr : addr+2]
	cur := binary.LittleEndian.Uint16(b)
	binary.LittleEndian.PutUint16(b, op(cur, v))
	t.push(api.ValueU64(uint64(cur)))
	return signal{}, true
}

func (t *Thread) rmw32as64(f *Frame, mem instruction.MemArg, op func(cur, v uint32) uint32) (signal, bool) {
	v := uint32(t.pop().U64())
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+4 > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	b := m.Data[addr : addr+4]
	cur := binary.LittleEndian.Uint32(b)
	binary.LittleEndian.PutUint32(b, op(cur, v))
	t.push(api.ValueU64(uint64(cur)))
	return signal{}, true
}

func (t *Thread) cmpxchg32(f *Frame, mem instruction.MemArg) (signal, bool) {
	repl := t.pop().U32()
	expect := t.pop().U32()
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+4 > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	b := m.Data[addr : addr+4]
	cur := binary.LittleEndian.Uint32(b)
	if cur == expect {
		binary.LittleEndian.PutUint32(b, repl)
	}
	t.push(api.ValueU32(cur))
	return signal{}, true
}

func (t *Thread) cmpxchg64(f *Frame, mem instruction.MemArg) (signal, bool) {
	repl := t.pop().U64()
	expect := t.pop().U64()
	base := t.pop().U32()
	addr, ok := effectiveAddr(mem, base)
	m := t.firstMem(f)
	if !ok || addr+8 > uint64(len(m.Data)) {
		return trapSig(api.TrapOutOfBoundsMemoryAccess), true
	}
	b := m.Data[addr : addr+8]
	cur := binary.LittleEndian.Uint64(b)
	if cur == expect {
		binary.LittleEndian.PutUint64(b, repl)
	}
	t.push(api.ValueU64(cur))
	return signal{}, true
}
