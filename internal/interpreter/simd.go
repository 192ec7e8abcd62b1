package interpreter

import (
	"encoding/binary"
	"math"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
)

// dispatchSIMD handles the SIMD-128 family: memory access, shuffle/splat/
// lane operators, shape-independent bitwise ops, and the shape-generic
// arithmetic/comparison opcodes parametrized by Instruction.Shape.
func (t *Thread) dispatchSIMD(f *Frame, in instruction.Instruction) (signal, bool) {
	switch in.Op {
	case instruction.OpV128Load:
		return t.load(f, in.Mem, 16, func(b []byte) api.Value {
			var arr [16]byte
			copy(arr[:], b)
			return v128FromBytes(arr)
		})
	case instruction.OpV128Store:
		return t.store(f, in.Mem, 16, func(dst []byte, v api.Value) {
			b := v128Bytes(v)
			copy(dst, b[:])
		})

	case instruction.OpV128Load8x8S, instruction.OpV128Load8x8U,
		instruction.OpV128Load16x4S, instruction.OpV128Load16x4U,
		instruction.OpV128Load32x2S, instruction.OpV128Load32x2U:
		return t.loadExtend(f, in)

	case instruction.OpV128Load8Splat:
		return t.load(f, in.Mem, 1, func(b []byte) api.Value { return splatI8(int8(b[0])) })
	case instruction.OpV128Load16Splat:
		return t.load(f, in.Mem, 2, func(b []byte) api.Value { return splatI16(int16(binary.LittleEndian.Uint16(b))) })
	case instruction.OpV128Load32Splat:
		return t.load(f, in.Mem, 4, func(b []byte) api.Value { return splatI32(int32(binary.LittleEndian.Uint32(b))) })
	case instruction.OpV128Load64Splat:
		return t.load(f, in.Mem, 8, func(b []byte) api.Value {
			v := binary.LittleEndian.Uint64(b)
			return api.ValueV128(v, v)
		})
	case instruction.OpV128Load32Zero:
		return t.load(f, in.Mem, 4, func(b []byte) api.Value {
			return api.ValueV128(uint64(binary.LittleEndian.Uint32(b)), 0)
		})
	case instruction.OpV128Load64Zero:
		return t.load(f, in.Mem, 8, func(b []byte) api.Value {
			return api.ValueV128(binary.LittleEndian.Uint64(b), 0)
		})

	case instruction.OpV128Load8Lane, instruction.OpV128Load16Lane,
		instruction.OpV128Load32Lane, instruction.OpV128Load64Lane:
		return t.loadLane(f, in)
	case instruction.OpV128Store8Lane, instruction.OpV128Store16Lane,
		instruction.OpV128Store32Lane, instruction.OpV128Store64Lane:
		return t.storeLane(f, in)

	case instruction.OpI8x16Shuffle:
		b := i8x16LanesAsBytes(t.pop())
		a := i8x16LanesAsBytes(t.pop())
		var out [16]byte
		for i, sel := range in.Lanes {
			if sel < 16 {
				out[i] = a[sel]
			} else {
				out[i] = b[sel-16]
			}
		}
		t.push(v128FromBytes(out))
	case instruction.OpI8x16Swizzle:
		idx := i8x16LanesAsBytes(t.pop())
		src := i8x16LanesAsBytes(t.pop())
		var out [16]byte
		for i, sel := range idx {
			if sel < 16 {
				out[i] = src[sel]
			}
		}
		t.push(v128FromBytes(out))

	case instruction.OpI8x16Splat:
		t.push(splatI8(int8(t.pop().U32())))
	case instruction.OpI16x8Splat:
		t.push(splatI16(int16(t.pop().U32())))
	case instruction.OpI32x4Splat:
		t.push(splatI32(t.pop().I32()))
	case instruction.OpI64x2Splat:
		v := t.pop().U64()
		t.push(api.ValueV128(v, v))
	case instruction.OpF32x4Splat:
		bits := t.pop().F32Bits()
		lo := uint64(bits) | uint64(bits)<<32
		t.push(api.ValueV128(lo, lo))
	case instruction.OpF64x2Splat:
		bits := t.pop().F64Bits()
		t.push(api.ValueV128(bits, bits))

	case instruction.OpI8x16ExtractLaneS:
		l := i8x16Lanes(t.pop())
		t.push(api.ValueI32(int32(l[in.Lane])))
	case instruction.OpI8x16ExtractLaneU:
		l := i8x16Lanes(t.pop())
		t.push(api.ValueU32(uint32(uint8(l[in.Lane]))))
	case instruction.OpI8x16ReplaceLane:
		v := t.pop().U32()
		l := i8x16Lanes(t.pop())
		l[in.Lane] = int8(v)
		t.push(i8x16FromLanes(l))
	case instruction.OpI16x8ExtractLaneS:
		l := i16x8Lanes(t.pop())
		t.push(api.ValueI32(int32(l[in.Lane])))
	case instruction.OpI16x8ExtractLaneU:
		l := i16x8Lanes(t.pop())
		t.push(api.ValueU32(uint32(uint16(l[in.Lane]))))
	case instruction.OpI16x8ReplaceLane:
		v := t.pop().U32()
		l := i16x8Lanes(t.pop())
		l[in.Lane] = int16(v)
		t.push(i16x8FromLanes(l))
	case instruction.OpI32x4ExtractLane:
		l := i32x4Lanes(t.pop())
		t.push(api.ValueI32(l[in.Lane]))
	case instruction.OpI32x4ReplaceLane:
		v := t.pop().I32()
		l := i32x4Lanes(t.pop())
		l[in.Lane] = v
		t.push(i32x4FromLanes(l))
	case instruction.OpI64x2ExtractLane:
		l := i64x2Lanes(t.pop())
		t.push(api.ValueI64(l[in.Lane]))
	case instruction.OpI64x2ReplaceLane:
		v := t.pop().I64()
		l := i64x2Lanes(t.pop())
		l[in.Lane] = v
		t.push(i64x2FromLanes(l))
	case instruction.OpF32x4ExtractLane:
		l := f32x4Lanes(t.pop())
		t.push(api.ValueF32(l[in.Lane]))
	case instruction.OpF32x4ReplaceLane:
		v := t.pop().F32()
		l := f32x4Lanes(t.pop())
		l[in.Lane] = v
		t.push(f32x4FromLanes(l))
	case instruction.OpF64x2ExtractLane:
		l := f64x2Lanes(t.pop())
		t.push(api.ValueF64(l[in.Lane]))
	case instruction.OpF64x2ReplaceLane:
		v := t.pop().F64()
		l := f64x2Lanes(t.pop())
		l[in.Lane] = v
		t.push(f64x2FromLanes(l))

	case instruction.OpV128Not:
		lo, hi := t.pop().V128()
		t.push(api.ValueV128(^lo, ^hi))
	case instruction.OpV128And:
		b, a := t.pop(), t.pop()
		alo, ahi := a.V128()
		blo, bhi := b.V128()
		t.push(api.ValueV128(alo&blo, ahi&bhi))
	case instruction.OpV128AndNot:
		b, a := t.pop(), t.pop()
		alo, ahi := a.V128()
		blo, bhi := b.V128()
		t.push(api.ValueV128(alo&^blo, ahi&^bhi))
	case instruction.OpV128Or:
		b, a := t.pop(), t.pop()
		alo, ahi := a.V128()
		blo, bhi := b.V128()
		t.push(api.ValueV128(alo|blo, ahi|bhi))
	case instruction.OpV128Xor:
		b, a := t.pop(), t.pop()
		alo, ahi := a.V128()
		blo, bhi := b.V128()
		t.push(api.ValueV128(alo^blo, ahi^bhi))
	case instruction.OpV128Bitselect:
		c, b, a := t.pop(), t.pop(), t.pop()
		clo, chi := c.V128()
		blo, bhi := b.V128()
		alo, ahi := a.V128()
		t.push(api.ValueV128((alo&clo)|(blo&^clo), (ahi&chi)|(bhi&^chi)))
	case instruction.OpV128AnyTrue:
		lo, hi := t.pop().V128()
		t.push(api.ValueI32(b2i32(lo != 0 || hi != 0)))

	default:
		if sig, ok := t.dispatchSIMDShape(in); ok {
			return sig, true
		}
		return signal{}, false
	}
	return nextSig(), true
}

func splatI8(v int8) api.Value  { return i8x16FromLanes([16]int8{v, v, v, v, v, v, v, v, v, v, v, v, v, v, v, v}) }
func splatI16(v int16) api.Value {
	return i16x8FromLanes([8]int16{v, v, v, v, v, v, v, v})
}
func splatI32(v int32) api.Value { return i32x4FromLanes([4]int32{v, v, v, v}) }

func i8x16LanesAsBytes(v api.Value) [16]byte { return v128Bytes(v) }

// loadExtend implements the v128.load{8x8,16x4,32x2}_{s,u} family: reads 8
// bytes and widens each of the narrower lanes into the next wider signed or
// unsigned lane.
func (t *Thread) loadExtend(f *Frame, in instruction.Instruction) (signal, bool) {
	return t.load(f, in.Mem, 8, func(b []byte) api.Value {
		switch in.Op {
		case instruction.OpV128Load8x8S:
			var l [8]int16
			for i := 0; i < 8; i++ {
				l[i] = int16(int8(b[i]))
			}
			return i16x8FromLanes(l)
		case instruction.OpV128Load8x8U:
			var l [8]int16
			for i := 0; i < 8; i++ {
				l[i] = int16(uint8(b[i]))
			}
			return i16x8FromLanes(l)
		case instruction.OpV128Load16x4S:
			var l [4]int32
			for i := 0; i < 4; i++ {
				l[i] = int32(int16(binary.LittleEndian.Uint16(b[i*2:])))
			}
			return i32x4FromLanes(l)
		case instruction.OpV128Load16x4U:
			var l [4]int32
			for i := 0; i < 4; i++ {
				l[i] = int32(binary.LittleEndian.Uint16(b[i*2:]))
			}
			return i32x4FromLanes(l)
		case instruction.OpV128Load32x2S:
			var l [2]int64
			for i := 0; i < 2; i++ {
				l[i] = int64(int32(binary.LittleEndian.Uint32(b[i*4:])))
			}
			return i64x2FromLanes(l)
		default: // OpV128Load32x2U
			var l [2]int64
			for i := 0; i < 2; i++ {
				l[i] = int64(binary.LittleEndian.Uint32(b[i*4:]))
			}
			return i64x2FromLanes(l)
		}
	})
}

func (t *Thread) loadLane(f *Frame, in instruction.Instruction) (signal, bool) {
	into := t.pop()
	b := v128Bytes(into)
	var width int
	switch in.Op {
	case instruction.OpV128Load8Lane:
		width = 1
	case instruction.OpV128Load16Lane:
		width = 2
	case instruction.OpV128Load32Lane:
		width = 4
	default:
		width = 8
	}
	sig, ok := t.load(f, in.Mem, width, func(src []byte) api.Value {
		copy(b[int(in.Lane)*width:], src)
		return v128FromBytes(b)
	})
	return sig, ok
}

func (t *Thread) storeLane(f *Frame, in instruction.Instruction) (signal, bool) {
	v := t.pop()
	b := v128Bytes(v)
	var width int
	switch in.Op {
	case instruction.OpV128Store8Lane:
		width = 1
	case instruction.OpV128Store16Lane:
		width = 2
	case instruction.OpV128Store32Lane:
		width = 4
	default:
		width = 8
	}
	lane := b[int(in.Lane)*width : int(in.Lane)*width+width]
	t.push(v) // restore operand order for the generic store helper
	return t.store(f, in.Mem, width, func(dst []byte, _ api.Value) { copy(dst, lane) })
}

// dispatchSIMDShape handles the shape-generic family keyed by Instruction.Shape
// (OpSIMDAdd, OpSIMDEq, ...), covering a representative subset of the
// comparison and arithmetic operators across i8x16/i16x8/i32x4/i64x2/
// f32x4/f64x2. Conversion, narrowing and extension opcodes are not
// handled: it reports ok=false for them, and dispatch then traps
// unreachable.
func (t *Thread) dispatchSIMDShape(in instruction.Instruction) (signal, bool) {
	switch in.Shape {
	case instruction.ShapeF32x4, instruction.ShapeF64x2:
		if sig, ok := t.dispatchSIMDFloat(in); ok {
			return sig, true
		}
	default:
		if sig, ok := t.dispatchSIMDInt(in); ok {
			return sig, true
		}
	}
	return signal{}, false
}

func (t *Thread) dispatchSIMDFloat(in instruction.Instruction) (signal, bool) {
	is64 := in.Shape == instruction.ShapeF64x2
	unary := func(f func(float64) float64) {
		if is64 {
			l := f64x2Lanes(t.pop())
			for i := range l {
				l[i] = f(l[i])
			}
			t.push(f64x2FromLanes(l))
		} else {
			l := f32x4Lanes(t.pop())
			for i := range l {
				l[i] = float32(f(float64(l[i])))
			}
			t.push(f32x4FromLanes(l))
		}
	}
	binop := func(f func(a, b float64) float64) {
		if is64 {
			b, a := f64x2Lanes(t.pop()), f64x2Lanes(t.pop())
			var out [2]float64
			for i := range out {
				out[i] = f(a[i], b[i])
			}
			t.push(f64x2FromLanes(out))
		} else {
			b, a := f32x4Lanes(t.pop()), f32x4Lanes(t.pop())
			var out [4]float32
			for i := range out {
				out[i] = float32(f(float64(a[i]), float64(b[i])))
			}
			t.push(f32x4FromLanes(out))
		}
	}
	cmp := func(f func(a, b float64) bool) {
		if is64 {
			b, a := f64x2Lanes(t.pop()), f64x2Lanes(t.pop())
			var out [2]int64
			for i := range out {
				if f(a[i], b[i]) {
					out[i] = -1
				}
			}
			t.push(i64x2FromLanes(out))
		} else {
			b, a := f32x4Lanes(t.pop()), f32x4Lanes(t.pop())
			var out [4]int32
			for i := range out {
				if f(float64(a[i]), float64(b[i])) {
					out[i] = -1
				}
			}
			t.push(i32x4FromLanes(out))
		}
	}

	switch in.Op {
	case instruction.OpSIMDEq:
		cmp(func(a, b float64) bool { return a == b })
	case instruction.OpSIMDNe:
		cmp(func(a, b float64) bool { return a != b })
	case instruction.OpSIMDLtS:
		cmp(func(a, b float64) bool { return a < b })
	case instruction.OpSIMDGtS:
		cmp(func(a, b float64) bool { return a > b })
	case instruction.OpSIMDLeS:
		cmp(func(a, b float64) bool { return a <= b })
	case instruction.OpSIMDGeS:
		cmp(func(a, b float64) bool { return a >= b })
	case instruction.OpSIMDAbs:
		unary(math.Abs)
	case instruction.OpSIMDNeg:
		unary(func(a float64) float64 { return -a })
	case instruction.OpSIMDCeil:
		unary(math.Ceil)
	case instruction.OpSIMDFloor:
		unary(math.Floor)
	case instruction.OpSIMDTrunc:
		unary(math.Trunc)
	case instruction.OpSIMDNearest:
		unary(moremathNearest)
	case instruction.OpSIMDSqrt:
		unary(math.Sqrt)
	case instruction.OpSIMDAdd:
		binop(func(a, b float64) float64 { return a + b })
	case instruction.OpSIMDSub:
		binop(func(a, b float64) float64 { return a - b })
	case instruction.OpSIMDMul:
		binop(func(a, b float64) float64 { return a * b })
	case instruction.OpSIMDDiv:
		binop(func(a, b float64) float64 { return a / b })
	case instruction.OpSIMDMin:
		binop(math.Min)
	case instruction.OpSIMDMax:
		binop(math.Max)
	case instruction.OpSIMDPMin:
		binop(func(a, b float64) float64 {
			if b < a {
				return b
			}
			return a
		})
	case instruction.OpSIMDPMax:
		binop(func(a, b float64) float64 {
			if a < b {
				return b
			}
			return a
		})
	default:
		return signal{}, false
	}
	return nextSig(), true
}

func moremathNearest(f float64) float64 { return math.RoundToEven(f) }

func (t *Thread) dispatchSIMDInt(in instruction.Instruction) (signal, bool) {
	switch in.Shape {
	case instruction.ShapeI8x16:
		return t.dispatchSIMD8(in)
	case instruction.ShapeI16x8:
		return t.dispatchSIMD16(in)
	case instruction.ShapeI32x4:
		return t.dispatchSIMD32(in)
	default: // ShapeI64x2
		return t.dispatchSIMD64(in)
	}
}

func (t *Thread) dispatchSIMD8(in instruction.Instruction) (signal, bool) {
	cmp := func(f func(a, b int8) bool) {
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			if f(a[i], b[i]) {
				out[i] = -1
			}
		}
		t.push(i8x16FromLanes(out))
	}
	switch in.Op {
	case instruction.OpSIMDEq:
		cmp(func(a, b int8) bool { return a == b })
	case instruction.OpSIMDNe:
		cmp(func(a, b int8) bool { return a != b })
	case instruction.OpSIMDLtS:
		cmp(func(a, b int8) bool { return a < b })
	case instruction.OpSIMDLtU:
		cmp(func(a, b int8) bool { return uint8(a) < uint8(b) })
	case instruction.OpSIMDGtS:
		cmp(func(a, b int8) bool { return a > b })
	case instruction.OpSIMDGtU:
		cmp(func(a, b int8) bool { return uint8(a) > uint8(b) })
	case instruction.OpSIMDLeS:
		cmp(func(a, b int8) bool { return a <= b })
	case instruction.OpSIMDLeU:
		cmp(func(a, b int8) bool { return uint8(a) <= uint8(b) })
	case instruction.OpSIMDGeS:
		cmp(func(a, b int8) bool { return a >= b })
	case instruction.OpSIMDGeU:
		cmp(func(a, b int8) bool { return uint8(a) >= uint8(b) })
	case instruction.OpSIMDAbs:
		l := i8x16Lanes(t.pop())
		for i, v := range l {
			if v < 0 {
				l[i] = -v
			}
		}
		t.push(i8x16FromLanes(l))
	case instruction.OpSIMDNeg:
		l := i8x16Lanes(t.pop())
		for i, v := range l {
			l[i] = -v
		}
		t.push(i8x16FromLanes(l))
	case instruction.OpSIMDAllTrue:
		l := i8x16Lanes(t.pop())
		all := true
		for _, v := range l {
			all = all && v != 0
		}
		t.push(api.ValueI32(b2i32(all)))
	case instruction.OpSIMDBitmask:
		l := i8x16Lanes(t.pop())
		var mask int32
		for i, v := range l {
			if v < 0 {
				mask |= 1 << uint(i)
			}
		}
		t.push(api.ValueI32(mask))
	case instruction.OpSIMDAdd:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			out[i] = a[i] + b[i]
		}
		t.push(i8x16FromLanes(out))
	case instruction.OpSIMDSub:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			out[i] = a[i] - b[i]
		}
		t.push(i8x16FromLanes(out))
	case instruction.OpSIMDAddSatS:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			out[i] = satAddI8(a[i], b[i])
		}
		t.push(i8x16FromLanes(out))
	case instruction.OpSIMDSubSatS:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			out[i] = satSubI8(a[i], b[i])
		}
		t.push(i8x16FromLanes(out))
	case instruction.OpSIMDAddSatU:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			out[i] = satAddU8(a[i], b[i])
		}
		t.push(i8x16FromLanes(out))
	case instruction.OpSIMDSubSatU:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			out[i] = satSubU8(a[i], b[i])
		}
		t.push(i8x16FromLanes(out))
	case instruction.OpSIMDMinU:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			if uint8(a[i]) < uint8(b[i]) {
				out[i] = a[i]
			} else {
				out[i] = b[i]
			}
		}
		t.push(i8x16FromLanes(out))
	case instruction.OpSIMDMaxU:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			if uint8(a[i]) > uint8(b[i]) {
				out[i] = a[i]
			} else {
				out[i] = b[i]
			}
		}
		t.push(i8x16FromLanes(out))
	case instruction.OpSIMDMinS:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			out[i] = minI8(a[i], b[i])
		}
		t.push(i8x16FromLanes(out))
	case instruction.OpSIMDMaxS:
		b, a := i8x16Lanes(t.pop()), i8x16Lanes(t.pop())
		var out [16]int8
		for i := range out {
			out[i] = maxI8(a[i], b[i])
		}
		t.push(i8x16FromLanes(out))
	default:
		return signal{}, false
	}
	return nextSig(), true
}

func satAddI8(a, b int8) int8 {
	r := int16(a) + int16(b)
	if r > math.MaxInt8 {
		return math.MaxInt8
	}
	if r < math.MinInt8 {
		return math.MinInt8
	}
	return int8(r)
}
func satSubI8(a, b int8) int8 {
	r := int16(a) - int16(b)
	if r > math.MaxInt8 {
		return math.MaxInt8
	}
	if r < math.MinInt8 {
		return math.MinInt8
	}
	return int8(r)
}
func minI8(a, b int8) int8 {
	if a < b {
		return a
	}
	return b
}
func maxI8(a, b int8) int8 {
	if a > b {
		return a
	}
	return b
}
func satAddU8(a, b int8) int8 {
	r := uint16(uint8(a)) + uint16(uint8(b))
	if r > math.MaxUint8 {
		return int8(uint8(math.MaxUint8))
	}
	return int8(uint8(r))
}
func satSubU8(a, b int8) int8 {
	ai, bi := int16(uint8(a)), int16(uint8(b))
	r := ai - bi
	if r < 0 {
		return 0
	}
	return int8(uint8(r))
}

func (t *Thread) dispatchSIMD16(in instruction.Instruction) (signal, bool) {
	cmp := func(f func(a, b int16) bool) {
		b, a := i16x8Lanes(t.pop()), i16x8Lanes(t.pop())
		var out [8]int16
		for i := range out {
			if f(a[i], b[i]) {
				out[i] = -1
			}
		}
		t.push(i16x8FromLanes(out))
	}
	switch in.Op {
	case instruction.OpSIMDEq:
		cmp(func(a, b int16) bool { return a == b })
	case instruction.OpSIMDNe:
		cmp(func(a, b int16) bool { return a != b })
	case instruction.OpSIMDLtS:
		cmp(func(a, b int16) bool { return a < b })
	case instruction.OpSIMDGtS:
		cmp(func(a, b int16) bool { return a > b })
	case instruction.OpSIMDLeS:
		cmp(func(a, b int16) bool { return a <= b })
	case instruction.OpSIMDGeS:
		cmp(func(a, b int16) bool { return a >= b })
	case instruction.OpSIMDAbs:
		l := i16x8Lanes(t.pop())
		for i, v := range l {
			if v < 0 {
				l[i] = -v
			}
		}
		t.push(i16x8FromLanes(l))
	case instruction.OpSIMDNeg:
		l := i16x8Lanes(t.pop())
		for i, v := range l {
			l[i] = -v
		}
		t.push(i16x8FromLanes(l))
	case instruction.OpSIMDAllTrue:
		l := i16x8Lanes(t.pop())
		all := true
		for _, v := range l {
			all = all && v != 0
		}
		t.push(api.ValueI32(b2i32(all)))
	case instruction.OpSIMDAdd:
		b, a := i16x8Lanes(t.pop()), i16x8Lanes(t.pop())
		var out [8]int16
		for i := range out {
			out[i] = a[i] + b[i]
		}
		t.push(i16x8FromLanes(out))
	case instruction.OpSIMDSub:
		b, a := i16x8Lanes(t.pop()), i16x8Lanes(t.pop())
		var out [8]int16
		for i := range out {
			out[i] = a[i] - b[i]
		}
		t.push(i16x8FromLanes(out))
	case instruction.OpSIMDMul:
		b, a := i16x8Lanes(t.pop()), i16x8Lanes(t.pop())
		var out [8]int16
		for i := range out {
			out[i] = a[i] * b[i]
		}
		t.push(i16x8FromLanes(out))
	case instruction.OpSIMDMinS:
		b, a := i16x8Lanes(t.pop()), i16x8Lanes(t.pop())
		var out [8]int16
		for i := range out {
			if a[i] < b[i] {
				out[i] = a[i]
			} else {
				out[i] = b[i]
			}
		}
		t.push(i16x8FromLanes(out))
	case instruction.OpSIMDMaxS:
		b, a := i16x8Lanes(t.pop()), i16x8Lanes(t.pop())
		var out [8]int16
		for i := range out {
			if a[i] > b[i] {
				out[i] = a[i]
			} else {
				out[i] = b[i]
			}
		}
		t.push(i16x8FromLanes(out))
	case instruction.OpSIMDShl:
		amt := uint(t.pop().U32() & 15)
		l := i16x8Lanes(t.pop())
		for i := range l {
			l[i] <<= amt
		}
		t.push(i16x8FromLanes(l))
	case instruction.OpSIMDShrS:
		amt := uint(t.pop().U32() & 15)
		l := i16x8Lanes(t.pop())
		for i := range l {
			l[i] >>= amt
		}
		t.push(i16x8FromLanes(l))
	default:
		return signal{}, false
	}
	return nextSig(), true
}

func (t *Thread) dispatchSIMD32(in instruction.Instruction) (signal, bool) {
	cmp := func(f func(a, b int32) bool) {
		b, a := i32x4Lanes(t.pop()), i32x4Lanes(t.pop())
		var out [4]int32
		for i := range out {
			if f(a[i], b[i]) {
				out[i] = -1
			}
		}
		t.push(i32x4FromLanes(out))
	}
	switch in.Op {
	case instruction.OpSIMDEq:
		cmp(func(a, b int32) bool { return a == b })
	case instruction.OpSIMDNe:
		cmp(func(a, b int32) bool { return a != b })
	case instruction.OpSIMDLtS:
		cmp(func(a, b int32) bool { return a < b })
	case instruction.OpSIMDGtS:
		cmp(func(a, b int32) bool { return a > b })
	case instruction.OpSIMDLeS:
		cmp(func(a, b int32) bool { return a <= b })
	case instruction.OpSIMDGeS:
		cmp(func(a, b int32) bool { return a >= b })
	case instruction.OpSIMDAbs:
		l := i32x4Lanes(t.pop())
		for i, v := range l {
			if v < 0 {
				l[i] = -v
			}
		}
		t.push(i32x4FromLanes(l))
	case instruction.OpSIMDNeg:
		l := i32x4Lanes(t.pop())
		for i, v := range l {
			l[i] = -v
		}
		t.push(i32x4FromLanes(l))
	case instruction.OpSIMDAllTrue:
		l := i32x4Lanes(t.pop())
		all := true
		for _, v := range l {
			all = all && v != 0
		}
		t.push(api.ValueI32(b2i32(all)))
	case instruction.OpSIMDAdd:
		b, a := i32x4Lanes(t.pop()), i32x4Lanes(t.pop())
		var out [4]int32
		for i := range out {
			out[i] = a[i] + b[i]
		}
		t.push(i32x4FromLanes(out))
	case instruction.OpSIMDSub:
		b, a := i32x4Lanes(t.pop()), i32x4Lanes(t.pop())
		var out [4]int32
		for i := range out {
			out[i] = a[i] - b[i]
		}
		t.push(i32x4FromLanes(out))
	case instruction.OpSIMDMul:
		b, a := i32x4Lanes(t.pop()), i32x4Lanes(t.pop())
		var out [4]int32
		for i := range out {
			out[i] = a[i] * b[i]
		}
		t.push(i32x4FromLanes(out))
	case instruction.OpSIMDMinS:
		b, a := i32x4Lanes(t.pop()), i32x4Lanes(t.pop())
		var out [4]int32
		for i := range out {
			if a[i] < b[i] {
				out[i] = a[i]
			} else {
				out[i] = b[i]
			}
		}
		t.push(i32x4FromLanes(out))
	case instruction.OpSIMDMaxS:
		b, a := i32x4Lanes(t.pop()), i32x4Lanes(t.pop())
		var out [4]int32
		for i := range out {
			if a[i] > b[i] {
				out[i] = a[i]
			} else {
				out[i] = b[i]
			}
		}
		t.push(i32x4FromLanes(out))
	case instruction.OpSIMDShl:
		amt := uint(t.pop().U32() & 31)
		l := i32x4Lanes(t.pop())
		for i := range l {
			l[i] <<= amt
		}
		t.push(i32x4FromLanes(l))
	case instruction.OpSIMDShrS:
		amt := uint(t.pop().U32() & 31)
		l := i32x4Lanes(t.pop())
		for i := range l {
			l[i] >>= amt
		}
		t.push(i32x4FromLanes(l))
	case instruction.OpSIMDDot:
		b, a := i16x8Lanes(t.pop()), i16x8Lanes(t.pop())
		var out [4]int32
		for i := range out {
			out[i] = int32(a[2*i])*int32(b[2*i]) + int32(a[2*i+1])*int32(b[2*i+1])
		}
		t.push(i32x4FromLanes(out))
	default:
		return signal{}, false
	}
	return nextSig(), true
}

func (t *Thread) dispatchSIMD64(in instruction.Instruction) (signal, bool) {
	cmp := func(f func(a, b int64) bool) {
		b, a := i64x2Lanes(t.pop()), i64x2Lanes(t.pop())
		var out [2]int64
		for i := range out {
			if f(a[i], b[i]) {
				out[i] = -1
			}
		}
		t.push(i64x2FromLanes(out))
	}
	switch in.Op {
	case instruction.OpSIMDEq:
		cmp(func(a, b int64) bool { return a == b })
	case instruction.OpSIMDNe:
		cmp(func(a, b int64) bool { return a != b })
	case instruction.OpSIMDLtS:
		cmp(func(a, b int64) bool { return a < b })
	case instruction.OpSIMDGtS:
		cmp(func(a, b int64) bool { return a > b })
	case instruction.OpSIMDLeS:
		cmp(func(a, b int64) bool { return a <= b })
	case instruction.OpSIMDGeS:
		cmp(func(a, b int64) bool { return a >= b })
	case instruction.OpSIMDAbs:
		l := i64x2Lanes(t.pop())
		for i, v := range l {
			if v < 0 {
				l[i] = -v
			}
		}
		t.push(i64x2FromLanes(l))
	case instruction.OpSIMDNeg:
		l := i64x2Lanes(t.pop())
		for i, v := range l {
			l[i] = -v
		}
		t.push(i64x2FromLanes(l))
	case instruction.OpSIMDAllTrue:
		l := i64x2Lanes(t.pop())
		all := true
		for _, v := range l {
			all = all && v != 0
		}
		t.push(api.ValueI32(b2i32(all)))
	case instruction.OpSIMDAdd:
		b, a := i64x2Lanes(t.pop()), i64x2Lanes(t.pop())
		var out [2]int64
		for i := range out {
			out[i] = a[i] + b[i]
		}
		t.push(i64x2FromLanes(out))
	case instruction.OpSIMDSub:
		b, a := i64x2Lanes(t.pop()), i64x2Lanes(t.pop())
		var out [2]int64
		for i := range out {
			out[i] = a[i] - b[i]
		}
		t.push(i64x2FromLanes(out))
	case instruction.OpSIMDMul:
		b, a := i64x2Lanes(t.pop()), i64x2Lanes(t.pop())
		var out [2]int64
		for i := range out {
			out[i] = a[i] * b[i]
		}
		t.push(i64x2FromLanes(out))
	case instruction.OpSIMDShl:
		amt := uint(t.pop().U32() & 63)
		l := i64x2Lanes(t.pop())
		for i := range l {
			l[i] <<= amt
		}
		t.push(i64x2FromLanes(l))
	case instruction.OpSIMDShrS:
		amt := uint(t.pop().U32() & 63)
		l := i64x2Lanes(t.pop())
		for i := range l {
			l[i] >>= amt
		}
		t.push(i64x2FromLanes(l))
	default:
		return signal{}, false
	}
	return nextSig(), true
}
