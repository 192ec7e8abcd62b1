package interpreter

import (
	"math"
	"math/bits"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
	"github.com/nokotan/wasminspect/internal/moremath"
)

// dispatchNumeric handles every scalar i32/i64/f32/f64 comparison,
// arithmetic, conversion, sign-extension and saturating-truncation
// operator. It reports ok=false for any
// opcode it does not own, so engine.dispatch can fall through to the
// memory/table/SIMD/atomic dispatchers.
func (t *Thread) dispatchNumeric(in instruction.Instruction) (signal, bool) {
	switch in.Op {
	// i32 comparisons
	case instruction.OpI32Eqz:
		t.push(api.ValueI32(b2i32(t.pop().I32() == 0)))
	case instruction.OpI32Eq:
		a, b := t.pop2i32()
		t.push(api.ValueI32(b2i32(a == b)))
	case instruction.OpI32Ne:
		a, b := t.pop2i32()
		t.push(api.ValueI32(b2i32(a != b)))
	case instruction.OpI32LtS:
		a, b := t.pop2i32()
		t.push(api.ValueI32(b2i32(a < b)))
	case instruction.OpI32LtU:
		a, b := t.pop2u32()
		t.push(api.ValueI32(b2i32(a < b)))
	case instruction.OpI32GtS:
		a, b := t.pop2i32()
		t.push(api.ValueI32(b2i32(a > b)))
	case instruction.OpI32GtU:
		a, b := t.pop2u32()
		t.push(api.ValueI32(b2i32(a > b)))
	case instruction.OpI32LeS:
		a, b := t.pop2i32()
		t.push(api.ValueI32(b2i32(a <= b)))
	case instruction.OpI32LeU:
		a, b := t.pop2u32()
		t.push(api.ValueI32(b2i32(a <= b)))
	case instruction.OpI32GeS:
		a, b := t.pop2i32()
		t.push(api.ValueI32(b2i32(a >= b)))
	case instruction.OpI32GeU:
		a, b := t.pop2u32()
		t.push(api.ValueI32(b2i32(a >= b)))

	// i32 unary
	case instruction.OpI32Clz:
		t.push(api.ValueU32(uint32(bits.LeadingZeros32(t.pop().U32()))))
	case instruction.OpI32Ctz:
		t.push(api.ValueU32(uint32(bits.TrailingZeros32(t.pop().U32()))))
	case instruction.OpI32Popcnt:
		t.push(api.ValueU32(uint32(bits.OnesCount32(t.pop().U32()))))

	// i32 binary
	case instruction.OpI32Add:
		a, b := t.pop2u32()
		t.push(api.ValueU32(a + b))
	case instruction.OpI32Sub:
		a, b := t.pop2u32()
		t.push(api.ValueU32(a - b))
	case instruction.OpI32Mul:
		a, b := t.pop2u32()
		t.push(api.ValueU32(a * b))
	case instruction.OpI32DivS:
		a, b := t.pop2i32()
		if b == 0 {
			return trapSig(api.TrapDivisionByZero), true
		}
		if a == math.MinInt32 && b == -1 {
			return trapSig(api.TrapIntegerOverflow), true
		}
		t.push(api.ValueI32(a / b))
	case instruction.OpI32DivU:
		a, b := t.pop2u32()
		if b == 0 {
			return trapSig(api.TrapDivisionByZero), true
		}
		t.push(api.ValueU32(a / b))
	case instruction.OpI32RemS:
		a, b := t.pop2i32()
		if b == 0 {
			return trapSig(api.TrapDivisionByZero), true
		}
		if a == math.MinInt32 && b == -1 {
			t.push(api.ValueI32(0))
		} else {
			t.push(api.ValueI32(a % b))
		}
	case instruction.OpI32RemU:
		a, b := t.pop2u32()
		if b == 0 {
			return trapSig(api.TrapDivisionByZero), true
		}
		t.push(api.ValueU32(a % b))
	case instruction.OpI32And:
		a, b := t.pop2u32()
		t.push(api.ValueU32(a & b))
	case instruction.OpI32Or:
		a, b := t.pop2u32()
		t.push(api.ValueU32(a | b))
	case instruction.OpI32Xor:
		a, b := t.pop2u32()
		t.push(api.ValueU32(a ^ b))
	case instruction.OpI32Shl:
		a, b := t.pop2u32()
		t.push(api.ValueU32(a << (b & 31)))
	case instruction.OpI32ShrS:
		a, b := t.pop2i32()
		t.push(api.ValueI32(a >> (uint32(b) & 31)))
	case instruction.OpI32ShrU:
		a, b := t.pop2u32()
		t.push(api.ValueU32(a >> (b & 31)))
	case instruction.OpI32Rotl:
		a, b := t.pop2u32()
		t.push(api.ValueU32(bits.RotateLeft32(a, int(b))))
	case instruction.OpI32Rotr:
		a, b := t.pop2u32()
		t.push(api.ValueU32(bits.RotateLeft32(a, -int(b))))

	// i64 comparisons
	case instruction.OpI64Eqz:
		t.push(api.ValueI32(b2i32(t.pop().I64() == 0)))
	case instruction.OpI64Eq:
		a, b := t.pop2i64()
		t.push(api.ValueI32(b2i32(a == b)))
	case instruction.OpI64Ne:
		a, b := t.pop2i64()
		t.push(api.ValueI32(b2i32(a != b)))
	case instruction.OpI64LtS:
		a, b := t.pop2i64()
		t.push(api.ValueI32(b2i32(a < b)))
	case instruction.OpI64LtU:
		a, b := t.pop2u64()
		t.push(api.ValueI32(b2i32(a < b)))
	case instruction.OpI64GtS:
		a, b := t.pop2i64()
		t.push(api.ValueI32(b2i32(a > b)))
	case instruction.OpI64GtU:
		a, b := t.pop2u64()
		t.push(api.ValueI32(b2i32(a > b)))
	case instruction.OpI64LeS:
		a, b := t.pop2i64()
		t.push(api.ValueI32(b2i32(a <= b)))
	case instruction.OpI64LeU:
		a, b := t.pop2u64()
		t.push(api.ValueI32(b2i32(a <= b)))
	case instruction.OpI64GeS:
		a, b := t.pop2i64()
		t.push(api.ValueI32(b2i32(a >= b)))
	case instruction.OpI64GeU:
		a, b := t.pop2u64()
		t.push(api.ValueI32(b2i32(a >= b)))

	// i64 unary
	case instruction.OpI64Clz:
		t.push(api.ValueU64(uint64(bits.LeadingZeros64(t.pop().U64()))))
	case instruction.OpI64Ctz:
		t.push(api.ValueU64(uint64(bits.TrailingZeros64(t.pop().U64()))))
	case instruction.OpI64Popcnt:
		t.push(api.ValueU64(uint64(bits.OnesCount64(t.pop().U64()))))

	// i64 binary
	case instruction.OpI64Add:
		a, b := t.pop2u64()
		t.push(api.ValueU64(a + b))
	case instruction.OpI64Sub:
		a, b := t.pop2u64()
		t.push(api.ValueU64(a - b))
	case instruction.OpI64Mul:
		a, b := t.pop2u64()
		t.push(api.ValueU64(a * b))
	case instruction.OpI64DivS:
		a, b := t.pop2i64()
		if b == 0 {
			return trapSig(api.TrapDivisionByZero), true
		}
		if a == math.MinInt64 && b == -1 {
			return trapSig(api.TrapIntegerOverflow), true
		}
		t.push(api.ValueI64(a / b))
	case instruction.OpI64DivU:
		a, b := t.pop2u64()
		if b == 0 {
			return trapSig(api.TrapDivisionByZero), true
		}
		t.push(api.ValueU64(a / b))
	case instruction.OpI64RemS:
		a, b := t.pop2i64()
		if b == 0 {
			return trapSig(api.TrapDivisionByZero), true
		}
		if a == math.MinInt64 && b == -1 {
			t.push(api.ValueI64(0))
		} else {
			t.push(api.ValueI64(a % b))
		}
	case instruction.OpI64RemU:
		a, b := t.pop2u64()
		if b == 0 {
			return trapSig(api.TrapDivisionByZero), true
		}
		t.push(api.ValueU64(a % b))
	case instruction.OpI64And:
		a, b := t.pop2u64()
		t.push(api.ValueU64(a & b))
	case instruction.OpI64Or:
		a, b := t.pop2u64()
		t.push(api.ValueU64(a | b))
	case instruction.OpI64Xor:
		a, b := t.pop2u64()
		t.push(api.ValueU64(a ^ b))
	case instruction.OpI64Shl:
		a, b := t.pop2u64()
		t.push(api.ValueU64(a << (b & 63)))
	case instruction.OpI64ShrS:
		a, b := t.pop2i64()
		t.push(api.ValueI64(a >> (uint64(b) & 63)))
	case instruction.OpI64ShrU:
		a, b := t.pop2u64()
		t.push(api.ValueU64(a >> (b & 63)))
	case instruction.OpI64Rotl:
		a, b := t.pop2u64()
		t.push(api.ValueU64(bits.RotateLeft64(a, int(b))))
	case instruction.OpI64Rotr:
		a, b := t.pop2u64()
		t.push(api.ValueU64(bits.RotateLeft64(a, -int(b))))

	// f32 comparisons
	case instruction.OpF32Eq:
		a, b := t.pop2f32()
		t.push(api.ValueI32(b2i32(a == b)))
	case instruction.OpF32Ne:
		a, b := t.pop2f32()
		t.push(api.ValueI32(b2i32(a != b)))
	case instruction.OpF32Lt:
		a, b := t.pop2f32()
		t.push(api.ValueI32(b2i32(a < b)))
	case instruction.OpF32Gt:
		a, b := t.pop2f32()
		t.push(api.ValueI32(b2i32(a > b)))
	case instruction.OpF32Le:
		a, b := t.pop2f32()
		t.push(api.ValueI32(b2i32(a <= b)))
	case instruction.OpF32Ge:
		a, b := t.pop2f32()
		t.push(api.ValueI32(b2i32(a >= b)))

	// f32 unary/binary
	case instruction.OpF32Abs:
		t.push(api.ValueF32(float32(math.Abs(float64(t.pop().F32())))))
	case instruction.OpF32Neg:
		t.push(api.ValueF32(-t.pop().F32()))
	case instruction.OpF32Ceil:
		t.push(api.ValueF32(float32(math.Ceil(float64(t.pop().F32())))))
	case instruction.OpF32Floor:
		t.push(api.ValueF32(float32(math.Floor(float64(t.pop().F32())))))
	case instruction.OpF32Trunc:
		t.push(api.ValueF32(float32(math.Trunc(float64(t.pop().F32())))))
	case instruction.OpF32Nearest:
		t.push(api.ValueF32(moremath.WasmCompatNearest32(t.pop().F32())))
	case instruction.OpF32Sqrt:
		t.push(api.ValueF32(float32(math.Sqrt(float64(t.pop().F32())))))
	case instruction.OpF32Add:
		a, b := t.pop2f32()
		t.push(api.ValueF32(a + b))
	case instruction.OpF32Sub:
		a, b := t.pop2f32()
		t.push(api.ValueF32(a - b))
	case instruction.OpF32Mul:
		a, b := t.pop2f32()
		t.push(api.ValueF32(a * b))
	case instruction.OpF32Div:
		a, b := t.pop2f32()
		t.push(api.ValueF32(a / b))
	case instruction.OpF32Min:
		a, b := t.pop2f32()
		t.push(api.ValueF32(moremath.WasmCompatMin32(a, b)))
	case instruction.OpF32Max:
		a, b := t.pop2f32()
		t.push(api.ValueF32(moremath.WasmCompatMax32(a, b)))
	case instruction.OpF32Copysign:
		a, b := t.pop2f32()
		t.push(api.ValueF32(float32(math.Copysign(float64(a), float64(b)))))

	// f64 comparisons
	case instruction.OpF64Eq:
		a, b := t.pop2f64()
		t.push(api.ValueI32(b2i32(a == b)))
	case instruction.OpF64Ne:
		a, b := t.pop2f64()
		t.push(api.ValueI32(b2i32(a != b)))
	case instruction.OpF64Lt:
		a, b := t.pop2f64()
		t.push(api.ValueI32(b2i32(a < b)))
	case instruction.OpF64Gt:
		a, b := t.pop2f64()
		t.push(api.ValueI32(b2i32(a > b)))
	case instruction.OpF64Le:
		a, b := t.pop2f64()
		t.push(api.ValueI32(b2i32(a <= b)))
	case instruction.OpF64Ge:
		a, b := t.pop2f64()
		t.push(api.ValueI32(b2i32(a >= b)))

	// f64 unary/binary
	case instruction.OpF64Abs:
		t.push(api.ValueF64(math.Abs(t.pop().F64())))
	case instruction.OpF64Neg:
		t.push(api.ValueF64(-t.pop().F64()))
	case instruction.OpF64Ceil:
		t.push(api.ValueF64(math.Ceil(t.pop().F64())))
	case instruction.OpF64Floor:
		t.push(api.ValueF64(math.Floor(t.pop().F64())))
	case instruction.OpF64Trunc:
		t.push(api.ValueF64(math.Trunc(t.pop().F64())))
	case instruction.OpF64Nearest:
		t.push(api.ValueF64(moremath.WasmCompatNearest64(t.pop().F64())))
	case instruction.OpF64Sqrt:
		t.push(api.ValueF64(math.Sqrt(t.pop().F64())))
	case instruction.OpF64Add:
		a, b := t.pop2f64()
		t.push(api.ValueF64(a + b))
	case instruction.OpF64Sub:
		a, b := t.pop2f64()
		t.push(api.ValueF64(a - b))
	case instruction.OpF64Mul:
		a, b := t.pop2f64()
		t.push(api.ValueF64(a * b))
	case instruction.OpF64Div:
		a, b := t.pop2f64()
		t.push(api.ValueF64(a / b))
	case instruction.OpF64Min:
		a, b := t.pop2f64()
		t.push(api.ValueF64(moremath.WasmCompatMin64(a, b)))
	case instruction.OpF64Max:
		a, b := t.pop2f64()
		t.push(api.ValueF64(moremath.WasmCompatMax64(a, b)))
	case instruction.OpF64Copysign:
		a, b := t.pop2f64()
		t.push(api.ValueF64(math.Copysign(a, b)))

	// conversions
	case instruction.OpI32WrapI64:
		t.push(api.ValueU32(uint32(t.pop().U64())))
	case instruction.OpI32TruncF32S:
		return t.truncToI32(float64(t.pop().F32()), true, false)
	case instruction.OpI32TruncF32U:
		return t.truncToI32(float64(t.pop().F32()), false, false)
	case instruction.OpI32TruncF64S:
		return t.truncToI32(t.pop().F64(), true, false)
	case instruction.OpI32TruncF64U:
		return t.truncToI32(t.pop().F64(), false, false)
	case instruction.OpI64ExtendI32S:
		t.push(api.ValueI64(int64(t.pop().I32())))
	case instruction.OpI64ExtendI32U:
		t.push(api.ValueU64(uint64(t.pop().U32())))
	case instruction.OpI64TruncF32S:
		return t.truncToI64(float64(t.pop().F32()), true, false)
	case instruction.OpI64TruncF32U:
		return t.truncToI64(float64(t.pop().F32()), false, false)
	case instruction.OpI64TruncF64S:
		return t.truncToI64(t.pop().F64(), true, false)
	case instruction.OpI64TruncF64U:
		return t.truncToI64(t.pop().F64(), false, false)
	case instruction.OpF32ConvertI32S:
		t.push(api.ValueF32(float32(t.pop().I32())))
	case instruction.OpF32ConvertI32U:
		t.push(api.ValueF32(float32(t.pop().U32())))
	case instruction.OpF32ConvertI64S:
		t.push(api.ValueF32(float32(t.pop().I64())))
	case instruction.OpF32ConvertI64U:
		t.push(api.ValueF32(float32(t.pop().U64())))
	case instruction.OpF32DemoteF64:
		t.push(api.ValueF32(float32(t.pop().F64())))
	case instruction.OpF64ConvertI32S:
		t.push(api.ValueF64(float64(t.pop().I32())))
	case instruction.OpF64ConvertI32U:
		t.push(api.ValueF64(float64(t.pop().U32())))
	case instruction.OpF64ConvertI64S:
		t.push(api.ValueF64(float64(t.pop().I64())))
	case instruction.OpF64ConvertI64U:
		t.push(api.ValueF64(float64(t.pop().U64())))
	case instruction.OpF64PromoteF32:
		t.push(api.ValueF64(float64(t.pop().F32())))
	case instruction.OpI32ReinterpretF32:
		t.push(api.ValueU32(t.pop().F32Bits()))
	case instruction.OpI64ReinterpretF64:
		t.push(api.ValueU64(t.pop().F64Bits()))
	case instruction.OpF32ReinterpretI32:
		t.push(api.ValueF32FromBits(t.pop().U32()))
	case instruction.OpF64ReinterpretI64:
		t.push(api.ValueF64FromBits(t.pop().U64()))

	// sign extension
	case instruction.OpI32Extend8S:
		t.push(api.ValueI32(int32(int8(t.pop().U32()))))
	case instruction.OpI32Extend16S:
		t.push(api.ValueI32(int32(int16(t.pop().U32()))))
	case instruction.OpI64Extend8S:
		t.push(api.ValueI64(int64(int8(t.pop().U64()))))
	case instruction.OpI64Extend16S:
		t.push(api.ValueI64(int64(int16(t.pop().U64()))))
	case instruction.OpI64Extend32S:
		t.push(api.ValueI64(int64(int32(t.pop().U64()))))

	// saturating truncation (non-trapping conversions)
	case instruction.OpI32TruncSatF32S:
		t.push(api.ValueI32(satI32(float64(t.pop().F32()), true)))
	case instruction.OpI32TruncSatF32U:
		t.push(api.ValueU32(satU32(float64(t.pop().F32()))))
	case instruction.OpI32TruncSatF64S:
		t.push(api.ValueI32(satI32(t.pop().F64(), true)))
	case instruction.OpI32TruncSatF64U:
		t.push(api.ValueU32(satU32(t.pop().F64())))
	case instruction.OpI64TruncSatF32S:
		t.push(api.ValueI64(satI64(float64(t.pop().F32()))))
	case instruction.OpI64TruncSatF32U:
		t.push(api.ValueU64(satU64(float64(t.pop().F32()))))
	case instruction.OpI64TruncSatF64S:
		t.push(api.ValueI64(satI64(t.pop().F64())))
	case instruction.OpI64TruncSatF64U:
		t.push(api.ValueU64(satU64(t.pop().F64())))

	default:
		return signal{}, false
	}
	return nextSig(), true
}

func (t *Thread) pop2i32() (int32, int32) { b := t.pop().I32(); a := t.pop().I32(); return a, b }
func (t *Thread) pop2u32() (uint32, uint32) { b := t.pop().U32(); a := t.pop().U32(); return a, b }
func (t *Thread) pop2i64() (int64, int64) { b := t.pop().I64(); a := t.pop().I64(); return a, b }
func (t *Thread) pop2u64() (uint64, uint64) { b := t.pop().U64(); a := t.pop().U64(); return a, b }
func (t *Thread) pop2f32() (float32, float32) { b := t.pop().F32(); a := t.pop().F32(); return a, b }
func (t *Thread) pop2f64() (float64, float64) { b := t.pop().F64(); a := t.pop().F64(); return a, b }

// truncToI32 implements the non-saturating `i32.trunc_f32_*`/`i32.trunc_f64_*`
// family: traps InvalidConversionToInt on NaN, IntegerOverflow on a value
// outside the target range.
func (t *Thread) truncToI32(f float64, signed, _ bool) (signal, bool) {
	if math.IsNaN(f) {
		return trapSig(api.TrapInvalidConversionToInt), true
	}
	trunc := math.Trunc(f)
	if signed {
		if trunc < math.MinInt32 || trunc > math.MaxInt32 {
			return trapSig(api.TrapIntegerOverflow), true
		}
		t.push(api.ValueI32(int32(trunc)))
	} else {
		if trunc < 0 || trunc > math.MaxUint32 {
			return trapSig(api.TrapIntegerOverflow), true
		}
		t.push(api.ValueU32(uint32(trunc)))
	}
	return nextSig(), true
}

func (t *Thread) truncToI64(f float64, signed, _ bool) (signal, bool) {
	if math.IsNaN(f) {
		return trapSig(api.TrapInvalidConversionToInt), true
	}
	trunc := math.Trunc(f)
	if signed {
		if trunc < math.MinInt64 || trunc >= math.MaxInt64 {
			return trapSig(api.TrapIntegerOverflow), true
		}
		t.push(api.ValueI64(int64(trunc)))
	} else {
		if trunc < 0 || trunc >= math.MaxUint64 {
			return trapSig(api.TrapIntegerOverflow), true
		}
		t.push(api.ValueU64(uint64(trunc)))
	}
	return nextSig(), true
}

func satI32(f float64, _ bool) int32 {
	if math.IsNaN(f) {
		return 0
	}
	trunc := math.Trunc(f)
	switch {
	case trunc <= math.MinInt32:
		return math.MinInt32
	case trunc >= math.MaxInt32:
		return math.MaxInt32
	default:
		return int32(trunc)
	}
}

func satU32(f float64) uint32 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	trunc := math.Trunc(f)
	if trunc >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(trunc)
}

func satI64(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	trunc := math.Trunc(f)
	switch {
	case trunc <= math.MinInt64:
		return math.MinInt64
	case trunc >= math.MaxInt64:
		return math.MaxInt64
	default:
		return int64(trunc)
	}
}

func satU64(f float64) uint64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	trunc := math.Trunc(f)
	if trunc >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(trunc)
}
