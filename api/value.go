// Package api includes the value vocabulary and trap taxonomy shared by
// every layer of wasminspect: the decoder, the store, the executor, the
// debugger controller and the RPC proxy all exchange api.Value and
// api.Trap rather than layer-specific types.
package api

import (
	"fmt"
	"math"
)

// ValueType describes the shape of an api.Value. Unlike the WebAssembly 1.0
// (MVP) value types, this also enumerates the vector and reference types
// needed by the SIMD-128, reference-types and exception-handling
// extensions decoded by internal/instruction.
//
// See https://webassembly.github.io/spec/core/syntax/types.html#value-types
type ValueType byte

const (
	// ValueTypeI32 is a 32-bit integer.
	ValueTypeI32 ValueType = 0x7f
	// ValueTypeI64 is a 64-bit integer.
	ValueTypeI64 ValueType = 0x7e
	// ValueTypeF32 is a 32-bit floating point number, carried in its bit
	// pattern so that NaN payloads survive.
	ValueTypeF32 ValueType = 0x7d
	// ValueTypeF64 is a 64-bit floating point number, carried in its bit
	// pattern so that NaN payloads survive.
	ValueTypeF64 ValueType = 0x7c
	// ValueTypeV128 is a 128-bit vector used by the SIMD-128 extension.
	ValueTypeV128 ValueType = 0x7b
	// ValueTypeFuncRef is a nullable handle to a function instance.
	ValueTypeFuncRef ValueType = 0x70
	// ValueTypeExternRef is a nullable opaque handle supplied by the host.
	ValueTypeExternRef ValueType = 0x6f
)

// String implements fmt.Stringer, returning the WebAssembly text format
// name for the type, or "unknown" for an undefined value.
func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncRef:
		return "funcref"
	case ValueTypeExternRef:
		return "externref"
	default:
		return "unknown"
	}
}

// Size returns the width in bytes implied by the type, used by memory
// operators to compute effective-address bounds checks.
func (t ValueType) Size() int {
	switch t {
	case ValueTypeI32, ValueTypeF32:
		return 4
	case ValueTypeI64, ValueTypeF64, ValueTypeFuncRef, ValueTypeExternRef:
		return 8
	case ValueTypeV128:
		return 16
	default:
		return 0
	}
}

// nullRef is the bit pattern used for a null funcref/externref, matching
// the nullable reference representation of the WebAssembly reference-types
// proposal.
const nullRef = ^uint64(0)

// Value is a tagged scalar in one of the seven variants the Core spec
// (plus its SIMD and reference-types extensions) requires. The payload is
// always bit-preserving: floats carry their IEEE-754 bit pattern rather
// than a converted Go float, so NaN payloads round-trip exactly.
type Value struct {
	Type ValueType
	lo   uint64
	hi   uint64 // only meaningful for ValueTypeV128
}

// ValueI32 constructs an i32 value from its signed representation.
func ValueI32(v int32) Value { return Value{Type: ValueTypeI32, lo: uint64(uint32(v))} }

// ValueU32 constructs an i32 value from its unsigned representation.
func ValueU32(v uint32) Value { return Value{Type: ValueTypeI32, lo: uint64(v)} }

// ValueI64 constructs an i64 value.
func ValueI64(v int64) Value { return Value{Type: ValueTypeI64, lo: uint64(v)} }

// ValueU64 constructs an i64 value from its unsigned representation.
func ValueU64(v uint64) Value { return Value{Type: ValueTypeI64, lo: v} }

// ValueF32 constructs an f32 value, preserving v's exact bit pattern.
func ValueF32(v float32) Value { return Value{Type: ValueTypeF32, lo: uint64(math.Float32bits(v))} }

// ValueF32FromBits constructs an f32 value directly from its 32-bit encoding.
func ValueF32FromBits(bits uint32) Value { return Value{Type: ValueTypeF32, lo: uint64(bits)} }

// ValueF64 constructs an f64 value, preserving v's exact bit pattern.
func ValueF64(v float64) Value { return Value{Type: ValueTypeF64, lo: math.Float64bits(v)} }

// ValueF64FromBits constructs an f64 value directly from its 64-bit encoding.
func ValueF64FromBits(bits uint64) Value { return Value{Type: ValueTypeF64, lo: bits} }

// ValueV128 constructs a v128 value from its two 64-bit lanes (low first).
func ValueV128(lo, hi uint64) Value { return Value{Type: ValueTypeV128, lo: lo, hi: hi} }

// ValueFuncRef constructs a funcref value from a store-relative function
// index. A zero-value index with ok=false denotes the null reference.
func ValueFuncRef(idx uint64, ok bool) Value {
	if !ok {
		return Value{Type: ValueTypeFuncRef, lo: nullRef}
	}
	return Value{Type: ValueTypeFuncRef, lo: idx}
}

// ValueExternRef constructs an externref value from an opaque host handle.
func ValueExternRef(idx uint64, ok bool) Value {
	if !ok {
		return Value{Type: ValueTypeExternRef, lo: nullRef}
	}
	return Value{Type: ValueTypeExternRef, lo: idx}
}

// NullFuncRef is the null funcref value.
func NullFuncRef() Value { return Value{Type: ValueTypeFuncRef, lo: nullRef} }

// NullExternRef is the null externref value.
func NullExternRef() Value { return Value{Type: ValueTypeExternRef, lo: nullRef} }

// Default returns the zero value for t, used to initialize locals that
// were not supplied as parameters.
func Default(t ValueType) Value {
	switch t {
	case ValueTypeFuncRef:
		return NullFuncRef()
	case ValueTypeExternRef:
		return NullExternRef()
	default:
		return Value{Type: t}
	}
}

// I32 decodes the value's signed 32-bit representation.
func (v Value) I32() int32 { return int32(uint32(v.lo)) }

// U32 decodes the value's unsigned 32-bit representation.
func (v Value) U32() uint32 { return uint32(v.lo) }

// I64 decodes the value's signed 64-bit representation.
func (v Value) I64() int64 { return int64(v.lo) }

// U64 decodes the value's unsigned 64-bit representation.
func (v Value) U64() uint64 { return v.lo }

// F32 decodes the value's 32-bit float, reinterpreting its bit pattern.
func (v Value) F32() float32 { return math.Float32frombits(uint32(v.lo)) }

// F32Bits returns the raw 32-bit encoding of an f32 value.
func (v Value) F32Bits() uint32 { return uint32(v.lo) }

// F64 decodes the value's 64-bit float, reinterpreting its bit pattern.
func (v Value) F64() float64 { return math.Float64frombits(v.lo) }

// F64Bits returns the raw 64-bit encoding of an f64 value.
func (v Value) F64Bits() uint64 { return v.lo }

// V128 returns the two 64-bit lanes (low, high) of a v128 value.
func (v Value) V128() (lo, hi uint64) { return v.lo, v.hi }

// IsNullRef reports whether a funcref/externref value is the null
// reference.
func (v Value) IsNullRef() bool { return v.lo == nullRef }

// RefIndex returns the store-relative index carried by a non-null
// funcref/externref.
func (v Value) RefIndex() uint64 { return v.lo }

// Bits returns the raw two-word payload, used by the executor's stack and
// by wire encoding.
func (v Value) Bits() (lo, hi uint64) { return v.lo, v.hi }

// Equal compares two values for bit-identity: floats compare by bit
// pattern (so two differently-payloaded NaNs are unequal), the
// deterministic notion of equality tests need. Execution-time comparisons
// (f32.eq et al.) use IEEE-754 semantics instead, implemented in
// internal/interpreter.
func (v Value) Equal(other Value) bool {
	return v.Type == other.Type && v.lo == other.lo && v.hi == other.hi
}

// String implements fmt.Stringer for debugger/RPC display.
func (v Value) String() string {
	switch v.Type {
	case ValueTypeI32:
		return fmt.Sprintf("i32:%d", v.I32())
	case ValueTypeI64:
		return fmt.Sprintf("i64:%d", v.I64())
	case ValueTypeF32:
		return fmt.Sprintf("f32:%g", v.F32())
	case ValueTypeF64:
		return fmt.Sprintf("f64:%g", v.F64())
	case ValueTypeV128:
		return fmt.Sprintf("v128:%016x%016x", v.hi, v.lo)
	case ValueTypeFuncRef:
		if v.IsNullRef() {
			return "funcref:null"
		}
		return fmt.Sprintf("funcref:%d", v.lo)
	case ValueTypeExternRef:
		if v.IsNullRef() {
			return "externref:null"
		}
		return fmt.Sprintf("externref:%d", v.lo)
	default:
		return "unknown"
	}
}
