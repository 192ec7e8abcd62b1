package api

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueI32RoundTrip(t *testing.T) {
	v := ValueI32(-7)
	require.Equal(t, ValueTypeI32, v.Type)
	require.Equal(t, int32(-7), v.I32())
	require.Equal(t, uint32(0xfffffff9), v.U32())
}

func TestValueU64RoundTrip(t *testing.T) {
	v := ValueU64(math.MaxUint64)
	require.Equal(t, uint64(math.MaxUint64), v.U64())
	require.Equal(t, int64(-1), v.I64())
}

func TestValueFloatBitsPreserveNaNPayload(t *testing.T) {
	// A NaN with a specific, non-canonical payload must survive a trip
	// through ValueF32FromBits/F32Bits untouched: Equal is bit-equality,
	// not IEEE-754 equality, precisely so two differently-payloaded NaNs
	// are distinguishable.
	bits := uint32(0x7fc00001)
	v := ValueF32FromBits(bits)
	require.True(t, math.IsNaN(float64(v.F32())))
	require.Equal(t, bits, v.F32Bits())

	other := ValueF32FromBits(0x7fc00002)
	require.False(t, v.Equal(other))
}

func TestValueF64FromBitsRoundTrip(t *testing.T) {
	bits := math.Float64bits(3.25)
	v := ValueF64FromBits(bits)
	require.Equal(t, 3.25, v.F64())
	require.Equal(t, bits, v.F64Bits())
}

func TestValueV128Lanes(t *testing.T) {
	v := ValueV128(0x0102030405060708, 0x1112131415161718)
	lo, hi := v.V128()
	require.Equal(t, uint64(0x0102030405060708), lo)
	require.Equal(t, uint64(0x1112131415161718), hi)
}

func TestFuncRefNullAndNonNull(t *testing.T) {
	null := NullFuncRef()
	require.True(t, null.IsNullRef())

	ref := ValueFuncRef(42, true)
	require.False(t, ref.IsNullRef())
	require.Equal(t, uint64(42), ref.RefIndex())

	// The "not ok" constructor form collapses to null regardless of the
	// index argument, matching the nullable-reference representation.
	notOK := ValueFuncRef(42, false)
	require.True(t, notOK.IsNullRef())
}

func TestExternRefNullAndNonNull(t *testing.T) {
	require.True(t, NullExternRef().IsNullRef())
	ref := ValueExternRef(7, true)
	require.False(t, ref.IsNullRef())
	require.Equal(t, uint64(7), ref.RefIndex())
}

func TestDefaultForEachValType(t *testing.T) {
	require.Equal(t, ValueI32(0), Default(ValueTypeI32))
	require.Equal(t, ValueI64(0), Default(ValueTypeI64))
	require.True(t, Default(ValueTypeFuncRef).IsNullRef())
	require.True(t, Default(ValueTypeExternRef).IsNullRef())
}

func TestValueTypeStringAndSize(t *testing.T) {
	cases := []struct {
		t    ValueType
		name string
		size int
	}{
		{ValueTypeI32, "i32", 4},
		{ValueTypeI64, "i64", 8},
		{ValueTypeF32, "f32", 4},
		{ValueTypeF64, "f64", 8},
		{ValueTypeV128, "v128", 16},
		{ValueTypeFuncRef, "funcref", 8},
		{ValueTypeExternRef, "externref", 8},
	}
	for _, c := range cases {
		require.Equal(t, c.name, c.t.String())
		require.Equal(t, c.size, c.t.Size())
	}
	require.Equal(t, "unknown", ValueType(0).String())
	require.Equal(t, 0, ValueType(0).Size())
}

func TestValueEqualIsBitIdentityNotIEEE(t *testing.T) {
	nan1 := ValueF64FromBits(0x7ff8000000000001)
	nan2 := ValueF64FromBits(0x7ff8000000000001)
	require.True(t, nan1.Equal(nan2))

	differentType := ValueI32(0)
	zeroF32 := ValueF32(0)
	require.False(t, differentType.Equal(zeroF32))
}

func TestValueString(t *testing.T) {
	require.Equal(t, "i32:-1", ValueI32(-1).String())
	require.Equal(t, "funcref:null", NullFuncRef().String())
	require.Equal(t, "externref:5", ValueExternRef(5, true).String())
}
