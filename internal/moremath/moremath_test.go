package moremath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWasmCompatMin64(t *testing.T) {
	require.Equal(t, WasmCompatMin64(-1.1, 123), -1.1)
	require.Equal(t, WasmCompatMin64(-1.1, math.Inf(1)), -1.1)
	require.Equal(t, WasmCompatMin64(math.Inf(-1), 123), math.Inf(-1))

	// NaN cannot be compared with themselves, so we have to use IsNaN.
	require.True(t, math.IsNaN(WasmCompatMin64(math.NaN(), 1.0)))
	require.True(t, math.IsNaN(WasmCompatMin64(1.0, math.NaN())))
	require.True(t, math.IsNaN(WasmCompatMin64(math.Inf(-1), math.NaN())))
	require.True(t, math.IsNaN(WasmCompatMin64(math.Inf(1), math.NaN())))
	require.True(t, math.IsNaN(WasmCompatMin64(math.NaN(), math.NaN())))
}

func TestWasmCompatMax64(t *testing.T) {
	require.Equal(t, WasmCompatMax64(-1.1, 123.1), 123.1)
	require.Equal(t, WasmCompatMax64(-1.1, math.Inf(1)), math.Inf(1))
	require.Equal(t, WasmCompatMax64(math.Inf(-1), 123.1), 123.1)

	require.True(t, math.IsNaN(WasmCompatMax64(math.NaN(), 1.0)))
	require.True(t, math.IsNaN(WasmCompatMax64(1.0, math.NaN())))
	require.True(t, math.IsNaN(WasmCompatMax64(math.Inf(-1), math.NaN())))
	require.True(t, math.IsNaN(WasmCompatMax64(math.Inf(1), math.NaN())))
	require.True(t, math.IsNaN(WasmCompatMax64(math.NaN(), math.NaN())))
}

func TestWasmCompatMin32Max32(t *testing.T) {
	require.Equal(t, WasmCompatMin32(-1.1, 2.2), float32(-1.1))
	require.Equal(t, WasmCompatMax32(-1.1, 2.2), float32(2.2))
	require.True(t, math.IsNaN(float64(WasmCompatMin32(float32(math.NaN()), 1.0))))
}

func TestWasmCompatNearest32(t *testing.T) {
	require.Equal(t, WasmCompatNearest32(-1.5), float32(-2.0))

	// This is the diff from math.Round.
	require.Equal(t, WasmCompatNearest32(-4.5), float32(-4.0))
	require.Equal(t, float32(math.Round(-4.5)), float32(-5.0))
}

func TestWasmCompatNearest64(t *testing.T) {
	require.Equal(t, WasmCompatNearest64(-1.5), -2.0)

	// This is the diff from math.Round.
	require.Equal(t, WasmCompatNearest64(-4.5), -4.0)
	require.Equal(t, math.Round(-4.5), -5.0)
}
