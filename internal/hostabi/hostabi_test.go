package hostabi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/hostabi"
	"github.com/nokotan/wasminspect/internal/wasm"
)

func TestWrap_PlainIntFunc(t *testing.T) {
	sig, hf, err := hostabi.Wrap(func(a, b int32) int32 { return a + b })
	require.NoError(t, err)
	require.Equal(t, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, sig.Params)
	require.Equal(t, []api.ValueType{api.ValueTypeI32}, sig.Results)

	out := make([]api.Value, 1)
	err = hf(context.Background(), []api.Value{api.ValueI32(2), api.ValueI32(3)}, out, wasm.HostContext{}, nil)
	require.NoError(t, err)
	require.Equal(t, int32(5), out[0].I32())
}

func TestWrap_WithContextAndHostContext(t *testing.T) {
	var sawMem []byte
	sig, hf, err := hostabi.Wrap(func(ctx context.Context, hc wasm.HostContext, ptr uint32) uint32 {
		sawMem = hc.Mem
		return ptr + 1
	})
	require.NoError(t, err)
	require.Equal(t, []api.ValueType{api.ValueTypeI32}, sig.Params)

	out := make([]api.Value, 1)
	mem := []byte{1, 2, 3}
	err = hf(context.Background(), []api.Value{api.ValueU32(41)}, out, wasm.HostContext{Mem: mem}, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(42), out[0].U32())
	require.Equal(t, mem, sawMem)
}

func TestWrap_TrailingErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	_, hf, err := hostabi.Wrap(func(a int32) (int32, error) {
		if a < 0 {
			return 0, boom
		}
		return a, nil
	})
	require.NoError(t, err)

	out := make([]api.Value, 1)
	err = hf(context.Background(), []api.Value{api.ValueI32(-1)}, out, wasm.HostContext{}, nil)
	require.ErrorIs(t, err, boom)
}

func TestWrap_RejectsUnsupportedType(t *testing.T) {
	_, _, err := hostabi.Wrap(func(s string) {})
	require.Error(t, err)
}

func TestWrap_RejectsNonFunc(t *testing.T) {
	_, _, err := hostabi.Wrap(42)
	require.Error(t, err)
}

func TestMustWrap_PanicsOnBadSignature(t *testing.T) {
	require.Panics(t, func() {
		hostabi.MustWrap(func(s string) {})
	})
}
