package rpc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/api"
)

func TestEncodeDecodeValue_RoundTrip(t *testing.T) {
	cases := []api.Value{
		api.ValueI32(-7),
		api.ValueI32(math.MaxInt32),
		api.ValueI64(-123456789),
		api.ValueF32(3.5),
		api.ValueF32FromBits(0x7fc00000), // a NaN payload
		api.ValueF64(2.71828),
	}
	for _, v := range cases {
		wire := EncodeValue(v)
		got, err := DecodeValue(wire)
		require.NoError(t, err)
		require.True(t, v.Equal(got), "round trip mismatch for %s", v)
	}
}

func TestDecodeValue_UnknownType(t *testing.T) {
	_, err := DecodeValue(WasmValue{Type: "v128"})
	require.Error(t, err)
}

func TestMarshalText_AddsTypeTag(t *testing.T) {
	body, err := marshalText("Version", VersionResponse{Value: "1.2.3"})
	require.NoError(t, err)
	require.Contains(t, string(body), `"type":"Version"`)
	require.Contains(t, string(body), `"value":"1.2.3"`)
}
