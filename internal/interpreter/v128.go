package interpreter

import (
	"encoding/binary"
	"math"

	"github.com/nokotan/wasminspect/api"
)

// v128Bytes/v128FromBytes convert between api.Value's two-uint64-lane
// representation and a flat 16-byte array, the shape SIMD lane access
// naturally wants to slice. Lane indexing is little-endian.
func v128Bytes(v api.Value) [16]byte {
	lo, hi := v.V128()
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], lo)
	binary.LittleEndian.PutUint64(b[8:16], hi)
	return b
}

func v128FromBytes(b [16]byte) api.Value {
	lo := binary.LittleEndian.Uint64(b[0:8])
	hi := binary.LittleEndian.Uint64(b[8:16])
	return api.ValueV128(lo, hi)
}

func i8x16Lanes(v api.Value) (out [16]int8) {
	b := v128Bytes(v)
	for i := range out {
		out[i] = int8(b[i])
	}
	return out
}
func i8x16FromLanes(l [16]int8) api.Value {
	var b [16]byte
	for i, v := range l {
		b[i] = byte(v)
	}
	return v128FromBytes(b)
}

func i16x8Lanes(v api.Value) (out [8]int16) {
	b := v128Bytes(v)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}
func i16x8FromLanes(l [8]int16) api.Value {
	var b [16]byte
	for i, v := range l {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
	}
	return v128FromBytes(b)
}

func i32x4Lanes(v api.Value) (out [4]int32) {
	b := v128Bytes(v)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
func i32x4FromLanes(l [4]int32) api.Value {
	var b [16]byte
	for i, v := range l {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(v))
	}
	return v128FromBytes(b)
}

func i64x2Lanes(v api.Value) (out [2]int64) {
	lo, hi := v.V128()
	out[0], out[1] = int64(lo), int64(hi)
	return out
}
func i64x2FromLanes(l [2]int64) api.Value { return api.ValueV128(uint64(l[0]), uint64(l[1])) }

func f32x4Lanes(v api.Value) (out [4]float32) {
	b := v128Bytes(v)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
func f32x4FromLanes(l [4]float32) api.Value {
	var b [16]byte
	for i, v := range l {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return v128FromBytes(b)
}

func f64x2Lanes(v api.Value) (out [2]float64) {
	lo, hi := v.V128()
	out[0], out[1] = math.Float64frombits(lo), math.Float64frombits(hi)
	return out
}
func f64x2FromLanes(l [2]float64) api.Value {
	return api.ValueV128(math.Float64bits(l[0]), math.Float64bits(l[1]))
}
