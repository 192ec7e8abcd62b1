// Package leb128 implements the variable-length integer encoding used
// throughout the WebAssembly binary format (unsigned and signed LEB128).
package leb128

import (
	"errors"
	"io"
)

// ErrOverflow is returned when a varint would not fit the target width.
var ErrOverflow = errors.New("leb128: integer overflow")

// maxVarintLenN mirrors encoding/binary's naming, sized for each width.
const (
	maxVarintLen32 = 5
	maxVarintLen64 = 10
)

// DecodeUint32 reads an unsigned LEB128 value no wider than 32 bits,
// returning the number of bytes consumed.
func DecodeUint32(r io.ByteReader) (uint32, uint32, error) {
	v, n, err := decodeUint(r, 32)
	return uint32(v), n, err
}

// DecodeUint64 reads an unsigned LEB128 value no wider than 64 bits.
func DecodeUint64(r io.ByteReader) (uint64, uint32, error) {
	return decodeUint(r, 64)
}

func decodeUint(r io.ByteReader, width int) (uint64, uint32, error) {
	var result uint64
	var shift uint
	var n uint32
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if shift+7 < uint(width) {
				return result, n, nil
			}
			// Final byte: high bits beyond width must be zero.
			if shift < uint(width) {
				mask := uint64(1)<<uint(width) - 1
				if result&^mask != 0 {
					return 0, n, ErrOverflow
				}
			}
			return result, n, nil
		}
		shift += 7
		if shift >= uint(width) {
			return 0, n, ErrOverflow
		}
	}
}

// DecodeInt32 reads a signed LEB128 value no wider than 32 bits.
func DecodeInt32(r io.ByteReader) (int32, uint32, error) {
	v, n, err := decodeInt(r, 32)
	return int32(v), n, err
}

// DecodeInt64 reads a signed LEB128 value no wider than 64 bits.
func DecodeInt64(r io.ByteReader) (int64, uint32, error) {
	v, n, err := decodeInt(r, 64)
	return v, n, err
}

// DecodeInt33AsInt64 reads a signed 33-bit LEB128 value, the width the
// binary format uses for block types encoded as a signed type index.
func DecodeInt33AsInt64(r io.ByteReader) (int64, uint32, error) {
	return decodeInt(r, 33)
}

func decodeInt(r io.ByteReader, width int) (int64, uint32, error) {
	var result int64
	var shift uint
	var n uint32
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, n, ErrOverflow
		}
	}
	// Sign-extend if the sign bit of the last byte read is set and we
	// haven't consumed the full width.
	if shift < uint(width) && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, n, nil
}

// EncodeUint32 encodes v as unsigned LEB128.
func EncodeUint32(v uint32) []byte { return encodeUint(uint64(v)) }

// EncodeUint64 encodes v as unsigned LEB128.
func EncodeUint64(v uint64) []byte { return encodeUint(v) }

func encodeUint(v uint64) []byte {
	out := make([]byte, 0, maxVarintLen64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// EncodeInt32 encodes v as signed LEB128.
func EncodeInt32(v int32) []byte { return encodeInt(int64(v)) }

// EncodeInt64 encodes v as signed LEB128.
func EncodeInt64(v int64) []byte { return encodeInt(v) }

func encodeInt(v int64) []byte {
	out := make([]byte, 0, maxVarintLen64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		done := (v == 0 && !signBitSet) || (v == -1 && signBitSet)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}
