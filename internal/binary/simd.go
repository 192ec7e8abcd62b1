package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nokotan/wasminspect/internal/instruction"
)

// decodeSIMDInstruction handles the 0xFD-prefixed SIMD-128 family.
// Sub-opcodes 0-10 (v128.load, the widening loads and the splat loads)
// carry their WebAssembly SIMD byte values. From 11 upward the assignment
// is local to this decoder: the two zero-extending loads at 11-12, store,
// const, shuffle, swizzle, the splats and the lane operators at 13-36, the
// bitwise operators at 37-43, and the large per-shape
// arithmetic/comparison surface at 44+ — see .B for why exact
// byte-for-byte fidelity there is out of scope. The lane-wise loads and
// stores (v128.load8_lane and the rest) are not decoded.
func decodeSIMDInstruction(r *bytes.Reader) (instruction.Instruction, error) {
	sub, err := u32(r)
	if err != nil {
		return instruction.Instruction{}, err
	}
	switch sub {
	case 0:
		mem, err := decodeMemArg(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpV128Load, Mem: mem}, nil
	case 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12:
		mem, err := decodeMemArg(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: simdLoadOpcodes[sub], Mem: mem}, nil
	case 13:
		mem, err := decodeMemArg(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpV128Store, Mem: mem}, nil
	case 14:
		var bytesLiteral [16]byte
		if _, err := io.ReadFull(r, bytesLiteral[:]); err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpV128Const, ConstV128: bytesLiteral}, nil
	case 15:
		var lanes [16]byte
		if _, err := io.ReadFull(r, lanes[:]); err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpI8x16Shuffle, Lanes: lanes}, nil
	case 16:
		return instruction.Instruction{Op: instruction.OpI8x16Swizzle}, nil
	case 17, 18, 19, 20, 21, 22:
		return instruction.Instruction{Op: splatOpcodes[sub]}, nil
	case 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36:
		lane, err := r.ReadByte()
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: laneOpcodes[sub], Lane: lane}, nil
	case 37, 38, 39, 40, 41, 42, 43:
		return instruction.Instruction{Op: bitwiseOpcodes[sub]}, nil
	default:
		if entry, ok := shapeGenericOpcodes[sub]; ok {
			return instruction.Instruction{Op: entry.op, Shape: entry.shape}, nil
		}
		return instruction.Instruction{}, fmt.Errorf("unknown 0xfd sub-opcode %d", sub)
	}
}

var simdLoadOpcodes = map[uint32]instruction.Opcode{
	1: instruction.OpV128Load8x8S, 2: instruction.OpV128Load8x8U,
	3: instruction.OpV128Load16x4S, 4: instruction.OpV128Load16x4U,
	5: instruction.OpV128Load32x2S, 6: instruction.OpV128Load32x2U,
	7: instruction.OpV128Load8Splat, 8: instruction.OpV128Load16Splat,
	9: instruction.OpV128Load32Splat, 10: instruction.OpV128Load64Splat,
	11: instruction.OpV128Load32Zero, 12: instruction.OpV128Load64Zero,
}

var splatOpcodes = map[uint32]instruction.Opcode{
	17: instruction.OpI8x16Splat, 18: instruction.OpI16x8Splat, 19: instruction.OpI32x4Splat,
	20: instruction.OpI64x2Splat, 21: instruction.OpF32x4Splat, 22: instruction.OpF64x2Splat,
}

var laneOpcodes = map[uint32]instruction.Opcode{
	23: instruction.OpI8x16ExtractLaneS, 24: instruction.OpI8x16ExtractLaneU, 25: instruction.OpI8x16ReplaceLane,
	26: instruction.OpI16x8ExtractLaneS, 27: instruction.OpI16x8ExtractLaneU, 28: instruction.OpI16x8ReplaceLane,
	29: instruction.OpI32x4ExtractLane, 30: instruction.OpI32x4ReplaceLane,
	31: instruction.OpI64x2ExtractLane, 32: instruction.OpI64x2ReplaceLane,
	33: instruction.OpF32x4ExtractLane, 34: instruction.OpF32x4ReplaceLane,
	35: instruction.OpF64x2ExtractLane, 36: instruction.OpF64x2ReplaceLane,
}

var bitwiseOpcodes = map[uint32]instruction.Opcode{
	37: instruction.OpV128Not, 38: instruction.OpV128And, 39: instruction.OpV128AndNot,
	40: instruction.OpV128Or, 41: instruction.OpV128Xor, 42: instruction.OpV128Bitselect,
	43: instruction.OpV128AnyTrue,
}

type shapedOp struct {
	op    instruction.Opcode
	shape instruction.Shape
}

// shapeGenericOpcodes assigns each (generic per-shape op, Shape) pair a
// sequential sub-opcode, grouped by shape, continuing numerically after
// the fixed prefix above (44+).
var shapeGenericOpcodes = buildShapeGenericOpcodes()

func buildShapeGenericOpcodes() map[uint32]shapedOp {
	shapes := []instruction.Shape{
		instruction.ShapeI8x16, instruction.ShapeI16x8, instruction.ShapeI32x4,
		instruction.ShapeI64x2, instruction.ShapeF32x4, instruction.ShapeF64x2,
	}
	ops := []instruction.Opcode{
		instruction.OpSIMDEq, instruction.OpSIMDNe,
		instruction.OpSIMDLtS, instruction.OpSIMDLtU, instruction.OpSIMDGtS, instruction.OpSIMDGtU,
		instruction.OpSIMDLeS, instruction.OpSIMDLeU, instruction.OpSIMDGeS, instruction.OpSIMDGeU,
		instruction.OpSIMDAbs, instruction.OpSIMDNeg, instruction.OpSIMDAllTrue, instruction.OpSIMDBitmask,
		instruction.OpSIMDShl, instruction.OpSIMDShrS, instruction.OpSIMDShrU,
		instruction.OpSIMDAdd, instruction.OpSIMDAddSatS, instruction.OpSIMDAddSatU,
		instruction.OpSIMDSub, instruction.OpSIMDSubSatS, instruction.OpSIMDSubSatU,
		instruction.OpSIMDMul, instruction.OpSIMDMinS, instruction.OpSIMDMinU, instruction.OpSIMDMaxS, instruction.OpSIMDMaxU,
		instruction.OpSIMDAvgrU,
		instruction.OpSIMDNarrowS, instruction.OpSIMDNarrowU,
		instruction.OpSIMDExtendLowS, instruction.OpSIMDExtendLowU, instruction.OpSIMDExtendHighS, instruction.OpSIMDExtendHighU,
		instruction.OpSIMDExtMulLowS, instruction.OpSIMDExtMulLowU, instruction.OpSIMDExtMulHighS, instruction.OpSIMDExtMulHighU,
		instruction.OpSIMDExtAddPairwiseS, instruction.OpSIMDExtAddPairwiseU,
		instruction.OpSIMDQ15MulrSatS, instruction.OpSIMDDot,
		instruction.OpSIMDCeil, instruction.OpSIMDFloor, instruction.OpSIMDTrunc, instruction.OpSIMDNearest, instruction.OpSIMDSqrt,
		instruction.OpSIMDDiv, instruction.OpSIMDMin, instruction.OpSIMDMax, instruction.OpSIMDPMin, instruction.OpSIMDPMax,
		instruction.OpSIMDConvertI32x4S, instruction.OpSIMDConvertI32x4U,
		instruction.OpSIMDTruncSatF32x4S, instruction.OpSIMDTruncSatF32x4U,
		instruction.OpSIMDTruncSatZeroF64x2S, instruction.OpSIMDTruncSatZeroF64x2U,
		instruction.OpSIMDConvertLowI32x4S, instruction.OpSIMDConvertLowI32x4U,
		instruction.OpSIMDDemoteZeroF64x2, instruction.OpSIMDPromoteLowF32x4,
	}
	out := map[uint32]shapedOp{}
	next := uint32(44)
	for _, shape := range shapes {
		for _, op := range ops {
			out[next] = shapedOp{op: op, shape: shape}
			next++
		}
	}
	return out
}
