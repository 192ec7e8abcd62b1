package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
	"github.com/nokotan/wasminspect/internal/leb128"
)

// decodeInstructions lifts a function body's instruction stream (the
// bytes after the locals prelude) into the normalized Instruction vector,
// tagging each with its byte offset relative to the body's payload start.
func decodeInstructions(body []byte) ([]instruction.Instruction, error) {
	r := bytes.NewReader(body)
	var out []instruction.Instruction
	for r.Len() > 0 {
		offset := uint32(len(body) - r.Len())
		op, err := r.ReadByte()
		if err != nil {
			return nil, &DecodeError{Offset: int64(offset), Reason: err.Error()}
		}
		inst, err := decodeOneInstruction(op, r)
		if err != nil {
			return nil, &DecodeError{Offset: int64(offset), Reason: err.Error()}
		}
		inst.Offset = offset
		out = append(out, inst)
	}
	return out, nil
}

func decodeOneInstruction(op byte, r *bytes.Reader) (instruction.Instruction, error) {
	switch op {
	case 0x00:
		return instruction.Instruction{Op: instruction.OpUnreachable}, nil
	case 0x01:
		return instruction.Instruction{Op: instruction.OpNop}, nil
	case 0x02, 0x03, 0x04:
		bt, err := decodeBlockType(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		kind := instruction.OpBlock
		if op == 0x03 {
			kind = instruction.OpLoop
		} else if op == 0x04 {
			kind = instruction.OpIf
		}
		return instruction.Instruction{Op: kind, Block: &bt}, nil
	case 0x05:
		return instruction.Instruction{Op: instruction.OpElse}, nil
	case 0x06:
		bt, err := decodeBlockType(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpTry, Block: &bt}, nil
	case 0x07:
		idx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpCatch, TagIndex: idx}, nil
	case 0x08:
		idx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpThrow, TagIndex: idx}, nil
	case 0x09:
		depth, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpRethrow, RelativeDepth: depth}, nil
	case 0x18:
		depth, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpDelegate, RelativeDepth: depth}, nil
	case 0x19:
		return instruction.Instruction{Op: instruction.OpCatchAll}, nil
	case 0x0b:
		return instruction.Instruction{Op: instruction.OpEnd}, nil
	case 0x0c, 0x0d:
		depth, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		kind := instruction.OpBr
		if op == 0x0d {
			kind = instruction.OpBrIf
		}
		return instruction.Instruction{Op: kind, RelativeDepth: depth}, nil
	case 0x0e:
		bt, err := decodeBrTable(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpBrTable, BrTable: &bt}, nil
	case 0x0f:
		return instruction.Instruction{Op: instruction.OpReturn}, nil
	case 0x10:
		idx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpCall, FuncIndex: idx}, nil
	case 0x11:
		typeIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		tableIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpCallIndirect, TypeIndex: typeIdx, TableIndex: tableIdx}, nil
	case 0x12:
		idx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpReturnCall, FuncIndex: idx}, nil
	case 0x13:
		typeIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		tableIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpReturnCallIndirect, TypeIndex: typeIdx, TableIndex: tableIdx}, nil
	case 0x1a:
		return instruction.Instruction{Op: instruction.OpDrop}, nil
	case 0x1b:
		return instruction.Instruction{Op: instruction.OpSelect}, nil
	case 0x1c:
		types, err := decodeValueTypeVector(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		vt := api.ValueTypeI32
		if len(types) > 0 {
			vt = types[0]
		}
		return instruction.Instruction{Op: instruction.OpTypedSelect, ValType: vt}, nil
	case 0x20, 0x21, 0x22:
		idx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		kind := instruction.OpLocalGet
		if op == 0x21 {
			kind = instruction.OpLocalSet
		} else if op == 0x22 {
			kind = instruction.OpLocalTee
		}
		return instruction.Instruction{Op: kind, LocalIndex: idx}, nil
	case 0x23, 0x24:
		idx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		kind := instruction.OpGlobalGet
		if op == 0x24 {
			kind = instruction.OpGlobalSet
		}
		return instruction.Instruction{Op: kind, GlobalIndex: idx}, nil
	case 0x25, 0x26:
		idx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		kind := instruction.OpTableGet
		if op == 0x26 {
			kind = instruction.OpTableSet
		}
		return instruction.Instruction{Op: kind, TableIndex: idx}, nil
	case 0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f,
		0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37,
		0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d, 0x3e:
		mem, err := decodeMemArg(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: memOpcodes[op], Mem: mem}, nil
	case 0x3f, 0x40:
		memIdx, err := r.ReadByte()
		if err != nil {
			return instruction.Instruction{}, err
		}
		if memIdx != 0 {
			return instruction.Instruction{}, fmt.Errorf("memory.size/memory.grow on memory %d: only memory 0 is supported", memIdx)
		}
		kind := instruction.OpMemorySize
		if op == 0x40 {
			kind = instruction.OpMemoryGrow
		}
		return instruction.Instruction{Op: kind}, nil
	case 0x41:
		v, _, err := leb128.DecodeInt32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpI32Const, ConstI32: v}, nil
	case 0x42:
		v, _, err := leb128.DecodeInt64(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpI64Const, ConstI64: v}, nil
	case 0x43:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpF32Const, ConstF32Bits: leU32(buf[:])}, nil
	case 0x44:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpF64Const, ConstF64Bits: leU64(buf[:])}, nil
	case 0xd0:
		b, err := r.ReadByte()
		if err != nil {
			return instruction.Instruction{}, err
		}
		vt, err := decodeValueType(b)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpRefNull, ValType: vt}, nil
	case 0xd1:
		return instruction.Instruction{Op: instruction.OpRefIsNull}, nil
	case 0xd2:
		idx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpRefFunc, FuncIndex: idx}, nil
	case 0xfc:
		return decodeMiscInstruction(r)
	case 0xfd:
		return decodeSIMDInstruction(r)
	case 0xfe:
		return decodeAtomicInstruction(r)
	default:
		if kind, ok := simpleNumericOpcodes[op]; ok {
			return instruction.Instruction{Op: kind}, nil
		}
		return instruction.Instruction{}, fmt.Errorf("unknown opcode 0x%x", op)
	}
}

func u32(r *bytes.Reader) (uint32, error) {
	v, _, err := leb128.DecodeUint32(r)
	return v, err
}

func decodeBlockType(r *bytes.Reader) (instruction.BlockType, error) {
	peek, err := r.ReadByte()
	if err != nil {
		return instruction.BlockType{}, err
	}
	if peek == 0x40 {
		return instruction.BlockType{Kind: instruction.BlockKindEmpty}, nil
	}
	if vt, err := decodeValueType(peek); err == nil {
		return instruction.BlockType{Kind: instruction.BlockKindValue, ValType: vt}, nil
	}
	if err := r.UnreadByte(); err != nil {
		return instruction.BlockType{}, err
	}
	idx, _, err := leb128.DecodeInt33AsInt64(r)
	if err != nil {
		return instruction.BlockType{}, err
	}
	return instruction.BlockType{Kind: instruction.BlockKindFuncType, TypeIndex: uint32(idx)}, nil
}

func decodeBrTable(r *bytes.Reader) (instruction.BrTable, error) {
	targets, err := decodeIndexVector(r)
	if err != nil {
		return instruction.BrTable{}, err
	}
	def, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return instruction.BrTable{}, err
	}
	return instruction.BrTable{Targets: targets, Default: def}, nil
}

func decodeMemArg(r *bytes.Reader) (instruction.MemArg, error) {
	align, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return instruction.MemArg{}, err
	}
	offset, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return instruction.MemArg{}, err
	}
	// Bit 6 of align flags an explicit trailing memory index (multi-memory
	// proposal); decodable even though instantiation rejects >1 memory.
	memIdx := uint32(0)
	if align&0x40 != 0 {
		align &^= 0x40
		memIdx, _, err = leb128.DecodeUint32(r)
		if err != nil {
			return instruction.MemArg{}, err
		}
	}
	return instruction.MemArg{AlignLog2: align, Offset: offset, MemoryIndex: memIdx}, nil
}

var memOpcodes = map[byte]instruction.Opcode{
	0x28: instruction.OpI32Load, 0x29: instruction.OpI64Load, 0x2a: instruction.OpF32Load, 0x2b: instruction.OpF64Load,
	0x2c: instruction.OpI32Load8S, 0x2d: instruction.OpI32Load8U, 0x2e: instruction.OpI32Load16S, 0x2f: instruction.OpI32Load16U,
	0x30: instruction.OpI64Load8S, 0x31: instruction.OpI64Load8U, 0x32: instruction.OpI64Load16S, 0x33: instruction.OpI64Load16U,
	0x34: instruction.OpI64Load32S, 0x35: instruction.OpI64Load32U,
	0x36: instruction.OpI32Store, 0x37: instruction.OpI64Store, 0x38: instruction.OpF32Store, 0x39: instruction.OpF64Store,
	0x3a: instruction.OpI32Store8, 0x3b: instruction.OpI32Store16, 0x3c: instruction.OpI64Store8, 0x3d: instruction.OpI64Store16, 0x3e: instruction.OpI64Store32,
}

// simpleNumericOpcodes covers the contiguous run 0x45-0xc4 (comparisons,
// arithmetic, conversions, sign-extension) that carry no immediate.
var simpleNumericOpcodes = map[byte]instruction.Opcode{
	0x45: instruction.OpI32Eqz, 0x46: instruction.OpI32Eq, 0x47: instruction.OpI32Ne,
	0x48: instruction.OpI32LtS, 0x49: instruction.OpI32LtU, 0x4a: instruction.OpI32GtS, 0x4b: instruction.OpI32GtU,
	0x4c: instruction.OpI32LeS, 0x4d: instruction.OpI32LeU, 0x4e: instruction.OpI32GeS, 0x4f: instruction.OpI32GeU,
	0x50: instruction.OpI64Eqz, 0x51: instruction.OpI64Eq, 0x52: instruction.OpI64Ne,
	0x53: instruction.OpI64LtS, 0x54: instruction.OpI64LtU, 0x55: instruction.OpI64GtS, 0x56: instruction.OpI64GtU,
	0x57: instruction.OpI64LeS, 0x58: instruction.OpI64LeU, 0x59: instruction.OpI64GeS, 0x5a: instruction.OpI64GeU,
	0x5b: instruction.OpF32Eq, 0x5c: instruction.OpF32Ne, 0x5d: instruction.OpF32Lt, 0x5e: instruction.OpF32Gt, 0x5f: instruction.OpF32Le, 0x60: instruction.OpF32Ge,
	0x61: instruction.OpF64Eq, 0x62: instruction.OpF64Ne, 0x63: instruction.OpF64Lt, 0x64: instruction.OpF64Gt, 0x65: instruction.OpF64Le, 0x66: instruction.OpF64Ge,
	0x67: instruction.OpI32Clz, 0x68: instruction.OpI32Ctz, 0x69: instruction.OpI32Popcnt,
	0x6a: instruction.OpI32Add, 0x6b: instruction.OpI32Sub, 0x6c: instruction.OpI32Mul,
	0x6d: instruction.OpI32DivS, 0x6e: instruction.OpI32DivU, 0x6f: instruction.OpI32RemS, 0x70: instruction.OpI32RemU,
	0x71: instruction.OpI32And, 0x72: instruction.OpI32Or, 0x73: instruction.OpI32Xor,
	0x74: instruction.OpI32Shl, 0x75: instruction.OpI32ShrS, 0x76: instruction.OpI32ShrU, 0x77: instruction.OpI32Rotl, 0x78: instruction.OpI32Rotr,
	0x79: instruction.OpI64Clz, 0x7a: instruction.OpI64Ctz, 0x7b: instruction.OpI64Popcnt,
	0x7c: instruction.OpI64Add, 0x7d: instruction.OpI64Sub, 0x7e: instruction.OpI64Mul,
	0x7f: instruction.OpI64DivS, 0x80: instruction.OpI64DivU, 0x81: instruction.OpI64RemS, 0x82: instruction.OpI64RemU,
	0x83: instruction.OpI64And, 0x84: instruction.OpI64Or, 0x85: instruction.OpI64Xor,
	0x86: instruction.OpI64Shl, 0x87: instruction.OpI64ShrS, 0x88: instruction.OpI64ShrU, 0x89: instruction.OpI64Rotl, 0x8a: instruction.OpI64Rotr,
	0x8b: instruction.OpF32Abs, 0x8c: instruction.OpF32Neg, 0x8d: instruction.OpF32Ceil, 0x8e: instruction.OpF32Floor,
	0x8f: instruction.OpF32Trunc, 0x90: instruction.OpF32Nearest, 0x91: instruction.OpF32Sqrt,
	0x92: instruction.OpF32Add, 0x93: instruction.OpF32Sub, 0x94: instruction.OpF32Mul, 0x95: instruction.OpF32Div,
	0x96: instruction.OpF32Min, 0x97: instruction.OpF32Max, 0x98: instruction.OpF32Copysign,
	0x99: instruction.OpF64Abs, 0x9a: instruction.OpF64Neg, 0x9b: instruction.OpF64Ceil, 0x9c: instruction.OpF64Floor,
	0x9d: instruction.OpF64Trunc, 0x9e: instruction.OpF64Nearest, 0x9f: instruction.OpF64Sqrt,
	0xa0: instruction.OpF64Add, 0xa1: instruction.OpF64Sub, 0xa2: instruction.OpF64Mul, 0xa3: instruction.OpF64Div,
	0xa4: instruction.OpF64Min, 0xa5: instruction.OpF64Max, 0xa6: instruction.OpF64Copysign,
	0xa7: instruction.OpI32WrapI64,
	0xa8: instruction.OpI32TruncF32S, 0xa9: instruction.OpI32TruncF32U, 0xaa: instruction.OpI32TruncF64S, 0xab: instruction.OpI32TruncF64U,
	0xac: instruction.OpI64ExtendI32S, 0xad: instruction.OpI64ExtendI32U,
	0xae: instruction.OpI64TruncF32S, 0xaf: instruction.OpI64TruncF32U, 0xb0: instruction.OpI64TruncF64S, 0xb1: instruction.OpI64TruncF64U,
	0xb2: instruction.OpF32ConvertI32S, 0xb3: instruction.OpF32ConvertI32U, 0xb4: instruction.OpF32ConvertI64S, 0xb5: instruction.OpF32ConvertI64U,
	0xb6: instruction.OpF32DemoteF64,
	0xb7: instruction.OpF64ConvertI32S, 0xb8: instruction.OpF64ConvertI32U, 0xb9: instruction.OpF64ConvertI64S, 0xba: instruction.OpF64ConvertI64U,
	0xbb: instruction.OpF64PromoteF32,
	0xbc: instruction.OpI32ReinterpretF32, 0xbd: instruction.OpI64ReinterpretF64, 0xbe: instruction.OpF32ReinterpretI32, 0xbf: instruction.OpF64ReinterpretI64,
	0xc0: instruction.OpI32Extend8S, 0xc1: instruction.OpI32Extend16S,
	0xc2: instruction.OpI64Extend8S, 0xc3: instruction.OpI64Extend16S, 0xc4: instruction.OpI64Extend32S,
}

// decodeMiscInstruction handles the 0xFC-prefixed family: saturating
// float-to-int conversions and bulk-memory/table operations.
func decodeMiscInstruction(r *bytes.Reader) (instruction.Instruction, error) {
	sub, err := u32(r)
	if err != nil {
		return instruction.Instruction{}, err
	}
	switch sub {
	case 0, 1, 2, 3, 4, 5, 6, 7:
		return instruction.Instruction{Op: satTruncOpcodes[sub]}, nil
	case 8: // memory.init
		dataIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		if _, err := r.ReadByte(); err != nil { // reserved memidx
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpMemoryInit, DataIndex: dataIdx}, nil
	case 9: // data.drop
		dataIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpDataDrop, DataIndex: dataIdx}, nil
	case 10: // memory.copy
		if _, err := r.ReadByte(); err != nil {
			return instruction.Instruction{}, err
		}
		if _, err := r.ReadByte(); err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpMemoryCopy}, nil
	case 11: // memory.fill
		if _, err := r.ReadByte(); err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpMemoryFill}, nil
	case 12: // table.init
		elemIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		tableIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpTableInit, ElemIndex: elemIdx, TableIndex: tableIdx}, nil
	case 13: // elem.drop
		elemIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpElemDrop, ElemIndex: elemIdx}, nil
	case 14: // table.copy
		dst, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		src, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpTableCopy, TableIndex: dst, ElemIndex: src}, nil
	case 15, 16, 17: // table.grow / table.size / table.fill
		tableIdx, err := u32(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		kind := instruction.OpTableGrow
		if sub == 16 {
			kind = instruction.OpTableSize
		} else if sub == 17 {
			kind = instruction.OpTableFill
		}
		return instruction.Instruction{Op: kind, TableIndex: tableIdx}, nil
	default:
		return instruction.Instruction{}, fmt.Errorf("unknown 0xfc sub-opcode %d", sub)
	}
}

var satTruncOpcodes = map[uint32]instruction.Opcode{
	0: instruction.OpI32TruncSatF32S, 1: instruction.OpI32TruncSatF32U,
	2: instruction.OpI32TruncSatF64S, 3: instruction.OpI32TruncSatF64U,
	4: instruction.OpI64TruncSatF32S, 5: instruction.OpI64TruncSatF32U,
	6: instruction.OpI64TruncSatF64S, 7: instruction.OpI64TruncSatF64U,
}
