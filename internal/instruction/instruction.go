package instruction

import "github.com/nokotan/wasminspect/api"

// BlockKind discriminates the three ways a structured control block's
// type can be encoded in the binary format.
type BlockKind byte

const (
	// BlockKindEmpty denotes a block with no parameters and no results.
	BlockKindEmpty BlockKind = iota
	// BlockKindValue denotes a block with no parameters and one result,
	// encoded directly as a ValueType.
	BlockKindValue
	// BlockKindFuncType denotes a block whose signature is an index into
	// the module's type section (possibly with parameters).
	BlockKindFuncType
)

// BlockType is the immediate carried by block/loop/if/try.
type BlockType struct {
	Kind      BlockKind
	ValType   api.ValueType
	TypeIndex uint32
}

// BrTable is br_table's normalized immediate: .B requires the
// decoder split the operator's linear target list into a jump table plus
// a single default, with the default taken from the final entry of the
// decoded list.
type BrTable struct {
	Targets []uint32
	Default uint32
}

// MemArg is the immediate of a memory-accessing instruction. AlignLog2 is
// informational only.E; Offset combines with the i32 operand
// on the stack to form the effective address.
type MemArg struct {
	AlignLog2   uint32
	Offset      uint32
	MemoryIndex uint32
}

// Shape names a SIMD-128 lane interpretation, used to parametrize the
// generic per-shape SIMD opcodes (OpSIMDAdd, OpSIMDEq, ...) instead of
// enumerating one opcode per shape.
type Shape byte

const (
	ShapeI8x16 Shape = iota
	ShapeI16x8
	ShapeI32x4
	ShapeI64x2
	ShapeF32x4
	ShapeF64x2
)

func (s Shape) String() string {
	switch s {
	case ShapeI8x16:
		return "i8x16"
	case ShapeI16x8:
		return "i16x8"
	case ShapeI32x4:
		return "i32x4"
	case ShapeI64x2:
		return "i64x2"
	case ShapeF32x4:
		return "f32x4"
	case ShapeF64x2:
		return "f64x2"
	default:
		return "shape?"
	}
}

// Instruction pairs an Opcode with its operand fields, widened into a Go
// struct: Op selects which of the remaining fields are meaningful, the
// same "opaque fields" shape as wazero's interpreterOp.
//
// Offset is the operator's byte offset relative to the function body's
// payload start, the key used by DWARF line-mapping.
type Instruction struct {
	Op     Opcode
	Offset uint32

	Block         *BlockType // block/loop/if/try
	RelativeDepth uint32     // br/br_if/rethrow/delegate
	BrTable       *BrTable

	FuncIndex  uint32 // call/return_call/ref.func
	TypeIndex  uint32 // call_indirect/return_call_indirect
	TableIndex uint32 // call_indirect/table.*
	LocalIndex uint32
	GlobalIndex uint32
	ElemIndex  uint32 // elem.drop/table.init
	DataIndex  uint32 // data.drop/memory.init
	TagIndex   uint32 // catch/throw (exception-handling)

	Mem MemArg

	ValType api.ValueType // typed select/ref.null result type

	ConstI32     int32
	ConstI64     int64
	ConstF32Bits uint32
	ConstF64Bits uint64
	ConstV128    [16]byte

	Shape Shape  // SIMD per-shape generic opcodes
	Lane  byte   // extract_lane/replace_lane/*_lane memory ops
	Lanes [16]byte // i8x16.shuffle
}

// Name renders the instruction's mnemonic in WebAssembly text-format
// style, e.g. "i32.add", "local.get", "br_table". Used by the debugger's
// disassembly listing and by RPC error messages; not exhaustive for every
// SIMD per-shape variant (those are synthesized from Shape) — a
// representative subset of SIMD coverage rather than the full matrix.
func (in Instruction) Name() string {
	if n, ok := opcodeNames[in.Op]; ok {
		return n
	}
	if n, ok := simdShapeOpNames[in.Op]; ok {
		return in.Shape.String() + "." + n
	}
	return "unknown"
}
