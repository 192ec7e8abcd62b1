// Package instruction is the normalized, offset-annotated instruction
// model produced by a streaming WebAssembly decoder. It covers base MVP,
// bulk-memory, reference-types, SIMD-128, threads (atomics),
// exception-handling, and non-trapping float-to-int conversions. Most
// operators have their own Opcode constant; the per-shape SIMD arithmetic
// and comparison operators share one constant per operation and carry the
// lane shape in Instruction.Shape. Not every atomic and SIMD operator has
// a constant (the narrow atomic rmw and/or/xor/xchg/cmpxchg forms and
// i8x16.popcnt, for example, do not). The decoder in internal/binary emits
// exactly one Instruction per decoded operator.
//
// This is a flat enum, the same shape as wazero's
// internal/wazeroir.OperationKind, collapsed into a single layer: the
// executor steps directly over this vector and does not lower to a
// second IR the way wazero's compiler-targeting wazeroir does.
package instruction

// Opcode identifies the operation an Instruction performs. The numeric
// values are opaque identifiers local to this package — not the
// WebAssembly binary encoding, which internal/binary translates on decode.
type Opcode uint16

const (
	OpInvalid Opcode = iota

	// Control flow.
	OpUnreachable
	OpNop
	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd
	OpBr
	OpBrIf
	OpBrTable
	OpReturn
	OpCall
	OpCallIndirect
	OpReturnCall
	OpReturnCallIndirect

	// Exception handling (proposal).
	OpTry
	OpCatch
	OpCatchAll
	OpThrow
	OpRethrow
	OpDelegate

	// Parametric.
	OpDrop
	OpSelect
	OpTypedSelect

	// Variable access.
	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpGlobalGet
	OpGlobalSet

	// Table access (reference-types / bulk-memory).
	OpTableGet
	OpTableSet
	OpTableInit
	OpElemDrop
	OpTableCopy
	OpTableGrow
	OpTableSize
	OpTableFill

	// Reference types.
	OpRefNull
	OpRefIsNull
	OpRefFunc

	// Memory access, MVP.
	OpI32Load
	OpI64Load
	OpF32Load
	OpF64Load
	OpI32Load8S
	OpI32Load8U
	OpI32Load16S
	OpI32Load16U
	OpI64Load8S
	OpI64Load8U
	OpI64Load16S
	OpI64Load16U
	OpI64Load32S
	OpI64Load32U
	OpI32Store
	OpI64Store
	OpF32Store
	OpF64Store
	OpI32Store8
	OpI32Store16
	OpI64Store8
	OpI64Store16
	OpI64Store32
	OpMemorySize
	OpMemoryGrow

	// Bulk memory.
	OpMemoryInit
	OpDataDrop
	OpMemoryCopy
	OpMemoryFill

	// Constants.
	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const
	OpV128Const

	// i32 comparisons and arithmetic.
	OpI32Eqz
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LtU
	OpI32GtS
	OpI32GtU
	OpI32LeS
	OpI32LeU
	OpI32GeS
	OpI32GeU
	OpI32Clz
	OpI32Ctz
	OpI32Popcnt
	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32Or
	OpI32Xor
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Rotl
	OpI32Rotr

	// i64 comparisons and arithmetic.
	OpI64Eqz
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64LtU
	OpI64GtS
	OpI64GtU
	OpI64LeS
	OpI64LeU
	OpI64GeS
	OpI64GeU
	OpI64Clz
	OpI64Ctz
	OpI64Popcnt
	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Shl
	OpI64ShrS
	OpI64ShrU
	OpI64Rotl
	OpI64Rotr

	// f32 comparisons and arithmetic.
	OpF32Eq
	OpF32Ne
	OpF32Lt
	OpF32Gt
	OpF32Le
	OpF32Ge
	OpF32Abs
	OpF32Neg
	OpF32Ceil
	OpF32Floor
	OpF32Trunc
	OpF32Nearest
	OpF32Sqrt
	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF32Min
	OpF32Max
	OpF32Copysign

	// f64 comparisons and arithmetic.
	OpF64Eq
	OpF64Ne
	OpF64Lt
	OpF64Gt
	OpF64Le
	OpF64Ge
	OpF64Abs
	OpF64Neg
	OpF64Ceil
	OpF64Floor
	OpF64Trunc
	OpF64Nearest
	OpF64Sqrt
	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Min
	OpF64Max
	OpF64Copysign

	// Conversions.
	OpI32WrapI64
	OpI32TruncF32S
	OpI32TruncF32U
	OpI32TruncF64S
	OpI32TruncF64U
	OpI64ExtendI32S
	OpI64ExtendI32U
	OpI64TruncF32S
	OpI64TruncF32U
	OpI64TruncF64S
	OpI64TruncF64U
	OpF32ConvertI32S
	OpF32ConvertI32U
	OpF32ConvertI64S
	OpF32ConvertI64U
	OpF32DemoteF64
	OpF64ConvertI32S
	OpF64ConvertI32U
	OpF64ConvertI64S
	OpF64ConvertI64U
	OpF64PromoteF32
	OpI32ReinterpretF32
	OpI64ReinterpretF64
	OpF32ReinterpretI32
	OpF64ReinterpretI64

	// Sign-extension ops.
	OpI32Extend8S
	OpI32Extend16S
	OpI64Extend8S
	OpI64Extend16S
	OpI64Extend32S

	// Non-trapping (saturating) conversions.
	OpI32TruncSatF32S
	OpI32TruncSatF32U
	OpI32TruncSatF64S
	OpI32TruncSatF64U
	OpI64TruncSatF32S
	OpI64TruncSatF32U
	OpI64TruncSatF64S
	OpI64TruncSatF64U

	// Atomics (threads proposal). Execute as their sequential equivalent
	// on a single memory.
	OpAtomicNotify
	OpAtomicWait32
	OpAtomicWait64
	OpAtomicFence
	OpI32AtomicLoad
	OpI64AtomicLoad
	OpI32AtomicLoad8U
	OpI32AtomicLoad16U
	OpI64AtomicLoad8U
	OpI64AtomicLoad16U
	OpI64AtomicLoad32U
	OpI32AtomicStore
	OpI64AtomicStore
	OpI32AtomicStore8
	OpI32AtomicStore16
	OpI64AtomicStore8
	OpI64AtomicStore16
	OpI64AtomicStore32
	OpI32AtomicRmwAdd
	OpI64AtomicRmwAdd
	OpI32AtomicRmw8AddU
	OpI32AtomicRmw16AddU
	OpI64AtomicRmw8AddU
	OpI64AtomicRmw16AddU
	OpI64AtomicRmw32AddU
	OpI32AtomicRmwSub
	OpI64AtomicRmwSub
	OpI32AtomicRmw8SubU
	OpI32AtomicRmw16SubU
	OpI64AtomicRmw8SubU
	OpI64AtomicRmw16SubU
	OpI64AtomicRmw32SubU
	OpI32AtomicRmwAnd
	OpI64AtomicRmwAnd
	OpI32AtomicRmwOr
	OpI64AtomicRmwOr
	OpI32AtomicRmwXor
	OpI64AtomicRmwXor
	OpI32AtomicRmwXchg
	OpI64AtomicRmwXchg
	OpI32AtomicRmwCmpxchg
	OpI64AtomicRmwCmpxchg

	// SIMD-128: memory access.
	OpV128Load
	OpV128Load8x8S
	OpV128Load8x8U
	OpV128Load16x4S
	OpV128Load16x4U
	OpV128Load32x2S
	OpV128Load32x2U
	OpV128Load8Splat
	OpV128Load16Splat
	OpV128Load32Splat
	OpV128Load64Splat
	OpV128Load32Zero
	OpV128Load64Zero
	OpV128Store
	OpV128Load8Lane
	OpV128Load16Lane
	OpV128Load32Lane
	OpV128Load64Lane
	OpV128Store8Lane
	OpV128Store16Lane
	OpV128Store32Lane
	OpV128Store64Lane

	// SIMD-128: shuffle/lane/splat.
	OpI8x16Shuffle
	OpI8x16Swizzle
	OpI8x16Splat
	OpI16x8Splat
	OpI32x4Splat
	OpI64x2Splat
	OpF32x4Splat
	OpF64x2Splat
	OpI8x16ExtractLaneS
	OpI8x16ExtractLaneU
	OpI8x16ReplaceLane
	OpI16x8ExtractLaneS
	OpI16x8ExtractLaneU
	OpI16x8ReplaceLane
	OpI32x4ExtractLane
	OpI32x4ReplaceLane
	OpI64x2ExtractLane
	OpI64x2ReplaceLane
	OpF32x4ExtractLane
	OpF32x4ReplaceLane
	OpF64x2ExtractLane
	OpF64x2ReplaceLane

	// SIMD-128: bitwise (shape-independent).
	OpV128Not
	OpV128And
	OpV128AndNot
	OpV128Or
	OpV128Xor
	OpV128Bitselect
	OpV128AnyTrue

	// SIMD-128: per-shape comparisons/arithmetic. Each opcode below is
	// parametrized by Instruction.Shape (i8x16/i16x8/i32x4/i64x2/f32x4/f64x2)
	// carried in the immediate, rather than one opcode per shape — see
	// .B for why this representative SIMD coverage keeps
	// the ~450-case target achievable without transcribing all 236 SIMD
	// operators individually.
	OpSIMDEq
	OpSIMDNe
	OpSIMDLtS
	OpSIMDLtU
	OpSIMDGtS
	OpSIMDGtU
	OpSIMDLeS
	OpSIMDLeU
	OpSIMDGeS
	OpSIMDGeU
	OpSIMDAbs
	OpSIMDNeg
	OpSIMDAllTrue
	OpSIMDBitmask
	OpSIMDShl
	OpSIMDShrS
	OpSIMDShrU
	OpSIMDAdd
	OpSIMDAddSatS
	OpSIMDAddSatU
	OpSIMDSub
	OpSIMDSubSatS
	OpSIMDSubSatU
	OpSIMDMul
	OpSIMDMinS
	OpSIMDMinU
	OpSIMDMaxS
	OpSIMDMaxU
	OpSIMDAvgrU
	OpSIMDNarrowS
	OpSIMDNarrowU
	OpSIMDExtendLowS
	OpSIMDExtendLowU
	OpSIMDExtendHighS
	OpSIMDExtendHighU
	OpSIMDExtMulLowS
	OpSIMDExtMulLowU
	OpSIMDExtMulHighS
	OpSIMDExtMulHighU
	OpSIMDExtAddPairwiseS
	OpSIMDExtAddPairwiseU
	OpSIMDQ15MulrSatS
	OpSIMDDot
	OpSIMDCeil
	OpSIMDFloor
	OpSIMDTrunc
	OpSIMDNearest
	OpSIMDSqrt
	OpSIMDDiv
	OpSIMDMin
	OpSIMDMax
	OpSIMDPMin
	OpSIMDPMax
	OpSIMDConvertI32x4S
	OpSIMDConvertI32x4U
	OpSIMDTruncSatF32x4S
	OpSIMDTruncSatF32x4U
	OpSIMDTruncSatZeroF64x2S
	OpSIMDTruncSatZeroF64x2U
	OpSIMDConvertLowI32x4S
	OpSIMDConvertLowI32x4U
	OpSIMDDemoteZeroF64x2
	OpSIMDPromoteLowF32x4

	// opcodeCount is a sentinel, not a real opcode.
	opcodeCount
)

// Count returns the number of distinct opcodes this package defines.
func Count() int { return int(opcodeCount) }
