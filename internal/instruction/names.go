package instruction

// opcodeNames covers every opcode that is not one of the generic
// per-shape SIMD operators (those are in simdShapeOpNames, combined with
// Instruction.Shape by Instruction.Name).
var opcodeNames = map[Opcode]string{
	OpUnreachable:         "unreachable",
	OpNop:                 "nop",
	OpBlock:                "block",
	OpLoop:                 "loop",
	OpIf:                   "if",
	OpElse:                 "else",
	OpEnd:                  "end",
	OpBr:                   "br",
	OpBrIf:                 "br_if",
	OpBrTable:              "br_table",
	OpReturn:               "return",
	OpCall:                 "call",
	OpCallIndirect:         "call_indirect",
	OpReturnCall:           "return_call",
	OpReturnCallIndirect:   "return_call_indirect",

	OpTry:        "try",
	OpCatch:      "catch",
	OpCatchAll:   "catch_all",
	OpThrow:      "throw",
	OpRethrow:    "rethrow",
	OpDelegate:   "delegate",

	OpDrop:       "drop",
	OpSelect:     "select",
	OpTypedSelect: "select",

	OpLocalGet:  "local.get",
	OpLocalSet:  "local.set",
	OpLocalTee:  "local.tee",
	OpGlobalGet: "global.get",
	OpGlobalSet: "global.set",

	OpTableGet:  "table.get",
	OpTableSet:  "table.set",
	OpTableInit: "table.init",
	OpElemDrop:  "elem.drop",
	OpTableCopy: "table.copy",
	OpTableGrow: "table.grow",
	OpTableSize: "table.size",
	OpTableFill: "table.fill",

	OpRefNull:   "ref.null",
	OpRefIsNull: "ref.is_null",
	OpRefFunc:   "ref.func",

	OpI32Load:     "i32.load",
	OpI64Load:     "i64.load",
	OpF32Load:     "f32.load",
	OpF64Load:     "f64.load",
	OpI32Load8S:   "i32.load8_s",
	OpI32Load8U:   "i32.load8_u",
	OpI32Load16S:  "i32.load16_s",
	OpI32Load16U:  "i32.load16_u",
	OpI64Load8S:   "i64.load8_s",
	OpI64Load8U:   "i64.load8_u",
	OpI64Load16S:  "i64.load16_s",
	OpI64Load16U:  "i64.load16_u",
	OpI64Load32S:  "i64.load32_s",
	OpI64Load32U:  "i64.load32_u",
	OpI32Store:    "i32.store",
	OpI64Store:    "i64.store",
	OpF32Store:    "f32.store",
	OpF64Store:    "f64.store",
	OpI32Store8:   "i32.store8",
	OpI32Store16:  "i32.store16",
	OpI64Store8:   "i64.store8",
	OpI64Store16:  "i64.store16",
	OpI64Store32:  "i64.store32",
	OpMemorySize:  "memory.size",
	OpMemoryGrow:  "memory.grow",

	OpMemoryInit: "memory.init",
	OpDataDrop:   "data.drop",
	OpMemoryCopy: "memory.copy",
	OpMemoryFill: "memory.fill",

	OpI32Const: "i32.const",
	OpI64Const: "i64.const",
	OpF32Const: "f32.const",
	OpF64Const: "f64.const",
	OpV128Const: "v128.const",

	OpI32Eqz: "i32.eqz", OpI32Eq: "i32.eq", OpI32Ne: "i32.ne",
	OpI32LtS: "i32.lt_s", OpI32LtU: "i32.lt_u", OpI32GtS: "i32.gt_s", OpI32GtU: "i32.gt_u",
	OpI32LeS: "i32.le_s", OpI32LeU: "i32.le_u", OpI32GeS: "i32.ge_s", OpI32GeU: "i32.ge_u",
	OpI32Clz: "i32.clz", OpI32Ctz: "i32.ctz", OpI32Popcnt: "i32.popcnt",
	OpI32Add: "i32.add", OpI32Sub: "i32.sub", OpI32Mul: "i32.mul",
	OpI32DivS: "i32.div_s", OpI32DivU: "i32.div_u", OpI32RemS: "i32.rem_s", OpI32RemU: "i32.rem_u",
	OpI32And: "i32.and", OpI32Or: "i32.or", OpI32Xor: "i32.xor",
	OpI32Shl: "i32.shl", OpI32ShrS: "i32.shr_s", OpI32ShrU: "i32.shr_u",
	OpI32Rotl: "i32.rotl", OpI32Rotr: "i32.rotr",

	OpI64Eqz: "i64.eqz", OpI64Eq: "i64.eq", OpI64Ne: "i64.ne",
	OpI64LtS: "i64.lt_s", OpI64LtU: "i64.lt_u", OpI64GtS: "i64.gt_s", OpI64GtU: "i64.gt_u",
	OpI64LeS: "i64.le_s", OpI64LeU: "i64.le_u", OpI64GeS: "i64.ge_s", OpI64GeU: "i64.ge_u",
	OpI64Clz: "i64.clz", OpI64Ctz: "i64.ctz", OpI64Popcnt: "i64.popcnt",
	OpI64Add: "i64.add", OpI64Sub: "i64.sub", OpI64Mul: "i64.mul",
	OpI64DivS: "i64.div_s", OpI64DivU: "i64.div_u", OpI64RemS: "i64.rem_s", OpI64RemU: "i64.rem_u",
	OpI64And: "i64.and", OpI64Or: "i64.or", OpI64Xor: "i64.xor",
	OpI64Shl: "i64.shl", OpI64ShrS: "i64.shr_s", OpI64ShrU: "i64.shr_u",
	OpI64Rotl: "i64.rotl", OpI64Rotr: "i64.rotr",

	OpF32Eq: "f32.eq", OpF32Ne: "f32.ne", OpF32Lt: "f32.lt", OpF32Gt: "f32.gt", OpF32Le: "f32.le", OpF32Ge: "f32.ge",
	OpF32Abs: "f32.abs", OpF32Neg: "f32.neg", OpF32Ceil: "f32.ceil", OpF32Floor: "f32.floor",
	OpF32Trunc: "f32.trunc", OpF32Nearest: "f32.nearest", OpF32Sqrt: "f32.sqrt",
	OpF32Add: "f32.add", OpF32Sub: "f32.sub", OpF32Mul: "f32.mul", OpF32Div: "f32.div",
	OpF32Min: "f32.min", OpF32Max: "f32.max", OpF32Copysign: "f32.copysign",

	OpF64Eq: "f64.eq", OpF64Ne: "f64.ne", OpF64Lt: "f64.lt", OpF64Gt: "f64.gt", OpF64Le: "f64.le", OpF64Ge: "f64.ge",
	OpF64Abs: "f64.abs", OpF64Neg: "f64.neg", OpF64Ceil: "f64.ceil", OpF64Floor: "f64.floor",
	OpF64Trunc: "f64.trunc", OpF64Nearest: "f64.nearest", OpF64Sqrt: "f64.sqrt",
	OpF64Add: "f64.add", OpF64Sub: "f64.sub", OpF64Mul: "f64.mul", OpF64Div: "f64.div",
	OpF64Min: "f64.min", OpF64Max: "f64.max", OpF64Copysign: "f64.copysign",

	OpI32WrapI64:     "i32.wrap_i64",
	OpI32TruncF32S:   "i32.trunc_f32_s",
	OpI32TruncF32U:   "i32.trunc_f32_u",
	OpI32TruncF64S:   "i32.trunc_f64_s",
	OpI32TruncF64U:   "i32.trunc_f64_u",
	OpI64ExtendI32S:  "i64.extend_i32_s",
	OpI64ExtendI32U:  "i64.extend_i32_u",
	OpI64TruncF32S:   "i64.trunc_f32_s",
	OpI64TruncF32U:   "i64.trunc_f32_u",
	OpI64TruncF64S:   "i64.trunc_f64_s",
	OpI64TruncF64U:   "i64.trunc_f64_u",
	OpF32ConvertI32S: "f32.convert_i32_s",
	OpF32ConvertI32U: "f32.convert_i32_u",
	OpF32ConvertI64S: "f32.convert_i64_s",
	OpF32ConvertI64U: "f32.convert_i64_u",
	OpF32DemoteF64:   "f32.demote_f64",
	OpF64ConvertI32S: "f64.convert_i32_s",
	OpF64ConvertI32U: "f64.convert_i32_u",
	OpF64ConvertI64S: "f64.convert_i64_s",
	OpF64ConvertI64U: "f64.convert_i64_u",
	OpF64PromoteF32:  "f64.promote_f32",
	OpI32ReinterpretF32: "i32.reinterpret_f32",
	OpI64ReinterpretF64: "i64.reinterpret_f64",
	OpF32ReinterpretI32: "f32.reinterpret_i32",
	OpF64ReinterpretI64: "f64.reinterpret_i64",

	OpI32Extend8S:  "i32.extend8_s",
	OpI32Extend16S: "i32.extend16_s",
	OpI64Extend8S:  "i64.extend8_s",
	OpI64Extend16S: "i64.extend16_s",
	OpI64Extend32S: "i64.extend32_s",

	OpI32TruncSatF32S: "i32.trunc_sat_f32_s",
	OpI32TruncSatF32U: "i32.trunc_sat_f32_u",
	OpI32TruncSatF64S: "i32.trunc_sat_f64_s",
	OpI32TruncSatF64U: "i32.trunc_sat_f64_u",
	OpI64TruncSatF32S: "i64.trunc_sat_f32_s",
	OpI64TruncSatF32U: "i64.trunc_sat_f32_u",
	OpI64TruncSatF64S: "i64.trunc_sat_f64_s",
	OpI64TruncSatF64U: "i64.trunc_sat_f64_u",

	OpAtomicNotify: "memory.atomic.notify",
	OpAtomicWait32: "memory.atomic.wait32",
	OpAtomicWait64: "memory.atomic.wait64",
	OpAtomicFence:  "atomic.fence",
	OpI32AtomicLoad: "i32.atomic.load", OpI64AtomicLoad: "i64.atomic.load",
	OpI32AtomicLoad8U: "i32.atomic.load8_u", OpI32AtomicLoad16U: "i32.atomic.load16_u",
	OpI64AtomicLoad8U: "i64.atomic.load8_u", OpI64AtomicLoad16U: "i64.atomic.load16_u", OpI64AtomicLoad32U: "i64.atomic.load32_u",
	OpI32AtomicStore: "i32.atomic.store", OpI64AtomicStore: "i64.atomic.store",
	OpI32AtomicStore8: "i32.atomic.store8", OpI32AtomicStore16: "i32.atomic.store16",
	OpI64AtomicStore8: "i64.atomic.store8", OpI64AtomicStore16: "i64.atomic.store16", OpI64AtomicStore32: "i64.atomic.store32",
	OpI32AtomicRmwAdd: "i32.atomic.rmw.add", OpI64AtomicRmwAdd: "i64.atomic.rmw.add",
	OpI32AtomicRmw8AddU: "i32.atomic.rmw8.add_u", OpI32AtomicRmw16AddU: "i32.atomic.rmw16.add_u",
	OpI64AtomicRmw8AddU: "i64.atomic.rmw8.add_u", OpI64AtomicRmw16AddU: "i64.atomic.rmw16.add_u", OpI64AtomicRmw32AddU: "i64.atomic.rmw32.add_u",
	OpI32AtomicRmwSub: "i32.atomic.rmw.sub", OpI64AtomicRmwSub: "i64.atomic.rmw.sub",
	OpI32AtomicRmw8SubU: "i32.atomic.rmw8.sub_u", OpI32AtomicRmw16SubU: "i32.atomic.rmw16.sub_u",
	OpI64AtomicRmw8SubU: "i64.atomic.rmw8.sub_u", OpI64AtomicRmw16SubU: "i64.atomic.rmw16.sub_u", OpI64AtomicRmw32SubU: "i64.atomic.rmw32.sub_u",
	OpI32AtomicRmwAnd: "i32.atomic.rmw.and", OpI64AtomicRmwAnd: "i64.atomic.rmw.and",
	OpI32AtomicRmwOr: "i32.atomic.rmw.or", OpI64AtomicRmwOr: "i64.atomic.rmw.or",
	OpI32AtomicRmwXor: "i32.atomic.rmw.xor", OpI64AtomicRmwXor: "i64.atomic.rmw.xor",
	OpI32AtomicRmwXchg: "i32.atomic.rmw.xchg", OpI64AtomicRmwXchg: "i64.atomic.rmw.xchg",
	OpI32AtomicRmwCmpxchg: "i32.atomic.rmw.cmpxchg", OpI64AtomicRmwCmpxchg: "i64.atomic.rmw.cmpxchg",

	OpV128Load: "v128.load",
	OpV128Load8x8S: "v128.load8x8_s", OpV128Load8x8U: "v128.load8x8_u",
	OpV128Load16x4S: "v128.load16x4_s", OpV128Load16x4U: "v128.load16x4_u",
	OpV128Load32x2S: "v128.load32x2_s", OpV128Load32x2U: "v128.load32x2_u",
	OpV128Load8Splat: "v128.load8_splat", OpV128Load16Splat: "v128.load16_splat",
	OpV128Load32Splat: "v128.load32_splat", OpV128Load64Splat: "v128.load64_splat",
	OpV128Load32Zero: "v128.load32_zero", OpV128Load64Zero: "v128.load64_zero",
	OpV128Store: "v128.store",
	OpV128Load8Lane: "v128.load8_lane", OpV128Load16Lane: "v128.load16_lane",
	OpV128Load32Lane: "v128.load32_lane", OpV128Load64Lane: "v128.load64_lane",
	OpV128Store8Lane: "v128.store8_lane", OpV128Store16Lane: "v128.store16_lane",
	OpV128Store32Lane: "v128.store32_lane", OpV128Store64Lane: "v128.store64_lane",

	OpI8x16Shuffle:  "i8x16.shuffle",
	OpI8x16Swizzle:  "i8x16.swizzle",
	OpI8x16Splat:    "i8x16.splat",
	OpI16x8Splat:    "i16x8.splat",
	OpI32x4Splat:    "i32x4.splat",
	OpI64x2Splat:    "i64x2.splat",
	OpF32x4Splat:    "f32x4.splat",
	OpF64x2Splat:    "f64x2.splat",
	OpI8x16ExtractLaneS: "i8x16.extract_lane_s", OpI8x16ExtractLaneU: "i8x16.extract_lane_u",
	OpI8x16ReplaceLane:  "i8x16.replace_lane",
	OpI16x8ExtractLaneS: "i16x8.extract_lane_s", OpI16x8ExtractLaneU: "i16x8.extract_lane_u",
	OpI16x8ReplaceLane: "i16x8.replace_lane",
	OpI32x4ExtractLane: "i32x4.extract_lane", OpI32x4ReplaceLane: "i32x4.replace_lane",
	OpI64x2ExtractLane: "i64x2.extract_lane", OpI64x2ReplaceLane: "i64x2.replace_lane",
	OpF32x4ExtractLane: "f32x4.extract_lane", OpF32x4ReplaceLane: "f32x4.replace_lane",
	OpF64x2ExtractLane: "f64x2.extract_lane", OpF64x2ReplaceLane: "f64x2.replace_lane",

	OpV128Not: "v128.not", OpV128And: "v128.and", OpV128AndNot: "v128.andnot",
	OpV128Or: "v128.or", OpV128Xor: "v128.xor", OpV128Bitselect: "v128.bitselect",
	OpV128AnyTrue: "v128.any_true",
}

// simdShapeOpNames covers the generic per-shape SIMD operators: combined
// with the instruction's Shape field by Instruction.Name, e.g. Shape
// ShapeI32x4 + OpSIMDAdd renders as "i32x4.add".
var simdShapeOpNames = map[Opcode]string{
	OpSIMDEq: "eq", OpSIMDNe: "ne",
	OpSIMDLtS: "lt_s", OpSIMDLtU: "lt_u", OpSIMDGtS: "gt_s", OpSIMDGtU: "gt_u",
	OpSIMDLeS: "le_s", OpSIMDLeU: "le_u", OpSIMDGeS: "ge_s", OpSIMDGeU: "ge_u",
	OpSIMDAbs: "abs", OpSIMDNeg: "neg",
	OpSIMDAllTrue: "all_true", OpSIMDBitmask: "bitmask",
	OpSIMDShl: "shl", OpSIMDShrS: "shr_s", OpSIMDShrU: "shr_u",
	OpSIMDAdd: "add", OpSIMDAddSatS: "add_sat_s", OpSIMDAddSatU: "add_sat_u",
	OpSIMDSub: "sub", OpSIMDSubSatS: "sub_sat_s", OpSIMDSubSatU: "sub_sat_u",
	OpSIMDMul: "mul",
	OpSIMDMinS: "min_s", OpSIMDMinU: "min_u", OpSIMDMaxS: "max_s", OpSIMDMaxU: "max_u",
	OpSIMDAvgrU: "avgr_u",
	OpSIMDNarrowS: "narrow_s", OpSIMDNarrowU: "narrow_u",
	OpSIMDExtendLowS: "extend_low_s", OpSIMDExtendLowU: "extend_low_u",
	OpSIMDExtendHighS: "extend_high_s", OpSIMDExtendHighU: "extend_high_u",
	OpSIMDExtMulLowS: "extmul_low_s", OpSIMDExtMulLowU: "extmul_low_u",
	OpSIMDExtMulHighS: "extmul_high_s", OpSIMDExtMulHighU: "extmul_high_u",
	OpSIMDExtAddPairwiseS: "extadd_pairwise_s", OpSIMDExtAddPairwiseU: "extadd_pairwise_u",
	OpSIMDQ15MulrSatS: "q15mulr_sat_s", OpSIMDDot: "dot",
	OpSIMDCeil: "ceil", OpSIMDFloor: "floor", OpSIMDTrunc: "trunc", OpSIMDNearest: "nearest", OpSIMDSqrt: "sqrt",
	OpSIMDDiv: "div", OpSIMDMin: "min", OpSIMDMax: "max", OpSIMDPMin: "pmin", OpSIMDPMax: "pmax",
	OpSIMDConvertI32x4S: "convert_i32x4_s", OpSIMDConvertI32x4U: "convert_i32x4_u",
	OpSIMDTruncSatF32x4S: "trunc_sat_f32x4_s", OpSIMDTruncSatF32x4U: "trunc_sat_f32x4_u",
	OpSIMDTruncSatZeroF64x2S: "trunc_sat_zero_f64x2_s", OpSIMDTruncSatZeroF64x2U: "trunc_sat_zero_f64x2_u",
	OpSIMDConvertLowI32x4S: "convert_low_i32x4_s", OpSIMDConvertLowI32x4U: "convert_low_i32x4_u",
	OpSIMDDemoteZeroF64x2: "demote_zero_f64x2", OpSIMDPromoteLowF32x4: "promote_low_f32x4",
}
