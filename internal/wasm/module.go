package wasm

import (
	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
)

// Module is the parsed skeleton internal/binary produces for a single
// defined module: types, imports, exports, function signatures,
// table/memory/global declarations, element and data segments, the
// optional start function, and any retained `.debug_*` sections. It
// carries no runtime state — instantiating it against a Store produces a
// *ModuleInstance.
type Module struct {
	Types []api.FunctionType

	Imports []Import

	// Functions holds one FunctionBody per function defined by this module
	// (not counting imported functions). TypeIndex indexes Types.
	Functions []FunctionBody

	Tables  []TableType
	Mems    []MemoryType
	Globals []GlobalDecl

	Exports []Export

	// Start, if non-nil, is the function index (module-local, after
	// imports) invoked with no arguments immediately after instantiation.
	Start *uint32

	Elements []ElementSegment
	Data     []DataSegment

	// DebugSections holds `.debug_*` custom sections verbatim, keyed by
	// section name, for internal/wasmdebug to parse on demand.
	DebugSections map[string][]byte
}

// ImportKind mirrors api.ExternKind for import declarations; kept distinct
// so decoder code reads as "this is an import descriptor" rather than
// reusing the export-side name.
type ImportKind = api.ExternKind

// Import is a single entry of the import section.
type Import struct {
	Module string
	Field  string
	Kind   ImportKind

	// Exactly one of the following is meaningful, selected by Kind.
	TypeIndex  uint32 // ExternKindFunc
	TableType  TableType
	MemoryType MemoryType
	GlobalType GlobalType
}

// Export is a single entry of the export section. Index is module-local
// within its kind's namespace, counting imports first (as the binary
// format does).
type Export struct {
	Name  string
	Kind  api.ExternKind
	Index uint32
}

// TableType describes a table's element type and size bounds.
type TableType struct {
	ElemType api.ValueType // FuncRef or ExternRef
	Min      uint32
	Max      uint32
	HasMax   bool
}

// MemoryType describes a memory's size bounds, in 64KiB pages.
type MemoryType struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

// PageSize is the fixed WebAssembly linear memory page size in bytes.
const PageSize = 65536

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType api.ValueType
	Mutable bool
}

// GlobalDecl is a defined module's global section entry: its type plus a
// constant initializer expression.
type GlobalDecl struct {
	Type GlobalType
	Init ConstExpr
}

// ConstExpr is the small subset of instructions legal in a constant
// expression context (global initializers, element/data segment offsets):
// a single literal, or a read of an imported global.
type ConstExpr struct {
	Op instruction.Opcode // one of OpI32Const/OpI64Const/OpF32Const/OpF64Const/OpGlobalGet/OpRefNull/OpRefFunc

	I32 int32
	I64 int64
	F32Bits uint32
	F64Bits uint64

	GlobalIndex uint32 // OpGlobalGet
	FuncIndex   uint32 // OpRefFunc
	RefType     api.ValueType // OpRefNull
}

// FunctionBody is a defined function's static shape: the type it was
// declared with, its locals prelude (beyond the declared parameters), and
// its instruction vector in source order with per-instruction byte
// offsets relative to the body's payload start.
type FunctionBody struct {
	TypeIndex    uint32
	Locals       []api.ValueType
	Instructions []instruction.Instruction
}

// ElementSegmentMode distinguishes how an element segment is applied.
type ElementSegmentMode byte

const (
	ElementModeActive ElementSegmentMode = iota
	ElementModePassive
	ElementModeDeclared
)

// ElementSegment is a parsed element section entry.
type ElementSegment struct {
	Mode       ElementSegmentMode
	TableIndex uint32    // ElementModeActive
	Offset     ConstExpr // ElementModeActive
	FuncIndices []uint32
}

// DataSegmentMode distinguishes active from passive data segments.
type DataSegmentMode byte

const (
	DataModeActive DataSegmentMode = iota
	DataModePassive
)

// DataSegment is a parsed data section entry.
type DataSegment struct {
	Mode      DataSegmentMode
	MemIndex  uint32    // DataModeActive
	Offset    ConstExpr // DataModeActive
	Bytes     []byte
}
