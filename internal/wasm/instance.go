package wasm

import (
	"context"

	"github.com/nokotan/wasminspect/api"
)

// ModuleInstanceKind discriminates a defined (user-loaded) module from a
// host (embedder-provided) one.
type ModuleInstanceKind byte

const (
	ModuleInstanceDefined ModuleInstanceKind = iota
	ModuleInstanceHost
)

// ModuleInstance is a module after instantiation: its exports resolved to
// handles, and (for Defined modules) its function/memory/table/global
// instances held in its own per-kind vectors, imports first.
type ModuleInstance struct {
	Index ModuleIndex
	Name  string
	Kind  ModuleInstanceKind

	// Source is the parsed skeleton this instance was built from. Nil for
	// Host modules.
	Source *Module

	Exports map[string]Export

	Funcs    []*FunctionInstance
	Mems     []*MemoryInstance
	Tables   []*TableInstance
	Globals  []*GlobalInstance
	Elements []*ElementSegmentInstance
	Data     []*DataSegmentInstance

	// StartFunc is the resolved start function handle, if the module
	// declared one. The store does not invoke it during Instantiate; the
	// caller (debugger.Controller) runs it and rolls the module back via
	// Store.UnloadLastModule on trap.
	StartFunc *FuncHandle
}

// Export looks up a named export, mirroring wazero's ModuleInstance
// export map but returning the descriptor rather than a live pointer so
// callers resolve through the Store explicitly.
func (mi *ModuleInstance) Export(name string) (Export, bool) {
	e, ok := mi.Exports[name]
	return e, ok
}

// FunctionInstanceKind discriminates a Wasm-defined function body from a
// host-provided behavior.
type FunctionInstanceKind byte

const (
	FuncKindDefined FunctionInstanceKind = iota
	FuncKindHost
)

// HostContext is the bridge surface a host function body runs with: the
// first defined memory of the calling module, or an empty slice if the
// module declares none.
type HostContext struct {
	Mem []byte
}

// HostFunc is a host function's callable shape: arguments in, a
// preallocated results slice to populate, a HostContext for memory
// access, and the Store so a host can spawn further calls. Returning a
// non-nil error raises a host-function trap (api.NewHostFunctionTrap)
// that unwinds like any other trap.
//
// internal/hostabi builds ergonomic, strongly-typed wrappers around this
// shape; this package only stores the raw callable to avoid an import
// cycle (hostabi depends on wasm, not the reverse).
type HostFunc func(ctx context.Context, args []api.Value, results []api.Value, hc HostContext, store *Store) error

// FunctionInstance is a function after linking: either a defined Wasm
// function body or a host callable, always carrying its resolved type.
type FunctionInstance struct {
	Kind   FunctionInstanceKind
	Module ModuleIndex
	Type   api.FunctionType

	// Name is the export name this function was registered under, if any,
	// used for frame rendering when DWARF subprogram info is unavailable.
	Name string

	Body *FunctionBody // FuncKindDefined
	Host HostFunc      // FuncKindHost
}

// MemoryInstance owns a linear memory's backing storage.
type MemoryInstance struct {
	Data   []byte
	Min    uint32
	Max    uint32
	HasMax bool
}

// SizePages returns the memory's current size in 64KiB pages.
func (m *MemoryInstance) SizePages() uint32 { return uint32(len(m.Data) / PageSize) }

// Grow grows the memory by delta pages, returning the previous size in
// pages, or (0, false) if growth would exceed Max (when HasMax) or the
// implementation limit of 65536 pages (the 32-bit address space).
func (m *MemoryInstance) Grow(delta uint32) (uint32, bool) {
	prev := m.SizePages()
	next := prev + delta
	if next < prev { // overflow
		return 0, false
	}
	if m.HasMax && next > m.Max {
		return 0, false
	}
	if next > 65536 {
		return 0, false
	}
	grown := make([]byte, next*PageSize)
	copy(grown, m.Data)
	m.Data = grown
	return prev, true
}

// nullRef is the reference-slot sentinel for an unset table entry or a
// null funcref/externref value, matching api.Value's null encoding.
const nullRef = ^uint64(0)

// TableInstance owns a table's reference slots. Each slot holds either
// nullRef or a function handle packed by EncodeFuncRef (module index in
// the high 32 bits, local index in the low 32 bits).
type TableInstance struct {
	ElemType api.ValueType
	Refs     []uint64
	Min      uint32
	Max      uint32
	HasMax   bool
}

// Grow grows the table by delta elements, filling new slots with fill,
// returning the previous size, or (0, false) if growth would exceed Max.
func (t *TableInstance) Grow(delta uint32, fill uint64) (uint32, bool) {
	prev := uint32(len(t.Refs))
	next := prev + delta
	if next < prev {
		return 0, false
	}
	if t.HasMax && next > t.Max {
		return 0, false
	}
	grown := make([]uint64, next)
	copy(grown, t.Refs)
	for i := prev; i < next; i++ {
		grown[i] = fill
	}
	t.Refs = grown
	return prev, true
}

// GlobalInstance owns a global's value and mutability flag.
type GlobalInstance struct {
	Value   api.Value
	Mutable bool
}

// ElementSegmentInstance is a live element segment: its function indices
// (for passive segments, source for table.init) and whether it has been
// dropped.
type ElementSegmentInstance struct {
	FuncIndices []uint32
	Dropped     bool
}

// DataSegmentInstance is a live data segment: its bytes (for passive
// segments, source for memory.init) and whether it has been dropped.
type DataSegmentInstance struct {
	Bytes   []byte
	Dropped bool
}
