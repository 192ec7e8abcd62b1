// Package wasm is the store and instance model: an append-only collection
// of modules addressed by opaque handles, grounded in wazero's
// internal/wasm store/FunctionInstance/MemoryInstance design but reshaped around explicit (ModuleIndex, LocalIndex) handles
// rather than wazero's pointer-chasing *FunctionInstance references, so
// that the debugger can hold a handle across store mutation boundaries.
package wasm

import "fmt"

// ModuleIndex is a dense, monotonically assigned module identifier. It is
// never reused after a module unload within the lifetime of a Store.
type ModuleIndex uint32

// LocalIndex addresses an entity within a single module's flat vector for
// its kind (funcs, mems, tables, globals, elem/data segments).
type LocalIndex uint32

// FuncHandle addresses a function instance. Its zero value is a valid
// handle: function 0 of module 0.
type FuncHandle struct {
	Module ModuleIndex
	Local  LocalIndex
}

func (h FuncHandle) String() string { return fmt.Sprintf("func(%d,%d)", h.Module, h.Local) }

// MemHandle addresses a memory instance.
type MemHandle struct {
	Module ModuleIndex
	Local  LocalIndex
}

func (h MemHandle) String() string { return fmt.Sprintf("mem(%d,%d)", h.Module, h.Local) }

// TableHandle addresses a table instance.
type TableHandle struct {
	Module ModuleIndex
	Local  LocalIndex
}

func (h TableHandle) String() string { return fmt.Sprintf("table(%d,%d)", h.Module, h.Local) }

// GlobalHandle addresses a global instance.
type GlobalHandle struct {
	Module ModuleIndex
	Local  LocalIndex
}

func (h GlobalHandle) String() string { return fmt.Sprintf("global(%d,%d)", h.Module, h.Local) }

// SegmentHandle addresses an element or data segment, distinguished by Kind.
type SegmentKind byte

const (
	SegmentKindElement SegmentKind = iota
	SegmentKindData
)

type SegmentHandle struct {
	Module ModuleIndex
	Local  LocalIndex
	Kind   SegmentKind
}

func (h SegmentHandle) String() string {
	k := "elem"
	if h.Kind == SegmentKindData {
		k = "data"
	}
	return fmt.Sprintf("%s(%d,%d)", k, h.Module, h.Local)
}
