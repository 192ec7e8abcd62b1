package wasm

import "fmt"

// UnknownImportError is raised when an import names a (module, field)
// pair the store has no registered export for.
type UnknownImportError struct {
	Module, Field string
}

func (e *UnknownImportError) Error() string {
	return fmt.Sprintf("wasm: unknown import %q.%q", e.Module, e.Field)
}

// TypeMismatchError is raised when an import resolves to an export of an
// incompatible kind or type: function signatures must be equal,
// memory/table min/max must be compatible, and global mutability must
// match exactly.
type TypeMismatchError struct {
	Module, Field string
	Expected      string
	Actual        string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("wasm: import %q.%q type mismatch: expected %s, found %s", e.Module, e.Field, e.Expected, e.Actual)
}

// DuplicateModuleNameError is raised when Instantiate or RegisterHostModule
// is called with a name already registered in the store.
type DuplicateModuleNameError struct {
	Name string
}

func (e *DuplicateModuleNameError) Error() string {
	return fmt.Sprintf("wasm: module name %q already registered", e.Name)
}

// MultiMemoryError is raised when a defined module declares more than one
// memory: multi-memory is decodable (internal/binary accepts it) but
// instantiation rejects it, since the store only ever tracks a single
// memory per module.
type MultiMemoryError struct {
	Count int
}

func (e *MultiMemoryError) Error() string {
	return fmt.Sprintf("wasm: module declares %d memories, at most one is supported", e.Count)
}
