package api

import "fmt"

// ExternKind classifies an import or export with the entity kind it
// refers to. See )" — there are exactly five
// handle kinds, but element/data segments are never imported or exported,
// so only four appear here.
type ExternKind byte

const (
	ExternKindFunc ExternKind = iota
	ExternKindTable
	ExternKindMemory
	ExternKindGlobal
)

func (k ExternKind) String() string {
	switch k {
	case ExternKindFunc:
		return "func"
	case ExternKindTable:
		return "table"
	case ExternKindMemory:
		return "memory"
	case ExternKindGlobal:
		return "global"
	default:
		return fmt.Sprintf("extern(%d)", k)
	}
}

// FunctionType is a WebAssembly function signature.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// String renders the signature the way debugger output and RPC error
// messages do, e.g. "(i32, i32) -> (i32)".
func (ft *FunctionType) String() string {
	s := "("
	for i, p := range ft.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	s += ") -> ("
	for i, r := range ft.Results {
		if i > 0 {
			s += ", "
		}
		s += r.String()
	}
	return s + ")"
}

// Equal reports whether two function types are identical, used by
// call_indirect's type check and by import linking.
func (ft *FunctionType) Equal(other *FunctionType) bool {
	if ft == other {
		return true
	}
	if ft == nil || other == nil {
		return false
	}
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i, p := range ft.Params {
		if p != other.Params[i] {
			return false
		}
	}
	for i, r := range ft.Results {
		if r != other.Results[i] {
			return false
		}
	}
	return true
}
