package wasm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/api"
)

func addOneType() api.FunctionType {
	return api.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
}

func TestRegisterHostModuleAndLinkFunc(t *testing.T) {
	s := NewStore()
	ft := addOneType()
	_, err := s.RegisterHostModule("env", map[string]HostItem{
		"add_one": {
			Kind:     api.ExternKindFunc,
			FuncType: ft,
			Func: func(_ context.Context, args []api.Value, results []api.Value, _ HostContext, _ *Store) error {
				results[0] = api.ValueI32(args[0].I32() + 1)
				return nil
			},
		},
	})
	require.NoError(t, err)

	mod := &Module{
		Types: []api.FunctionType{ft},
		Imports: []Import{
			{Module: "env", Field: "add_one", Kind: api.ExternKindFunc, TypeIndex: 0},
		},
	}
	mi, err := s.Instantiate("main", mod)
	require.NoError(t, err)
	require.Len(t, mi.Funcs, 1)
	require.Equal(t, FuncKindHost, mi.Funcs[0].Kind)
}

func TestInstantiateUnknownImport(t *testing.T) {
	s := NewStore()
	mod := &Module{
		Types:   []api.FunctionType{addOneType()},
		Imports: []Import{{Module: "env", Field: "missing", Kind: api.ExternKindFunc, TypeIndex: 0}},
	}
	_, err := s.Instantiate("main", mod)
	require.Error(t, err)
	var unknown *UnknownImportError
	require.ErrorAs(t, err, &unknown)
}

func TestInstantiateTypeMismatch(t *testing.T) {
	s := NewStore()
	_, err := s.RegisterHostModule("env", map[string]HostItem{
		"f": {Kind: api.ExternKindFunc, FuncType: api.FunctionType{}, Func: func(context.Context, []api.Value, []api.Value, HostContext, *Store) error { return nil }},
	})
	require.NoError(t, err)

	mod := &Module{
		Types:   []api.FunctionType{addOneType()},
		Imports: []Import{{Module: "env", Field: "f", Kind: api.ExternKindFunc, TypeIndex: 0}},
	}
	_, err = s.Instantiate("main", mod)
	require.Error(t, err)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestMultiMemoryRejected(t *testing.T) {
	s := NewStore()
	mod := &Module{Mems: []MemoryType{{Min: 1}, {Min: 1}}}
	_, err := s.Instantiate("main", mod)
	require.Error(t, err)
	var mm *MultiMemoryError
	require.ErrorAs(t, err, &mm)
}

func TestActiveDataSegmentApplied(t *testing.T) {
	s := NewStore()
	mod := &Module{
		Mems: []MemoryType{{Min: 1}},
		Data: []DataSegment{
			{Mode: DataModeActive, MemIndex: 0, Offset: ConstExpr{Op: 0}, Bytes: []byte("hi")},
		},
	}
	mi, err := s.Instantiate("main", mod)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), mi.Mems[0].Data[0:2])
	require.True(t, mi.Data[0].Dropped)
}

func TestUnloadLastModule(t *testing.T) {
	s := NewStore()
	_, err := s.Instantiate("m1", &Module{})
	require.NoError(t, err)
	s.UnloadLastModule()
	_, ok := s.ModuleByName("m1")
	require.False(t, ok)
}

func TestMemoryGrow(t *testing.T) {
	m := &MemoryInstance{Data: make([]byte, PageSize), Min: 1, Max: 2, HasMax: true}
	prev, ok := m.Grow(1)
	require.True(t, ok)
	require.Equal(t, uint32(1), prev)
	require.Equal(t, uint32(2), m.SizePages())

	_, ok = m.Grow(1)
	require.False(t, ok)
}

func TestTableGrowAndRefEncoding(t *testing.T) {
	tbl := &TableInstance{ElemType: api.ValueTypeFuncRef, Refs: newRefSlots(1), Min: 1}
	prev, ok := tbl.Grow(2, nullRef)
	require.True(t, ok)
	require.Equal(t, uint32(1), prev)

	h := FuncHandle{Module: 3, Local: 7}
	ref := EncodeFuncRef(h)
	decoded, ok := DecodeFuncRef(ref)
	require.True(t, ok)
	require.Equal(t, h, decoded)

	_, ok = DecodeFuncRef(nullRef)
	require.False(t, ok)
}
