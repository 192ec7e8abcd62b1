package wasm

import (
	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
)

// Store is an append-only collection of module instances, addressed by
// (ModuleIndex, LocalIndex) handles with O(1) lookup. Each ModuleInstance
// holds its own per-kind vectors (Funcs, Mems, Tables, Globals, Elements,
// Data); the Store keeps no store-wide per-kind vectors.
type Store struct {
	modules     []*ModuleInstance
	byName      map[string]*ModuleInstance
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byName: map[string]*ModuleInstance{}}
}

// Reset releases every module and instance together; there is no partial
// teardown.
func (s *Store) Reset() {
	s.modules = nil
	s.byName = map[string]*ModuleInstance{}
}

// Module returns the instance at idx.
func (s *Store) Module(idx ModuleIndex) *ModuleInstance { return s.modules[idx] }

// ModuleByName returns the instance registered under name, if any.
func (s *Store) ModuleByName(name string) (*ModuleInstance, bool) {
	mi, ok := s.byName[name]
	return mi, ok
}

// Func resolves a function handle to its instance.
func (s *Store) Func(h FuncHandle) *FunctionInstance { return s.modules[h.Module].Funcs[h.Local] }

// Mem resolves a memory handle to its instance.
func (s *Store) Mem(h MemHandle) *MemoryInstance { return s.modules[h.Module].Mems[h.Local] }

// Table resolves a table handle to its instance.
func (s *Store) Table(h TableHandle) *TableInstance { return s.modules[h.Module].Tables[h.Local] }

// Global resolves a global handle to its instance.
func (s *Store) Global(h GlobalHandle) *GlobalInstance { return s.modules[h.Module].Globals[h.Local] }

// FirstMem returns the HostContext memory slice for calls originating
// from mi: the first defined memory of the calling module, or an empty
// slice if it has none.
func (mi *ModuleInstance) FirstMem() []byte {
	if len(mi.Mems) == 0 {
		return nil
	}
	return mi.Mems[0].Data
}

// EncodeFuncRef packs a function handle into a table/value reference
// slot. DecodeFuncRef reverses it. nullRef (all bits set) never collides
// with a real handle because ModuleIndex is dense from zero and a store
// large enough to exhaust it is not a supported configuration.
func EncodeFuncRef(h FuncHandle) uint64 {
	return uint64(h.Module)<<32 | uint64(h.Local)
}

func DecodeFuncRef(ref uint64) (FuncHandle, bool) {
	if ref == nullRef {
		return FuncHandle{}, false
	}
	return FuncHandle{Module: ModuleIndex(ref >> 32), Local: LocalIndex(uint32(ref))}, true
}

// HostItem is one entry of a host module's field → {func | global | mem |
// table} map.
type HostItem struct {
	Kind api.ExternKind

	FuncType api.FunctionType
	Func     HostFunc

	Mem *MemoryInstance

	Table *TableInstance

	Global *GlobalInstance
}

// RegisterHostModule registers an embedder-provided module under name,
// exposing items by field name to later imports. It is an error to
// register the same name twice.
func (s *Store) RegisterHostModule(name string, items map[string]HostItem) (*ModuleInstance, error) {
	if _, exists := s.byName[name]; exists {
		return nil, &DuplicateModuleNameError{Name: name}
	}
	idx := ModuleIndex(len(s.modules))
	mi := &ModuleInstance{
		Index:   idx,
		Name:    name,
		Kind:    ModuleInstanceHost,
		Exports: map[string]Export{},
	}
	for field, item := range items {
		var exportIndex uint32
		switch item.Kind {
		case api.ExternKindFunc:
			exportIndex = uint32(len(mi.Funcs))
			mi.Funcs = append(mi.Funcs, &FunctionInstance{
				Kind: FuncKindHost, Module: idx, Type: item.FuncType, Name: field, Host: item.Func,
			})
		case api.ExternKindMemory:
			exportIndex = uint32(len(mi.Mems))
			mi.Mems = append(mi.Mems, item.Mem)
		case api.ExternKindTable:
			exportIndex = uint32(len(mi.Tables))
			mi.Tables = append(mi.Tables, item.Table)
		case api.ExternKindGlobal:
			exportIndex = uint32(len(mi.Globals))
			mi.Globals = append(mi.Globals, item.Global)
		}
		mi.Exports[field] = Export{Name: field, Kind: item.Kind, Index: exportIndex}
	}
	s.modules = append(s.modules, mi)
	s.byName[name] = mi
	return mi, nil
}

// Instantiate links mod's imports against already-registered modules,
// appends its defined functions/memories/tables/globals to the store, and
// applies active element/data segments. It does not invoke the start
// function — the caller runs it via the executor and, on trap, rolls the
// instantiation back with UnloadLastModule.
func (s *Store) Instantiate(name string, mod *Module) (*ModuleInstance, error) {
	if _, exists := s.byName[name]; exists {
		return nil, &DuplicateModuleNameError{Name: name}
	}
	if len(mod.Mems) > 1 {
		return nil, &MultiMemoryError{Count: len(mod.Mems)}
	}

	idx := ModuleIndex(len(s.modules))
	mi := &ModuleInstance{
		Index:   idx,
		Name:    name,
		Kind:    ModuleInstanceDefined,
		Source:  mod,
		Exports: map[string]Export{},
	}

	for _, imp := range mod.Imports {
		if err := s.linkImport(mi, mod, imp); err != nil {
			return nil, err
		}
	}

	for i, fb := range mod.Functions {
		mi.Funcs = append(mi.Funcs, &FunctionInstance{
			Kind: FuncKindDefined, Module: idx, Type: mod.Types[fb.TypeIndex], Body: &mi.Source.Functions[i],
		})
	}
	for _, mt := range mod.Mems {
		mi.Mems = append(mi.Mems, &MemoryInstance{
			Data: make([]byte, mt.Min*PageSize), Min: mt.Min, Max: mt.Max, HasMax: mt.HasMax,
		})
	}
	for _, tt := range mod.Tables {
		mi.Tables = append(mi.Tables, &TableInstance{
			ElemType: tt.ElemType, Refs: newRefSlots(tt.Min), Min: tt.Min, Max: tt.Max, HasMax: tt.HasMax,
		})
	}
	for _, g := range mod.Globals {
		mi.Globals = append(mi.Globals, &GlobalInstance{
			Value: s.evalConstExpr(mi, g.Init, g.Type.ValType), Mutable: g.Type.Mutable,
		})
	}

	for _, es := range mod.Elements {
		inst := &ElementSegmentInstance{FuncIndices: es.FuncIndices}
		mi.Elements = append(mi.Elements, inst)
		if es.Mode == ElementModeActive {
			offset := s.evalConstExpr(mi, es.Offset, api.ValueTypeI32)
			base := offset.I32()
			table := mi.Tables[es.TableIndex]
			for i, fi := range es.FuncIndices {
				table.Refs[int(base)+i] = EncodeFuncRef(FuncHandle{Module: idx, Local: LocalIndex(fi)})
			}
			inst.Dropped = true
		}
	}
	for _, ds := range mod.Data {
		inst := &DataSegmentInstance{Bytes: ds.Bytes}
		mi.Data = append(mi.Data, inst)
		if ds.Mode == DataModeActive {
			offset := s.evalConstExpr(mi, ds.Offset, api.ValueTypeI32)
			base := offset.I32()
			mem := mi.Mems[ds.MemIndex]
			copy(mem.Data[base:], ds.Bytes)
			inst.Dropped = true
		}
	}

	for _, exp := range mod.Exports {
		mi.Exports[exp.Name] = exp
		if exp.Kind == api.ExternKindFunc && mi.Funcs[exp.Index].Name == "" {
			mi.Funcs[exp.Index].Name = exp.Name
		}
	}
	if mod.Start != nil {
		h := FuncHandle{Module: idx, Local: LocalIndex(*mod.Start)}
		mi.StartFunc = &h
	}

	s.modules = append(s.modules, mi)
	s.byName[name] = mi
	return mi, nil
}

// UnloadLastModule removes the most recently instantiated module. Used to
// roll back an instantiation whose start function trapped. Its slot is
// left empty so its ModuleIndex is never handed out again.
func (s *Store) UnloadLastModule() {
	for i := len(s.modules) - 1; i >= 0; i-- {
		if last := s.modules[i]; last != nil {
			delete(s.byName, last.Name)
			s.modules[i] = nil
			return
		}
	}
}

func newRefSlots(n uint32) []uint64 {
	refs := make([]uint64, n)
	for i := range refs {
		refs[i] = nullRef
	}
	return refs
}

// evalConstExpr evaluates the limited constant-expression grammar legal
// in global initializers and segment offsets.
func (s *Store) evalConstExpr(mi *ModuleInstance, ce ConstExpr, want api.ValueType) api.Value {
	switch ce.Op {
	case instruction.OpI32Const:
		return api.ValueI32(ce.I32)
	case instruction.OpI64Const:
		return api.ValueI64(ce.I64)
	case instruction.OpF32Const:
		return api.ValueF32FromBits(ce.F32Bits)
	case instruction.OpF64Const:
		return api.ValueF64FromBits(ce.F64Bits)
	case instruction.OpGlobalGet:
		return mi.Globals[ce.GlobalIndex].Value
	case instruction.OpRefFunc:
		return api.ValueFuncRef(EncodeFuncRef(FuncHandle{Module: mi.Index, Local: LocalIndex(ce.FuncIndex)}))
	case instruction.OpRefNull:
		return api.Default(ce.RefType)
	default:
		return api.Default(want)
	}
}

func (mi *ModuleInstance) exportCompatibleFunc(exp Export, wantType api.FunctionType) (*FunctionInstance, bool) {
	if exp.Kind != api.ExternKindFunc {
		return nil, false
	}
	f := mi.Funcs[exp.Index]
	return f, f.Type.Equal(&wantType)
}

// linkImport resolves one import of mod against the store's already
// registered modules and appends the resolved instance to mi's flat
// vectors, preserving import-then-defined ordering.
func (s *Store) linkImport(mi *ModuleInstance, mod *Module, imp Import) error {
	exporter, ok := s.byName[imp.Module]
	if !ok {
		return &UnknownImportError{Module: imp.Module, Field: imp.Field}
	}
	exp, ok := exporter.Export(imp.Field)
	if !ok {
		return &UnknownImportError{Module: imp.Module, Field: imp.Field}
	}
	if exp.Kind != imp.Kind {
		return &TypeMismatchError{Module: imp.Module, Field: imp.Field, Expected: imp.Kind.String(), Actual: exp.Kind.String()}
	}
	switch imp.Kind {
	case api.ExternKindFunc:
		want := mod.Types[imp.TypeIndex]
		fn, compatible := exporter.exportCompatibleFunc(exp, want)
		if !compatible {
			return &TypeMismatchError{Module: imp.Module, Field: imp.Field, Expected: want.String(), Actual: fn.Type.String()}
		}
		mi.Funcs = append(mi.Funcs, fn)
	case api.ExternKindMemory:
		m := exporter.Mems[exp.Index]
		if !memoryCompatible(imp.MemoryType, m) {
			return &TypeMismatchError{Module: imp.Module, Field: imp.Field, Expected: "memory", Actual: "incompatible limits"}
		}
		mi.Mems = append(mi.Mems, m)
	case api.ExternKindTable:
		t := exporter.Tables[exp.Index]
		if !tableCompatible(imp.TableType, t) {
			return &TypeMismatchError{Module: imp.Module, Field: imp.Field, Expected: "table", Actual: "incompatible limits"}
		}
		mi.Tables = append(mi.Tables, t)
	case api.ExternKindGlobal:
		g := exporter.Globals[exp.Index]
		if g.Mutable != imp.GlobalType.Mutable {
			return &TypeMismatchError{Module: imp.Module, Field: imp.Field, Expected: "global", Actual: "mutability mismatch"}
		}
		mi.Globals = append(mi.Globals, g)
	}
	return nil
}

func memoryCompatible(want MemoryType, have *MemoryInstance) bool {
	if have.Min < want.Min {
		return false
	}
	if want.HasMax {
		if !have.HasMax || have.Max > want.Max {
			return false
		}
	}
	return true
}

func tableCompatible(want TableType, have *TableInstance) bool {
	if have.ElemType != want.ElemType {
		return false
	}
	if uint32(len(have.Refs)) < want.Min {
		return false
	}
	if want.HasMax {
		if !have.HasMax || have.Max > want.Max {
			return false
		}
	}
	return true
}
