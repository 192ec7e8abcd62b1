package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
	"github.com/nokotan/wasminspect/internal/leb128"
	"github.com/nokotan/wasminspect/internal/wasm"
)

const (
	valTypeI32       = 0x7f
	valTypeI64       = 0x7e
	valTypeF32       = 0x7d
	valTypeF64       = 0x7c
	valTypeV128      = 0x7b
	valTypeFuncRef   = 0x70
	valTypeExternRef = 0x6f
)

func decodeValueType(b byte) (api.ValueType, error) {
	switch b {
	case valTypeI32:
		return api.ValueTypeI32, nil
	case valTypeI64:
		return api.ValueTypeI64, nil
	case valTypeF32:
		return api.ValueTypeF32, nil
	case valTypeF64:
		return api.ValueTypeF64, nil
	case valTypeV128:
		return api.ValueTypeV128, nil
	case valTypeFuncRef:
		return api.ValueTypeFuncRef, nil
	case valTypeExternRef:
		return api.ValueTypeExternRef, nil
	default:
		return 0, fmt.Errorf("invalid value type byte 0x%x", b)
	}
}

func (d *decoder) decodeTypeSection(r *bytes.Reader) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return err
	}
	d.mod.Types = make([]api.FunctionType, n)
	for i := range d.mod.Types {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("invalid function type form 0x%x", form)
		}
		params, err := decodeValueTypeVector(r)
		if err != nil {
			return err
		}
		results, err := decodeValueTypeVector(r)
		if err != nil {
			return err
		}
		d.mod.Types[i] = api.FunctionType{Params: params, Results: results}
	}
	return nil
}

func decodeValueTypeVector(r *bytes.Reader) ([]api.ValueType, error) {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]api.ValueType, n)
	for i := range out {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		vt, err := decodeValueType(b)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

func decodeLimits(r *bytes.Reader) (min, max uint32, hasMax bool, err error) {
	flag, err := r.ReadByte()
	if err != nil {
		return 0, 0, false, err
	}
	min, _, err = leb128.DecodeUint32(r)
	if err != nil {
		return 0, 0, false, err
	}
	if flag == 1 {
		max, _, err = leb128.DecodeUint32(r)
		if err != nil {
			return 0, 0, false, err
		}
		hasMax = true
	}
	return min, max, hasMax, nil
}

func (d *decoder) decodeImportSection(r *bytes.Reader) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mod, err := decodeName(r)
		if err != nil {
			return err
		}
		field, err := decodeName(r)
		if err != nil {
			return err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		imp := wasm.Import{Module: mod, Field: field}
		switch kindByte {
		case 0x00:
			imp.Kind = api.ExternKindFunc
			imp.TypeIndex, _, err = leb128.DecodeUint32(r)
		case 0x01:
			imp.Kind = api.ExternKindTable
			imp.TableType, err = decodeTableType(r)
		case 0x02:
			imp.Kind = api.ExternKindMemory
			imp.MemoryType, err = decodeMemoryType(r)
		case 0x03:
			imp.Kind = api.ExternKindGlobal
			imp.GlobalType, err = decodeGlobalType(r)
		default:
			return fmt.Errorf("invalid import kind 0x%x", kindByte)
		}
		if err != nil {
			return err
		}
		d.mod.Imports = append(d.mod.Imports, imp)
	}
	return nil
}

func decodeTableType(r *bytes.Reader) (wasm.TableType, error) {
	elemByte, err := r.ReadByte()
	if err != nil {
		return wasm.TableType{}, err
	}
	elem, err := decodeValueType(elemByte)
	if err != nil {
		return wasm.TableType{}, err
	}
	min, max, hasMax, err := decodeLimits(r)
	if err != nil {
		return wasm.TableType{}, err
	}
	return wasm.TableType{ElemType: elem, Min: min, Max: max, HasMax: hasMax}, nil
}

func decodeMemoryType(r *bytes.Reader) (wasm.MemoryType, error) {
	min, max, hasMax, err := decodeLimits(r)
	if err != nil {
		return wasm.MemoryType{}, err
	}
	return wasm.MemoryType{Min: min, Max: max, HasMax: hasMax}, nil
}

func decodeGlobalType(r *bytes.Reader) (wasm.GlobalType, error) {
	vtByte, err := r.ReadByte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	vt, err := decodeValueType(vtByte)
	if err != nil {
		return wasm.GlobalType{}, err
	}
	mutByte, err := r.ReadByte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	return wasm.GlobalType{ValType: vt, Mutable: mutByte == 1}, nil
}

func (d *decoder) decodeTableSection(r *bytes.Reader) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		tt, err := decodeTableType(r)
		if err != nil {
			return err
		}
		d.mod.Tables = append(d.mod.Tables, tt)
	}
	return nil
}

func (d *decoder) decodeMemorySection(r *bytes.Reader) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mt, err := decodeMemoryType(r)
		if err != nil {
			return err
		}
		d.mod.Mems = append(d.mod.Mems, mt)
	}
	return nil
}

func (d *decoder) decodeGlobalSection(r *bytes.Reader) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		gt, err := decodeGlobalType(r)
		if err != nil {
			return err
		}
		init, err := decodeConstExpr(r)
		if err != nil {
			return err
		}
		d.mod.Globals = append(d.mod.Globals, wasm.GlobalDecl{Type: gt, Init: init})
	}
	return nil
}

func (d *decoder) decodeExportSection(r *bytes.Reader) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		name, err := decodeName(r)
		if err != nil {
			return err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return err
		}
		var kind api.ExternKind
		switch kindByte {
		case 0x00:
			kind = api.ExternKindFunc
		case 0x01:
			kind = api.ExternKindTable
		case 0x02:
			kind = api.ExternKindMemory
		case 0x03:
			kind = api.ExternKindGlobal
		default:
			return fmt.Errorf("invalid export kind 0x%x", kindByte)
		}
		d.mod.Exports = append(d.mod.Exports, wasm.Export{Name: name, Kind: kind, Index: idx})
	}
	return nil
}

// decodeConstExpr decodes a constant expression: a single instruction
// followed by `end` (0x0b), per the grammar legal in global initializers
// and segment offsets.
func decodeConstExpr(r *bytes.Reader) (wasm.ConstExpr, error) {
	opByte, err := r.ReadByte()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	var ce wasm.ConstExpr
	switch opByte {
	case 0x41:
		v, _, err := leb128.DecodeInt32(r)
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Op: instruction.OpI32Const, I32: v}
	case 0x42:
		v, _, err := leb128.DecodeInt64(r)
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Op: instruction.OpI64Const, I64: v}
	case 0x43:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Op: instruction.OpF32Const, F32Bits: leU32(buf[:])}
	case 0x44:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Op: instruction.OpF64Const, F64Bits: leU64(buf[:])}
	case 0x23:
		idx, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Op: instruction.OpGlobalGet, GlobalIndex: idx}
	case 0xd0:
		rtByte, err := r.ReadByte()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		rt, err := decodeValueType(rtByte)
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Op: instruction.OpRefNull, RefType: rt}
	case 0xd2:
		idx, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Op: instruction.OpRefFunc, FuncIndex: idx}
	default:
		return wasm.ConstExpr{}, fmt.Errorf("unsupported const expr opcode 0x%x", opByte)
	}
	end, err := r.ReadByte()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	if end != 0x0b {
		return wasm.ConstExpr{}, fmt.Errorf("const expr missing end marker, got 0x%x", end)
	}
	return ce, nil
}

func (d *decoder) decodeElementSection(r *bytes.Reader) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flags, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return err
		}
		es := wasm.ElementSegment{}
		switch flags {
		case 0:
			es.Mode = wasm.ElementModeActive
			es.TableIndex = 0
			es.Offset, err = decodeConstExpr(r)
			if err != nil {
				return err
			}
			es.FuncIndices, err = decodeIndexVector(r)
			if err != nil {
				return err
			}
		case 1:
			es.Mode = wasm.ElementModePassive
			if _, err := r.ReadByte(); err != nil { // elemkind
				return err
			}
			es.FuncIndices, err = decodeIndexVector(r)
			if err != nil {
				return err
			}
		case 2:
			es.Mode = wasm.ElementModeActive
			es.TableIndex, _, err = leb128.DecodeUint32(r)
			if err != nil {
				return err
			}
			es.Offset, err = decodeConstExpr(r)
			if err != nil {
				return err
			}
			if _, err := r.ReadByte(); err != nil { // elemkind
				return err
			}
			es.FuncIndices, err = decodeIndexVector(r)
			if err != nil {
				return err
			}
		case 4:
			es.Mode = wasm.ElementModeActive
			es.TableIndex = 0
			es.Offset, err = decodeConstExpr(r)
			if err != nil {
				return err
			}
			es.FuncIndices, err = decodeExprIndexVector(r)
			if err != nil {
				return err
			}
		case 5, 7:
			es.Mode = wasm.ElementModePassive
			if flags == 7 {
				es.Mode = wasm.ElementModeDeclared
			}
			if _, err := r.ReadByte(); err != nil { // reftype
				return err
			}
			es.FuncIndices, err = decodeExprIndexVector(r)
			if err != nil {
				return err
			}
		default:
			es.Mode = wasm.ElementModeDeclared
			if _, err := r.ReadByte(); err != nil {
				return err
			}
			es.FuncIndices, err = decodeIndexVector(r)
			if err != nil {
				return err
			}
		}
		d.mod.Elements = append(d.mod.Elements, es)
	}
	return nil
}

// decodeExprIndexVector decodes a vector of `ref.func $idx end`-style
// expressions used by element segment flag 4/5/7, collapsing each to its
// function index (the only producer these expressions legally carry when
// targeting a funcref table populated from defined functions).
func decodeExprIndexVector(r *bytes.Reader) ([]uint32, error) {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		ce, err := decodeConstExpr(r)
		if err != nil {
			return nil, err
		}
		if ce.Op == instruction.OpRefFunc {
			out[i] = ce.FuncIndex
		}
	}
	return out, nil
}

func (d *decoder) decodeDataSection(r *bytes.Reader) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flags, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return err
		}
		ds := wasm.DataSegment{}
		switch flags {
		case 0:
			ds.Mode = wasm.DataModeActive
			ds.MemIndex = 0
			ds.Offset, err = decodeConstExpr(r)
			if err != nil {
				return err
			}
		case 1:
			ds.Mode = wasm.DataModePassive
		case 2:
			ds.Mode = wasm.DataModeActive
			ds.MemIndex, _, err = leb128.DecodeUint32(r)
			if err != nil {
				return err
			}
			ds.Offset, err = decodeConstExpr(r)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("invalid data segment flags %d", flags)
		}
		size, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return err
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		ds.Bytes = buf
		d.mod.Data = append(d.mod.Data, ds)
	}
	return nil
}

// decodeCodeSection returns, per function, its raw instruction-stream
// bytes (body payload, after the locals prelude) and its decoded locals.
func decodeCodeSection(r *bytes.Reader) ([][]byte, [][]api.ValueType, error) {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, nil, err
	}
	bodies := make([][]byte, n)
	locals := make([][]api.ValueType, n)
	for i := uint32(0); i < n; i++ {
		size, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, nil, err
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, nil, err
		}
		br := bytes.NewReader(body)
		localGroups, _, err := leb128.DecodeUint32(br)
		if err != nil {
			return nil, nil, err
		}
		var decls []api.ValueType
		for g := uint32(0); g < localGroups; g++ {
			count, _, err := leb128.DecodeUint32(br)
			if err != nil {
				return nil, nil, err
			}
			b, err := br.ReadByte()
			if err != nil {
				return nil, nil, err
			}
			vt, err := decodeValueType(b)
			if err != nil {
				return nil, nil, err
			}
			for c := uint32(0); c < count; c++ {
				decls = append(decls, vt)
			}
		}
		rest := make([]byte, br.Len())
		_, _ = br.Read(rest)
		bodies[i] = rest
		locals[i] = decls
	}
	return bodies, locals, nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
