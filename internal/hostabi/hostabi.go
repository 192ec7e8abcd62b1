// Package hostabi wraps ordinary typed Go functions into wasm.HostFunc
// closures, inferring their WebAssembly signature by reflection so
// embedders never hand-write a wasm.HostFunc themselves. Grounded in the
// reflect-based signature inference the wazero lineage has used since its
// gasm days (hostfunc.ModuleBuilder.SetFunction / getSignature), adapted
// from VirtualMachine-closures to this module's Store/HostContext shape.
package hostabi

import (
	"context"
	"fmt"
	"reflect"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/wasm"
)

var (
	contextType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	hostContextType = reflect.TypeOf(wasm.HostContext{})
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
)

// Wrap inspects fn's signature and produces the api.FunctionType it
// implies plus a wasm.HostFunc closure that marshals between api.Value
// and fn's native Go parameter/return types.
//
// fn must be a func value. Its first parameter may optionally be a
// context.Context and/or a wasm.HostContext (in that order, both
// optional) for functions that need cancellation or linear-memory
// access; remaining parameters and every return value must be one of
// int32, uint32, int64, uint64, float32, float64. fn may optionally
// return a trailing error, which surfaces as the HostFunc's error return
// (and therefore as an api.Trap from the caller's perspective).
func Wrap(fn interface{}) (api.FunctionType, wasm.HostFunc, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return api.FunctionType{}, nil, fmt.Errorf("hostabi: Wrap requires a func, got %s", t.Kind())
	}

	wantsCtx := t.NumIn() > 0 && t.In(0) == contextType
	wantsHostCtx := false
	firstParam := 0
	if wantsCtx {
		firstParam = 1
	}
	if t.NumIn() > firstParam && t.In(firstParam) == hostContextType {
		wantsHostCtx = true
		firstParam++
	}

	numOut := t.NumOut()
	returnsErr := numOut > 0 && t.Out(numOut-1) == errorType
	if returnsErr {
		numOut--
	}

	params := make([]api.ValueType, t.NumIn()-firstParam)
	for i := range params {
		vt, err := valueTypeOf(t.In(firstParam + i))
		if err != nil {
			return api.FunctionType{}, nil, fmt.Errorf("hostabi: parameter %d: %w", i, err)
		}
		params[i] = vt
	}
	results := make([]api.ValueType, numOut)
	for i := range results {
		vt, err := valueTypeOf(t.Out(i))
		if err != nil {
			return api.FunctionType{}, nil, fmt.Errorf("hostabi: result %d: %w", i, err)
		}
		results[i] = vt
	}
	sig := api.FunctionType{Params: params, Results: results}

	hf := func(ctx context.Context, args []api.Value, out []api.Value, hc wasm.HostContext, store *wasm.Store) error {
		in := make([]reflect.Value, t.NumIn())
		idx := 0
		if wantsCtx {
			in[idx] = reflect.ValueOf(ctx)
			idx++
		}
		if wantsHostCtx {
			in[idx] = reflect.ValueOf(hc)
			idx++
		}
		for i, a := range args {
			in[idx+i] = nativeValueOf(a, t.In(idx+i))
		}

		results := v.Call(in)
		if returnsErr {
			if err, _ := results[len(results)-1].Interface().(error); err != nil {
				return err
			}
			results = results[:len(results)-1]
		}
		for i, r := range results {
			out[i] = apiValueOf(r)
		}
		return nil
	}
	return sig, hf, nil
}

// MustWrap is Wrap, panicking on error. Intended for package-init-time
// registration of fixed host modules, where a bad signature is a coding
// mistake, not a runtime condition.
func MustWrap(fn interface{}) (api.FunctionType, wasm.HostFunc) {
	sig, hf, err := Wrap(fn)
	if err != nil {
		panic(err)
	}
	return sig, hf
}

func valueTypeOf(t reflect.Type) (api.ValueType, error) {
	switch t.Kind() {
	case reflect.Int32, reflect.Uint32:
		return api.ValueTypeI32, nil
	case reflect.Int64, reflect.Uint64:
		return api.ValueTypeI64, nil
	case reflect.Float32:
		return api.ValueTypeF32, nil
	case reflect.Float64:
		return api.ValueTypeF64, nil
	default:
		return 0, fmt.Errorf("unsupported host function type %s", t)
	}
}

func nativeValueOf(a api.Value, t reflect.Type) reflect.Value {
	switch t.Kind() {
	case reflect.Int32:
		return reflect.ValueOf(a.I32())
	case reflect.Uint32:
		return reflect.ValueOf(a.U32())
	case reflect.Int64:
		return reflect.ValueOf(a.I64())
	case reflect.Uint64:
		return reflect.ValueOf(a.U64())
	case reflect.Float32:
		return reflect.ValueOf(a.F32())
	case reflect.Float64:
		return reflect.ValueOf(a.F64())
	default:
		panic(fmt.Sprintf("hostabi: unreachable: unsupported type %s reached call time", t))
	}
}

func apiValueOf(r reflect.Value) api.Value {
	switch r.Kind() {
	case reflect.Int32:
		return api.ValueI32(int32(r.Int()))
	case reflect.Uint32:
		return api.ValueU32(uint32(r.Uint()))
	case reflect.Int64:
		return api.ValueI64(r.Int())
	case reflect.Uint64:
		return api.ValueU64(r.Uint())
	case reflect.Float32:
		return api.ValueF32(float32(r.Float()))
	case reflect.Float64:
		return api.ValueF64(r.Float())
	default:
		panic(fmt.Sprintf("hostabi: unreachable: unsupported return kind %s", r.Kind()))
	}
}
