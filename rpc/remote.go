package rpc

import (
	"context"
	"fmt"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// remoteHostModules groups mod's function imports by module name and
// synthesizes a wasm.HostItem map per group, each entry's Func forwarding
// the call across the transport and blocking for the client's CallResult —
// the `remote_import_module`/`remote_call_fn` pairing of the original's
// debugger_proxy.rs.
func (p *Proxy) remoteHostModules(mod *wasm.Module) map[string]map[string]wasm.HostItem {
	out := map[string]map[string]wasm.HostItem{}
	for _, imp := range mod.Imports {
		if imp.Kind != api.ExternKindFunc {
			continue
		}
		ft := mod.Types[imp.TypeIndex]
		group, ok := out[imp.Module]
		if !ok {
			group = map[string]wasm.HostItem{}
			out[imp.Module] = group
		}
		moduleName, field, funcType := imp.Module, imp.Field, ft
		group[imp.Field] = wasm.HostItem{
			Kind:     api.ExternKindFunc,
			FuncType: ft,
			Func: func(ctx context.Context, args []api.Value, results []api.Value, hc wasm.HostContext, store *wasm.Store) error {
				return p.remoteCallFn(ctx, moduleName, field, funcType, args, results)
			},
		}
	}
	return out
}

// remoteCallFn implements one CallHost/CallResult round trip: it sends
// CallHost{module, field, args} and blocks the executor (via
// Proxy.awaitCallResult) until the client replies, a cancelled ctx, or the
// transport closes. A closed transport surfaces as a HostFunctionError
// trap, per spec §4.G.
func (p *Proxy) remoteCallFn(ctx context.Context, module, field string, ft api.FunctionType, args []api.Value, results []api.Value) error {
	if err := p.transport.SendText("CallHost", CallHostResponse{
		Module: module,
		Field:  field,
		Args:   EncodeValues(args),
	}); err != nil {
		return fmt.Errorf("rpc: send CallHost: %w", err)
	}

	reply, err := p.awaitCallResult(ctx)
	if err != nil {
		return err
	}
	got, err := DecodeValues(reply.Values)
	if err != nil {
		return err
	}
	if len(got) != len(ft.Results) {
		return fmt.Errorf("rpc: host call %s.%s: want %d results, got %d", module, field, len(ft.Results), len(got))
	}
	copy(results, got)
	return nil
}
