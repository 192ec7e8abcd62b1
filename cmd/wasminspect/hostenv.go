package main

import (
	"fmt"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/debugger"
	"github.com/nokotan/wasminspect/internal/hostabi"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// registerDiagnosticHostModule wires a tiny "wasminspect" host module into
// c, giving a module under inspection somewhere to print integers without
// requiring a full WASI implementation. Built on internal/hostabi.Wrap's
// reflection-based signature inference rather than a hand-written
// wasm.HostFunc closure.
func registerDiagnosticHostModule(c *debugger.Controller) error {
	printI32Type, printI32Fn := hostabi.MustWrap(func(v int32) {
		fmt.Println(v)
	})
	printI64Type, printI64Fn := hostabi.MustWrap(func(v int64) {
		fmt.Println(v)
	})
	return c.RegisterHostModule("wasminspect", map[string]wasm.HostItem{
		"print_i32": {Kind: api.ExternKindFunc, FuncType: printI32Type, Func: printI32Fn},
		"print_i64": {Kind: api.ExternKindFunc, FuncType: printI64Type, Func: printI64Fn},
	})
}
