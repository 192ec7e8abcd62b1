package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/debugger"
)

// printModuleBytes builds a module importing `wasminspect.print_i32(i32)`
// and exporting `go(x) -> x` that calls it once before returning x.
func printModuleBytes() []byte {
	b := header()
	typePayload := []byte{
		0x02,
		0x60, 0x01, 0x7f, 0x00, // (i32) -> ()
		0x60, 0x01, 0x7f, 0x01, 0x7f, // (i32) -> i32
	}
	b = append(b, section(0x01, typePayload)...)

	importPayload := []byte{0x01, 0x0b, 'w', 'a', 's', 'm', 'i', 'n', 's', 'p', 'e', 'c', 't', 0x09, 'p', 'r', 'i', 'n', 't', '_', 'i', '3', '2', 0x00, 0x00}
	b = append(b, section(0x02, importPayload)...)

	b = append(b, section(0x03, []byte{0x01, 0x01})...)
	b = append(b, section(0x07, []byte{0x01, 0x02, 'g', 'o', 0x00, 0x01})...)

	body := []byte{0x00, 0x20, 0x00, 0x10, 0x00, 0x20, 0x00, 0x0b}
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func TestRegisterDiagnosticHostModule_ImportedByModule(t *testing.T) {
	c := debugger.New(debugger.Config{})
	require.NoError(t, registerDiagnosticHostModule(c))
	require.NoError(t, c.LoadModule("main", printModuleBytes()))

	result, err := c.Run(context.Background(), "go", []api.Value{api.ValueI32(42)})
	require.NoError(t, err)
	require.Equal(t, debugger.RunFinish, result.Kind)
	require.Equal(t, int32(42), result.Values[0].I32())
}
