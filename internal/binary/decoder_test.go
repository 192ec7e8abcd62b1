package binary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/instruction"
)

// addModuleBytes hand-assembles a module exporting a single function
// `add(a, b) = a + b`.
func addModuleBytes() []byte {
	var b []byte
	b = append(b, Magic[:]...)
	b = append(b, 0x01, 0x00, 0x00, 0x00)

	// Type section: (i32, i32) -> i32
	typePayload := []byte{0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f}
	b = append(b, 0x01, byte(len(typePayload)))
	b = append(b, typePayload...)

	// Function section: one function of type 0
	funcPayload := []byte{0x01, 0x00}
	b = append(b, 0x03, byte(len(funcPayload)))
	b = append(b, funcPayload...)

	// Export section: "add" -> func 0
	exportPayload := []byte{0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00}
	b = append(b, 0x07, byte(len(exportPayload)))
	b = append(b, exportPayload...)

	// Code section: one body: no locals; local.get 0; local.get 1; i32.add; end
	body := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}
	codePayload := append([]byte{0x01, byte(len(body))}, body...)
	b = append(b, 0x0a, byte(len(codePayload)))
	b = append(b, codePayload...)

	return b
}

func TestDecodeModule_AddFunction(t *testing.T) {
	mod, err := DecodeModule(bytes.NewReader(addModuleBytes()))
	require.NoError(t, err)
	require.Len(t, mod.Types, 1)
	require.Equal(t, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, mod.Types[0].Params)
	require.Equal(t, []api.ValueType{api.ValueTypeI32}, mod.Types[0].Results)

	require.Len(t, mod.Functions, 1)
	insts := mod.Functions[0].Instructions
	require.Len(t, insts, 4)
	require.Equal(t, instruction.OpLocalGet, insts[0].Op)
	require.Equal(t, uint32(0), insts[0].LocalIndex)
	require.Equal(t, instruction.OpLocalGet, insts[1].Op)
	require.Equal(t, uint32(1), insts[1].LocalIndex)
	require.Equal(t, instruction.OpI32Add, insts[2].Op)
	require.Equal(t, instruction.OpEnd, insts[3].Op)

	// Offsets are relative to the body payload start (after the locals
	// prelude, which this body doesn't have beyond the zero-group count).
	require.Equal(t, uint32(0), insts[0].Offset)
	require.Equal(t, uint32(2), insts[1].Offset)
	require.Equal(t, uint32(4), insts[2].Offset)
	require.Equal(t, uint32(5), insts[3].Offset)

	require.Len(t, mod.Exports, 1)
	require.Equal(t, "add", mod.Exports[0].Name)
	require.Equal(t, api.ExternKindFunc, mod.Exports[0].Kind)
}

func TestDecodeModule_BadMagic(t *testing.T) {
	_, err := DecodeModule(bytes.NewReader([]byte{0, 0, 0, 0}))
	require.Error(t, err)
}

func TestDecodeModule_GlobalWithConstExpr(t *testing.T) {
	var b []byte
	b = append(b, Magic[:]...)
	b = append(b, 0x01, 0x00, 0x00, 0x00)

	// Global section: one mutable i32 global initialized to 42.
	globalPayload := []byte{0x01, 0x7f, 0x01, 0x41, 0x2a, 0x0b}
	b = append(b, 0x06, byte(len(globalPayload)))
	b = append(b, globalPayload...)

	mod, err := DecodeModule(bytes.NewReader(b))
	require.NoError(t, err)
	require.Len(t, mod.Globals, 1)
	require.True(t, mod.Globals[0].Type.Mutable)
	require.Equal(t, instruction.OpI32Const, mod.Globals[0].Init.Op)
	require.Equal(t, int32(42), mod.Globals[0].Init.I32)
}

func TestDecodeModule_CustomDebugSectionRetained(t *testing.T) {
	var b []byte
	b = append(b, Magic[:]...)
	b = append(b, 0x01, 0x00, 0x00, 0x00)

	name := ".debug_info"
	payload := append([]byte{byte(len(name))}, []byte(name)...)
	payload = append(payload, []byte{0xde, 0xad}...)
	b = append(b, 0x00, byte(len(payload)))
	b = append(b, payload...)

	mod, err := DecodeModule(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, mod.DebugSections[".debug_info"])
}

func TestDecodeModule_UnknownOpcodeFails(t *testing.T) {
	var b []byte
	b = append(b, Magic[:]...)
	b = append(b, 0x01, 0x00, 0x00, 0x00)

	typePayload := []byte{0x01, 0x60, 0x00, 0x00}
	b = append(b, 0x01, byte(len(typePayload)))
	b = append(b, typePayload...)
	funcPayload := []byte{0x01, 0x00}
	b = append(b, 0x03, byte(len(funcPayload)))
	b = append(b, funcPayload...)
	body := []byte{0x00, 0xff, 0x0b} // 0xff is not a valid opcode
	codePayload := append([]byte{0x01, byte(len(body))}, body...)
	b = append(b, 0x0a, byte(len(codePayload)))
	b = append(b, codePayload...)

	_, err := DecodeModule(bytes.NewReader(b))
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
}
