package interpreter

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/binary"
	"github.com/nokotan/wasminspect/internal/wasm"
)

func section(id byte, payload []byte) []byte {
	return append([]byte{id, byte(len(payload))}, payload...)
}

func header() []byte {
	b := append([]byte{}, binary.Magic[:]...)
	return append(b, 0x01, 0x00, 0x00, 0x00)
}

// runExport decodes modBytes, instantiates it in a fresh store and runs the
// named export to completion, returning its results or the trap it raised.
func runExport(t *testing.T, modBytes []byte, name string, args []api.Value) ([]api.Value, *api.Trap) {
	t.Helper()
	mod, err := binary.DecodeModule(bytes.NewReader(modBytes))
	require.NoError(t, err)

	store := wasm.NewStore()
	mi, err := store.Instantiate("main", mod)
	require.NoError(t, err)

	exp, ok := mi.Export(name)
	require.True(t, ok, "export %q not found", name)
	require.Equal(t, api.ExternKindFunc, exp.Kind)
	h := wasm.FuncHandle{Module: mi.Index, Local: wasm.LocalIndex(exp.Index)}

	eng := NewEngine(store)
	th := NewThread(eng)
	if trap := th.PushCall(context.Background(), h, args); trap != nil {
		return nil, trap
	}
	for {
		finished, results, trap := th.Step(context.Background())
		if trap != nil {
			return nil, trap
		}
		if finished {
			return results, nil
		}
	}
}

// divModuleBytes builds `div(a, b) = a / b` (signed i32 division).
func divModuleBytes() []byte {
	b := header()
	b = append(b, section(0x01, []byte{0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f})...)
	b = append(b, section(0x03, []byte{0x01, 0x00})...)
	b = append(b, section(0x07, []byte{0x01, 0x03, 'd', 'i', 'v', 0x00, 0x00})...)
	body := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6d, 0x0b} // local.get 0; local.get 1; i32.div_s; end
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func TestExecutor_DivisionByZeroTraps(t *testing.T) {
	_, trap := runExport(t, divModuleBytes(), "div", []api.Value{api.ValueI32(10), api.ValueI32(0)})
	require.NotNil(t, trap)
	require.Equal(t, api.TrapDivisionByZero, trap.Kind)
}

func TestExecutor_SignedDivisionIntMinByMinusOneTraps(t *testing.T) {
	_, trap := runExport(t, divModuleBytes(), "div", []api.Value{api.ValueI32(-2147483648), api.ValueI32(-1)})
	require.NotNil(t, trap)
	require.Equal(t, api.TrapIntegerOverflow, trap.Kind)
}

func TestExecutor_SignedDivisionOrdinaryCase(t *testing.T) {
	results, trap := runExport(t, divModuleBytes(), "div", []api.Value{api.ValueI32(7), api.ValueI32(2)})
	require.Nil(t, trap)
	require.Equal(t, int32(3), results[0].I32())
}

// brTableModuleBytes builds a function taking a selector index and
// returning 99 when the selector lands on the explicit (in-range) target
// and 7 when it falls back to the default target.
func brTableModuleBytes() []byte {
	b := header()
	b = append(b, section(0x01, []byte{0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f})...)
	b = append(b, section(0x03, []byte{0x01, 0x00})...)
	b = append(b, section(0x07, []byte{0x01, 0x06, 's', 'e', 'l', 'e', 'c', 't', 0x00, 0x00})...)
	body := []byte{
		0x00,                   // no locals
		0x02, 0x7f,             // outer block (result i32)
		0x02, 0x7f,             // inner block (result i32)
		0x41, 0x07,             // i32.const 7 (carried value)
		0x20, 0x00,             // local.get 0 (selector)
		0x0e, 0x01, 0x00, 0x01, // br_table {targets:[0], default:1}
		0x0b,       // inner end
		0x41, 0x63, // i32.const 99
		0x0f,       // return
		0x0b,       // outer end
		0x0b,       // function end
	}
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func TestExecutor_BrTableInRangeSelectsTarget(t *testing.T) {
	results, trap := runExport(t, brTableModuleBytes(), "select", []api.Value{api.ValueI32(0)})
	require.Nil(t, trap)
	require.Equal(t, int32(99), results[0].I32())
}

func TestExecutor_BrTableOutOfRangeSelectsDefault(t *testing.T) {
	results, trap := runExport(t, brTableModuleBytes(), "select", []api.Value{api.ValueI32(5)})
	require.Nil(t, trap)
	require.Equal(t, int32(7), results[0].I32())
}

// callIndirectModuleBytes builds a module with a one-slot table left
// uninitialized (no element segment) and a function performing
// call_indirect through it.
func callIndirectModuleBytes() []byte {
	b := header()
	typePayload := []byte{
		0x02,
		0x60, 0x00, 0x01, 0x7f, // type 0: () -> i32, the call_indirect callee type
		0x60, 0x00, 0x01, 0x7f, // type 1: () -> i32, the caller's own type
	}
	b = append(b, section(0x01, typePayload)...)
	b = append(b, section(0x03, []byte{0x01, 0x01})...) // one function of type 1
	b = append(b, section(0x04, []byte{0x01, 0x70, 0x00, 0x01})...) // table: funcref, min 1
	b = append(b, section(0x07, []byte{0x01, 0x04, 'c', 'a', 'l', 'l', 0x00, 0x00})...)
	body := []byte{0x00, 0x41, 0x00, 0x11, 0x00, 0x00, 0x0b} // i32.const 0; call_indirect (type 0, table 0); end
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func TestExecutor_CallIndirectUninitializedSlotTraps(t *testing.T) {
	_, trap := runExport(t, callIndirectModuleBytes(), "call", nil)
	require.NotNil(t, trap)
	require.Equal(t, api.TrapUninitializedElement, trap.Kind)
}

// memoryGrowModuleBytes builds a module with a memory capped at 1 page and
// an exported function that tries to grow it by 1 page (exceeding Max),
// returning memory.grow's result.
func memoryGrowModuleBytes() []byte {
	b := header()
	b = append(b, section(0x01, []byte{0x01, 0x60, 0x00, 0x01, 0x7f})...)
	b = append(b, section(0x03, []byte{0x01, 0x00})...)
	b = append(b, section(0x05, []byte{0x01, 0x01, 0x01, 0x01})...) // memory: flags=1 (has max), min=1, max=1
	b = append(b, section(0x07, []byte{0x01, 0x04, 'g', 'r', 'o', 'w', 0x00, 0x00})...)
	body := []byte{0x00, 0x41, 0x01, 0x40, 0x00, 0x0b} // i32.const 1; memory.grow 0; end
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func TestExecutor_MemoryGrowBeyondMaxReturnsMinusOneAndLeavesMemoryUnchanged(t *testing.T) {
	mod, err := binary.DecodeModule(bytes.NewReader(memoryGrowModuleBytes()))
	require.NoError(t, err)
	store := wasm.NewStore()
	mi, err := store.Instantiate("main", mod)
	require.NoError(t, err)
	before := len(mi.Mems[0].Data)

	// Run "grow" against this same instance so its memory can be checked
	// afterwards.
	exp, ok := mi.Export("grow")
	require.True(t, ok)
	th := NewThread(NewEngine(store))
	require.Nil(t, th.PushCall(context.Background(), wasm.FuncHandle{Module: mi.Index, Local: wasm.LocalIndex(exp.Index)}, nil))
	var results []api.Value
	for {
		finished, res, trap := th.Step(context.Background())
		require.Nil(t, trap)
		if finished {
			results = res
			break
		}
	}
	require.Equal(t, int32(-1), results[0].I32())

	// Memory size must be exactly what it started as.
	require.Equal(t, before, len(mi.Mems[0].Data))
}

// oobMemoryModuleBytes builds a module with a one-page memory and a
// function reading an i32 at an offset that overruns it.
func oobMemoryModuleBytes() []byte {
	b := header()
	b = append(b, section(0x01, []byte{0x01, 0x60, 0x00, 0x01, 0x7f})...)
	b = append(b, section(0x03, []byte{0x01, 0x00})...)
	b = append(b, section(0x05, []byte{0x01, 0x00, 0x01})...) // memory: flags=0 (no max), min=1
	b = append(b, section(0x07, []byte{0x01, 0x04, 'r', 'e', 'a', 'd', 0x00, 0x00})...)
	// i32.const 65534; i32.load align=2 offset=0; end -- reads 4 bytes starting
	// at 65534 in a 65536-byte memory, overrunning by 2 bytes.
	body := []byte{0x00, 0x41, 0xfe, 0xff, 0x03, 0x28, 0x02, 0x00, 0x0b}
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func TestExecutor_OutOfBoundsMemoryAccessTraps(t *testing.T) {
	_, trap := runExport(t, oobMemoryModuleBytes(), "read", nil)
	require.NotNil(t, trap)
	require.Equal(t, api.TrapOutOfBoundsMemoryAccess, trap.Kind)
}

func TestExecutor_UnreachableTraps(t *testing.T) {
	b := header()
	b = append(b, section(0x01, []byte{0x01, 0x60, 0x00, 0x00})...)
	b = append(b, section(0x03, []byte{0x01, 0x00})...)
	b = append(b, section(0x07, []byte{0x01, 0x04, 'b', 'o', 'o', 'm', 0x00, 0x00})...)
	body := []byte{0x00, 0x00, 0x0b}
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)

	_, trap := runExport(t, b, "boom", nil)
	require.NotNil(t, trap)
	require.Equal(t, api.TrapUnreachable, trap.Kind)
}
