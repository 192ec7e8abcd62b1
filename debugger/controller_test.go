package debugger

import (
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

// addModuleBytes builds a module exporting `add(a, b) = a + b`.
func addModuleBytes() []byte {
	b := header()
	b = append(b, section(0x01, []byte{0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f})...)
	b = append(b, section(0x03, []byte{0x01, 0x00})...)
	b = append(b, section(0x07, []byte{0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00})...)
	body := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

// trapModuleBytes builds a module exporting `boom()` whose body is just
// `unreachable`.
func trapModuleBytes() []byte {
	b := header()
	b = append(b, section(0x01, []byte{0x01, 0x60, 0x00, 0x00})...)
	b = append(b, section(0x03, []byte{0x01, 0x00})...)
	b = append(b, section(0x07, []byte{0x01, 0x04, 'b', 'o', 'o', 'm', 0x00, 0x00})...)
	body := []byte{0x00, 0x00, 0x0b} // no locals; unreachable; end
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

// callModuleBytes builds a module with two functions: `callee(x) = x + 1`
// (func 0) and `caller(x) = callee(x)` (func 1, exported), so a StepOver on
// caller's call instruction can be exercised.
func callModuleBytes() []byte {
	b := header()
	typePayload := []byte{
		0x02,
		0x60, 0x01, 0x7f, 0x01, 0x7f, // (i32) -> i32
		0x60, 0x01, 0x7f, 0x01, 0x7f,
	}
	b = append(b, section(0x01, typePayload)...)
	b = append(b, section(0x03, []byte{0x02, 0x00, 0x01})...)
	b = append(b, section(0x07, []byte{0x01, 0x06, 'c', 'a', 'l', 'l', 'e', 'r', 0x00, 0x01})...)

	calleeBody := []byte{0x00, 0x20, 0x00, 0x41, 0x01, 0x6a, 0x0b} // local.get 0; i32.const 1; i32.add; end
	callerBody := []byte{0x00, 0x20, 0x00, 0x10, 0x00, 0x0b}       // local.get 0; call 0; end
	code := []byte{0x02}
	code = append(code, byte(len(calleeBody)))
	code = append(code, calleeBody...)
	code = append(code, byte(len(callerBody)))
	code = append(code, callerBody...)
	b = append(b, section(0x0a, code)...)
	return b
}

// hostImportModuleBytes builds a module importing `env.log(i32)` and
// exporting `drive()` that calls it twice with constants 7 and 11.
func hostImportModuleBytes() []byte {
	b := header()
	typePayload := []byte{
		0x02,
		0x60, 0x01, 0x7f, 0x00, // (i32) -> ()
		0x60, 0x00, 0x00, // () -> ()
	}
	b = append(b, section(0x01, typePayload)...)

	importPayload := []byte{0x01, 0x03, 'e', 'n', 'v', 0x03, 'l', 'o', 'g', 0x00, 0x00}
	b = append(b, section(0x02, importPayload)...)

	b = append(b, section(0x03, []byte{0x01, 0x01})...)
	b = append(b, section(0x07, []byte{0x01, 0x05, 'd', 'r', 'i', 'v', 'e', 0x00, 0x01})...)

	body := []byte{0x00, 0x41, 0x07, 0x10, 0x00, 0x41, 0x0b, 0x10, 0x00, 0x0b}
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func TestController_RunAddFunction(t *testing.T) {
	c := New(Config{})
	require.NoError(t, c.LoadModule("main", addModuleBytes()))

	result, err := c.Run(context.Background(), "add", []api.Value{api.ValueI32(3), api.ValueI32(4)})
	require.NoError(t, err)
	require.Equal(t, RunFinish, result.Kind)
	require.Len(t, result.Values, 1)
	require.Equal(t, int32(7), result.Values[0].I32())
	require.Equal(t, StateIdle, c.State())
}

func TestController_RunTrapLeavesFrameForInspection(t *testing.T) {
	c := New(Config{})
	require.NoError(t, c.LoadModule("main", trapModuleBytes()))

	_, err := c.Run(context.Background(), "boom", nil)
	require.Error(t, err)
	require.Equal(t, StatePaused, c.State())
	require.Equal(t, PauseTrapped, c.PauseReason())
	require.NotNil(t, c.LastTrap())
	require.Equal(t, api.TrapUnreachable, c.LastTrap().Kind)
	require.Len(t, c.Frame(), 1)
}

func TestController_BreakpointThenStepInstIn(t *testing.T) {
	c := New(Config{})
	require.NoError(t, c.LoadModule("main", addModuleBytes()))
	require.NoError(t, c.SetBreakpoint(Breakpoint{FunctionName: "add"}))

	result, err := c.Run(context.Background(), "add", []api.Value{api.ValueI32(1), api.ValueI32(2)})
	require.NoError(t, err)
	require.Equal(t, RunBreakpoint, result.Kind)
	require.Equal(t, StatePaused, c.State())
	require.Equal(t, PauseHitBreakpoint, c.PauseReason())

	frame, ok := c.CurrentFrame()
	require.True(t, ok)
	require.Equal(t, 2, frame.ArgumentCount)

	_, err = c.Step(context.Background(), StepInstIn)
	require.NoError(t, err)
	require.Equal(t, PauseStepped, c.PauseReason())

	finished, err := c.Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, RunFinish, finished.Kind)
	require.Equal(t, int32(3), finished.Values[0].I32())
}

func TestController_StepOverSkipsCalleeFrame(t *testing.T) {
	c := New(Config{})
	require.NoError(t, c.LoadModule("main", callModuleBytes()))
	require.NoError(t, c.SetBreakpoint(Breakpoint{FunctionName: "caller"}))

	result, err := c.Run(context.Background(), "caller", []api.Value{api.ValueI32(10)})
	require.NoError(t, err)
	require.Equal(t, RunBreakpoint, result.Kind)

	// local.get 0
	_, err = c.Step(context.Background(), StepInstIn)
	require.NoError(t, err)
	require.Len(t, c.Frame(), 1)

	// call 0: StepOver must not pause inside callee.
	_, err = c.Step(context.Background(), StepInstOver)
	require.NoError(t, err)
	require.Equal(t, PauseStepped, c.PauseReason())
	require.Len(t, c.Frame(), 1)

	finished, err := c.Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, RunFinish, finished.Kind)
	require.Equal(t, int32(11), finished.Values[0].I32())
}

func TestController_HostImportRecordsCalls(t *testing.T) {
	c := New(Config{})

	var logged []int32
	funcType := api.FunctionType{Params: []api.ValueType{api.ValueTypeI32}}
	require.NoError(t, c.RegisterHostModule("env", map[string]wasm.HostItem{
		"log": {
			Kind:     api.ExternKindFunc,
			FuncType: funcType,
			Func: func(ctx context.Context, args []api.Value, results []api.Value, hc wasm.HostContext, store *wasm.Store) error {
				logged = append(logged, args[0].I32())
				return nil
			},
		},
	}))
	require.NoError(t, c.LoadModule("main", hostImportModuleBytes()))

	result, err := c.Run(context.Background(), "drive", nil)
	require.NoError(t, err)
	require.Equal(t, RunFinish, result.Kind)
	require.Equal(t, []int32{7, 11}, logged)
}

func TestController_FunctionNotFound(t *testing.T) {
	c := New(Config{})
	require.NoError(t, c.LoadModule("main", addModuleBytes()))

	_, err := c.Run(context.Background(), "missing", nil)
	require.Error(t, err)
	var notFound *FunctionNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestController_CallArgumentLengthMismatch(t *testing.T) {
	c := New(Config{})
	require.NoError(t, c.LoadModule("main", addModuleBytes()))

	_, err := c.Run(context.Background(), "add", []api.Value{api.ValueI32(1)})
	require.Error(t, err)
	var mismatch *CallArgumentLengthMismatchError
	require.ErrorAs(t, err, &mismatch)
}
