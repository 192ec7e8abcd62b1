package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/debugger"
)

func TestRunREPL_BreakStepContinueQuit(t *testing.T) {
	c := debugger.New(debugger.Config{})
	require.NoError(t, c.LoadModule("main", addModuleBytes()))
	require.NoError(t, c.SetBreakpoint(debugger.Breakpoint{FunctionName: "add"}))

	in := strings.NewReader(strings.Join([]string{
		"run add 3 4",
		"frame",
		"locals",
		"step",
		"continue",
		"quit",
	}, "\n") + "\n")
	out := &bytes.Buffer{}

	code := runREPL(out, in, c)
	require.Equal(t, 0, code)
	require.Contains(t, out.String(), "paused at breakpoint")
	require.Contains(t, out.String(), "#0 add")
	require.Contains(t, out.String(), "local[0] = i32:3")
	require.Contains(t, out.String(), "i32:7")
}

func TestRunREPL_TrapExitsNonZero(t *testing.T) {
	c := debugger.New(debugger.Config{})
	require.NoError(t, c.LoadModule("main", trapModuleBytes()))

	in := strings.NewReader("run boom\nquit\n")
	out := &bytes.Buffer{}

	code := runREPL(out, in, c)
	require.Equal(t, 1, code)
	require.Contains(t, out.String(), "trap:")
}

func TestRunREPL_MemoryReadWithoutMemoryReportsError(t *testing.T) {
	c := debugger.New(debugger.Config{})
	require.NoError(t, c.LoadModule("main", addModuleBytes()))
	require.NoError(t, c.SetBreakpoint(debugger.Breakpoint{FunctionName: "add"}))

	in := strings.NewReader(strings.Join([]string{
		"run add 1 2",
		"memory read 0 0",
		"quit",
	}, "\n") + "\n")
	out := &bytes.Buffer{}

	code := runREPL(out, in, c)
	require.Equal(t, 0, code)
	require.Contains(t, out.String(), "error: debugger: module has no memory")
}
