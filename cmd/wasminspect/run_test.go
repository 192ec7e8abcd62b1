package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/internal/binary"
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
	body := []byte{0x00, 0x00, 0x0b}
	b = append(b, section(0x0a, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func writeModule(t *testing.T, bytes_ []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "module.wasm")
	require.NoError(t, os.WriteFile(path, bytes_, 0o644))
	return path
}

func TestRunCmd_PrintsResult(t *testing.T) {
	path := writeModule(t, addModuleBytes())

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"run", path, "add", "3", "4"})
	require.NoError(t, root.Execute())
	require.Equal(t, "i32:7\n", out.String())
	require.Equal(t, 0, exitCode)
}

func TestRunCmd_TrapSetsExitCode(t *testing.T) {
	path := writeModule(t, trapModuleBytes())

	exitCode = 0
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"run", path, "boom"})
	require.NoError(t, root.Execute())
	require.Equal(t, 1, exitCode)
}

func TestRunCmd_MissingFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"run", "/nonexistent/path.wasm"})
	require.Error(t, root.Execute())
}
