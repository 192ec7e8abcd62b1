package wasmdebug_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/internal/wasm"
	"github.com/nokotan/wasminspect/internal/wasmdebug"
)

func TestLoad_NoDebugSections(t *testing.T) {
	info := wasmdebug.Load(&wasm.Module{})
	require.False(t, info.Present())
	require.Nil(t, info.PCToLine(0))
	require.Nil(t, info.Subroutines(0))
	require.Nil(t, info.Locals(0))
}

func TestLoad_NilModule(t *testing.T) {
	info := wasmdebug.Load(nil)
	require.False(t, info.Present())
}

func TestLoad_GarbageDebugInfoDoesNotPanic(t *testing.T) {
	mod := &wasm.Module{DebugSections: map[string][]byte{
		".debug_info":   {0x01, 0x02, 0x03},
		".debug_abbrev": {0xff},
	}}
	require.NotPanics(t, func() {
		info := wasmdebug.Load(mod)
		_ = info.Present()
	})
}
