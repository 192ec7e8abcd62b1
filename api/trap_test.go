package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrapKindStrings(t *testing.T) {
	require.Equal(t, "unreachable", TrapUnreachable.String())
	require.Equal(t, "integer divide by zero", TrapDivisionByZero.String())
	require.Equal(t, "call stack exhausted", TrapStackOverflow.String())
	require.Equal(t, "unknown trap", TrapKind(999).String())
}

func TestNewTrapError(t *testing.T) {
	trap := NewTrap(TrapOutOfBoundsMemoryAccess)
	require.Equal(t, TrapOutOfBoundsMemoryAccess, trap.Kind)
	require.Equal(t, "out of bounds memory access", trap.Error())
	require.NoError(t, trap.Unwrap())
}

func TestHostFunctionTrapWrapsAndUnwraps(t *testing.T) {
	inner := errors.New("write failed")
	trap := NewHostFunctionTrap(inner)
	require.Equal(t, TrapHostFunctionError, trap.Kind)
	require.ErrorIs(t, trap, inner)
	require.Contains(t, trap.Error(), "write failed")
}
