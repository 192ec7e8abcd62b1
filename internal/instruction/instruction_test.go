package instruction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameMnemonics(t *testing.T) {
	for _, c := range []struct {
		in   Instruction
		want string
	}{
		{Instruction{Op: OpI32Add}, "i32.add"},
		{Instruction{Op: OpLocalGet}, "local.get"},
		{Instruction{Op: OpBrTable}, "br_table"},
		{Instruction{Op: OpSIMDAdd, Shape: ShapeI32x4}, "i32x4.add"},
		{Instruction{Op: OpSIMDEq, Shape: ShapeF64x2}, "f64x2.eq"},
	} {
		require.Equal(t, c.want, c.in.Name())
	}
}

func TestNameUnknown(t *testing.T) {
	require.Equal(t, "unknown", Instruction{Op: OpInvalid}.Name())
}

func TestShapeString(t *testing.T) {
	require.Equal(t, "i8x16", ShapeI8x16.String())
	require.Equal(t, "f64x2", ShapeF64x2.String())
}

// Every non-generic, non-sentinel opcode should render a mnemonic that
// doesn't fall back to "unknown", keeping opcode.go and names.go in sync.
func TestEveryOpcodeHasAName(t *testing.T) {
	for op := OpUnreachable; op < opcodeCount; op++ {
		if _, ok := simdShapeOpNames[op]; ok {
			continue
		}
		_, ok := opcodeNames[op]
		require.Truef(t, ok, "opcode %d has no name entry", op)
	}
}
