package binary

import (
	"bytes"
	"fmt"

	"github.com/nokotan/wasminspect/internal/instruction"
)

// decodeAtomicInstruction handles the 0xFE-prefixed threads/atomics
// family. Execution treats these as their sequential equivalent on a
// single memory, but the decoder still lifts the full
// immediate shape so disassembly and DWARF correlation work uniformly.
func decodeAtomicInstruction(r *bytes.Reader) (instruction.Instruction, error) {
	sub, err := u32(r)
	if err != nil {
		return instruction.Instruction{}, err
	}
	switch sub {
	case 0, 1, 2:
		mem, err := decodeMemArg(r)
		if err != nil {
			return instruction.Instruction{}, err
		}
		kind := instruction.OpAtomicNotify
		if sub == 1 {
			kind = instruction.OpAtomicWait32
		} else if sub == 2 {
			kind = instruction.OpAtomicWait64
		}
		return instruction.Instruction{Op: kind, Mem: mem}, nil
	case 3:
		if _, err := r.ReadByte(); err != nil { // flags byte
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{Op: instruction.OpAtomicFence}, nil
	default:
		if kind, ok := atomicMemOpcodes[sub]; ok {
			mem, err := decodeMemArg(r)
			if err != nil {
				return instruction.Instruction{}, err
			}
			return instruction.Instruction{Op: kind, Mem: mem}, nil
		}
		return instruction.Instruction{}, fmt.Errorf("unknown 0xfe sub-opcode %d", sub)
	}
}

var atomicMemOpcodes = map[uint32]instruction.Opcode{
	4: instruction.OpI32AtomicLoad, 5: instruction.OpI64AtomicLoad,
	6: instruction.OpI32AtomicLoad8U, 7: instruction.OpI32AtomicLoad16U,
	8: instruction.OpI64AtomicLoad8U, 9: instruction.OpI64AtomicLoad16U, 10: instruction.OpI64AtomicLoad32U,
	11: instruction.OpI32AtomicStore, 12: instruction.OpI64AtomicStore,
	13: instruction.OpI32AtomicStore8, 14: instruction.OpI32AtomicStore16,
	15: instruction.OpI64AtomicStore8, 16: instruction.OpI64AtomicStore16, 17: instruction.OpI64AtomicStore32,
	18: instruction.OpI32AtomicRmwAdd, 19: instruction.OpI64AtomicRmwAdd,
	20: instruction.OpI32AtomicRmw8AddU, 21: instruction.OpI32AtomicRmw16AddU,
	22: instruction.OpI64AtomicRmw8AddU, 23: instruction.OpI64AtomicRmw16AddU, 24: instruction.OpI64AtomicRmw32AddU,
	25: instruction.OpI32AtomicRmwSub, 26: instruction.OpI64AtomicRmwSub,
	27: instruction.OpI32AtomicRmw8SubU, 28: instruction.OpI32AtomicRmw16SubU,
	29: instruction.OpI64AtomicRmw8SubU, 30: instruction.OpI64AtomicRmw16SubU, 31: instruction.OpI64AtomicRmw32SubU,
	32: instruction.OpI32AtomicRmwAnd, 33: instruction.OpI64AtomicRmwAnd,
	34: instruction.OpI32AtomicRmwOr, 35: instruction.OpI64AtomicRmwOr,
	36: instruction.OpI32AtomicRmwXor, 37: instruction.OpI64AtomicRmwXor,
	38: instruction.OpI32AtomicRmwXchg, 39: instruction.OpI64AtomicRmwXchg,
	40: instruction.OpI32AtomicRmwCmpxchg, 41: instruction.OpI64AtomicRmwCmpxchg,
}
