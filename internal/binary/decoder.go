// Package binary is the streaming WebAssembly module decoder: section by
// section, field by field, grounded in wazero's internal/wasm/binary
// decoder shape (a *bytes.Reader walked sequentially, one decode func per
// section) but producing this module's own wasm.Module skeleton and
// instruction.Instruction vectors instead of wazero's IR.
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/leb128"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// Magic and Version are the fixed preamble every module begins with.
var Magic = [4]byte{0x00, 0x61, 0x73, 0x6d}

const Version = uint32(1)

// DecodeError carries the byte offset and section where decoding failed,
//.B: "any decode error fails the whole lift with the byte
// offset and a structured reason."
type DecodeError struct {
	Offset int64
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("binary: decode error at offset %d: %s", e.Offset, e.Reason)
}

type sectionID byte

const (
	sectionCustom sectionID = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData
	sectionDataCount
)

// DecodeModule parses a complete module binary into its skeleton form.
func DecodeModule(r io.Reader) (*wasm.Module, error) {
	br := newByteCounter(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, &DecodeError{Offset: br.n, Reason: "failed to read magic: " + err.Error()}
	}
	if magic != Magic {
		return nil, &DecodeError{Offset: 0, Reason: "not a WebAssembly module (bad magic)"}
	}
	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, &DecodeError{Offset: br.n, Reason: "failed to read version: " + err.Error()}
	}
	if version != Version {
		return nil, &DecodeError{Offset: br.n, Reason: fmt.Sprintf("unsupported version %d", version)}
	}

	d := &decoder{mod: &wasm.Module{DebugSections: map[string][]byte{}}}

	var funcTypeIndices []uint32
	var codeBodies [][]byte
	var localDecls [][]api.ValueType

	for {
		idByte, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Offset: br.n, Reason: err.Error()}
		}
		id := sectionID(idByte)
		size, _, err := leb128.DecodeUint32(br)
		if err != nil {
			return nil, &DecodeError{Offset: br.n, Reason: "bad section size: " + err.Error()}
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, &DecodeError{Offset: br.n, Reason: "truncated section: " + err.Error()}
		}
		pr := bytes.NewReader(payload)
		sectionStart := br.n - int64(size)

		switch id {
		case sectionCustom:
			name, err := decodeName(pr)
			if err != nil {
				return nil, &DecodeError{Offset: sectionStart, Reason: "custom section name: " + err.Error()}
			}
			rest := make([]byte, pr.Len())
			_, _ = pr.Read(rest)
			if isDebugSection(name) {
				d.mod.DebugSections[name] = rest
			}
		case sectionType:
			if err := d.decodeTypeSection(pr); err != nil {
				return nil, wrapAt(sectionStart, err)
			}
		case sectionImport:
			if err := d.decodeImportSection(pr); err != nil {
				return nil, wrapAt(sectionStart, err)
			}
		case sectionFunction:
			idxs, err := decodeIndexVector(pr)
			if err != nil {
				return nil, wrapAt(sectionStart, err)
			}
			funcTypeIndices = idxs
		case sectionTable:
			if err := d.decodeTableSection(pr); err != nil {
				return nil, wrapAt(sectionStart, err)
			}
		case sectionMemory:
			if err := d.decodeMemorySection(pr); err != nil {
				return nil, wrapAt(sectionStart, err)
			}
		case sectionGlobal:
			if err := d.decodeGlobalSection(pr); err != nil {
				return nil, wrapAt(sectionStart, err)
			}
		case sectionExport:
			if err := d.decodeExportSection(pr); err != nil {
				return nil, wrapAt(sectionStart, err)
			}
		case sectionStart:
			idx, _, err := leb128.DecodeUint32(pr)
			if err != nil {
				return nil, wrapAt(sectionStart, err)
			}
			d.mod.Start = &idx
		case sectionElement:
			if err := d.decodeElementSection(pr); err != nil {
				return nil, wrapAt(sectionStart, err)
			}
		case sectionCode:
			bodies, locals, err := decodeCodeSection(pr)
			if err != nil {
				return nil, wrapAt(sectionStart, err)
			}
			codeBodies = bodies
			localDecls = locals
		case sectionData:
			if err := d.decodeDataSection(pr); err != nil {
				return nil, wrapAt(sectionStart, err)
			}
		case sectionDataCount:
			// Informational only; the decoder derives the count from the data
			// section itself.
		default:
			return nil, &DecodeError{Offset: sectionStart, Reason: fmt.Sprintf("unknown section id %d", id)}
		}
	}

	if len(funcTypeIndices) != len(codeBodies) {
		return nil, &DecodeError{Offset: br.n, Reason: "function and code section count mismatch"}
	}
	for i, body := range codeBodies {
		insts, err := decodeInstructions(body)
		if err != nil {
			return nil, err
		}
		d.mod.Functions = append(d.mod.Functions, wasm.FunctionBody{
			TypeIndex:    funcTypeIndices[i],
			Locals:       localDecls[i],
			Instructions: insts,
		})
	}

	return d.mod, nil
}

type decoder struct {
	mod *wasm.Module
}

func wrapAt(offset int64, err error) error {
	if _, ok := err.(*DecodeError); ok {
		return err
	}
	return &DecodeError{Offset: offset, Reason: err.Error()}
}

func isDebugSection(name string) bool {
	return len(name) > 6 && name[:6] == ".debug"
}

func decodeName(r *bytes.Reader) (string, error) {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func decodeIndexVector(r *bytes.Reader) ([]uint32, error) {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		v, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// byteCounter wraps an io.Reader to track the absolute byte offset
// consumed so far, for DecodeError reporting.
type byteCounter struct {
	r io.Reader
	n int64
}

func newByteCounter(r io.Reader) *byteCounter { return &byteCounter{r: r} }

func (b *byteCounter) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.n += int64(n)
	return n, err
}

func (b *byteCounter) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
