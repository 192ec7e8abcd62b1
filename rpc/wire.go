// Package rpc is the out-of-process bridge: a gorilla/websocket transport
// carrying the text/binary envelope protocol of spec §4.G/§6 over a
// debugger.Controller, including the remote host-call bridge that lets a
// client supply import implementations instead of the process itself.
// Grounded in the original Rust implementation's
// crates/debugger-server/src/debugger_proxy.rs (kept under
// _examples/original_source), reshaped around debugger.Controller instead
// of wasminspect-vm's own WasmInstance.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/nokotan/wasminspect/api"
)

// Version is the protocol version this package implements, returned by the
// Version command.
const Version = "0.1.0"

// kind is the 1-byte prefix of a binary envelope.
type kind byte

const (
	kindInit kind = iota
)

// WasmValue is the wire encoding of api.Value: a type tag plus its raw
// bit pattern as a JSON number, per spec §6 ("f32/f64 are the raw 32/64-bit
// encodings represented as JSON numbers").
type WasmValue struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// EncodeValue converts an engine value to its wire form.
func EncodeValue(v api.Value) WasmValue {
	switch v.Type {
	case api.ValueTypeI32:
		return WasmValue{Type: "i32", Value: float64(v.I32())}
	case api.ValueTypeI64:
		return WasmValue{Type: "i64", Value: float64(v.I64())}
	case api.ValueTypeF32:
		return WasmValue{Type: "f32", Value: float64(v.F32Bits())}
	case api.ValueTypeF64:
		return WasmValue{Type: "f64", Value: float64(v.F64Bits())}
	default:
		lo, _ := v.Bits()
		return WasmValue{Type: "i64", Value: float64(int64(lo))}
	}
}

// DecodeValue converts a wire value back to an engine value, reversing
// EncodeValue's bit-pattern cast.
func DecodeValue(w WasmValue) (api.Value, error) {
	switch w.Type {
	case "i32":
		return api.ValueI32(int32(uint32(w.Value))), nil
	case "i64":
		return api.ValueI64(int64(w.Value)), nil
	case "f32":
		return api.ValueF32FromBits(uint32(w.Value)), nil
	case "f64":
		return api.ValueF64FromBits(uint64(w.Value)), nil
	default:
		return api.Value{}, fmt.Errorf("rpc: unknown WasmValue type %q", w.Type)
	}
}

// EncodeValues is a convenience wrapper around EncodeValue for a slice.
func EncodeValues(vs []api.Value) []WasmValue {
	out := make([]WasmValue, len(vs))
	for i, v := range vs {
		out[i] = EncodeValue(v)
	}
	return out
}

// DecodeValues is a convenience wrapper around DecodeValue for a slice.
func DecodeValues(ws []WasmValue) ([]api.Value, error) {
	out := make([]api.Value, len(ws))
	for i, w := range ws {
		v, err := DecodeValue(w)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ExportDescriptor names one exported item, returned in an Init response.
type ExportDescriptor struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// textEnvelope is the `{"type": "<Tag>", ...}` shape every text request and
// response shares; Raw carries the remaining fields for a second decode
// pass once Type is known.
type textEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

func (e *textEnvelope) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	e.Type = head.Type
	e.Raw = data
	return nil
}

// --- Requests (client -> server) ---

type VersionRequest struct{}

type CallExportedRequest struct {
	Name string    `json:"name"`
	Args []float64 `json:"args"`
}

type LoadMemoryRequest struct {
	Offset uint32 `json:"offset"`
	Length uint32 `json:"length"`
}

type StoreMemoryRequest struct {
	Offset uint32 `json:"offset"`
	Bytes  []byte `json:"bytes"`
}

// CallResultRequest is the client's answer to an outstanding CallHost.
type CallResultRequest struct {
	Values []WasmValue `json:"values"`
}

// --- Responses (server -> client) ---

type VersionResponse struct {
	Value string `json:"value"`
}

type InitResponse struct {
	Exports      []ExportDescriptor `json:"exports"`
	MemoryLength int                `json:"memoryLength"`
}

type CallResultResponse struct {
	Values []WasmValue `json:"values"`
}

// CallHostResponse asks the client to execute an imported function and
// reply with a CallResultRequest.
type CallHostResponse struct {
	Module string      `json:"module"`
	Field  string      `json:"field"`
	Args   []WasmValue `json:"args"`
}

type LoadMemoryResultResponse struct {
	Bytes []byte `json:"bytes"`
}

type StoreMemoryResultResponse struct{}

type ErrorResponse struct {
	Message string `json:"message"`
}

// marshalText wraps v with its tag field and marshals to JSON text.
func marshalText(tag string, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["type"] = json.RawMessage(`"` + tag + `"`)
	return json.Marshal(m)
}
