package rpc

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/debugger"
	"github.com/nokotan/wasminspect/internal/binary"
)

func section(id byte, payload []byte) []byte {
	return append([]byte{id, byte(len(payload))}, payload...)
}

func header() []byte {
	b := append([]byte{}, binary.Magic[:]...)
	return append(b, 0x01, 0x00, 0x00, 0x00)
}

// hostImportModuleBytes builds a module importing `env.log(i32)` and
// exporting `drive()` that calls it twice, with constants 7 and 11 — the
// module spec §8 scenario #5 sends over Init.
func hostImportModuleBytes() []byte {
	b := header()
	typePayload := []byte{
		0x02,
		0x60, 0x01, 0x7f, 0x00,
		0x60, 0x00, 0x00,
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

func readText(t *testing.T, tr *Transport) (string, json.RawMessage) {
	t.Helper()
	mt, data, err := tr.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)
	var head struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(data, &head))
	return head.Type, data
}

func TestProxy_InitCallExportedHostRoundTrip(t *testing.T) {
	srv := httptest.NewServer(Handler(func() *debugger.Controller {
		return debugger.New(debugger.Config{})
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := Dial(ctx, wsURL)
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.SendBinary(kindInit, hostImportModuleBytes()))

	tag, data := readText(t, tr)
	require.Equal(t, "Init", tag)
	var initResp InitResponse
	require.NoError(t, json.Unmarshal(data, &initResp))
	require.Len(t, initResp.Exports, 1)
	require.Equal(t, "drive", initResp.Exports[0].Name)

	require.NoError(t, tr.SendText("CallExported", CallExportedRequest{Name: "drive", Args: nil}))

	tag, data = readText(t, tr)
	require.Equal(t, "CallHost", tag)
	var callHost CallHostResponse
	require.NoError(t, json.Unmarshal(data, &callHost))
	require.Equal(t, "env", callHost.Module)
	require.Equal(t, "log", callHost.Field)
	require.Equal(t, []WasmValue{{Type: "i32", Value: 7}}, callHost.Args)

	require.NoError(t, tr.SendText("CallResult", CallResultRequest{Values: nil}))

	tag, data = readText(t, tr)
	require.Equal(t, "CallHost", tag)
	require.NoError(t, json.Unmarshal(data, &callHost))
	require.Equal(t, []WasmValue{{Type: "i32", Value: 11}}, callHost.Args)

	require.NoError(t, tr.SendText("CallResult", CallResultRequest{Values: nil}))

	tag, data = readText(t, tr)
	require.Equal(t, "CallResult", tag)
	var result CallResultResponse
	require.NoError(t, json.Unmarshal(data, &result))
	require.Empty(t, result.Values)
}

func TestProxy_VersionCommand(t *testing.T) {
	srv := httptest.NewServer(Handler(func() *debugger.Controller {
		return debugger.New(debugger.Config{})
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := Dial(ctx, wsURL)
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.SendText("Version", VersionRequest{}))
	tag, data := readText(t, tr)
	require.Equal(t, "Version", tag)
	var resp VersionResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	require.Equal(t, Version, resp.Value)
}
