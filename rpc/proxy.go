package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/binary"
	"github.com/nokotan/wasminspect/debugger"
)

// Proxy dispatches one client connection's requests against a
// debugger.Controller, synthesizing remote host modules at Init time and
// bridging CallHost/CallResult round trips through remoteCallFn.
type Proxy struct {
	controller *debugger.Controller
	transport  *Transport

	callResultCh chan CallResultRequest
	requestCh    chan inboundRequest

	// OnBreakpoint is invoked synchronously whenever an export invocation
	// pauses at a breakpoint, before the proxy sends its CallResult reply,
	// implementing spec §4.G's "hands control to an interactive command
	// loop ... until the operator continues". It must leave the controller
	// Idle (by calling Continue/Step as many times as needed) before
	// returning. If nil, the proxy continues immediately on the caller's
	// behalf — the non-interactive default a headless client gets.
	OnBreakpoint func(ctx context.Context, c *debugger.Controller)
}

// inboundRequest is one frame routed to the executor goroutine: every
// command except CallResult, which the transport pump instead delivers
// straight onto callResultCh so a blocked remoteCallFn sees it without
// waiting for the executor to become free (it never is, while blocked).
type inboundRequest struct {
	binary bool
	data   []byte
}

// NewProxy creates a Proxy serving one connection against controller.
func NewProxy(controller *debugger.Controller, transport *Transport) *Proxy {
	return &Proxy{
		controller:   controller,
		transport:    transport,
		callResultCh: make(chan CallResultRequest),
		requestCh:    make(chan inboundRequest),
	}
}

// Serve runs the transport pump on the calling goroutine and the executor
// on another, per spec §5 ("between that context and the executor thread
// the proxy uses a pair of unidirectional channels"). The pump forwards
// CallResult replies directly to the executor's blocked remoteCallFn (it
// cannot otherwise read more commands while a host call is outstanding)
// and queues every other command for the executor to process in arrival
// order — the "one outstanding at a time" ordering spec §5 requires.
func (p *Proxy) Serve(ctx context.Context) error {
	execErr := make(chan error, 1)
	go func() { execErr <- p.runExecutor(ctx) }()

	for {
		mt, data, err := p.transport.ReadMessage()
		if err != nil {
			close(p.requestCh)
			close(p.callResultCh)
			<-execErr
			return err
		}
		if mt == websocket.TextMessage && isCallResult(data) {
			var req CallResultRequest
			if env, decErr := decodeEnvelope(data); decErr == nil {
				_ = json.Unmarshal(env.Raw, &req)
			}
			p.callResultCh <- req
			continue
		}
		p.requestCh <- inboundRequest{binary: mt == websocket.BinaryMessage, data: data}
	}
}

// runExecutor processes every non-CallResult command one at a time, in the
// order the transport pump queued them.
func (p *Proxy) runExecutor(ctx context.Context) error {
	for req := range p.requestCh {
		var err error
		if req.binary {
			err = p.handleBinary(ctx, req.data)
		} else {
			err = p.handleText(ctx, req.data)
		}
		if err != nil {
			p.sendError(err)
		}
	}
	return nil
}

func isCallResult(data []byte) bool {
	env, err := decodeEnvelope(data)
	return err == nil && env.Type == "CallResult"
}

func decodeEnvelope(data []byte) (textEnvelope, error) {
	var env textEnvelope
	err := json.Unmarshal(data, &env)
	return env, err
}

func (p *Proxy) sendError(err error) {
	_ = p.transport.SendText("Error", ErrorResponse{Message: err.Error()})
}

func (p *Proxy) handleBinary(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("rpc: empty binary envelope")
	}
	switch kind(data[0]) {
	case kindInit:
		return p.handleInit(ctx, data[1:])
	default:
		return fmt.Errorf("rpc: unknown binary envelope kind %d", data[0])
	}
}

func (p *Proxy) handleText(ctx context.Context, data []byte) error {
	env, err := decodeEnvelope(data)
	if err != nil {
		return fmt.Errorf("rpc: decode envelope: %w", err)
	}
	switch env.Type {
	case "Version":
		return p.transport.SendText("Version", VersionResponse{Value: Version})
	case "CallExported":
		var req CallExportedRequest
		if err := json.Unmarshal(env.Raw, &req); err != nil {
			return err
		}
		return p.handleCallExported(ctx, req)
	case "LoadMemory":
		var req LoadMemoryRequest
		if err := json.Unmarshal(env.Raw, &req); err != nil {
			return err
		}
		return p.handleLoadMemory(req)
	case "StoreMemory":
		var req StoreMemoryRequest
		if err := json.Unmarshal(env.Raw, &req); err != nil {
			return err
		}
		return p.handleStoreMemory(req)
	default:
		return fmt.Errorf("rpc: unknown command %q", env.Type)
	}
}

// awaitCallResult blocks until the client answers an outstanding CallHost,
// ctx is cancelled, or the transport closes (the channel is closed by
// Serve's read-error path), surfacing the latter as a HostFunctionError per
// spec §4.G.
func (p *Proxy) awaitCallResult(ctx context.Context) (CallResultRequest, error) {
	select {
	case req, ok := <-p.callResultCh:
		if !ok {
			return CallResultRequest{}, fmt.Errorf("rpc: transport closed awaiting host call reply")
		}
		return req, nil
	case <-ctx.Done():
		return CallResultRequest{}, ctx.Err()
	}
}

func (p *Proxy) handleInit(ctx context.Context, raw []byte) error {
	mod, err := binary.DecodeModule(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("rpc: decode module: %w", err)
	}

	p.controller.ResetStore()
	for name, items := range p.remoteHostModules(mod) {
		if err := p.controller.RegisterHostModule(name, items); err != nil {
			return fmt.Errorf("rpc: register remote host module %q: %w", name, err)
		}
	}
	if err := p.controller.LoadModule("main", raw); err != nil {
		return fmt.Errorf("rpc: load module: %w", err)
	}

	exports := make([]ExportDescriptor, 0, len(p.controller.Exports()))
	for _, e := range p.controller.Exports() {
		exports = append(exports, ExportDescriptor{Kind: e.Kind.String(), Name: e.Name})
	}
	return p.transport.SendText("Init", InitResponse{
		Exports:      exports,
		MemoryLength: p.controller.MemoryLength(),
	})
}

// handleCallExported runs the named export to completion, interleaving the
// breakpoint handler as many times as the run pauses before it finally
// finishes — spec §4.G's "only then does the proxy send its CallResult
// reply to the originating client request".
func (p *Proxy) handleCallExported(ctx context.Context, req CallExportedRequest) error {
	h, err := p.controller.LookupFunc(req.Name)
	if err != nil {
		return err
	}
	ft := p.controller.FuncType(h)
	if len(req.Args) != len(ft.Params) {
		return fmt.Errorf("rpc: CallExported %s: want %d args, got %d", req.Name, len(ft.Params), len(req.Args))
	}
	args := make([]api.Value, len(req.Args))
	for i, a := range req.Args {
		args[i] = wireArgToValue(a, ft.Params[i])
	}

	result, runErr := p.controller.Run(ctx, req.Name, args)
	for runErr == nil && result.Kind == debugger.RunBreakpoint {
		if p.OnBreakpoint != nil {
			p.OnBreakpoint(ctx, p.controller)
		}
		result, runErr = p.controller.Continue(ctx)
	}
	if runErr != nil {
		return fmt.Errorf("rpc: trap: %w", runErr)
	}
	return p.transport.SendText("CallResult", CallResultResponse{Values: EncodeValues(result.Values)})
}

func (p *Proxy) handleLoadMemory(req LoadMemoryRequest) error {
	data, err := p.controller.ReadMemory(req.Offset, req.Length)
	if err != nil {
		return err
	}
	return p.transport.SendText("LoadMemoryResult", LoadMemoryResultResponse{Bytes: data})
}

func (p *Proxy) handleStoreMemory(req StoreMemoryRequest) error {
	if err := p.controller.WriteMemory(req.Offset, req.Bytes); err != nil {
		return err
	}
	return p.transport.SendText("StoreMemoryResult", StoreMemoryResultResponse{})
}

// wireArgToValue coerces a JSON number into the target parameter type by
// bit-pattern cast, per spec §6 ("args are JSON numbers coerced to the
// target parameter type ... by bit-pattern cast through the native
// floating form").
func wireArgToValue(n float64, t api.ValueType) api.Value {
	switch t {
	case api.ValueTypeI32:
		return api.ValueI32(int32(n))
	case api.ValueTypeI64:
		return api.ValueI64(int64(n))
	case api.ValueTypeF32:
		return api.ValueF32(float32(n))
	case api.ValueTypeF64:
		return api.ValueF64(n)
	default:
		return api.Default(t)
	}
}
