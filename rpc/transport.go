package rpc

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Transport owns one client connection. Reads happen on the caller's
// goroutine (Proxy.Serve's pump); writes are serialized behind mu, the
// "RPC sink is the sole object held behind a mutex" rule of spec §5 — the
// mutex is only ever held for the duration of a single outbound send.
type Transport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewTransport wraps an already-upgraded websocket connection.
func NewTransport(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn}
}

// SendText marshals v as a tagged JSON envelope and writes it as a text
// frame.
func (t *Transport) SendText(tag string, v interface{}) error {
	body, err := marshalText(tag, v)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, body)
}

// SendBinary writes a binary envelope: k's byte followed by payload.
func (t *Transport) SendBinary(k kind, payload []byte) error {
	frame := make([]byte, 1+len(payload))
	frame[0] = byte(k)
	copy(frame[1:], payload)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// ReadMessage blocks for the next inbound frame.
func (t *Transport) ReadMessage() (messageType int, data []byte, err error) {
	return t.conn.ReadMessage()
}

// Close closes the underlying connection.
func (t *Transport) Close() error { return t.conn.Close() }
