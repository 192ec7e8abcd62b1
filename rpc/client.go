package rpc

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
)

// Dial connects to a wasminspect RPC endpoint served by Handler, returning
// a Transport a test or embedding client can drive directly. Grounded in
// the dial-with-retry shape third-party callers in the corpus use for a
// gorilla/websocket client connection, simplified to a single attempt
// since wasminspect's server is expected to already be up by the time a
// client dials it.
func Dial(ctx context.Context, rawURL string) (*Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("rpc: parse url: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", rawURL, err)
	}
	return NewTransport(conn), nil
}
