package rpc

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nokotan/wasminspect/debugger"
)

// upgrader accepts any origin: wasminspect's RPC endpoint is meant to be
// reached by a local or CI-driven client, not a browser page, so the usual
// same-origin CSRF concern for websocket upgrades doesn't apply here.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler returns an http.Handler that upgrades every request to a
// websocket connection and serves it as an independent debugger session
// against newController, run in the request's own goroutine until the
// client disconnects.
func Handler(newController func() *debugger.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		p := NewProxy(newController(), NewTransport(conn))
		_ = p.Serve(r.Context())
	})
}
