package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/nokotan/wasminspect/debugger"
	"github.com/nokotan/wasminspect/internal/features"
	"github.com/nokotan/wasminspect/rpc"
)

func newServeCmd(featureSet func() *features.Set, traceListener func() *loggingListener) *cobra.Command {
	var addr string
	var watchMemory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the RPC proxy protocol over websocket, one session per connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := rpc.Handler(func() *debugger.Controller {
				c := debugger.New(debugger.Config{Features: featureSet(), WatchMemory: watchMemory})
				if l := traceListener(); l != nil {
					c.SetListener(l)
				}
				return c
			})

			logger.WithField("addr", addr).Info("wasminspect rpc proxy listening")
			server := &http.Server{Addr: addr, Handler: logSessions(handler)}
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("serve")
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4000", "address to listen on")
	cmd.Flags().BoolVar(&watchMemory, "watch-memory", false, "diff memory reads against the previous read")
	return cmd
}

// logSessions wraps handler with session open/close diagnostics, ambient
// CLI/server logging the engine itself never performs.
func logSessions(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WithField("remote", r.RemoteAddr).Info("session open")
		handler.ServeHTTP(w, r)
		logger.WithField("remote", r.RemoteAddr).Info("session closed")
	})
}
