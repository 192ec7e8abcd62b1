package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// loggingListener is the --trace flag's interpreter.Listener: it logs a
// Debug-level line around every call the executor makes. This package
// (here and in root.go) is the only one in the module that imports logrus —
// ambient CLI tracing the engine itself never touches.
type loggingListener struct {
	log *logrus.Logger
}

func (l *loggingListener) Before(ctx context.Context, h wasm.FuncHandle, fi *wasm.FunctionInstance, args []api.Value) {
	l.log.WithFields(logrus.Fields{
		"func": frameLabel(h, fi),
		"args": args,
	}).Debug("call")
}

func (l *loggingListener) After(ctx context.Context, h wasm.FuncHandle, fi *wasm.FunctionInstance, results []api.Value, trap *api.Trap) {
	fields := logrus.Fields{
		"func":    frameLabel(h, fi),
		"results": results,
	}
	if trap != nil {
		l.log.WithFields(fields).WithError(trap).Warn("trap")
		return
	}
	l.log.WithFields(fields).Debug("return")
}

func frameLabel(h wasm.FuncHandle, fi *wasm.FunctionInstance) string {
	if fi != nil && fi.Name != "" {
		return fi.Name
	}
	return h.String()
}
