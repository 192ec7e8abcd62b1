package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/debugger"
	"github.com/nokotan/wasminspect/internal/features"
)

func newRunCmd(featureSet func() *features.Set, traceListener func() *loggingListener) *cobra.Command {
	return &cobra.Command{
		Use:   "run <module.wasm> [export] [args...]",
		Short: "Load a module and run it to completion, printing its results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			c := debugger.New(debugger.Config{Features: featureSet()})
			if l := traceListener(); l != nil {
				c.SetListener(l)
			}
			if err := registerDiagnosticHostModule(c); err != nil {
				return err
			}
			if err := c.LoadModule("main", raw); err != nil {
				exitCode = 1
				return err
			}

			export := ""
			callArgs := args[1:]
			if len(callArgs) > 0 {
				export = callArgs[0]
				callArgs = callArgs[1:]
			}

			vals, err := parseCallArgs(c, export, callArgs)
			if err != nil {
				return err
			}

			result, err := c.Run(context.Background(), export, vals)
			if err != nil {
				logger.WithError(err).Error("trap")
				exitCode = 1
				return nil
			}
			for _, v := range result.Values {
				fmt.Fprintln(cmd.OutOrStdout(), v.String())
			}
			return nil
		},
	}
}

// parseCallArgs resolves export's declared parameter types and coerces the
// CLI's string arguments into typed api.Value, following the same
// bit-pattern-cast convention the RPC proxy's CallExported handler uses.
func parseCallArgs(c *debugger.Controller, export string, raw []string) ([]api.Value, error) {
	if export == "" {
		if len(raw) != 0 {
			return nil, fmt.Errorf("no export named to accept arguments")
		}
		return nil, nil
	}
	h, err := c.LookupFunc(export)
	if err != nil {
		return nil, err
	}
	want := c.FuncType(h)
	if len(raw) != len(want.Params) {
		return nil, fmt.Errorf("%s: want %d args, got %d", export, len(want.Params), len(raw))
	}
	out := make([]api.Value, len(raw))
	for i, s := range raw {
		v, err := parseValue(s, want.Params[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseValue(s string, t api.ValueType) (api.Value, error) {
	switch t {
	case api.ValueTypeI32:
		n, err := strconv.ParseInt(s, 10, 32)
		return api.ValueI32(int32(n)), err
	case api.ValueTypeI64:
		n, err := strconv.ParseInt(s, 10, 64)
		return api.ValueI64(n), err
	case api.ValueTypeF32:
		n, err := strconv.ParseFloat(s, 32)
		return api.ValueF32(float32(n)), err
	case api.ValueTypeF64:
		n, err := strconv.ParseFloat(s, 64)
		return api.ValueF64(n), err
	default:
		return api.Value{}, fmt.Errorf("unsupported argument type %s", t)
	}
}
