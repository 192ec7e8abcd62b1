package main

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nokotan/wasminspect/internal/features"
)

// logger is the ambient CLI/server diagnostic sink; the engine and
// debugger packages never import it.
var logger = logrus.New()

// exitCode is set by a subcommand before returning, read by main after
// root.Execute returns — cobra's own Execute only reports success/failure,
// not the process exit code a trap or clean quit should produce.
var exitCode int

func newRootCmd() *cobra.Command {
	var traceFlag bool
	var featuresFlag string

	root := &cobra.Command{
		Use:           "wasminspect",
		Short:         "An interactive WebAssembly debugger",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&traceFlag, "trace", false, "log every function call the executor makes")
	root.PersistentFlags().StringVar(&featuresFlag, "features", "", "comma-separated post-MVP proposals to enable (overrides WASMINSPECT_FEATURES)")

	featureSet := func() *features.Set {
		if strings.TrimSpace(featuresFlag) == "" {
			return features.FromEnvironment()
		}
		s := &features.Set{}
		s.Enable(strings.Split(featuresFlag, ",")...)
		return s
	}
	traceListener := func() *loggingListener {
		if !traceFlag {
			return nil
		}
		return &loggingListener{log: logger}
	}

	root.AddCommand(newRunCmd(featureSet, traceListener))
	root.AddCommand(newReplCmd(featureSet, traceListener))
	root.AddCommand(newServeCmd(featureSet, traceListener))
	return root
}
