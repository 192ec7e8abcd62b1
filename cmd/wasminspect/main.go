// Command wasminspect is the CLI entrypoint: a cobra skeleton around the
// debugger and rpc packages, structured into run/repl/serve subcommands.
// It is a thin collaborator, not part of the core engine — the interactive
// command loop lives entirely in this package, never leaking into
// internal/interpreter or debugger. The loop reads plain newline-delimited
// commands; it offers no line editing and persists no history.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return exitCode
}
