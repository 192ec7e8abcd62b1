package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nokotan/wasminspect/debugger"
	"github.com/nokotan/wasminspect/internal/features"
)

func newReplCmd(featureSet func() *features.Set, traceListener func() *loggingListener) *cobra.Command {
	var watchMemory bool

	cmd := &cobra.Command{
		Use:   "repl <module.wasm>",
		Short: "Load a module and drive it through an interactive command loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			c := debugger.New(debugger.Config{Features: featureSet(), WatchMemory: watchMemory})
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
			exitCode = runREPL(cmd.OutOrStdout(), cmd.InOrStdin(), c)
			return nil
		},
	}
	cmd.Flags().BoolVar(&watchMemory, "watch-memory", false, "diff memory reads against the previous read")
	return cmd
}

// runREPL implements the interactive command loop: run, list, break,
// continue, step, next, finish, frame, locals, memory read/write, process
// continue, quit. History persistence and line editing are treated as an
// external collaborator's concern and are out of scope here; this loop
// reads newline-delimited commands from in.
func runREPL(out io.Writer, in io.Reader, c *debugger.Controller) int {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "(wasminspect) ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if code, quit := dispatch(out, c, line); quit {
				return code
			}
		}
		fmt.Fprint(out, "(wasminspect) ")
	}
	return 0
}

func dispatch(out io.Writer, c *debugger.Controller, line string) (code int, quit bool) {
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "quit", "q":
		if c.PauseReason() == debugger.PauseTrapped {
			return 1, true
		}
		return 0, true

	case "run":
		name := ""
		if len(rest) > 0 {
			name = rest[0]
		}
		vals, err := parseCallArgs(c, name, rest[minInt(1, len(rest)):])
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			return 0, false
		}
		result, err := c.Run(context.Background(), name, vals)
		printRunOutcome(out, result, err)

	case "continue", "process":
		if cmd == "process" && (len(rest) == 0 || rest[0] != "continue") {
			fmt.Fprintln(out, "error: unknown command, did you mean \"process continue\"?")
			return 0, false
		}
		result, err := c.Continue(context.Background())
		printRunOutcome(out, result, err)

	case "step":
		result, err := c.Step(context.Background(), debugger.StepInstIn)
		printRunOutcome(out, result, err)

	case "next":
		result, err := c.Step(context.Background(), debugger.StepInstOver)
		printRunOutcome(out, result, err)

	case "finish":
		result, err := c.Step(context.Background(), debugger.StepOut)
		printRunOutcome(out, result, err)

	case "break", "b":
		if len(rest) != 1 {
			fmt.Fprintln(out, "usage: break <function>")
			return 0, false
		}
		if err := c.SetBreakpoint(debugger.Breakpoint{FunctionName: rest[0]}); err != nil {
			fmt.Fprintln(out, "error:", err)
		}

	case "frame":
		for i, name := range c.Frame() {
			fmt.Fprintf(out, "#%d %s\n", i, name)
		}

	case "locals":
		for i, v := range c.Locals() {
			fmt.Fprintf(out, "local[%d] = %s\n", i, v)
		}
		for _, l := range c.SourceLocals() {
			fmt.Fprintf(out, "  %s: %s\n", l.Name, l.Type)
		}

	case "list":
		insts, pc, err := c.Instructions()
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			return 0, false
		}
		for _, loc := range c.SourceLocation() {
			fmt.Fprintln(out, loc.String())
		}
		lo, hi := contextWindow(pc, len(insts))
		for i := lo; i < hi; i++ {
			marker := "  "
			if i == pc {
				marker = "->"
			}
			fmt.Fprintf(out, "%s %4d %s\n", marker, i, insts[i].Name())
		}

	case "memory":
		dispatchMemory(out, c, rest)

	default:
		fmt.Fprintf(out, "unknown command %q\n", cmd)
	}
	return 0, false
}

func dispatchMemory(out io.Writer, c *debugger.Controller, rest []string) {
	if len(rest) < 1 {
		fmt.Fprintln(out, "usage: memory read <offset> <length> | memory write <offset> <hex>")
		return
	}
	switch rest[0] {
	case "read":
		if len(rest) != 3 {
			fmt.Fprintln(out, "usage: memory read <offset> <length>")
			return
		}
		offset, err1 := strconv.ParseUint(rest[1], 10, 32)
		length, err2 := strconv.ParseUint(rest[2], 10, 32)
		if err1 != nil || err2 != nil {
			fmt.Fprintln(out, "error: offset and length must be integers")
			return
		}
		data, err := c.ReadMemory(uint32(offset), uint32(length))
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			return
		}
		fmt.Fprintln(out, hex.EncodeToString(data))

	case "write":
		if len(rest) != 3 {
			fmt.Fprintln(out, "usage: memory write <offset> <hex>")
			return
		}
		offset, err1 := strconv.ParseUint(rest[1], 10, 32)
		data, err2 := hex.DecodeString(rest[2])
		if err1 != nil {
			fmt.Fprintln(out, "error: offset must be an integer")
			return
		}
		if err2 != nil {
			fmt.Fprintln(out, "error: bytes must be hex-encoded")
			return
		}
		if err := c.WriteMemory(uint32(offset), data); err != nil {
			fmt.Fprintln(out, "error:", err)
		}

	default:
		fmt.Fprintln(out, "usage: memory read <offset> <length> | memory write <offset> <hex>")
	}
}

func printRunOutcome(out io.Writer, result debugger.RunResult, err error) {
	if err != nil {
		fmt.Fprintln(out, "trap:", err)
		return
	}
	switch result.Kind {
	case debugger.RunBreakpoint:
		fmt.Fprintln(out, "paused at breakpoint")
	case debugger.RunFinish:
		for _, v := range result.Values {
			fmt.Fprintln(out, v.String())
		}
	}
}

func contextWindow(pc, n int) (lo, hi int) {
	const radius = 5
	lo = pc - radius
	if lo < 0 {
		lo = 0
	}
	hi = pc + radius + 1
	if hi > n {
		hi = n
	}
	return lo, hi
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
