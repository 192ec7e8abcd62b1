package debugger

import (
	"context"

	"github.com/nokotan/wasminspect/api"
	"github.com/nokotan/wasminspect/internal/interpreter"
	"github.com/nokotan/wasminspect/internal/wasm"
)

// Run resolves the exported function name (the main module's start
// function if name is empty), pushes an initial frame, and executes until
// the computation finishes or hits a breakpoint — mirroring the Rust
// original's `fn run(&mut self, name: Option<String>) -> Result<RunResult>`.
func (c *Controller) Run(ctx context.Context, name string, args []api.Value) (RunResult, error) {
	h, err := c.resolveRunTarget(name)
	if err != nil {
		return RunResult{}, err
	}
	want := c.store.Func(h).Type
	if len(args) != len(want.Params) {
		return RunResult{}, &CallArgumentLengthMismatchError{Want: len(want.Params), Got: len(args)}
	}

	c.thread = interpreter.NewThread(c.engine)
	c.state = StateRunning
	if trap := c.thread.PushCall(ctx, h, args); trap != nil {
		c.state = StatePaused
		c.pauseReason = PauseTrapped
		c.lastTrap = trap
		return RunResult{}, trap
	}
	return c.runLoop(ctx, false)
}

func (c *Controller) resolveRunTarget(name string) (wasm.FuncHandle, error) {
	if name != "" {
		return c.LookupFunc(name)
	}
	if c.mainModule == nil || c.mainModule.StartFunc == nil {
		return wasm.FuncHandle{}, &FunctionNotFoundError{Name: "<start>"}
	}
	return *c.mainModule.StartFunc, nil
}

// Continue resumes a Paused controller (at a breakpoint, or after a Step)
// until the next pause or finish. Calling it while Idle is an error.
func (c *Controller) Continue(ctx context.Context) (RunResult, error) {
	if c.state == StateIdle {
		return RunResult{}, &NotRunningError{}
	}
	resumingFromBreakpoint := c.pauseReason == PauseHitBreakpoint
	c.state = StateRunning
	c.pauseReason = PauseNone
	return c.runLoop(ctx, resumingFromBreakpoint)
}

// runLoop drives the thread until it either finishes, traps, or lands on a
// freshly pushed frame (PC == 0) whose function carries a breakpoint — the
// check happens "before executing the first instruction of any frame", so
// it fires exactly once per call, the moment a frame becomes current.
// skipBreakpoint suppresses the check for the first instruction only, so
// resuming from a breakpoint pause does not stop at the same frame again.
func (c *Controller) runLoop(ctx context.Context, skipBreakpoint bool) (RunResult, error) {
	for {
		f := c.thread.Current()
		hit := !skipBreakpoint && f != nil && f.PC == 0 && c.isBreakpoint(f.Func)
		skipBreakpoint = false
		if hit {
			c.state = StatePaused
			c.pauseReason = PauseHitBreakpoint
			return RunResult{Kind: RunBreakpoint}, nil
		}
		finished, results, trap := c.thread.Step(ctx)
		if trap != nil {
			c.state = StatePaused
			c.pauseReason = PauseTrapped
			c.lastTrap = trap
			return RunResult{}, trap
		}
		if finished {
			c.state = StateIdle
			c.pauseReason = PauseNone
			return RunResult{Kind: RunFinish, Values: results}, nil
		}
	}
}

// Step executes a single step of style StepInstIn/StepInstOver/StepOut
// against a Paused or freshly-breakpointed controller, per spec §4.F.
// StepInstOver and StepOut install a temporary depth floor: the frame-stack
// height execution must fall back to (or below) before the step ends,
// skipping over any calls made along the way.
func (c *Controller) Step(ctx context.Context, style StepStyle) (RunResult, error) {
	if c.thread == nil || !c.IsRunning() {
		return RunResult{}, &NotRunningError{}
	}
	c.pauseReason = PauseNone
	c.state = StateRunning

	startDepth := len(c.thread.Frames)
	var floor int
	switch style {
	case StepInstOver:
		floor = startDepth
	case StepOut:
		floor = startDepth - 1
	}

	for {
		finished, results, trap := c.thread.Step(ctx)
		if trap != nil {
			c.state = StatePaused
			c.pauseReason = PauseTrapped
			c.lastTrap = trap
			return RunResult{}, trap
		}
		if finished {
			c.state = StateIdle
			c.pauseReason = PauseNone
			return RunResult{Kind: RunFinish, Values: results}, nil
		}
		if style == StepInstIn {
			c.state = StatePaused
			c.pauseReason = PauseStepped
			return RunResult{}, nil
		}
		if len(c.thread.Frames) <= floor {
			c.state = StatePaused
			c.pauseReason = PauseStepped
			return RunResult{}, nil
		}
	}
}
