package pycore

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// runMode selects which trace-hook decision rule a Line event is checked against.
type runMode int

const (
	modeRunning runMode = iota
	modeSingleStep
	modeHaltOnNext
	modeStepOver
	modeStepOut
)

// Debugger is a trace-hook-driven state machine that observes every line an
// InterpreterAdapter executes, decides whether to halt, and emits an event stream.
// It owns no interpreter of its own; Start wires it to one.
type Debugger struct {
	mu sync.Mutex

	interp      InterpreterAdapter
	breakpoints *BreakpointSet
	events      eventBus

	mode         runMode
	maxHaltDepth int

	halted       bool
	running      bool
	tryStop      bool
	currentFrame Frame
	stackLevel   int
	waitSem      *semaphore.Weighted

	runID string

	stdoutRedir *StreamRedirect
	stderrRedir *StreamRedirect
	exceptHook  *ExceptHook
}

// NewDebugger creates a debugger bound to the given breakpoint set (create one with
// NewBreakpointSet if the caller doesn't already own one).
func NewDebugger(breakpoints *BreakpointSet) *Debugger {
	if breakpoints == nil {
		breakpoints = NewBreakpointSet()
	}
	d := &Debugger{
		breakpoints: breakpoints,
		stdoutRedir: NewStreamRedirect(nil),
		stderrRedir: NewStreamRedirect(nil),
	}
	d.exceptHook = NewExceptHook(d.reportException)
	breakpoints.OnEvent(d.onBreakpointEvent)
	return d
}

// Subscribe returns a channel the caller can range over for this debugger's event
// stream. See eventBus.Subscribe for the backpressure policy.
func (d *Debugger) Subscribe(buffer int) <-chan Event {
	return d.events.Subscribe(buffer)
}

func (d *Debugger) onBreakpointEvent(ev BreakpointEvent) {
	var kind EventKind
	switch ev.Kind {
	case BreakpointAdded:
		kind = EventBreakpointAdded
	case BreakpointChanged:
		kind = EventBreakpointChanged
	case BreakpointRemoved:
		kind = EventBreakpointRemoved
	}
	d.events.publish(Event{Kind: kind, File: ev.File, BreakpointID: ev.ID})
}

// Start installs this debugger's trace hook into interp and redirects its
// stdout/stderr/excepthook, transitioning to Running. It does not itself run
// anything; call RunFile to execute a script under the hook.
func (d *Debugger) Start(interp InterpreterAdapter) {
	d.mu.Lock()
	d.interp = interp
	d.mode = modeRunning
	d.running = true
	d.tryStop = false
	d.runID = uuid.NewString()
	d.mu.Unlock()

	interp.SetTraceHook(d.traceHook)
	interp.SetStdout(d.stdoutRedir)
	interp.SetStderr(d.stderrRedir)
	interp.SetExceptHook(d.exceptHook)

	d.events.publish(Event{Kind: EventStarted, RunID: d.runID})
}

// Stop tears down the trace hook and returns the debugger to Stopped: if currently
// halted, this also wakes the halted hook so it can exit cleanly instead of blocking
// forever.
func (d *Debugger) Stop() {
	d.mu.Lock()
	wasHalted := d.halted
	interp := d.interp
	d.mu.Unlock()

	if wasHalted {
		d.release()
	}

	if interp != nil {
		interp.SetTraceHook(nil)
	}

	d.mu.Lock()
	d.running = false
	d.halted = false
	d.currentFrame = nil
	d.interp = nil
	d.mu.Unlock()

	d.events.publish(Event{Kind: EventStopped, RunID: d.runID})
}

// TryStop requests cancellation without blocking: it sets a flag the trace hook
// checks on its next entry (requesting an interpreter interrupt and transitioning to
// Stopped), and, if currently halted, wakes the hook so it cooperates immediately.
func (d *Debugger) TryStop() {
	d.mu.Lock()
	d.tryStop = true
	wasHalted := d.halted
	interp := d.interp
	d.mu.Unlock()

	if wasHalted {
		d.release()
	} else if interp != nil {
		interp.Interrupt()
	}
}

// HaltOnNext arms a one-shot halt at the very next Line event, then (if currently
// halted) releases the hook so it can reach that line.
func (d *Debugger) HaltOnNext() { d.setModeAndRelease(modeHaltOnNext, 0) }

// SingleStep halts at every subsequent Line event.
func (d *Debugger) SingleStep() { d.setModeAndRelease(modeSingleStep, 0) }

// Continue resumes unrestricted execution; only breakpoints can halt it again.
func (d *Debugger) Continue() { d.setModeAndRelease(modeRunning, 0) }

// StepOver halts at the next line whose call depth is no greater than the current
// frame's, i.e. it does not stop inside a function called from the current line.
func (d *Debugger) StepOver() {
	depth := d.CallDepth()
	d.setModeAndRelease(modeStepOver, depth)
}

// StepInto behaves like SingleStep: it halts at the very next line, including the
// first line of a function called from the current one.
func (d *Debugger) StepInto() { d.setModeAndRelease(modeSingleStep, 0) }

// StepOut halts at the next line whose call depth is strictly less than the current
// frame's (clamped to 0), i.e. the line following the call site that entered the
// current frame.
func (d *Debugger) StepOut() {
	depth := d.CallDepth() - 1
	if depth < 0 {
		depth = 0
	}
	d.setModeAndRelease(modeStepOut, depth)
}

func (d *Debugger) setModeAndRelease(mode runMode, maxDepth int) {
	d.mu.Lock()
	d.mode = mode
	d.maxHaltDepth = maxDepth
	wasHalted := d.halted
	d.mu.Unlock()
	if wasHalted {
		d.release()
	}
}

// RunFile executes path under this debugger's trace hook, starting the debugger
// first if it isn't already running. A ScriptError propagated from the adapter is
// reported as exception_fatal and swallowed into a nil return (SystemExit and
// KeyboardInterrupt are reported but never fatal).
func (d *Debugger) RunFile(ctx context.Context, interp InterpreterAdapter, path string) error {
	d.mu.Lock()
	alreadyRunning := d.running
	d.mu.Unlock()
	if !alreadyRunning {
		d.Start(interp)
	}

	err := interp.RunFile(ctx, path)

	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	if !running {
		return nil
	}

	if err == nil {
		d.Stop()
		return nil
	}

	if scriptErr, ok := err.(*ScriptError); ok {
		if scriptErr.Info.IsSystemExit() || scriptErr.Info.IsKeyboardInterrupt() {
			d.events.publish(Event{Kind: EventExceptionOccurred, Exception: scriptErr.Info, RunID: d.runID})
		} else {
			d.events.publish(Event{Kind: EventExceptionFatal, Exception: scriptErr.Info, RunID: d.runID})
		}
		d.Stop()
		return nil
	}

	d.Stop()
	return fmt.Errorf("pycore: running %s: %w", path, err)
}

func (d *Debugger) reportException(info *ExceptionInfo) {
	d.events.publish(Event{Kind: EventExceptionOccurred, Exception: info, RunID: d.runID})
}

// traceHook is installed into the InterpreterAdapter and implements the decision
// table and halt/release mechanism.
func (d *Debugger) traceHook(kind TraceEventKind, f Frame) Frame {
	switch kind {
	case TraceCall:
		d.events.publish(Event{Kind: EventFunctionCalled, File: f.File(), Line: f.Line(), RunID: d.runID})
		return f
	case TraceReturn:
		d.events.publish(Event{Kind: EventFunctionExited, File: f.File(), Line: f.Line(), RunID: d.runID})
		return nil
	case TraceException:
		d.handleException(f)
		return nil
	case TraceLine:
		d.handleLine(f)
		return nil
	default:
		return nil
	}
}

func (d *Debugger) handleException(f Frame) {
	info, ok := f.Exception()
	if !ok {
		return
	}
	if f.InTryBlock() {
		return
	}
	d.events.publish(Event{Kind: EventExceptionOccurred, Exception: info, RunID: d.runID})

	d.mu.Lock()
	haltOnException := d.mode == modeHaltOnNext
	d.mu.Unlock()
	if haltOnException {
		d.handleLine(f)
	}
}

func (d *Debugger) handleLine(f Frame) {
	d.mu.Lock()
	for d.halted {
		d.mu.Unlock()
		runtime.Gosched()
		d.mu.Lock()
	}

	if d.tryStop {
		d.tryStop = false
		d.running = false
		interp := d.interp
		d.mu.Unlock()
		if interp != nil {
			interp.Interrupt()
		}
		return
	}

	shouldHalt := d.decideHalt(f)
	d.mu.Unlock()

	if !shouldHalt {
		return
	}

	if _, ok := d.breakpoints.File(f.File()); !ok {
		return
	}

	d.halt(f)
}

// decideHalt implements the per-mode halt decision table. Caller must hold d.mu.
func (d *Debugger) decideHalt(f Frame) bool {
	switch d.mode {
	case modeSingleStep, modeHaltOnNext:
		return true
	case modeStepOver:
		return f.Depth() <= d.maxHaltDepth
	case modeStepOut:
		return f.Depth() <= d.maxHaltDepth
	case modeRunning:
		return d.decideBreakpointHalt(f)
	default:
		return false
	}
}

func (d *Debugger) decideBreakpointHalt(f Frame) bool {
	bp, ok := d.breakpoints.Lookup(f.File(), uint32(f.Line()))
	if !ok {
		return false
	}
	if bp.Condition != "" {
		if d.interp == nil {
			return false
		}
		matched, err := d.interp.EvalCondition(rewriteCondition(bp.Condition), f)
		return err == nil && matched && bp.Enabled
	}
	_, halt := d.breakpoints.Hit(f.File(), uint32(f.Line()))
	return halt
}

// halt blocks the calling goroutine (the interpreter's execution thread) on a
// single-shot wait primitive until a step/continue/stop command releases it.
func (d *Debugger) halt(f Frame) {
	sem := semaphore.NewWeighted(1)
	_ = sem.Acquire(context.Background(), 1)

	d.mu.Lock()
	d.halted = true
	d.currentFrame = f
	d.stackLevel = 0
	d.waitSem = sem
	d.mu.Unlock()

	d.events.publish(Event{Kind: EventHaltAt, File: f.File(), Line: f.Line(), RunID: d.runID})
	d.events.publish(Event{Kind: EventNextInstruction, RunID: d.runID})

	_ = sem.Acquire(context.Background(), 1)

	d.mu.Lock()
	d.halted = false
	d.currentFrame = nil
	d.waitSem = nil
	d.mu.Unlock()

	d.events.publish(Event{Kind: EventReleaseAt, File: f.File(), Line: f.Line(), RunID: d.runID})
}

func (d *Debugger) release() {
	d.mu.Lock()
	sem := d.waitSem
	d.mu.Unlock()
	if sem != nil {
		sem.Release(1)
	}
}

// rewriteCondition guards against an accidental assignment in a breakpoint condition
// by rewriting a bare `=` (not already part of `==`, `!=`, `<=`, `>=`) to `==`. The
// scan does not parse the expression, so an `=` inside a string literal of the
// condition is rewritten as well.
func rewriteCondition(expr string) string {
	var b strings.Builder
	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '=' {
			b.WriteRune(r)
			continue
		}
		prev := rune(0)
		if i > 0 {
			prev = runes[i-1]
		}
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		if next == '=' || prev == '=' || prev == '<' || prev == '>' || prev == '!' {
			b.WriteRune(r)
			continue
		}
		b.WriteString("==")
	}
	return b.String()
}

// SetStackLevel moves the UI's notion of "current frame" n levels up from the
// innermost halted frame (0 is the innermost).
func (d *Debugger) SetStackLevel(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 0 {
		n = 0
	}
	d.stackLevel = n
}

// CurrentFrame returns the frame the debugger is halted in, adjusted by
// SetStackLevel, or nil if not halted.
func (d *Debugger) CurrentFrame() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.currentFrame
	for i := 0; i < d.stackLevel && f != nil; i++ {
		parent, ok := f.Parent()
		if !ok {
			break
		}
		f = parent
	}
	return f
}

// CurrentFile returns the file of the current frame, or "" if not halted.
func (d *Debugger) CurrentFile() string {
	if f := d.CurrentFrame(); f != nil {
		return f.File()
	}
	return ""
}

// CurrentLine returns the line of the current frame, or 0 if not halted.
func (d *Debugger) CurrentLine() int {
	if f := d.CurrentFrame(); f != nil {
		return f.Line()
	}
	return 0
}

// CallDepth returns the call depth of the innermost halted frame, or 0 if not
// halted.
func (d *Debugger) CallDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.currentFrame == nil {
		return 0
	}
	return d.currentFrame.Depth()
}

// IsHalted reports whether the debugger is currently parked on the wait primitive.
func (d *Debugger) IsHalted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.halted
}

// IsRunning reports whether a trace hook is installed and the debugger has not been
// stopped.
func (d *Debugger) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Breakpoints returns the breakpoint set this debugger consults.
func (d *Debugger) Breakpoints() *BreakpointSet { return d.breakpoints }

// RunID returns the identifier stamped on every event of the current (or most
// recent) run.
func (d *Debugger) RunID() string { return d.runID }
