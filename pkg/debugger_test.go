package pycore_test

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	pycore "go.pycore.dev/pkg"
)

// fakeFrame is a hand-built pycore.Frame with a depth the test controls directly, so
// the step-over/step-out depth thresholds can be exercised without a real interpreter.
type fakeFrame struct {
	file     string
	line     int
	function string
	depth    int
	parent   pycore.Frame
	globals  map[string]any
	locals   map[string]any
}

func (f *fakeFrame) File() string                             { return f.file }
func (f *fakeFrame) Line() int                                 { return f.line }
func (f *fakeFrame) FunctionName() string                      { return f.function }
func (f *fakeFrame) Depth() int                                { return f.depth }
func (f *fakeFrame) Globals() map[string]any                   { return f.globals }
func (f *fakeFrame) Locals() map[string]any                    { return f.locals }
func (f *fakeFrame) InTryBlock() bool                          { return false }
func (f *fakeFrame) Exception() (*pycore.ExceptionInfo, bool)  { return nil, false }
func (f *fakeFrame) Parent() (pycore.Frame, bool) {
	if f.parent == nil {
		return nil, false
	}
	return f.parent, true
}

// fakeAdapter drives a fixed Call/Line/Return sequence through whatever trace hook is
// installed: a module frame at depth 0 with three lines, calling into a child frame at
// depth 1 with two lines of its own. It exists to give the step-over/step-out tests a
// call depth they can't get out of ScriptedInterpreter, which never nests frames.
type fakeAdapter struct {
	hook pycore.TraceHook
}

func (a *fakeAdapter) SetTraceHook(h pycore.TraceHook)          { a.hook = h }
func (a *fakeAdapter) Interrupt()                                {}
func (a *fakeAdapter) SetStdout(w pycore.StreamWriter)           {}
func (a *fakeAdapter) SetStderr(w pycore.StreamWriter)           {}
func (a *fakeAdapter) SetExceptHook(h *pycore.ExceptHook)        {}
func (a *fakeAdapter) EvalCondition(string, pycore.Frame) (bool, error) {
	return false, nil
}

func (a *fakeAdapter) RunFile(_ context.Context, path string) error {
	root := &fakeFrame{file: path, function: "<module>", globals: map[string]any{}, locals: map[string]any{}}
	child := &fakeFrame{file: path, function: "f", depth: 1, parent: root, globals: root.globals, locals: map[string]any{}}

	a.hook(pycore.TraceCall, root)

	root.line = 1
	a.hook(pycore.TraceLine, root)

	root.line = 2
	a.hook(pycore.TraceLine, root)

	a.hook(pycore.TraceCall, child)

	child.line = 10
	a.hook(pycore.TraceLine, child)

	child.line = 11
	a.hook(pycore.TraceLine, child)

	a.hook(pycore.TraceReturn, child)

	root.line = 3
	a.hook(pycore.TraceLine, root)

	a.hook(pycore.TraceReturn, root)
	return nil
}

func waitForHalt(t *testing.T, events <-chan pycore.Event) pycore.Event {
	t.Helper()
	for {
		select {
		case ev := <-events:
			if ev.Kind == pycore.EventHaltAt {
				return ev
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a halt event")
		}
	}
}

// registeredBreakpoints returns a set with a dummy breakpoint on path, just enough to
// make the debugger willing to halt there at all (it only arms itself for files it
// already knows about).
func registeredBreakpoints(path string) *pycore.BreakpointSet {
	set := pycore.NewBreakpointSet()
	set.Add(path, 999)
	return set
}

func TestDebuggerSingleStepHaltsAtEveryLine(t *testing.T) {
	dbg := pycore.NewDebugger(registeredBreakpoints("script.py"))
	events := dbg.Subscribe(64)
	adapter := &fakeAdapter{}

	dbg.Start(adapter)
	dbg.SingleStep()

	go func() { _ = adapter.RunFile(context.Background(), "script.py") }()

	var haltedLines []int
	for i := 0; i < 5; i++ {
		ev := waitForHalt(t, events)
		haltedLines = append(haltedLines, ev.Line)
		dbg.SingleStep()
	}
	require.Equal(t, []int{1, 2, 10, 11, 3}, haltedLines)
}

func TestDebuggerStepOverSkipsCalledFrame(t *testing.T) {
	dbg := pycore.NewDebugger(registeredBreakpoints("script.py"))
	events := dbg.Subscribe(64)
	adapter := &fakeAdapter{}

	dbg.Start(adapter)
	dbg.SingleStep()

	go func() { _ = adapter.RunFile(context.Background(), "script.py") }()

	ev := waitForHalt(t, events)
	require.Equal(t, 1, ev.Line)
	dbg.SingleStep()

	ev = waitForHalt(t, events)
	require.Equal(t, 2, ev.Line, "halted at the call site")
	dbg.StepOver()

	ev = waitForHalt(t, events)
	require.Equal(t, 3, ev.Line, "step-over must skip the called frame's lines entirely")
}

func TestDebuggerStepOutReturnsToCaller(t *testing.T) {
	dbg := pycore.NewDebugger(registeredBreakpoints("script.py"))
	events := dbg.Subscribe(64)
	adapter := &fakeAdapter{}

	dbg.Start(adapter)
	dbg.SingleStep()

	go func() { _ = adapter.RunFile(context.Background(), "script.py") }()

	for _, want := range []int{1, 2} {
		ev := waitForHalt(t, events)
		require.Equal(t, want, ev.Line)
		dbg.SingleStep()
	}

	ev := waitForHalt(t, events)
	require.Equal(t, 10, ev.Line, "stepped into the called frame")
	require.Equal(t, 1, dbg.CallDepth())
	dbg.StepOut()

	ev = waitForHalt(t, events)
	require.Equal(t, 3, ev.Line, "step-out resumes at the caller, skipping line 11")
}

// Running a file that raises reports exception_fatal and RunFile itself returns
// nil, not an error.
func TestDebuggerRunFileReportsExceptionFatalAndSwallowsTheError(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.py", []byte("x = 1\nraise ValueError(\"boom\")\n"), 0o644))

	dbg := pycore.NewDebugger(nil)
	events := dbg.Subscribe(64)
	interp := pycore.NewScriptedInterpreter(fs)

	err := dbg.RunFile(context.Background(), interp, "bad.py")
	require.NoError(t, err)

	fatal := findEvent(events, pycore.EventExceptionFatal)
	require.NotNil(t, fatal, "expected an exception_fatal event")
	require.Equal(t, "ValueError", fatal.Exception.Type)
	require.Equal(t, "boom", fatal.Exception.Message)
	require.False(t, dbg.IsRunning())
}

// findEvent drains whatever is already queued on events looking for the first one of
// the given kind, without blocking once the channel runs dry.
func findEvent(events <-chan pycore.Event, kind pycore.EventKind) *pycore.Event {
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				found := ev
				return &found
			}
		default:
			return nil
		}
	}
}

func TestDebuggerBreakpointHitHaltsAtTheRightLine(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "ok.py", []byte("x = 1\ny = 2\nz = 3\n"), 0o644))

	bps := pycore.NewBreakpointSet()
	bps.Add("ok.py", 2)

	dbg := pycore.NewDebugger(bps)
	events := dbg.Subscribe(64)
	interp := pycore.NewScriptedInterpreter(fs)

	done := make(chan error, 1)
	go func() { done <- dbg.RunFile(context.Background(), interp, "ok.py") }()

	ev := waitForHalt(t, events)
	require.Equal(t, 2, ev.Line)
	require.True(t, dbg.IsHalted())
	require.Equal(t, 2, dbg.CurrentLine())
	dbg.Continue()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run never completed after continuing past the breakpoint")
	}
}

// A conditioned breakpoint halts only when its condition evaluates true against
// the frame it fires in.
func TestDebuggerConditionedBreakpointHaltsWhenConditionTrue(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "cond.py", []byte("a = 1\na = 2\n"), 0o644))

	bps := pycore.NewBreakpointSet()
	id := bps.Add("cond.py", 2)
	require.True(t, bps.SetCondition("cond.py", id, "a == 1"))

	dbg := pycore.NewDebugger(bps)
	events := dbg.Subscribe(64)
	interp := pycore.NewScriptedInterpreter(fs)

	go func() { _ = dbg.RunFile(context.Background(), interp, "cond.py") }()

	ev := waitForHalt(t, events)
	require.Equal(t, 2, ev.Line, "a is still 1 when line 2 is reached, so the condition matches")
	dbg.Continue()
}

func TestDebuggerConditionedBreakpointSkipsWhenConditionUnresolved(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "cond2.py", []byte("a = 1\n"), 0o644))

	bps := pycore.NewBreakpointSet()
	id := bps.Add("cond2.py", 1)
	require.True(t, bps.SetCondition("cond2.py", id, "a == 1"))

	dbg := pycore.NewDebugger(bps)
	interp := pycore.NewScriptedInterpreter(fs)

	done := make(chan error, 1)
	go func() { done <- dbg.RunFile(context.Background(), interp, "cond2.py") }()

	select {
	case err := <-done:
		require.NoError(t, err, "the run completes without ever halting, since a is unbound on line 1")
	case <-time.After(2 * time.Second):
		t.Fatal("an unresolved condition must never halt, and must never hang")
	}
}
