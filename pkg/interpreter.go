package pycore

import "context"

// TraceEventKind classifies one call into the trace hook, mirroring the events a
// Python interpreter's sys.settrace callback receives.
type TraceEventKind int

const (
	TraceCall TraceEventKind = iota
	TraceLine
	TraceReturn
	TraceException
)

// Frame is the subset of an interpreter call-frame the debugger needs: where
// execution currently is, what called it, and (for an Exception event) the state
// that propagated into it. A real embedding supplies its own Frame implementation;
// ScriptedInterpreter's lineFrame is the one this package ships for tests and the
// CLI's run subcommand.
type Frame interface {
	File() string
	Line() int
	FunctionName() string
	Depth() int
	Parent() (Frame, bool)
	Globals() map[string]any
	Locals() map[string]any
	InTryBlock() bool
	Exception() (*ExceptionInfo, bool)
}

// TraceHook is the callback signature the debugger installs into an interpreter.
// Returning a non-nil Frame from a TraceCall event requests line-level tracing into
// that frame (mirroring sys.settrace's local-trace-function convention); the return
// value is otherwise ignored.
type TraceHook func(kind TraceEventKind, f Frame) Frame

// InterpreterAdapter is the embedding boundary this package calls the embedded Python
// interpreter: something that can install a trace hook, run a script under it, and
// compile+evaluate a short expression (for breakpoint conditions). The debugger in
// this package is adapter-agnostic; pkg/scriptedinterp.go supplies the one concrete
// adapter this module ships.
type InterpreterAdapter interface {
	SetTraceHook(hook TraceHook)
	RunFile(ctx context.Context, path string) error
	Interrupt()

	SetStdout(w StreamWriter)
	SetStderr(w StreamWriter)
	SetExceptHook(h *ExceptHook)

	// EvalCondition compiles and evaluates expr against a frame's globals/locals
	// without re-entering the trace hook. Any failure is the caller's signal to treat
	// the breakpoint as "not matched".
	EvalCondition(expr string, f Frame) (bool, error)
}
