package pycore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/afero"
)

// lineFrame is the Frame implementation ScriptedInterpreter drives its trace hook
// with: one frame per run, walking the tokenized file's logical lines in document
// order. It exists because this module has no real embedded Python interpreter to
// adapt, the interpreter being treated as an external collaborator; it is what the
// CLI's run subcommand and the debugger's own tests drive against.
type lineFrame struct {
	file     string
	line     int
	function string
	depth    int
	parent   *lineFrame
	globals  map[string]any
	locals   map[string]any
	inTry    bool
	exc      *ExceptionInfo
}

func (f *lineFrame) File() string         { return f.file }
func (f *lineFrame) Line() int            { return f.line }
func (f *lineFrame) FunctionName() string { return f.function }
func (f *lineFrame) Depth() int           { return f.depth }
func (f *lineFrame) Globals() map[string]any { return f.globals }
func (f *lineFrame) Locals() map[string]any  { return f.locals }
func (f *lineFrame) InTryBlock() bool        { return f.inTry }

func (f *lineFrame) Parent() (Frame, bool) {
	if f.parent == nil {
		return nil, false
	}
	return f.parent, true
}

func (f *lineFrame) Exception() (*ExceptionInfo, bool) {
	if f.exc == nil {
		return nil, false
	}
	return f.exc, true
}

// ScriptedInterpreter is a reference InterpreterAdapter that "executes" a Python
// source file by walking its already-tokenized logical lines and feeding them to a
// trace hook exactly the way a real interpreter's sys.settrace callback would,
// without actually evaluating any Python. It understands one construct well enough
// to drive the debugger's state machine: a bare `raise Name("message")` statement
// (reported as an exception). Every other line, including `def` headers and their
// bodies, is reported as a Line event on the single module frame at depth 0; no
// nested call frames are produced.
type ScriptedInterpreter struct {
	fs afero.Fs

	hook        TraceHook
	stdout      *StreamRedirect
	stderr      *StreamRedirect
	exceptHook  *ExceptHook
	interrupted atomic.Bool
}

// NewScriptedInterpreter creates an adapter that reads scripts through fs (nil
// defaults to the real filesystem).
func NewScriptedInterpreter(fs afero.Fs) *ScriptedInterpreter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ScriptedInterpreter{
		fs:     fs,
		stdout: NewStreamRedirect(nil),
		stderr: NewStreamRedirect(nil),
	}
}

func (s *ScriptedInterpreter) SetTraceHook(hook TraceHook)   { s.hook = hook }
func (s *ScriptedInterpreter) SetStdout(w StreamWriter)      { s.stdout.SetDestination(w) }
func (s *ScriptedInterpreter) SetStderr(w StreamWriter)      { s.stderr.SetDestination(w) }
func (s *ScriptedInterpreter) SetExceptHook(h *ExceptHook)   { s.exceptHook = h }
func (s *ScriptedInterpreter) Interrupt()                    { s.interrupted.Store(true) }

// RunFile tokenizes path and walks its logical lines, calling the installed trace
// hook for a Call, one Line event per executable statement, an Exception event if a
// raise statement is reached, and a final Return.
func (s *ScriptedInterpreter) RunFile(ctx context.Context, path string) error {
	s.interrupted.Store(false)

	lx, err := NewLexer(s.fs, path)
	if err != nil {
		return fmt.Errorf("pycore: opening %s: %w", path, err)
	}
	list, err := lx.Run(ctx)
	if err != nil {
		return fmt.Errorf("pycore: reading %s: %w", path, err)
	}

	globals := make(map[string]any)
	root := &lineFrame{file: path, function: "<module>", globals: globals, locals: globals}

	if s.hook != nil {
		s.hook(TraceCall, root)
	}

	for n := 0; n < list.LineCount(); n++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.interrupted.Load() {
			return fmt.Errorf("pycore: interrupted")
		}

		line, ok := list.Line(n)
		if !ok {
			continue
		}
		toks := line.Tokens()
		if len(toks) == 0 || line.IsContinuation {
			continue
		}
		if toks[0].Type == TComment {
			continue
		}

		root.line = line.Number()
		if s.hook != nil {
			s.hook(TraceLine, root)
		}

		if toks[0].Type == TKeywordRaise {
			info := buildRaiseException(path, line.Number(), toks)
			root.exc = info
			if s.hook != nil {
				s.hook(TraceException, root)
			}
			if s.exceptHook != nil {
				s.exceptHook.Report(info)
			}
			if s.hook != nil {
				s.hook(TraceReturn, root)
			}
			return &ScriptError{Info: info}
		}

		assignSimpleLocal(globals, toks)
	}

	if s.hook != nil {
		s.hook(TraceReturn, root)
	}
	return nil
}

// ScriptError wraps an ExceptionInfo raised by a scripted run, so callers can type-
// assert it out of RunFile's error without re-parsing a message string.
type ScriptError struct {
	Info *ExceptionInfo
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Info.Type, e.Info.Message)
}

func buildRaiseException(file string, line int, toks []*Token) *ExceptionInfo {
	typ := "Exception"
	msg := ""
	if len(toks) > 1 && toks[1].isIdentifier() {
		typ = toks[1].Text()
	}
	for _, t := range toks {
		if t.isString() {
			msg = strings.Trim(t.Text(), "\"'")
			break
		}
	}
	return &ExceptionInfo{
		Type:    typ,
		Message: msg,
		Traceback: []TracebackFrame{
			{File: file, Line: line, Function: "<module>"},
		},
	}
}

// assignSimpleLocal recognizes `name = <int literal>` and records it in globals, just
// enough state for breakpoint conditions like `i == 5` to evaluate against.
func assignSimpleLocal(globals map[string]any, toks []*Token) {
	if len(toks) < 3 || !toks[0].isIdentifier() || toks[1].Type != TOperatorEqual {
		return
	}
	if n, err := strconv.Atoi(toks[2].Text()); err == nil {
		globals[toks[0].Text()] = n
		return
	}
	globals[toks[0].Text()] = toks[2].Text()
}

// EvalCondition evaluates a short rewritten condition expression (`name op value`,
// op one of ==, !=, <, <=, >, >=) against f's locals/globals. Any shape it doesn't
// understand, and any lookup failure, is reported as an error so the caller treats
// the breakpoint as "not matched".
func (s *ScriptedInterpreter) EvalCondition(expr string, f Frame) (bool, error) {
	return evalCondition(expr, f)
}

var conditionOps = []string{"==", "!=", "<=", ">=", "<", ">"}

func evalCondition(expr string, f Frame) (bool, error) {
	expr = strings.TrimSpace(expr)
	for _, op := range conditionOps {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		lhs := strings.TrimSpace(expr[:idx])
		rhs := strings.TrimSpace(expr[idx+len(op):])
		lv, err := resolveOperand(lhs, f)
		if err != nil {
			return false, err
		}
		rv, err := resolveOperand(rhs, f)
		if err != nil {
			return false, err
		}
		return compareOperands(lv, rv, op)
	}
	return false, fmt.Errorf("pycore: unsupported condition expression %q", expr)
}

func resolveOperand(s string, f Frame) (any, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n, nil
	}
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], nil
	}
	if v, ok := f.Locals()[s]; ok {
		return v, nil
	}
	if v, ok := f.Globals()[s]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("pycore: unresolved name %q in condition", s)
}

func compareOperands(lv, rv any, op string) (bool, error) {
	lf, lok := toFloat(lv)
	rf, rok := toFloat(rv)
	if lok && rok {
		switch op {
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	ls, lsok := lv.(string)
	rs, rsok := rv.(string)
	if lsok && rsok {
		switch op {
		case "==":
			return ls == rs, nil
		case "!=":
			return ls != rs, nil
		}
	}
	return false, fmt.Errorf("pycore: incomparable condition operands %v %s %v", lv, op, rv)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
