package pycore_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	pycore "go.pycore.dev/pkg"
)

func TestExceptionInfoClassification(t *testing.T) {
	cases := []struct {
		typ  string
		want func(*pycore.ExceptionInfo) bool
	}{
		{"SyntaxError", (*pycore.ExceptionInfo).IsSyntaxError},
		{"IndentationError", (*pycore.ExceptionInfo).IsIndentationError},
		{"Warning", (*pycore.ExceptionInfo).IsWarning},
		{"KeyboardInterrupt", (*pycore.ExceptionInfo).IsKeyboardInterrupt},
		{"SystemExit", (*pycore.ExceptionInfo).IsSystemExit},
	}
	for _, c := range cases {
		info := &pycore.ExceptionInfo{Type: c.typ}
		require.True(t, c.want(info), c.typ)
	}
}

func TestExceptionInfoCursorNavigation(t *testing.T) {
	info := &pycore.ExceptionInfo{
		Type:    "ValueError",
		Message: "x",
		Traceback: []pycore.TracebackFrame{
			{File: "a.py", Line: 1, Function: "<module>"},
			{File: "a.py", Line: 5, Function: "g"},
			{File: "a.py", Line: 9, Function: "f"},
		},
	}

	raise, ok := info.RaiseSite()
	require.True(t, ok)
	want := pycore.TracebackFrame{File: "a.py", Line: 9, Function: "f"}
	if diff := cmp.Diff(want, raise); diff != "" {
		t.Fatalf("raise site mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, 0, info.CurrentFrameLevel())
	require.True(t, info.Up())
	require.Equal(t, 1, info.CurrentFrameLevel())
	require.True(t, info.Up())
	require.False(t, info.Up(), "already at the innermost frame")

	cur, ok := info.CurrentFrame()
	require.True(t, ok)
	require.Equal(t, "f", cur.Function)

	require.True(t, info.Down())
	require.True(t, info.Down())
	require.False(t, info.Down(), "already at the outermost frame")
}
