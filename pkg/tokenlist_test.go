package pycore_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	pycore "go.pycore.dev/pkg"
)

func TestTokenListLineNumbersRenumberOnInsertAndRemove(t *testing.T) {
	list := tokenizeString(t, "a = 1\nb = 2\nc = 3\n")
	require.Equal(t, 4, list.LineCount())

	list.InsertLine(1, "z = 0")
	line, ok := list.Line(1)
	require.True(t, ok)
	require.Equal(t, "z = 0", line.Text)
	require.Equal(t, 2, line.Number())

	third, ok := list.Line(2)
	require.True(t, ok)
	require.Equal(t, "b = 2", third.Text)
	require.Equal(t, 3, third.Number())

	require.True(t, list.RemoveLine(0))
	first, ok := list.Line(0)
	require.True(t, ok)
	require.Equal(t, "z = 0", first.Text)
	require.Equal(t, 1, first.Number())
}

func TestTokenListNegativeLineIndex(t *testing.T) {
	list := tokenizeString(t, "a = 1\nb = 2\n")
	last, ok := list.Line(-1)
	require.True(t, ok)
	require.Equal(t, "", last.Text)

	secondLast, ok := list.Line(-2)
	require.True(t, ok)
	require.Equal(t, "b = 2", secondLast.Text)
}

func TestTokenListDestroyTokensInvalidatesWrappers(t *testing.T) {
	list := tokenizeString(t, "x = 1\n")
	line, ok := list.Line(0)
	require.True(t, ok)
	toks := line.Tokens()
	require.NotEmpty(t, toks)

	handle := list.RegisterWrapper(line.Front)
	tok, ok := handle.Resolve()
	require.True(t, ok)
	require.Equal(t, "x", tok.Text())

	require.True(t, list.RemoveLine(0))

	_, ok = handle.Resolve()
	require.False(t, ok)
}

func TestTokenListAppendAndReplacePreservesIdentityButNotTokens(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "f.py", []byte("x = 1\n"), 0o644))
	lx, err := pycore.NewLexer(fs, "f.py")
	require.NoError(t, err)
	list, err := lx.Run(context.Background())
	require.NoError(t, err)

	before, ok := list.Line(0)
	require.True(t, ok)
	require.NotEmpty(t, before.Tokens())

	replaced, ok := list.ReplaceLine(0, "y = 2")
	require.True(t, ok)
	require.Same(t, before, replaced)
	require.Empty(t, replaced.Tokens())

	lh, ok := list.LineHandleAt(0)
	require.True(t, ok)
	lx.TokenizeLine(list, lh, pycore.TUndetermined)

	after, ok := list.Line(0)
	require.True(t, ok)
	require.NotEmpty(t, after.Tokens())
	require.Equal(t, "y", after.Tokens()[0].Text())
}
