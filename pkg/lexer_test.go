package pycore_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	pycore "go.pycore.dev/pkg"
)

func tokenizeString(t *testing.T, src string) *pycore.TokenList {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "fixture.py", []byte(src), 0o644))
	lx, err := pycore.NewLexer(fs, "fixture.py")
	require.NoError(t, err)
	list, err := lx.Run(context.Background())
	require.NoError(t, err)
	return list
}

func lineTypes(line *pycore.TokenLine) []pycore.TokenType {
	var out []pycore.TokenType
	for _, tok := range line.Tokens() {
		out = append(out, tok.Type)
	}
	return out
}

func TestLexerSimpleAssignment(t *testing.T) {
	list := tokenizeString(t, "x = 1\n")
	require.Equal(t, 2, list.LineCount())

	line, ok := list.Line(0)
	require.True(t, ok)
	require.Equal(t, []pycore.TokenType{
		pycore.TIdentifierUnknown, pycore.TOperatorEqual, pycore.TNumberDecInt,
	}, lineTypes(line))
}

func TestLexerKeywordsAndColon(t *testing.T) {
	list := tokenizeString(t, "def f(a, b):\n    return a + b\n")
	line, ok := list.Line(0)
	require.True(t, ok)
	toks := line.Tokens()
	require.Equal(t, pycore.TKeywordDef, toks[0].Type)
	require.Equal(t, pycore.TIdentifierUnknown, toks[1].Type)
	require.Equal(t, pycore.TDelimiterOpenParen, toks[2].Type)
	require.Equal(t, 1, line.BlockDelta)

	body, ok := list.Line(1)
	require.True(t, ok)
	require.Equal(t, 4, body.Indent)
	require.Equal(t, pycore.TKeywordReturn, body.Tokens()[0].Type)
}

func TestLexerMultilineString(t *testing.T) {
	list := tokenizeString(t, "a = \"\"\"hello\nthere\nworld\"\"\"\n")
	require.Equal(t, 4, list.LineCount())

	first, ok := list.Line(0)
	require.True(t, ok)
	firstToks := first.Tokens()
	opener := firstToks[len(firstToks)-1]
	require.True(t, opener.Type == pycore.TLiteralBlockDblQuote)

	middle, ok := list.Line(1)
	require.True(t, ok)
	require.Equal(t, pycore.TLiteralBlockDblQuote, middle.EndState)
	middleToks := middle.Tokens()
	require.NotEmpty(t, middleToks)
	require.NotZero(t, middleToks[0].OptionMask&pycore.StringIsMultiline)

	last, ok := list.Line(2)
	require.True(t, ok)
	require.Equal(t, pycore.TUndetermined, last.EndState)
}

func TestLexerNumberVariants(t *testing.T) {
	list := tokenizeString(t, "a = 0x1F\nb = 0b101\nc = 0o17\nd = 1.5e3\ne = 2j\n")
	cases := []pycore.TokenType{
		pycore.TNumberHexInt, pycore.TNumberBinInt, pycore.TNumberOctInt,
		pycore.TNumberFloat, pycore.TNumberDecInt,
	}
	for i, want := range cases {
		line, ok := list.Line(i)
		require.True(t, ok)
		toks := line.Tokens()
		require.Equal(t, want, toks[len(toks)-1].Type, "line %d", i+1)
	}

	eLine, ok := list.Line(4)
	require.True(t, ok)
	toks := eLine.Tokens()
	require.NotZero(t, toks[len(toks)-1].OptionMask&pycore.NumberIsImaginary)
}

func TestLexerUnrecognizedCharacterProducesSyntaxError(t *testing.T) {
	list := tokenizeString(t, "x = $\n")
	line, ok := list.Line(0)
	require.True(t, ok)
	toks := line.Tokens()
	require.Equal(t, pycore.TSyntaxError, toks[len(toks)-1].Type)
	require.NotNil(t, line.Scan)
	msgs := line.Scan.All()
	require.Len(t, msgs, 1)
	require.Equal(t, pycore.SeveritySyntaxError, msgs[0].Severity)
}

func TestLexerIncrementalReplaceLinePreservesIdentity(t *testing.T) {
	list := tokenizeString(t, "x = 1\ny = 2\n")
	before, ok := list.Line(0)
	require.True(t, ok)

	line, ok := list.ReplaceLine(0, "x = 99")
	require.True(t, ok)
	require.Same(t, before, line)
	require.Empty(t, line.Tokens())
}
