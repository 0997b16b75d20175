package pycore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	pycore "go.pycore.dev/pkg"
)

func analyze(t *testing.T, src string) (*pycore.TokenList, *pycore.Analyzer) {
	t.Helper()
	list := tokenizeString(t, src)
	a := pycore.NewAnalyzer(list)
	a.AnalyzeAll()
	return list, a
}

// x = 1; y = x + 2 infers both as Int.
func TestAnalyzerInfersIntAssignmentAndArithmetic(t *testing.T) {
	list, a := analyze(t, "x = 1\ny = x + 2\n")

	line, ok := list.Line(0)
	require.True(t, ok)
	xTok := line.Tokens()[0]
	require.Equal(t, pycore.TIdentifierDefined, xTok.Type)

	xType := a.Module.Identifiers()["x"].LatestType()
	require.Equal(t, pycore.KindInt, xType.Kind)

	yType := a.Module.Identifiers()["y"].LatestType()
	require.Equal(t, pycore.KindInt, yType.Kind)
}

// def f(a:int=3, *b, **c): pass creates a frame with the expected parameter shape.
func TestAnalyzerBuildsFunctionFrameWithParameters(t *testing.T) {
	_, a := analyze(t, "def f(a:int=3, *b, **c):\n    pass\n")

	require.Len(t, a.Module.Children, 1)
	fn := a.Module.Children[0]
	require.Equal(t, pycore.FrameFunction, fn.Kind)
	require.Equal(t, "f", fn.Name)
	require.Len(t, fn.Parameters, 3)

	require.Equal(t, pycore.ParamPositionalDefault, fn.Parameters[0].Kind)
	require.Equal(t, "a", fn.Parameters[0].Name)
	require.Equal(t, pycore.KindInt, fn.Parameters[0].Type.Kind)
	require.Equal(t, "3", fn.Parameters[0].Default)

	require.Equal(t, pycore.ParamVariable, fn.Parameters[1].Kind)
	require.Equal(t, "b", fn.Parameters[1].Name)

	require.Equal(t, pycore.ParamKeyword, fn.Parameters[2].Kind)
	require.Equal(t, "c", fn.Parameters[2].Name)
}

func TestAnalyzerFrameContainingAndIdentifierType(t *testing.T) {
	list, a := analyze(t, "def f():\n    x = 1\n    return x\n")

	line, ok := list.Line(2)
	require.True(t, ok)
	var xRefHandle pycore.TokenHandle
	for _, tok := range line.Tokens() {
		if tok.Text() == "x" {
			xRefHandle = list.HandleOf(tok)
		}
	}
	require.True(t, xRefHandle.Valid())

	frame := a.FrameContaining(xRefHandle)
	require.NotNil(t, frame)
	require.Equal(t, "f", frame.Name)

	typ := a.IdentifierType(xRefHandle)
	require.Equal(t, pycore.KindInt, typ.Kind)
}

func TestAnalyzerUnresolvedIdentifierIsInvalid(t *testing.T) {
	list, a := analyze(t, "print(undefined_name)\n")
	line, ok := list.Line(0)
	require.True(t, ok)

	var found bool
	for _, tok := range line.Tokens() {
		if tok.Text() == "undefined_name" {
			require.Equal(t, pycore.TIdentifierInvalid, tok.Type)
			found = true
		}
		if tok.Text() == "print" {
			require.Equal(t, pycore.TIdentifierBuiltin, tok.Type)
		}
	}
	require.True(t, found)
}

func TestAnalyzerImportBindsModuleIdentifier(t *testing.T) {
	_, a := analyze(t, "import os\nfrom sys import path\n")
	_, ok := a.Module.Lookup("os")
	require.True(t, ok)
	_, ok = a.Module.Lookup("path")
	require.True(t, ok)
}
