package pycore

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Document is the result of TokenizeAndAnalyze: a tokenized, semantically-analyzed
// source file plus whatever breakpoints were loaded for it.
type Document struct {
	Path        string
	Tokens      *TokenList
	Analyzer    *Analyzer
	Breakpoints *BreakpointSet
}

// TokenizeAndAnalyze tokenizes the lexer's file and, concurrently, decodes
// breakpointData (a BreakpointSet.Serialize result, if non-empty), then runs the
// semantic analyzer over the resulting token stream. The two loads have no data
// dependency on each other, so they run as an errgroup.Group the way the ambient
// stack's concurrent-IO helpers do elsewhere in this module's lineage.
func TokenizeAndAnalyze(ctx context.Context, lx *Lexer, sourcePath, breakpointData string) (*Document, error) {
	var (
		tokens      *TokenList
		breakpoints = NewBreakpointSet()
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := lx.Run(ctx)
		if err != nil {
			return err
		}
		tokens = t
		return nil
	})
	if breakpointData != "" {
		g.Go(func() error {
			return breakpoints.Deserialize([]byte(breakpointData))
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	analyzer := NewAnalyzer(tokens)
	analyzer.AnalyzeAll()

	return &Document{
		Path:        sourcePath,
		Tokens:      tokens,
		Analyzer:    analyzer,
		Breakpoints: breakpoints,
	}, nil
}
