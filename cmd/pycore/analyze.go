package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	pycore "go.pycore.dev/pkg"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Tokenize and semantically analyze a Python source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := afero.NewOsFs()
			lx, err := pycore.NewLexer(fs, args[0])
			if err != nil {
				return err
			}
			doc, err := pycore.TokenizeAndAnalyze(context.Background(), lx, args[0], "")
			if err != nil {
				return err
			}
			printFrame(cmd, doc.Analyzer, doc.Analyzer.Module, 0)
			for n := 0; n < doc.Tokens.LineCount(); n++ {
				for _, msg := range doc.Analyzer.MessagesForLine(n + 1) {
					fmt.Fprintf(cmd.OutOrStdout(), "%d: [%s] %s\n", n+1, msg.Severity, msg.Text)
				}
			}
			return nil
		},
	}
	return cmd
}

func printFrame(cmd *cobra.Command, a *pycore.Analyzer, f *pycore.SourceFrame, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sframe %s\n", indent, f.Name)
	for name, id := range f.Identifiers() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s: %s\n", indent, name, id.LatestType())
	}
	for _, child := range f.Children {
		printFrame(cmd, a, child, depth+1)
	}
}
