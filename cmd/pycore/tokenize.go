package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	pycore "go.pycore.dev/pkg"
)

func newTokenizeCmd() *cobra.Command {
	var tabWidth int
	cmd := &cobra.Command{
		Use:   "tokenize <file>",
		Short: "Tokenize a Python source file and print its token stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := afero.NewOsFs()
			lx, err := pycore.NewLexer(fs, args[0])
			if err != nil {
				return err
			}
			lx.SetTabWidth(tabWidth)
			list, err := lx.Run(context.Background())
			if err != nil {
				return err
			}
			for n := 0; n < list.LineCount(); n++ {
				line, ok := list.Line(n)
				if !ok {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%4d| indent=%d cont=%v\n", line.Number(), line.Indent, line.IsContinuation)
				for _, tok := range line.Tokens() {
					fmt.Fprintf(cmd.OutOrStdout(), "      %-20s %q\n", tok.Type.String(), tok.Text())
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&tabWidth, "tab-width", pycore.DefaultTabWidth, "columns a tab expands to")
	return cmd
}
