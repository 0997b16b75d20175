package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pycore",
		Short: "Tokenize, analyze, and debug Python source files",
	}
	cmd.AddCommand(newTokenizeCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newBreakpointCmd())
	return cmd
}
