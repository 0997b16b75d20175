package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	pycore "go.pycore.dev/pkg"
)

func newRunCmd() *cobra.Command {
	var breakAt []string
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a Python source file under the debugger, printing its event stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := afero.NewOsFs()
			interp := pycore.NewScriptedInterpreter(fs)
			dbg := pycore.NewDebugger(nil)

			for _, line := range breakAt {
				var n uint32
				if _, err := fmt.Sscanf(line, "%d", &n); err == nil {
					dbg.Breakpoints().Add(args[0], n)
				}
			}

			events := dbg.Subscribe(256)
			go func() {
				for ev := range events {
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] file=%s line=%d\n", ev.Kind, ev.File, ev.Line)
					if ev.Kind == pycore.EventHaltAt {
						dbg.Continue()
					}
				}
			}()

			err := dbg.RunFile(context.Background(), interp, args[0])
			return err
		},
	}
	cmd.Flags().StringSliceVar(&breakAt, "break-at", nil, "line numbers to set breakpoints at before running")
	return cmd
}
