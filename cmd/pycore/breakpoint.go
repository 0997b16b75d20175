package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	pycore "go.pycore.dev/pkg"
)

func newBreakpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breakpoint",
		Short: "Manage a persisted breakpoint file",
	}
	cmd.AddCommand(newBreakpointAddCmd())
	cmd.AddCommand(newBreakpointListCmd())
	return cmd
}

func newBreakpointAddCmd() *cobra.Command {
	var condition string
	var store string
	cmd := &cobra.Command{
		Use:   "add <file> <line>",
		Short: "Add a breakpoint and persist the updated set to --store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			var line uint32
			if _, err := fmt.Sscanf(args[1], "%d", &line); err != nil {
				return fmt.Errorf("invalid line number %q: %w", args[1], err)
			}

			set := pycore.NewBreakpointSet()
			fs := afero.NewOsFs()
			if data, err := afero.ReadFile(fs, store); err == nil {
				_ = set.Deserialize(data)
			}

			id := set.Add(file, line)
			if condition != "" {
				set.SetCondition(file, id, condition)
			}

			data, err := set.Serialize(file)
			if err != nil {
				return err
			}
			if err := afero.WriteFile(fs, store, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added breakpoint %d at %s:%d\n", id, file, line)
			return nil
		},
	}
	cmd.Flags().StringVar(&condition, "condition", "", "optional condition expression")
	cmd.Flags().StringVar(&store, "store", "breakpoints.bin", "path to the persisted breakpoint file")
	return cmd
}

func newBreakpointListCmd() *cobra.Command {
	var store string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List breakpoints persisted at --store",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := afero.NewOsFs()
			data, err := afero.ReadFile(fs, store)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "no breakpoints")
					return nil
				}
				return err
			}
			set := pycore.NewBreakpointSet()
			if err := set.Deserialize(data); err != nil {
				return err
			}
			for _, path := range set.Paths() {
				file, ok := set.File(path)
				if !ok {
					continue
				}
				for _, bp := range file.All() {
					fmt.Fprintf(cmd.OutOrStdout(), "%d %s:%d enabled=%v condition=%q hits=%d\n",
						bp.ID, path, bp.Line, bp.Enabled, bp.Condition, bp.Hits())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&store, "store", "breakpoints.bin", "path to the persisted breakpoint file")
	return cmd
}
