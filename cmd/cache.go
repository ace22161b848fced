package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached results",
	}

	var target string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache for one target, or all of it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.store.Clear(target); err != nil {
				return err
			}
			if target == "" {
				pterm.Success.Println("Cache cleared")
			} else {
				pterm.Success.Printfln("Cache cleared for %s", target)
			}
			return nil
		},
	}
	clearCmd.Flags().StringVarP(&target, "target", "t", "", "only clear this target")

	cmd.AddCommand(clearCmd)
	return cmd
}
