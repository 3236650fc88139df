package main

import (
	"github.com/spf13/cobra"
)

func newListenersCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listeners [EVENT...]",
		Short: "Print registered listeners by event and priority",
		RunE: root.runE(func(cmd *cobra.Command, args []string) error {
			return root.app.WriteListeners(cmd.OutOrStdout(), args...)
		}),
	}
}
