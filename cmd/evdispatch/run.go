package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var reload bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dispatch events read from stdin, one JSON object per line",
		Long: `Read newline-delimited JSON events from stdin and dispatch each one:

  {"name": "user.registered", "data": {"email": "a@example.com"}, "source": "signup"}

Lines that cannot be decoded and events whose listeners fail are logged and
skipped. With --watch, script listeners are reloaded when their files change.
An interrupt stops reading and prints the totals so far.`,
		Args: cobra.NoArgs,
		RunE: root.runE(func(cmd *cobra.Command, args []string) error {
			stats, err := root.app.Run(cmd.Context(), cmd.InOrStdin(), reload)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			cmd.PrintErrf("%d events: %d dispatched, %d failed, %d skipped\n",
				stats.Lines, stats.Dispatched, stats.Failed, stats.Skipped)
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&reload, "watch", "w", false, "reload script listeners when their files change")
	return cmd
}
