package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"serialgen/internal/app"
)

func nextCmd(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "next <prefix>",
		Short: "Issue numbers for a prefix, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				numbers, err := a.Service.GenerateBatch(ctx, args[0], count)
				if err != nil {
					return err
				}
				for _, n := range numbers {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "how many numbers to issue")

	return cmd
}
