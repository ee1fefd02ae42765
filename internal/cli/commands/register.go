package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"serialgen/internal/app"
	"serialgen/internal/core/numerator"
)

func registerCmd(opts *rootOptions) *cobra.Command {
	var rule numerator.PrefixRule

	cmd := &cobra.Command{
		Use:   "register <prefix>",
		Short: "Register the numbering rule of a prefix",
		Example: `  numctl register ORDER --format '{prefix}-{SEQ}' --seq-length 6 --initial-seq 456
  numctl register TEST --format 'TEST-{year}-{SEQ:4}' --seq-length 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule.PrefixKey = args[0]
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Service.RegisterRule(ctx, rule); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", rule.PrefixKey)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&rule.Format, "format", "f", "", "number template, must contain {SEQ}")
	cmd.Flags().IntVarP(&rule.SeqLength, "seq-length", "l", 6, "default {SEQ} width")
	cmd.Flags().Uint64Var(&rule.InitialSeq, "initial-seq", 1, "first sequence value")
	cmd.Flags().BoolVar(&rule.Blocked, "blocked", false, "append the blocked marker to issued numbers")
	_ = cmd.MarkFlagRequired("format")

	return cmd
}
