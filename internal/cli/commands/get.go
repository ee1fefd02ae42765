package commands

import (
	"context"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"serialgen/internal/app"
)

func getCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <prefix>",
		Short: "Print the rule of a prefix as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				rule, err := a.Service.GetRule(ctx, args[0])
				if err != nil {
					return err
				}

				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(fromRule(*rule)); err != nil {
					return err
				}
				return enc.Close()
			})
		},
	}
}
