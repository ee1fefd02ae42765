package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"serialgen/internal/app"
	"serialgen/internal/core/apperror"
)

func applyCmd(opts *rootOptions) *cobra.Command {
	var (
		path         string
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Register every rule listed in a YAML file",
		Long: `Register every rule listed in a YAML file.

Rules are applied in file order and the command stops at the first failure.
With --skip-existing, prefixes that are already registered are reported and left untouched.`,
		Example: `  numctl apply -f rules.yaml
  numctl apply -f rules.yaml --skip-existing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readRulesFile(path)
			if err != nil {
				return err
			}

			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				var registered, skipped int

				for _, doc := range file.Rules {
					err := a.Service.RegisterRule(ctx, doc.toRule())
					switch {
					case err == nil:
						registered++
						fmt.Fprintf(out, "registered %s\n", doc.Prefix)
					case skipExisting && apperror.HasCode(err, apperror.CodeAlreadyExists):
						skipped++
						fmt.Fprintf(out, "skipped %s (already registered)\n", doc.Prefix)
					default:
						return errors.Join(fmt.Errorf("apply %s", doc.Prefix), err)
					}
				}

				fmt.Fprintf(out, "%d registered, %d skipped\n", registered, skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "rules file")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip prefixes that are already registered")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
