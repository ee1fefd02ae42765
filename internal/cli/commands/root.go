// Package commands implements the numctl command line.
package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"serialgen/internal/app"
	"serialgen/internal/config"
	"serialgen/pkg/logger"
)

// Opener builds the service from configuration. Tests swap it.
type Opener func(ctx context.Context, cfg *config.Config) (*app.App, error)

type rootOptions struct {
	configPath string
	logLevel   string
	open       Opener
}

// NewRootCmd returns numctl wired to the real backends.
func NewRootCmd() *cobra.Command {
	return newRootCmd(app.New)
}

func newRootCmd(open Opener) *cobra.Command {
	opts := &rootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "numctl",
		Short: "Manage prefix rules and issue numbers against the shared store",
		Long: `numctl talks to the same store as the serialgen server, using the same
configuration file and SERIALGEN_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("SERIALGEN_CONFIG"), "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	cmd.AddCommand(registerCmd(opts))
	cmd.AddCommand(getCmd(opts))
	cmd.AddCommand(nextCmd(opts))
	cmd.AddCommand(applyCmd(opts))
	cmd.AddCommand(inspectCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// withApp loads configuration, opens the backend and runs fn.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: o.logLevel, OutputPaths: []string{"stderr"}})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := logger.WithLogger(cmd.Context(), log)

	a, err := o.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
