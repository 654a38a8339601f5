package main

import (
	"github.com/spf13/cobra"

	"github.com/altarhq/altar/pkg/config"
	"github.com/altarhq/altar/pkg/debug"
)

// RootOptions holds global flags and the configuration loaded for the
// running command.
type RootOptions struct {
	ConfigPath string
	Config     *config.Config
}

// NewRootCommand creates the root command for the altar CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "altar",
		Short:         "Tenant-isolated wedding site API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			debug.Init(cfg.Log.Debug, cfg.Log.Level)
			opts.Config = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))

	return cmd
}
