package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := rootOpts.Config

			db, err := openStorage(ctx, cfg.Storage, false)
			if err != nil {
				return err
			}
			defer db.Close()

			m, ok := db.(migrator)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s storage has no schema\n", cfg.Storage.Type)
				return nil
			}
			n, err := m.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migrating: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}
}
