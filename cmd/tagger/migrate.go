package main

import (
	"github.com/phrazzld/scry-tagger/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Manage the cards table schema",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateStatus, postgres.MigrateVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := postgres.MigrateUp
			if len(args) == 1 {
				command = args[0]
			}
			if err := postgres.CheckMigrateCommand(command); err != nil {
				return err
			}

			pool, err := postgres.NewPool(cmd.Context(), a.cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			a.logger.Info("executing migrations", "command", command)
			return postgres.Migrate(cmd.Context(), pool, command, a.logger)
		},
	}
}
