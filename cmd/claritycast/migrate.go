package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BaSui01/claritycast/internal/migration"
)

// =============================================================================
// 🗃️ 数据库迁移命令
// =============================================================================

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var driver string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the cache_entries schema (postgres, mysql)",
		Long: `Apply or inspect the schema used by the sql cache backend.

sqlite databases are created by auto-migration on open and are not
managed here.`,
	}
	cmd.PersistentFlags().StringVar(&driver, "db-type", "", "override database.driver (postgres, mysql)")

	sub := func(use, short string, run func(*migration.CLI, context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				if driver != "" {
					cfg.Database.Driver = driver
				}
				m, err := migration.NewMigratorFromDatabaseConfig(cfg.Database)
				if err != nil {
					if errors.Is(err, migration.ErrUnmanaged) {
						return fmt.Errorf("%w (sqlite schemas are created by database.auto_migrate)", err)
					}
					return fmt.Errorf("create migrator: %w", err)
				}
				defer func() { _ = m.Close() }()

				cli := migration.NewCLI(m)
				cli.SetOutput(cmd.OutOrStdout())
				return run(cli, cmd.Context())
			},
		}
	}

	cmd.AddCommand(
		sub("up", "Apply all pending migrations", (*migration.CLI).RunUp),
		sub("down", "Roll back the last migration", (*migration.CLI).RunDown),
		sub("status", "Show migration status", (*migration.CLI).RunStatus),
		sub("version", "Show the current migration version", (*migration.CLI).RunVersion),
	)
	return cmd
}
