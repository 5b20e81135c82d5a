package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/infrastructure/database/postgres"
)

// NewMigrateCmd creates the migrate command group: up, down, status, force.
// Migrations talk to the database directly, so a config file is required.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	cmd.AddCommand(
		newMigrateUpCmd(),
		newMigrateDownCmd(),
		newMigrateStatusCmd(),
		newMigrateForceCmd(),
	)
	return cmd
}

func migrationTarget(cmd *cobra.Command) (*config.Config, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	if cliCtx.Config == nil {
		return nil, fmt.Errorf("migrations need database settings; pass --config")
	}
	return cliCtx.Config, nil
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsPath); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(cfg.Database.DSN(), cfg.Database.MigrationsPath, steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(cfg.Database.DSN(), cfg.Database.MigrationsPath)
			if err != nil {
				return err
			}
			return PrintResult(cmd, map[string]interface{}{
				"version": version,
				"dirty":   dirty,
			})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "force",
		Short: "Force the migration version after a failed migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			if err := postgres.ForceMigrationVersion(cfg.Database.DSN(), cfg.Database.MigrationsPath, version); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("migration version forced to %d", version))
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "target version (required)")
	cmd.MarkFlagRequired("version") //nolint:errcheck
	return cmd
}

//Personal.AI order the ending
