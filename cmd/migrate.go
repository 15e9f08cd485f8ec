package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recruitsite/recruit/internal/infrastructure/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
	Long: `Apply pending database migrations, or roll back the latest one.

The database file is copied to <path>.bak first when
database.backup_before_migrate is set.

Examples:
  recruit migrate
  recruit migrate --down
  recruit migrate --status`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().Bool("down", false, "roll back the most recent migration")
	migrateCmd.Flags().Bool("status", false, "print the schema version and exit")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	down, _ := cmd.Flags().GetBool("down")
	status, _ := cmd.Flags().GetBool("status")

	db, err := sqlite.NewDBWithOptions(cfg.Database.Path, sqlite.Options{
		Backup: cfg.Database.BackupBeforeMigrate && !status,
	})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	switch {
	case status:
	case down:
		if err := db.Rollback(); err != nil {
			return err
		}
	default:
		if err := db.Migrate(); err != nil {
			return err
		}
	}

	version, dirty, err := db.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d", version)
	if dirty {
		fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
