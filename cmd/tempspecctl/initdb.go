package main

import (
	"fmt"

	"tempspec/internal/database"

	"github.com/spf13/cobra"
)

var (
	initDBForce bool
	adminName   string
)

// initDBCmd represents the init-db command
var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the schema and the default admin account",
	Long: `Create or migrate every table and make sure the admin account exists.

With --force all tables are dropped first. Every spec, upload record,
history entry and user is lost; files already stored are left in place.

Examples:
  # Migrate and create the admin account if missing
  tempspecctl init-db

  # Start over with an empty database
  tempspecctl init-db --force`,
	RunE: runInitDB,
}

func init() {
	initDBCmd.Flags().BoolVarP(&initDBForce, "force", "f", false, "Drop all tables before recreating them")
	initDBCmd.Flags().StringVar(&adminName, "admin", "admin", "Username of the default admin")
}

func runInitDB(cmd *cobra.Command, args []string) error {
	if initDBForce {
		if err := database.Reset(application.DB); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Dropped and recreated all tables.")
	} else {
		if err := database.Migrate(application.DB); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
	}
	return ensureAdmin(cmd, adminName)
}
