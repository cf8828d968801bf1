package main

import (
	"fmt"

	"tempspec/internal/authz"

	"github.com/spf13/cobra"
)

// expireCmd represents the expire command
var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire active specs whose end date has passed",
	Long: `Move every active spec whose end date is before today to expired.

The server runs the same job on its cron schedule; use this command when
the scheduler is disabled.`,
	Args: cobra.NoArgs,
	RunE: runExpire,
}

func runExpire(cmd *cobra.Command, args []string) error {
	n, err := application.Specs.ExpireDue(cmd.Context(), authz.System())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Expired %d spec(s).\n", n)
	return nil
}
