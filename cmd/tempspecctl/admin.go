package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// createAdminCmd represents the create-admin command
var createAdminCmd = &cobra.Command{
	Use:   "create-admin [username]",
	Short: "Create an admin account with a random password",
	Long: `Create an admin account when it does not exist yet.

The generated password is printed once and never stored in clear text.
An existing account is left untouched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreateAdmin,
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	name := "admin"
	if len(args) == 1 {
		name = args[0]
	}
	return ensureAdmin(cmd, name)
}

func ensureAdmin(cmd *cobra.Command, username string) error {
	password, created, err := application.Users.EnsureAdmin(cmd.Context(), username)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !created {
		fmt.Fprintf(out, "User %q already exists, password unchanged.\n", username)
		return nil
	}
	fmt.Fprintf(out, "Created admin %q\n", username)
	fmt.Fprintf(out, "Password: %s\n", password)
	fmt.Fprintln(out, "Store it now, it will not be shown again.")
	return nil
}
