package main

import (
	"os"

	"tempspec/internal/app"
	"tempspec/internal/config"
	"tempspec/pkg/logger"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

var (
	// Wired application, built before every subcommand
	application *app.App
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tempspecctl",
	Short: "Administer the temporary specification service",
	Long: `Administrative tasks for the temporary specification service.

Configuration is read the same way as the API server: configs/.env,
configs/config.yaml and TEMPSPEC_* environment variables.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: closeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(expireCmd)
}

func initializeApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg.Env, cfg.Log.Level)
	if err != nil {
		return err
	}
	application, err = app.New(cmd.Context(), cfg, log.Named("ctl"))
	return err
}

func closeApp(cmd *cobra.Command, args []string) error {
	if application != nil {
		application.Close()
		_ = application.Logger.Sync()
	}
	return nil
}
