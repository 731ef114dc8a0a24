package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/memoirhq/memoir/internal/logging"
)

var (
	configPath string
	quiet      bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memoir",
		Short: "AI biography companion server",
		Long: "Memoir runs the companion server: member chat through persona bots,\n" +
			"scripted experiences, and biographical contribution elicitation.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// .env is optional; real deployments set the environment directly.
			_ = godotenv.Load()
			if quiet {
				logging.Disable()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "memoir.yaml", "path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress log output")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}
