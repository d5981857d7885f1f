package cmd

import (
	"github.com/spf13/cobra"

	"novasynth/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP trigger surface (§6) until interrupted",
	Long: `Starts the thin chi admin router in front of the same Trigger
interface the run/status/logs/sources subcommands use, so operators can
drive the pipeline remotely instead of one CLI invocation at a time.

Mutating endpoints require the configured operator token (server.operator_token
or NOVASYNTH_OPERATOR_TOKEN); query endpoints (health, status, logs) are public.`,
	RunE: func(c *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if a.cfg.Server.OperatorToken == "" {
			logger.Get().Warn("no operator token configured; every mutating endpoint will reject requests until server.operator_token or NOVASYNTH_OPERATOR_TOKEN is set")
		}
		return a.httpRouter().Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
