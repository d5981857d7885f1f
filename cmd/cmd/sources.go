package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect and manage the source registry",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered domain and its health bucket",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		report, err := a.trigger.HealthReport(context.Background())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var sourcesBlacklistCmd = &cobra.Command{
	Use:   "blacklist <domain>",
	Short: "Blacklist a source domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if err := a.trigger.Blacklist(context.Background(), a.cfg.Server.OperatorToken, args[0], sourcesReason); err != nil {
			return err
		}
		fmt.Printf("%s blacklisted\n", args[0])
		return nil
	},
}

var sourcesClearCmd = &cobra.Command{
	Use:   "clear [domain]",
	Short: "Clear a domain's blacklist entry, or every entry if domain is omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		domain := ""
		if len(args) == 1 {
			domain = args[0]
		}
		if err := a.trigger.ClearBlacklist(context.Background(), a.cfg.Server.OperatorToken, domain); err != nil {
			return err
		}
		fmt.Println("blacklist cleared")
		return nil
	},
}

var sourcesDiscoverCmd = &cobra.Command{
	Use:   "discover <blocked-domain>",
	Short: "Schedule auto-discovery of a replacement for a blocked domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if err := a.trigger.Discover(context.Background(), a.cfg.Server.OperatorToken, args[0], sourcesReason); err != nil {
			return err
		}
		fmt.Println("discovery scheduled")
		return nil
	},
}

var sourcesReason string

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesBlacklistCmd)
	sourcesCmd.AddCommand(sourcesClearCmd)
	sourcesCmd.AddCommand(sourcesDiscoverCmd)

	sourcesBlacklistCmd.Flags().StringVar(&sourcesReason, "reason", "", "reason recorded alongside the blacklist entry")
	sourcesDiscoverCmd.Flags().StringVar(&sourcesReason, "reason", "", "reason recorded in the broker log for this discovery request")
}
