package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"novasynth/internal/pipeline"
)

var (
	runMode                 string
	runSources              []string
	runTopics               []string
	runMaxArticlesPerSource int
	runWait                 bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger one pipeline pass",
	Long: `Triggers one pass through the pipeline: scrape, dedup, embed,
cluster, and per-cluster synthesis generation and persistence.

By default run blocks until the pass reaches a terminal status and prints
the final result. Pass --wait=false to return as soon as the pass starts.`,
	RunE: func(c *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if pipeline.Mode(runMode) != pipeline.ModeSimulation && a.cfg.LLM.Anthropic.APIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
			return fmt.Errorf("no Anthropic API key configured; set llm.anthropic.api_key or ANTHROPIC_API_KEY (or run with --mode simulation)")
		}

		req := pipeline.RunRequest{
			Mode:                 pipeline.Mode(runMode),
			Sources:              runSources,
			Topics:               runTopics,
			MaxArticlesPerSource: runMaxArticlesPerSource,
		}
		if err := a.trigger.Start(a.cfg.Server.OperatorToken, req); err != nil {
			return err
		}
		fmt.Println("pipeline run started")

		if !runWait {
			return nil
		}
		return waitAndPrintStatus(a)
	},
}

func waitAndPrintStatus(a *app) error {
	for {
		status := a.trigger.Status()
		switch status.Status {
		case pipeline.StatusCompleted, pipeline.StatusCancelled, pipeline.StatusError:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runMode, "mode", string(pipeline.ModeScrape), "run mode: scrape, topic, or simulation")
	runCmd.Flags().StringSliceVar(&runSources, "sources", nil, "restrict the run to these source domains")
	runCmd.Flags().StringSliceVar(&runTopics, "topics", nil, "restrict the run to sources matching these category hints (mode=topic)")
	runCmd.Flags().IntVar(&runMaxArticlesPerSource, "max-articles-per-source", 0, "cap articles fetched per source (0 = no cap)")
	runCmd.Flags().BoolVar(&runWait, "wait", true, "block until the run reaches a terminal status")
}
