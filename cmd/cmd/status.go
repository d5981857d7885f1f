package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

// statusCmd reports idle unless a pipeline run was started by this same
// process (e.g. by "run --wait=false" in a prior command within a script
// that keeps a single invocation alive). Inspecting a "novasynth serve"
// process's live status goes through its HTTP endpoint instead, since run
// state is in-process and is not persisted across CLI invocations.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current or most recently finished run's status",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a.trigger.Status())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
