package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	logsLimit  int
	logsOffset int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print broker log events from the most recent run",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		for _, event := range a.trigger.Logs(logsLimit, logsOffset) {
			fmt.Printf("[%s] %s %s %s\n", event.Timestamp.Format("15:04:05"), event.Kind, event.Level, event.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVar(&logsLimit, "limit", 100, "maximum number of events to print")
	logsCmd.Flags().IntVar(&logsOffset, "offset", 0, "number of events to skip from the start of the ring buffer")
}
