package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var fireCmd = &cobra.Command{
	Use:   "fire <event>",
	Short: "Test-fire an event occurrence",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, _ := cmd.Flags().GetString("payload")

		payload := map[string]any{}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				exitOnError(fmt.Errorf("invalid --payload json: %w", err))
			}
		}

		occurrenceID, err := apiClient(cmd).FireEvent(cmd.Context(), args[0], payload)
		exitOnError(err)

		fmt.Printf("Enqueued occurrence %s for event %s\n", occurrenceID, args[0])
	},
}

func init() {
	fireCmd.Flags().StringP("payload", "p", "", "event payload as a JSON object")
	rootCmd.AddCommand(fireCmd)
}
