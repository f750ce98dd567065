package cmd

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"hookrelay/internal/events"
	"hookrelay/internal/queue"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch live webhook deliveries",
	Run: func(cmd *cobra.Command, args []string) {
		nc, err := nats.Connect(natsURL(cmd))
		exitOnError(err)
		defer nc.Close()

		eventFilter, _ := cmd.Flags().GetString("event")
		serviceFilter, _ := cmd.Flags().GetInt64("service")

		deliveries := make(chan events.DeliveryEvent, 100)
		sub, err := nc.Subscribe(queue.SubjectAudit, func(m *nats.Msg) {
			var event events.DeliveryEvent
			if err := json.Unmarshal(m.Data, &event); err != nil {
				return
			}
			if eventFilter != "" && event.EventName != eventFilter {
				return
			}
			if serviceFilter != 0 && event.ServiceID != serviceFilter {
				return
			}
			select {
			case deliveries <- event:
			default:
			}
		})
		exitOnError(err)
		defer sub.Unsubscribe()

		exitOnError(runWatchUI(deliveries))
	},
}

func init() {
	watchCmd.Flags().String("event", "", "only show deliveries for this event name")
	watchCmd.Flags().Int64("service", 0, "only show deliveries for this service id")
	rootCmd.AddCommand(watchCmd)
}
