package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/hookwatch/internal/broadcast"
	"github.com/alfredjeanlab/hookwatch/internal/client"
	"github.com/alfredjeanlab/hookwatch/internal/events"
	"github.com/alfredjeanlab/hookwatch/internal/model"
)

var tailCmd = &cobra.Command{
	Use:     "tail",
	Short:   "Follow live events from the dashboard stream or the event bus",
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetStringSlice("events")
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if natsURL != "" {
			return tailNATS(ctx, natsURL, filter)
		}
		return apiClient.Stream(ctx, filter, func(e client.StreamEvent) error {
			if e.Name == broadcast.EventConnected && !jsonOutput {
				fmt.Fprintf(os.Stderr, "connected to %s\n", serverURL)
				return nil
			}
			printStreamEvent(e.Name, e.Data)
			return nil
		})
	},
}

// tailNATS follows the event bus. Entries are rendered like their SSE
// counterparts.
func tailNATS(ctx context.Context, url string, filter []string) error {
	sub, err := events.NewNATSSubscriber(url,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			fmt.Fprintf(os.Stderr, "nats: disconnected: %v\n", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			fmt.Fprintln(os.Stderr, "nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			name, data := natsToStream(msg)
			if !matchesFilter(filter, name) {
				continue
			}
			printStreamEvent(name, data)
		}
	}
}

// natsToStream maps an event bus message onto the SSE event name and
// payload a dashboard viewer would have seen.
func natsToStream(msg events.Message) (string, []byte) {
	switch msg.Topic {
	case events.TopicAlert:
		var evt events.AlertRaised
		if err := json.Unmarshal(msg.Data, &evt); err == nil {
			data, _ := json.Marshal(evt.Alert)
			return broadcast.EventAlert, data
		}
	case events.TopicLogReport, events.TopicLogAdminAction, events.TopicLogGeneral:
		var evt events.EntryAppended
		if err := json.Unmarshal(msg.Data, &evt); err == nil && evt.Entry != nil {
			data, _ := json.Marshal(evt.Entry)
			return eventForKind(evt.Entry.Kind), data
		}
	}
	return msg.Topic, msg.Data
}

func eventForKind(k model.Kind) string {
	switch k {
	case model.KindReport:
		return broadcast.EventNewLog
	case model.KindAdminAction:
		return broadcast.EventNewAdminAction
	default:
		return broadcast.EventNewGeneralLog
	}
}

func matchesFilter(filter []string, name string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.TrimSpace(f) == name {
			return true
		}
	}
	return false
}

func init() {
	tailCmd.Flags().StringSlice("events", nil, "only show these event names (e.g. new_log,alert)")
	tailCmd.Flags().String("nats", os.Getenv("HOOKWATCH_NATS_URL"), "follow the NATS event bus at this URL instead of the HTTP stream")
}
