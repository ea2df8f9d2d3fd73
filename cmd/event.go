package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish workspace events to a local bus to check how the listeners log them`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a test event",
	Long:      `Publish a test event to the event bus for testing and debugging`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{events.EventTypeSignedIn, events.EventTypeSignedOut, events.EventTypeRemoteChanged, events.EventTypeRemoteWriteFault},
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var (
	eventUser string
	eventData string
)

func buildTestEvent(eventType string) (events.Event, error) {
	switch eventType {
	case events.EventTypeSignedIn:
		return events.NewSignedInEvent(eventUser, eventUser+"@example.com", "user", "admin"), nil
	case events.EventTypeSignedOut:
		return events.NewSignedOutEvent(eventUser), nil
	case events.EventTypeRemoteChanged:
		return events.NewRemoteChangedEvent(eventUser, "payslips", eventData, "set"), nil
	case events.EventTypeRemoteWriteFault:
		return events.NewRemoteWriteFailedEvent(eventUser, "payslips", "", errors.New(eventData)), nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

func publishTestEvent(eventType string) error {
	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	subscribeAuditLog(bus, lg)
	bus.Subscribe(events.EventTypeRemoteChanged, func(ctx context.Context, e events.Event) error {
		lg.Info("remote change", "event_id", e.EventID(), "payload", e.Payload())
		return nil
	})

	ev, err := buildTestEvent(eventType)
	if err != nil {
		return err
	}

	lg.Info("publishing test event", "event_type", ev.EventType(), "event_id", ev.EventID())
	if err := bus.PublishSync(context.Background(), ev); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventUser, "user", "demo-user", "uid the event refers to")
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "document id or failure reason")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
