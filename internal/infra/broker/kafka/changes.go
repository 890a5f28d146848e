package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	appavailability "villabook/internal/app/availability"
	"villabook/internal/domain/units"
	"villabook/internal/infra/inbox"
)

// Refresher reloads the reservation snapshot and tells subscribers.
type Refresher interface {
	Refresh(ctx context.Context)
}

// ChangeHandler applies availability events published by other instances:
// reservation events reload the snapshot, block events re-render calendars.
type ChangeHandler struct {
	Cache       Refresher
	Broadcaster *appavailability.Broadcaster
	Inbox       inbox.Deduper
	// Source is this instance's CloudEvents source; its own events are skipped.
	Source string
	Logger *slog.Logger
}

type cloudEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Source  string `json:"source"`
	Subject string `json:"subject"`
	Data    struct {
		UnitID string `json:"UnitID"`
	} `json:"data"`
}

func (h *ChangeHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("kafka: decode cloudevent: %w", err)
	}
	if evt.Source != "" && evt.Source == h.Source {
		return nil
	}
	if h.Inbox != nil && evt.ID != "" {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	switch {
	case strings.HasPrefix(evt.Type, "reservation."):
		if h.Cache != nil {
			h.Cache.Refresh(ctx)
		}
	case strings.HasPrefix(evt.Type, "availability."):
		if h.Broadcaster != nil {
			h.Broadcaster.Publish(appavailability.Change{Kind: appavailability.ChangeBlocks, UnitID: units.UnitID(evt.Data.UnitID)})
		}
	default:
		if h.Logger != nil {
			h.Logger.Debug("ignoring event", "type", evt.Type, "topic", msg.Topic)
		}
	}
	return nil
}

// Topics lists what a ChangeHandler consumes under prefix.
func Topics(prefix string) []string {
	return []string{prefix + "reservation.events.v1", prefix + "availability.events.v1"}
}

var _ MessageHandler = (*ChangeHandler)(nil)
