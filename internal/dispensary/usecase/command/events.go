package command

import (
	"context"

	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/kafka"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// EventPublisher publishes dispensary events once a write has committed
type EventPublisher interface {
	PublishDispensation(ctx context.Context, event kafka.DispensationEvent) error
}

// publish is best effort; the committed write stands regardless
func publish(ctx context.Context, events EventPublisher, event kafka.DispensationEvent) {
	if events == nil {
		return
	}
	if err := events.PublishDispensation(ctx, event); err != nil {
		logger.Error(ctx).
			Err(err).
			Str("event_type", event.EventType).
			Uint("unit_id", event.UnitID).
			Msg("Failed to publish dispensary event")
	}
}

func checkoutEvent(eventType string, clinicID, userID uint, result *engine.CheckoutResult, notes string) kafka.DispensationEvent {
	event := kafka.DispensationEvent{
		EventType: eventType,
		ClinicID:  clinicID,
		UserID:    userID,
		Mode:      result.Mode,
		Quantity:  result.TotalDispensed,
		Notes:     notes,
	}
	for _, r := range result.Records {
		event.UnitIDs = append(event.UnitIDs, r.UnitID)
		event.TransactionIDs = append(event.TransactionIDs, r.Transaction.ID)
	}
	if len(event.UnitIDs) == 1 {
		event.UnitID = event.UnitIDs[0]
	}
	return event
}
