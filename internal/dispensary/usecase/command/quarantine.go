package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/kafka"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// QuarantineCommand removes everything left on a unit from circulation
type QuarantineCommand struct {
	Actor  domain.Actor
	UnitID uint
	Notes  string
}

type QuarantineHandler struct {
	dispenser *engine.Dispenser
	events    EventPublisher
}

func NewQuarantineHandler(dispenser *engine.Dispenser, events EventPublisher) *QuarantineHandler {
	return &QuarantineHandler{dispenser: dispenser, events: events}
}

// Handle executes the quarantine command
func (h *QuarantineHandler) Handle(ctx context.Context, cmd QuarantineCommand) (*engine.CheckoutResult, error) {
	if err := cmd.Actor.Validate(); err != nil {
		return nil, err
	}
	if cmd.UnitID == 0 {
		return nil, domain.Invalid("unit_id is required")
	}

	result, err := h.dispenser.Quarantine(ctx, cmd.Actor, cmd.UnitID, cmd.Notes)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Uint("clinic_id", cmd.Actor.ClinicID).
			Uint("unit_id", cmd.UnitID).
			Msg("Quarantine failed")
		return nil, fmt.Errorf("quarantine failed: %w", err)
	}

	logger.Info(ctx).
		Uint("clinic_id", cmd.Actor.ClinicID).
		Uint("unit_id", cmd.UnitID).
		Int("quantity", result.TotalDispensed).
		Msg("Unit quarantined")

	publish(ctx, h.events, checkoutEvent(kafka.EventTypeUnitQuarantined, cmd.Actor.ClinicID, cmd.Actor.UserID, result, cmd.Notes))
	return result, nil
}

// HandleRequest applies a quarantine request received from Kafka. Requests
// that can never succeed are marked permanent so the consumer skips them;
// anything else is redelivered.
func (h *QuarantineHandler) HandleRequest(ctx context.Context, event kafka.QuarantineRequestedEvent) error {
	_, err := h.Handle(ctx, QuarantineCommand{
		Actor:  domain.Actor{UserID: event.RequestedBy, ClinicID: event.ClinicID},
		UnitID: event.UnitID,
		Notes:  event.Reason,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUnitNotFound),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInsufficientQuantity):
		return kafka.Permanent(err)
	}
	return err
}
