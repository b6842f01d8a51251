package command

import (
	"context"
	"fmt"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/kafka"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// CheckOutSpecificCommand dispenses from one scanned unit
type CheckOutSpecificCommand struct {
	Actor    domain.Actor
	UnitID   uint
	Quantity int
	Patient  domain.PatientInfo
	Notes    string
}

// CheckOutSpecificHandler handles specific-unit checkouts
type CheckOutSpecificHandler struct {
	dispenser *engine.Dispenser
	events    EventPublisher
}

// NewCheckOutSpecificHandler creates a new specific checkout handler
func NewCheckOutSpecificHandler(dispenser *engine.Dispenser, events EventPublisher) *CheckOutSpecificHandler {
	return &CheckOutSpecificHandler{dispenser: dispenser, events: events}
}

// Handle executes the checkout
func (h *CheckOutSpecificHandler) Handle(ctx context.Context, cmd CheckOutSpecificCommand) (*engine.CheckoutResult, error) {
	if err := cmd.Actor.Validate(); err != nil {
		return nil, err
	}
	if cmd.UnitID == 0 {
		return nil, domain.Invalid("unit_id is required")
	}
	if cmd.Quantity <= 0 {
		return nil, domain.Invalid("quantity must be positive")
	}

	result, err := h.dispenser.CheckOutSpecific(ctx, cmd.Actor, cmd.UnitID, cmd.Quantity, cmd.Patient, cmd.Notes)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Uint("clinic_id", cmd.Actor.ClinicID).
			Uint("unit_id", cmd.UnitID).
			Int("quantity", cmd.Quantity).
			Msg("Specific checkout failed")
		return nil, fmt.Errorf("checkout failed: %w", err)
	}

	logger.Info(ctx).
		Uint("clinic_id", cmd.Actor.ClinicID).
		Uint("unit_id", cmd.UnitID).
		Int("quantity", result.TotalDispensed).
		Msg("Unit checked out")

	publish(ctx, h.events, checkoutEvent(kafka.EventTypeUnitCheckedOut, cmd.Actor.ClinicID, cmd.Actor.UserID, result, cmd.Notes))
	return result, nil
}
