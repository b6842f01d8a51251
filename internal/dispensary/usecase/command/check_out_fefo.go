package command

import (
	"context"
	"fmt"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/kafka"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// CheckOutFEFOCommand dispenses a drug across units, earliest expiry first
type CheckOutFEFOCommand struct {
	Actor    domain.Actor
	Drug     domain.DrugMatcher
	Quantity int
	Patient  domain.PatientInfo
	Notes    string
}

type CheckOutFEFOHandler struct {
	dispenser *engine.Dispenser
	events    EventPublisher
}

func NewCheckOutFEFOHandler(dispenser *engine.Dispenser, events EventPublisher) *CheckOutFEFOHandler {
	return &CheckOutFEFOHandler{dispenser: dispenser, events: events}
}

// Handle executes the FEFO checkout
func (h *CheckOutFEFOHandler) Handle(ctx context.Context, cmd CheckOutFEFOCommand) (*engine.CheckoutResult, error) {
	if err := cmd.Actor.Validate(); err != nil {
		return nil, err
	}
	if cmd.Drug.IsZero() {
		return nil, domain.Invalid("drug_id, ndc or medication_name is required")
	}
	if cmd.Quantity <= 0 {
		return nil, domain.Invalid("quantity must be positive")
	}

	result, err := h.dispenser.CheckOutFEFO(ctx, cmd.Actor, cmd.Drug, cmd.Quantity, cmd.Patient, cmd.Notes)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Uint("clinic_id", cmd.Actor.ClinicID).
			Str("ndc", cmd.Drug.NDC).
			Uint("drug_id", cmd.Drug.DrugID).
			Int("quantity", cmd.Quantity).
			Msg("FEFO checkout failed")
		return nil, fmt.Errorf("checkout failed: %w", err)
	}

	logger.Info(ctx).
		Uint("clinic_id", cmd.Actor.ClinicID).
		Int("units_touched", len(result.Records)).
		Int("quantity", result.TotalDispensed).
		Msg("FEFO checkout committed")

	publish(ctx, h.events, checkoutEvent(kafka.EventTypeUnitCheckedOut, cmd.Actor.ClinicID, cmd.Actor.UserID, result, cmd.Notes))
	return result, nil
}
