package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/kafka"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// CheckInCommand represents the command to place a new unit into a lot
type CheckInCommand struct {
	Actor                 domain.Actor
	LotID                 uint
	DrugID                uint
	TotalQuantity         int
	AvailableQuantity     *int
	ExpiryDate            time.Time
	ManufacturerLotNumber string
	Notes                 string
}

// CheckInHandler handles check-in command
type CheckInHandler struct {
	dispenser *engine.Dispenser
	events    EventPublisher
}

// NewCheckInHandler creates a new check-in handler
func NewCheckInHandler(dispenser *engine.Dispenser, events EventPublisher) *CheckInHandler {
	return &CheckInHandler{dispenser: dispenser, events: events}
}

// Handle executes the check-in command
func (h *CheckInHandler) Handle(ctx context.Context, cmd CheckInCommand) (*engine.CheckInResult, error) {
	if err := cmd.Actor.Validate(); err != nil {
		return nil, err
	}
	if cmd.LotID == 0 {
		return nil, domain.Invalid("lot_id is required")
	}
	if cmd.DrugID == 0 {
		return nil, domain.Invalid("drug_id is required")
	}

	result, err := h.dispenser.CheckIn(ctx, cmd.Actor, engine.CheckInRequest{
		LotID:                 cmd.LotID,
		DrugID:                cmd.DrugID,
		TotalQuantity:         cmd.TotalQuantity,
		AvailableQuantity:     cmd.AvailableQuantity,
		ExpiryDate:            cmd.ExpiryDate,
		ManufacturerLotNumber: cmd.ManufacturerLotNumber,
		Notes:                 cmd.Notes,
	})
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Uint("clinic_id", cmd.Actor.ClinicID).
			Uint("lot_id", cmd.LotID).
			Int("quantity", cmd.TotalQuantity).
			Msg("Check-in failed")
		return nil, fmt.Errorf("check-in failed: %w", err)
	}

	logger.Info(ctx).
		Uint("clinic_id", cmd.Actor.ClinicID).
		Uint("lot_id", cmd.LotID).
		Uint("unit_id", result.Unit.ID).
		Int("quantity", result.Unit.TotalQuantity).
		Msg("Unit checked in")

	publish(ctx, h.events, kafka.DispensationEvent{
		EventType:      kafka.EventTypeUnitCheckedIn,
		ClinicID:       cmd.Actor.ClinicID,
		UserID:         cmd.Actor.UserID,
		UnitID:         result.Unit.ID,
		LotID:          result.Unit.LotID,
		DrugID:         result.Unit.DrugID,
		Quantity:       result.Unit.TotalQuantity,
		TransactionIDs: []uint{result.Transaction.ID},
		Notes:          cmd.Notes,
	})
	return result, nil
}
