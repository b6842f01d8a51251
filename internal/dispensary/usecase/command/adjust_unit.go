package command

import (
	"context"
	"fmt"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/kafka"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// AdjustUnitCommand applies an administrative correction to a unit
type AdjustUnitCommand struct {
	Actor      domain.Actor
	UnitID     uint
	Correction domain.UnitCorrection
	Reason     string
}

type AdjustUnitHandler struct {
	dispenser *engine.Dispenser
	events    EventPublisher
}

func NewAdjustUnitHandler(dispenser *engine.Dispenser, events EventPublisher) *AdjustUnitHandler {
	return &AdjustUnitHandler{dispenser: dispenser, events: events}
}

// Handle executes the adjustment
func (h *AdjustUnitHandler) Handle(ctx context.Context, cmd AdjustUnitCommand) (*engine.AdjustResult, error) {
	if err := cmd.Actor.Validate(); err != nil {
		return nil, err
	}
	if cmd.UnitID == 0 {
		return nil, domain.Invalid("unit_id is required")
	}

	result, err := h.dispenser.AdjustUnit(ctx, cmd.Actor, cmd.UnitID, cmd.Correction, cmd.Reason)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Uint("clinic_id", cmd.Actor.ClinicID).
			Uint("unit_id", cmd.UnitID).
			Msg("Adjustment failed")
		return nil, fmt.Errorf("adjustment failed: %w", err)
	}

	logger.Info(ctx).
		Uint("clinic_id", cmd.Actor.ClinicID).
		Uint("unit_id", cmd.UnitID).
		Int("quantity", result.Transaction.Quantity).
		Int("total_delta", result.Transaction.TotalDelta).
		Int("available_quantity", result.Unit.AvailableQuantity).
		Int("total_quantity", result.Unit.TotalQuantity).
		Msg("Unit adjusted")

	publish(ctx, h.events, kafka.DispensationEvent{
		EventType:      kafka.EventTypeUnitAdjusted,
		ClinicID:       cmd.Actor.ClinicID,
		UserID:         cmd.Actor.UserID,
		UnitID:         result.Unit.ID,
		LotID:          result.Unit.LotID,
		DrugID:         result.Unit.DrugID,
		Quantity:       result.Transaction.Quantity,
		TotalDelta:     result.Transaction.TotalDelta,
		TransactionIDs: []uint{result.Transaction.ID},
		Notes:          cmd.Reason,
	})
	return result, nil
}
