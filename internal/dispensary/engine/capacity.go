package engine

import (
	"context"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
)

// CapacityStatus answers whether incoming quantity fits a lot.
// MaxCapacity and Remaining are nil for lots without a ceiling.
type CapacityStatus struct {
	LotID       uint `json:"lot_id"`
	OK          bool `json:"ok"`
	Current     int  `json:"current_capacity"`
	Incoming    int  `json:"incoming_quantity"`
	MaxCapacity *int `json:"max_capacity,omitempty"`
	Remaining   *int `json:"remaining,omitempty"`
}

// CapacityLedger derives lot usage from the units that reference it. There is
// no stored counter; every check sums the live units.
type CapacityLedger struct {
	lots  domain.LotRepository
	units domain.UnitRepository
}

func NewCapacityLedger(lots domain.LotRepository, units domain.UnitRepository) *CapacityLedger {
	return &CapacityLedger{lots: lots, units: units}
}

// CheckCapacity reports current usage and whether incoming more would fit
func (c *CapacityLedger) CheckCapacity(ctx context.Context, clinicID, lotID uint, incoming int) (*CapacityStatus, error) {
	if incoming < 0 {
		return nil, domain.Invalid("incoming quantity must not be negative, got %d", incoming)
	}
	lot, err := c.lots.FindByID(ctx, clinicID, lotID)
	if err != nil {
		return nil, err
	}
	current, err := c.units.SumTotalByLot(ctx, lot.ID)
	if err != nil {
		return nil, err
	}

	status := &CapacityStatus{LotID: lot.ID, OK: true, Current: current, Incoming: incoming}
	if lot.MaxCapacity != nil {
		max := *lot.MaxCapacity
		remaining := max - current
		if remaining < 0 {
			remaining = 0
		}
		status.MaxCapacity = &max
		status.Remaining = &remaining
		status.OK = current+incoming <= max
	}
	return status, nil
}

// Require fails with *domain.CapacityExceededError when incoming does not fit.
// Callers serialize per lot around Require and the write that follows it.
func (c *CapacityLedger) Require(ctx context.Context, clinicID, lotID uint, incoming int) (*CapacityStatus, error) {
	status, err := c.CheckCapacity(ctx, clinicID, lotID, incoming)
	if err != nil {
		return nil, err
	}
	if !status.OK {
		capacityRejectionsTotal.Inc()
		return status, &domain.CapacityExceededError{
			LotID:     lotID,
			Attempted: incoming,
			Current:   status.Current,
			Max:       *status.MaxCapacity,
			Remaining: *status.Remaining,
		}
	}
	return status, nil
}
