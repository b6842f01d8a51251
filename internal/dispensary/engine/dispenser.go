package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/pkg/lock"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// CheckInRequest describes a new physical unit placed into a lot.
// AvailableQuantity defaults to TotalQuantity when nil.
type CheckInRequest struct {
	LotID                 uint
	DrugID                uint
	TotalQuantity         int
	AvailableQuantity     *int
	ExpiryDate            time.Time
	ManufacturerLotNumber string
	Notes                 string
}

type CheckInResult struct {
	Unit        domain.Unit        `json:"unit"`
	Transaction domain.Transaction `json:"transaction"`
	Capacity    CapacityStatus     `json:"capacity"`
}

// DispensationRecord is the outcome of one applied plan step
type DispensationRecord struct {
	UnitID      uint               `json:"unit_id"`
	Quantity    int                `json:"quantity"`
	ExpiryDate  time.Time          `json:"expiry_date"`
	Remaining   int                `json:"remaining_quantity"`
	Transaction domain.Transaction `json:"transaction"`
}

type CheckoutResult struct {
	Mode           string               `json:"mode"`
	TotalDispensed int                  `json:"total_dispensed"`
	Records        []DispensationRecord `json:"records"`
}

type AdjustResult struct {
	Unit        domain.Unit        `json:"unit"`
	Previous    domain.Unit        `json:"previous"`
	Transaction domain.Transaction `json:"transaction"`
}

// Dispenser coordinates the capacity ledger, the allocator, the unit store and
// the transaction ledger. Every write path either commits fully or is
// compensated before it returns.
type Dispenser struct {
	units     domain.UnitRepository
	ledger    domain.TransactionRepository
	drugs     domain.DrugResolver
	capacity  *CapacityLedger
	allocator *Allocator
	locker    lock.Locker
}

func NewDispenser(
	units domain.UnitRepository,
	ledger domain.TransactionRepository,
	drugs domain.DrugResolver,
	capacity *CapacityLedger,
	allocator *Allocator,
	locker lock.Locker,
) *Dispenser {
	return &Dispenser{
		units:     units,
		ledger:    ledger,
		drugs:     drugs,
		capacity:  capacity,
		allocator: allocator,
		locker:    locker,
	}
}

func lotKey(lotID uint) string {
	return fmt.Sprintf("lot:%d", lotID)
}

// CheckIn creates a unit after confirming the lot has room for it. The lot
// lock is held from the capacity check until the ledger entry is written.
func (d *Dispenser) CheckIn(ctx context.Context, actor domain.Actor, req CheckInRequest) (result *CheckInResult, err error) {
	defer func() { checkinsTotal.WithLabelValues(outcomeOf(err)).Inc() }()

	available := req.TotalQuantity
	if req.AvailableQuantity != nil {
		available = *req.AvailableQuantity
	}
	switch {
	case req.TotalQuantity <= 0:
		return nil, domain.Invalid("total quantity must be positive, got %d", req.TotalQuantity)
	case available < 0 || available > req.TotalQuantity:
		return nil, domain.Invalid("available quantity %d must be between 0 and total %d", available, req.TotalQuantity)
	case req.ExpiryDate.IsZero():
		return nil, domain.Invalid("expiry date is required")
	case req.LotID == 0 || req.DrugID == 0:
		return nil, domain.Invalid("lot and drug are required")
	}
	if _, err := d.drugs.Resolve(ctx, domain.DrugMatcher{DrugID: req.DrugID}); err != nil {
		return nil, err
	}

	unlock, err := d.locker.Lock(ctx, lotKey(req.LotID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock lot %d: %w", req.LotID, err)
	}
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	status, err := d.capacity.Require(ctx, actor.ClinicID, req.LotID, req.TotalQuantity)
	if err != nil {
		return nil, err
	}

	unit := &domain.Unit{
		ClinicID:              actor.ClinicID,
		LotID:                 req.LotID,
		DrugID:                req.DrugID,
		TotalQuantity:         req.TotalQuantity,
		AvailableQuantity:     available,
		ExpiryDate:            req.ExpiryDate,
		ManufacturerLotNumber: strings.TrimSpace(req.ManufacturerLotNumber),
		Notes:                 req.Notes,
		CreatedBy:             actor.UserID,
	}
	if err := d.units.Create(ctx, unit); err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ClinicID: actor.ClinicID,
		UnitID:   unit.ID,
		Type:     domain.TransactionCheckIn,
		Quantity: unit.TotalQuantity,
		UserID:   actor.UserID,
		Notes:    req.Notes,
	}
	if err := d.ledger.Append(ctx, txn); err != nil {
		cause := error(&domain.LedgerWriteError{UnitID: unit.ID, Err: err})
		if discardErr := d.units.Discard(ctx, actor.ClinicID, unit.ID); discardErr != nil {
			rollbackFailuresTotal.Inc()
			logger.Error(ctx).
				Err(discardErr).
				Uint("unit_id", unit.ID).
				Uint("lot_id", req.LotID).
				Msg("Failed to discard unit after check-in ledger failure; reconcile manually")
			cause = errors.Join(cause, discardErr)
		}
		return nil, cause
	}

	status.Current += unit.TotalQuantity
	if status.Remaining != nil {
		remaining := *status.Remaining - unit.TotalQuantity
		status.Remaining = &remaining
	}
	status.Incoming = 0

	return &CheckInResult{Unit: *unit, Transaction: *txn, Capacity: *status}, nil
}

// CheckOutSpecific dispenses from a unit the caller identified directly
func (d *Dispenser) CheckOutSpecific(ctx context.Context, actor domain.Actor, unitID uint, quantity int, patient domain.PatientInfo, notes string) (*CheckoutResult, error) {
	start := time.Now()
	plan, err := d.allocator.PlanSpecific(ctx, actor.ClinicID, unitID, quantity)
	if err != nil {
		return nil, d.observe(ModeSpecific, start, nil, err)
	}
	result, err := d.apply(ctx, actor, plan, patient, notes)
	return result, d.observe(ModeSpecific, start, result, err)
}

// CheckOutFEFO dispenses quantity across units of the matched drug, earliest expiry first
func (d *Dispenser) CheckOutFEFO(ctx context.Context, actor domain.Actor, matcher domain.DrugMatcher, quantity int, patient domain.PatientInfo, notes string) (*CheckoutResult, error) {
	start := time.Now()
	plan, err := d.allocator.Plan(ctx, actor.ClinicID, matcher, quantity)
	if err != nil {
		return nil, d.observe(ModeFEFO, start, nil, err)
	}
	result, err := d.apply(ctx, actor, plan, patient, notes)
	return result, d.observe(ModeFEFO, start, result, err)
}

// Quarantine drains everything still available on a unit as a tagged checkout.
// The drained amount comes from the same atomic write that zeroes the unit.
func (d *Dispenser) Quarantine(ctx context.Context, actor domain.Actor, unitID uint, notes string) (*CheckoutResult, error) {
	start := time.Now()
	ctx = context.WithoutCancel(ctx)

	unit, drained, err := d.units.Drain(ctx, actor.ClinicID, unitID)
	if err != nil {
		return nil, d.observe(ModeQuarantine, start, nil, err)
	}
	if drained == 0 {
		err := fmt.Errorf("%w: unit %d has nothing left to quarantine", domain.ErrInsufficientQuantity, unit.ID)
		return nil, d.observe(ModeQuarantine, start, nil, err)
	}

	txn := domain.Transaction{
		ClinicID: actor.ClinicID,
		UnitID:   unit.ID,
		Type:     domain.TransactionCheckOut,
		Quantity: drained,
		UserID:   actor.UserID,
		Notes:    QuarantineNotes(notes),
	}
	if err := d.ledger.Append(ctx, &txn); err != nil {
		cause := d.restore(ctx, actor, unit.ID, drained, &domain.LedgerWriteError{UnitID: unit.ID, Err: err})
		return nil, d.observe(ModeQuarantine, start, nil, cause)
	}

	result := &CheckoutResult{
		Mode:           ModeQuarantine,
		TotalDispensed: drained,
		Records: []DispensationRecord{{
			UnitID:      unit.ID,
			Quantity:    drained,
			ExpiryDate:  unit.ExpiryDate,
			Remaining:   unit.AvailableQuantity,
			Transaction: txn,
		}},
	}
	return result, d.observe(ModeQuarantine, start, result, nil)
}

// QuarantineNotes prefixes notes with the quarantine marker
func QuarantineNotes(notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return domain.QuarantineNotePrefix + " removed from circulation"
	}
	return domain.QuarantineNotePrefix + " " + notes
}

func (d *Dispenser) observe(mode string, start time.Time, result *CheckoutResult, err error) error {
	checkoutsTotal.WithLabelValues(mode, outcomeOf(err)).Inc()
	checkoutDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if result != nil {
		unitsDispensedTotal.WithLabelValues(mode).Add(float64(result.TotalDispensed))
	}
	return err
}

type appliedStep struct {
	step AllocationStep
	txn  domain.Transaction
}

// apply runs the plan step by step. A failure at step i compensates step i
// and then steps i-1..0 in reverse before the error is returned.
func (d *Dispenser) apply(ctx context.Context, actor domain.Actor, plan *AllocationPlan, patient domain.PatientInfo, notes string) (*CheckoutResult, error) {
	// a caller timeout must not strand a half-applied plan
	ctx = context.WithoutCancel(ctx)

	result := &CheckoutResult{Mode: plan.Mode, Records: make([]DispensationRecord, 0, len(plan.Steps))}
	applied := make([]appliedStep, 0, len(plan.Steps))

	for i, step := range plan.Steps {
		remaining, err := d.units.TryDecrement(ctx, actor.ClinicID, step.UnitID, step.Quantity)
		if err != nil {
			return nil, d.rollback(ctx, actor, plan.Mode, applied, d.decrementFailure(plan.Mode, step, err))
		}

		txn := domain.Transaction{
			ClinicID:         actor.ClinicID,
			UnitID:           step.UnitID,
			Type:             domain.TransactionCheckOut,
			Quantity:         step.Quantity,
			UserID:           actor.UserID,
			PatientName:      patient.Name,
			PatientReference: patient.Reference,
			Notes:            notes,
		}
		if err := d.ledger.Append(ctx, &txn); err != nil {
			cause := d.restore(ctx, actor, step.UnitID, step.Quantity,
				&domain.LedgerWriteError{UnitID: step.UnitID, Step: i, Err: err})
			return nil, d.rollback(ctx, actor, plan.Mode, applied, cause)
		}

		applied = append(applied, appliedStep{step: step, txn: txn})
		result.Records = append(result.Records, DispensationRecord{
			UnitID:      step.UnitID,
			Quantity:    step.Quantity,
			ExpiryDate:  step.ExpiryDate,
			Remaining:   remaining,
			Transaction: txn,
		})
		result.TotalDispensed += step.Quantity
	}

	return result, nil
}

// restore gives back quantity whose ledger entry could not be written. The
// unit had no entry for it, so no reversal is recorded.
func (d *Dispenser) restore(ctx context.Context, actor domain.Actor, unitID uint, quantity int, cause error) error {
	if _, err := d.units.Increment(ctx, actor.ClinicID, unitID, quantity); err != nil {
		rollbackFailuresTotal.Inc()
		logger.Error(ctx).
			Err(err).
			Uint("unit_id", unitID).
			Int("quantity", quantity).
			Msg("Failed to restore unit after ledger failure; reconcile manually")
		return errors.Join(cause, err)
	}
	return cause
}

// decrementFailure classifies a TryDecrement error raised after planning.
// Only specific checkouts surface the unit shortfall; elsewhere it means the
// plan went stale under a concurrent writer.
func (d *Dispenser) decrementFailure(mode string, step AllocationStep, err error) error {
	if mode != ModeSpecific && errors.Is(err, domain.ErrInsufficientQuantity) {
		return fmt.Errorf("%w: unit %d changed while applying plan: %v",
			domain.ErrConcurrentModification, step.UnitID, err)
	}
	return err
}

// rollback compensates applied steps in reverse order. Each restored step gets
// an adjust entry that references the check_out it reverses.
func (d *Dispenser) rollback(ctx context.Context, actor domain.Actor, mode string, applied []appliedStep, cause error) error {
	if len(applied) == 0 {
		return cause
	}
	rollbacksTotal.WithLabelValues(mode).Inc()

	var failures []error
	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		if _, err := d.units.Increment(ctx, actor.ClinicID, a.step.UnitID, a.step.Quantity); err != nil {
			rollbackFailuresTotal.Inc()
			logger.Error(ctx).
				Err(err).
				Uint("unit_id", a.step.UnitID).
				Uint("transaction_id", a.txn.ID).
				Int("quantity", a.step.Quantity).
				Msg("Rollback could not restore unit; reconcile manually")
			failures = append(failures, fmt.Errorf("restore unit %d: %w", a.step.UnitID, err))
			continue
		}

		reverses := a.txn.ID
		reversal := &domain.Transaction{
			ClinicID:   actor.ClinicID,
			UnitID:     a.step.UnitID,
			Type:       domain.TransactionAdjust,
			Quantity:   a.step.Quantity,
			UserID:     actor.UserID,
			Notes:      fmt.Sprintf("reversal of transaction %d: %s", reverses, errorKind(cause)),
			ReversesID: &reverses,
		}
		if err := d.ledger.Append(ctx, reversal); err != nil {
			rollbackFailuresTotal.Inc()
			logger.Error(ctx).
				Err(err).
				Uint("unit_id", a.step.UnitID).
				Uint("transaction_id", a.txn.ID).
				Msg("Rollback restored unit but could not record the reversal; reconcile manually")
			failures = append(failures, fmt.Errorf("record reversal of transaction %d: %w", reverses, err))
		}
	}

	logger.Warn(ctx).
		Err(cause).
		Str("mode", mode).
		Int("steps_rolled_back", len(applied)).
		Int("rollback_failures", len(failures)).
		Msg("Checkout rolled back")

	if len(failures) > 0 {
		return errors.Join(append([]error{cause}, failures...)...)
	}
	return cause
}

// AdjustUnit applies an administrative correction and records it as an adjust
// entry carrying the signed changes of available and total quantity.
func (d *Dispenser) AdjustUnit(ctx context.Context, actor domain.Actor, unitID uint, correction domain.UnitCorrection, reason string) (*AdjustResult, error) {
	if correction.IsEmpty() {
		return nil, domain.Invalid("correction changes nothing")
	}
	if correction.TotalQuantity != nil && *correction.TotalQuantity <= 0 {
		return nil, domain.Invalid("total quantity must be positive, got %d", *correction.TotalQuantity)
	}
	if correction.ExpiryDate != nil && correction.ExpiryDate.IsZero() {
		return nil, domain.Invalid("expiry date cannot be cleared")
	}

	unit, err := d.units.FindByID(ctx, actor.ClinicID, unitID)
	if err != nil {
		return nil, err
	}
	corrected := correction.Apply(*unit)
	if corrected.AvailableQuantity < 0 || corrected.AvailableQuantity > corrected.TotalQuantity {
		return nil, domain.Invalid("available quantity %d must be between 0 and total %d",
			corrected.AvailableQuantity, corrected.TotalQuantity)
	}

	if growth := corrected.TotalQuantity - unit.TotalQuantity; growth > 0 {
		unlock, err := d.locker.Lock(ctx, lotKey(unit.LotID))
		if err != nil {
			return nil, fmt.Errorf("failed to lock lot %d: %w", unit.LotID, err)
		}
		defer unlock()
		if _, err := d.capacity.Require(ctx, actor.ClinicID, unit.LotID, growth); err != nil {
			return nil, err
		}
	}
	ctx = context.WithoutCancel(ctx)

	saved, err := d.units.SetQuantities(ctx, actor.ClinicID, unit.ID, unit.Quantities(), correction)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ClinicID:   actor.ClinicID,
		UnitID:     unit.ID,
		Type:       domain.TransactionAdjust,
		Quantity:   saved.AvailableQuantity - unit.AvailableQuantity,
		TotalDelta: saved.TotalQuantity - unit.TotalQuantity,
		UserID:     actor.UserID,
		Notes:      strings.TrimSpace(reason),
	}
	if err := d.ledger.Append(ctx, txn); err != nil {
		cause := error(&domain.LedgerWriteError{UnitID: unit.ID, Err: err})
		revert := domain.UnitCorrection{
			TotalQuantity:     &unit.TotalQuantity,
			AvailableQuantity: &unit.AvailableQuantity,
			ExpiryDate:        &unit.ExpiryDate,
			Notes:             &unit.Notes,
		}
		if _, revErr := d.units.SetQuantities(ctx, actor.ClinicID, unit.ID, saved.Quantities(), revert); revErr != nil {
			rollbackFailuresTotal.Inc()
			logger.Error(ctx).
				Err(revErr).
				Uint("unit_id", unit.ID).
				Msg("Failed to revert adjustment after ledger failure; reconcile manually")
			cause = errors.Join(cause, revErr)
		}
		return nil, cause
	}

	return &AdjustResult{Unit: *saved, Previous: *unit, Transaction: *txn}, nil
}

// Preview returns the FEFO plan a checkout would apply without applying it
func (d *Dispenser) Preview(ctx context.Context, actor domain.Actor, matcher domain.DrugMatcher, quantity int) (*AllocationPlan, error) {
	return d.allocator.Plan(ctx, actor.ClinicID, matcher, quantity)
}

// CheckCapacity exposes the capacity ledger to read paths
func (d *Dispenser) CheckCapacity(ctx context.Context, actor domain.Actor, lotID uint, incoming int) (*CapacityStatus, error) {
	return d.capacity.CheckCapacity(ctx, actor.ClinicID, lotID, incoming)
}
