package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors of the dispensary engine. Detail errors below match them
// through errors.Is.
var (
	ErrCapacityExceeded       = errors.New("lot capacity exceeded")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInsufficientQuantity   = errors.New("insufficient quantity on unit")
	ErrUnitNotFound           = errors.New("unit not found")
	ErrLotNotFound            = errors.New("lot not found")
	ErrDrugNotFound           = errors.New("drug not found")
	ErrLocationNotFound       = errors.New("location not found")
	ErrLedgerWriteFailed      = errors.New("ledger write failed")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvalidArgument        = errors.New("invalid argument")
)

// CapacityExceededError reports a check-in that would overflow a lot
type CapacityExceededError struct {
	LotID     uint
	Attempted int
	Current   int
	Max       int
	Remaining int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("lot %d capacity exceeded: attempted %d, current %d of %d, remaining %d",
		e.LotID, e.Attempted, e.Current, e.Max, e.Remaining)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// InsufficientStockError reports that no FEFO plan could cover the request
type InsufficientStockError struct {
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Shortfall is how much of the request could not be covered
func (e *InsufficientStockError) Shortfall() int { return e.Requested - e.Available }

// InsufficientQuantityError reports a shortfall on one specific unit
type InsufficientQuantityError struct {
	UnitID    uint
	Requested int
	Available int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("unit %d has insufficient quantity: requested %d, available %d",
		e.UnitID, e.Requested, e.Available)
}

func (e *InsufficientQuantityError) Is(target error) bool { return target == ErrInsufficientQuantity }

// Shortfall is how much of the request could not be covered
func (e *InsufficientQuantityError) Shortfall() int { return e.Requested - e.Available }

// LedgerWriteError reports a ledger append that failed after its quantity
// mutation was applied. The mutation has been compensated when it is returned.
type LedgerWriteError struct {
	UnitID uint
	Step   int
	Err    error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("ledger write for unit %d (step %d) failed: %v", e.UnitID, e.Step, e.Err)
}

func (e *LedgerWriteError) Is(target error) bool { return target == ErrLedgerWriteFailed }

func (e *LedgerWriteError) Unwrap() error { return e.Err }

// Invalid wraps ErrInvalidArgument with a message
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
