package engine

import (
	"errors"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/pkg/lock"
)

// errorKind names the domain error class of err for metrics and logs
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return "insufficient_quantity"
	case errors.Is(err, domain.ErrLedgerWriteFailed):
		return "ledger_write_failed"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, domain.ErrUnitNotFound),
		errors.Is(err, domain.ErrLotNotFound),
		errors.Is(err, domain.ErrDrugNotFound),
		errors.Is(err, domain.ErrLocationNotFound):
		return "not_found"
	case errors.Is(err, lock.ErrNotAcquired):
		return "lock_timeout"
	default:
		return "error"
	}
}
