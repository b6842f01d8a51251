package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/pkg/lock"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// respondDomainError maps engine errors to a status code. Shortfalls are
// returned in the data object so clients can offer a smaller quantity.
func respondDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		capErr   *domain.CapacityExceededError
		stockErr *domain.InsufficientStockError
		qtyErr   *domain.InsufficientQuantityError
	)

	switch {
	case errors.As(err, &capErr):
		respondJSON(w, http.StatusConflict, Response{
			Success: false,
			Error:   err.Error(),
			Data: map[string]interface{}{
				"lot_id":           capErr.LotID,
				"attempted":        capErr.Attempted,
				"current_capacity": capErr.Current,
				"max_capacity":     capErr.Max,
				"remaining":        capErr.Remaining,
			},
		})
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, Response{
			Success: false,
			Error:   err.Error(),
			Data: map[string]interface{}{
				"requested": stockErr.Requested,
				"available": stockErr.Available,
				"shortfall": stockErr.Shortfall(),
			},
		})
	case errors.As(err, &qtyErr):
		respondJSON(w, http.StatusConflict, Response{
			Success: false,
			Error:   err.Error(),
			Data: map[string]interface{}{
				"unit_id":   qtyErr.UnitID,
				"requested": qtyErr.Requested,
				"available": qtyErr.Available,
				"shortfall": qtyErr.Shortfall(),
			},
		})
	case errors.Is(err, domain.ErrInsufficientQuantity), errors.Is(err, domain.ErrConcurrentModification):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnitNotFound),
		errors.Is(err, domain.ErrLotNotFound),
		errors.Is(err, domain.ErrDrugNotFound),
		errors.Is(err, domain.ErrLocationNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lock.ErrNotAcquired), errors.Is(err, domain.ErrLedgerWriteFailed):
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error(ctx).Err(err).Msg("Unhandled dispensary error")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
