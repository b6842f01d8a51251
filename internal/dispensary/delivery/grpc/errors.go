package grpc

import (
	"errors"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/pkg/lock"
)

const errorDomain = "dispensary"

// toStatus maps engine errors to gRPC status codes. Shortfalls travel as
// ErrorInfo metadata.
func toStatus(err error) error {
	var (
		capErr   *domain.CapacityExceededError
		stockErr *domain.InsufficientStockError
		qtyErr   *domain.InsufficientQuantityError
	)

	switch {
	case errors.As(err, &capErr):
		return withInfo(codes.FailedPrecondition, err, "CAPACITY_EXCEEDED", map[string]string{
			"lot_id":           strconv.FormatUint(uint64(capErr.LotID), 10),
			"attempted":        strconv.Itoa(capErr.Attempted),
			"current_capacity": strconv.Itoa(capErr.Current),
			"max_capacity":     strconv.Itoa(capErr.Max),
			"remaining":        strconv.Itoa(capErr.Remaining),
		})
	case errors.As(err, &stockErr):
		return withInfo(codes.FailedPrecondition, err, "INSUFFICIENT_STOCK", map[string]string{
			"requested": strconv.Itoa(stockErr.Requested),
			"available": strconv.Itoa(stockErr.Available),
			"shortfall": strconv.Itoa(stockErr.Shortfall()),
		})
	case errors.As(err, &qtyErr):
		return withInfo(codes.FailedPrecondition, err, "INSUFFICIENT_QUANTITY", map[string]string{
			"unit_id":   strconv.FormatUint(uint64(qtyErr.UnitID), 10),
			"requested": strconv.Itoa(qtyErr.Requested),
			"available": strconv.Itoa(qtyErr.Available),
			"shortfall": strconv.Itoa(qtyErr.Shortfall()),
		})
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrUnitNotFound),
		errors.Is(err, domain.ErrLotNotFound),
		errors.Is(err, domain.ErrDrugNotFound),
		errors.Is(err, domain.ErrLocationNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrConcurrentModification):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, lock.ErrNotAcquired), errors.Is(err, domain.ErrLedgerWriteFailed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Errorf(codes.Internal, "internal error: %v", err)
	}
}

func withInfo(code codes.Code, err error, reason string, metadata map[string]string) error {
	st := status.New(code, err.Error())
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   errorDomain,
		Metadata: metadata,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}
