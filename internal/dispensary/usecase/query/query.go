package query

import (
	"context"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
)

// Pagination bounds for ledger listings
const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 500
)

// GetUnitQuery represents the query to get a unit by ID
type GetUnitQuery struct {
	Actor  domain.Actor
	UnitID uint
}

// GetUnitHandler handles get unit query
type GetUnitHandler struct {
	repo domain.UnitRepository
}

// NewGetUnitHandler creates a new get unit handler
func NewGetUnitHandler(repo domain.UnitRepository) *GetUnitHandler {
	return &GetUnitHandler{repo: repo}
}

// Handle executes the get unit query
func (h *GetUnitHandler) Handle(ctx context.Context, q GetUnitQuery) (*domain.Unit, error) {
	if err := q.Actor.Validate(); err != nil {
		return nil, err
	}
	return h.repo.FindByID(ctx, q.Actor.ClinicID, q.UnitID)
}

// ListUnitTransactionsQuery lists the ledger of one unit, newest first
type ListUnitTransactionsQuery struct {
	Actor  domain.Actor
	UnitID uint
	Limit  int
	Offset int
}

type ListUnitTransactionsHandler struct {
	units  domain.UnitRepository
	ledger domain.TransactionRepository
}

func NewListUnitTransactionsHandler(units domain.UnitRepository, ledger domain.TransactionRepository) *ListUnitTransactionsHandler {
	return &ListUnitTransactionsHandler{units: units, ledger: ledger}
}

// Handle executes the listing. An unknown or foreign unit is not found
// rather than an empty page.
func (h *ListUnitTransactionsHandler) Handle(ctx context.Context, q ListUnitTransactionsQuery) ([]domain.Transaction, error) {
	if err := q.Actor.Validate(); err != nil {
		return nil, err
	}
	if q.Offset < 0 {
		return nil, domain.Invalid("offset must not be negative")
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultTransactionLimit
	case q.Limit > MaxTransactionLimit:
		q.Limit = MaxTransactionLimit
	}

	if _, err := h.units.FindByID(ctx, q.Actor.ClinicID, q.UnitID); err != nil {
		return nil, err
	}
	return h.ledger.ListForUnit(ctx, q.Actor.ClinicID, q.UnitID, q.Limit, q.Offset)
}

// CheckCapacityQuery asks whether incoming more units fit a lot
type CheckCapacityQuery struct {
	Actor    domain.Actor
	LotID    uint
	Incoming int
}

type CheckCapacityHandler struct {
	dispenser *engine.Dispenser
}

func NewCheckCapacityHandler(dispenser *engine.Dispenser) *CheckCapacityHandler {
	return &CheckCapacityHandler{dispenser: dispenser}
}

func (h *CheckCapacityHandler) Handle(ctx context.Context, q CheckCapacityQuery) (*engine.CapacityStatus, error) {
	if err := q.Actor.Validate(); err != nil {
		return nil, err
	}
	return h.dispenser.CheckCapacity(ctx, q.Actor, q.LotID, q.Incoming)
}

// PreviewFEFOQuery computes the plan a FEFO checkout would apply
type PreviewFEFOQuery struct {
	Actor    domain.Actor
	Drug     domain.DrugMatcher
	Quantity int
}

type PreviewFEFOHandler struct {
	dispenser *engine.Dispenser
}

func NewPreviewFEFOHandler(dispenser *engine.Dispenser) *PreviewFEFOHandler {
	return &PreviewFEFOHandler{dispenser: dispenser}
}

func (h *PreviewFEFOHandler) Handle(ctx context.Context, q PreviewFEFOQuery) (*engine.AllocationPlan, error) {
	if err := q.Actor.Validate(); err != nil {
		return nil, err
	}
	return h.dispenser.Preview(ctx, q.Actor, q.Drug, q.Quantity)
}
