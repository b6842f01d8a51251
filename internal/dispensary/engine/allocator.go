package engine

import (
	"context"
	"sort"
	"time"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
)

// AllocationStep is one (unit, quantity) pair of a plan
type AllocationStep struct {
	UnitID          uint      `json:"unit_id"`
	DrugID          uint      `json:"drug_id"`
	Quantity        int       `json:"quantity"`
	ExpiryDate      time.Time `json:"expiry_date"`
	AvailableBefore int       `json:"available_before"`
}

// AllocationPlan is an ordered consumption plan whose steps sum to Requested
type AllocationPlan struct {
	Mode      string           `json:"mode"`
	DrugIDs   []uint           `json:"drug_ids,omitempty"`
	Requested int              `json:"requested"`
	Steps     []AllocationStep `json:"steps"`
}

// Total is the quantity the plan draws
func (p *AllocationPlan) Total() int {
	total := 0
	for _, s := range p.Steps {
		total += s.Quantity
	}
	return total
}

// Allocator builds FEFO plans over the current unit state
type Allocator struct {
	units       domain.UnitRepository
	resolver    domain.DrugResolver
	skipExpired bool
	now         func() time.Time
}

type AllocatorOption func(*Allocator)

// WithSkipExpired excludes units that expired before today from FEFO plans
func WithSkipExpired(skip bool) AllocatorOption {
	return func(a *Allocator) { a.skipExpired = skip }
}

// WithClock overrides the clock used for expiry checks
func WithClock(now func() time.Time) AllocatorOption {
	return func(a *Allocator) { a.now = now }
}

func NewAllocator(units domain.UnitRepository, resolver domain.DrugResolver, opts ...AllocatorOption) *Allocator {
	a := &Allocator{units: units, resolver: resolver, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Plan selects units for a FEFO checkout. It is all-or-nothing: when stock
// cannot cover quantity it returns *domain.InsufficientStockError and no plan.
func (a *Allocator) Plan(ctx context.Context, clinicID uint, matcher domain.DrugMatcher, quantity int) (*AllocationPlan, error) {
	if quantity <= 0 {
		return nil, domain.Invalid("quantity must be positive, got %d", quantity)
	}
	drugIDs, err := a.resolver.Resolve(ctx, matcher)
	if err != nil {
		return nil, err
	}

	units, err := a.units.ListAvailable(ctx, clinicID, drugIDs)
	if err != nil {
		return nil, err
	}
	if a.skipExpired {
		units = a.dropExpired(units)
	}
	sortFEFO(units)

	steps, available := greedy(units, quantity)
	if available < quantity {
		return nil, &domain.InsufficientStockError{Requested: quantity, Available: available}
	}
	return &AllocationPlan{Mode: ModeFEFO, DrugIDs: drugIDs, Requested: quantity, Steps: steps}, nil
}

// PlanSpecific builds a one-step plan against a unit the caller already picked
func (a *Allocator) PlanSpecific(ctx context.Context, clinicID, unitID uint, quantity int) (*AllocationPlan, error) {
	if quantity <= 0 {
		return nil, domain.Invalid("quantity must be positive, got %d", quantity)
	}
	unit, err := a.units.FindByID(ctx, clinicID, unitID)
	if err != nil {
		return nil, err
	}
	if quantity > unit.AvailableQuantity {
		return nil, &domain.InsufficientQuantityError{UnitID: unit.ID, Requested: quantity, Available: unit.AvailableQuantity}
	}
	return &AllocationPlan{
		Mode:      ModeSpecific,
		DrugIDs:   []uint{unit.DrugID},
		Requested: quantity,
		Steps:     []AllocationStep{stepFor(*unit, quantity)},
	}, nil
}

func (a *Allocator) dropExpired(units []domain.Unit) []domain.Unit {
	y, m, d := a.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	kept := units[:0]
	for _, u := range units {
		if !u.ExpiryDate.Before(today) {
			kept = append(kept, u)
		}
	}
	return kept
}

// sortFEFO orders by expiry, then receipt time, then id
func sortFEFO(units []domain.Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// greedy drains sorted units until quantity is covered. It returns the steps
// taken and the total available across all units.
func greedy(units []domain.Unit, quantity int) ([]AllocationStep, int) {
	var (
		steps     []AllocationStep
		remaining = quantity
		available int
	)
	for _, u := range units {
		if u.AvailableQuantity <= 0 {
			continue
		}
		available += u.AvailableQuantity
		if remaining == 0 {
			continue
		}
		take := min(remaining, u.AvailableQuantity)
		steps = append(steps, stepFor(u, take))
		remaining -= take
	}
	return steps, available
}

func stepFor(u domain.Unit, quantity int) AllocationStep {
	return AllocationStep{
		UnitID:          u.ID,
		DrugID:          u.DrugID,
		Quantity:        quantity,
		ExpiryDate:      u.ExpiryDate,
		AvailableBefore: u.AvailableQuantity,
	}
}
