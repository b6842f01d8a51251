package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/clinic-dispensary/internal/dispensary/catalog"
	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/internal/dispensary/repository/memory"
	"github.com/tair/clinic-dispensary/pkg/lock"
)

var staff = domain.Actor{UserID: 4, ClinicID: 1}

type harness struct {
	store     *memory.Store
	dispenser *engine.Dispenser
	drug      *domain.Drug
	lot       *domain.Lot
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	resolver := catalog.NewResolver(store.Drugs(), nil)
	drug, _, err := resolver.Register(ctx, &domain.Drug{Name: "Metformin", Strength: decimal.NewFromInt(500), StrengthUnit: "mg", NDC: "0378-0234"})
	if err != nil {
		t.Fatalf("register drug: %v", err)
	}
	max := 50
	lot := &domain.Lot{ClinicID: staff.ClinicID, Source: "pharmacy return", MaxCapacity: &max, LocationID: 1}
	if err := store.Lots().Create(ctx, lot); err != nil {
		t.Fatalf("create lot: %v", err)
	}
	units := store.Units()
	dispenser := engine.NewDispenser(units, store.Transactions(), resolver,
		engine.NewCapacityLedger(store.Lots(), units), engine.NewAllocator(units, resolver), lock.NewLocalLocker())
	return &harness{store: store, dispenser: dispenser, drug: drug, lot: lot}
}

func (h *harness) checkIn(t *testing.T, qty int, expiry time.Time) domain.Unit {
	t.Helper()
	res, err := h.dispenser.CheckIn(context.Background(), staff, engine.CheckInRequest{
		LotID: h.lot.ID, DrugID: h.drug.ID, TotalQuantity: qty, ExpiryDate: expiry,
	})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	return res.Unit
}

func TestGetUnitIsClinicScoped(t *testing.T) {
	h := newHarness(t)
	unit := h.checkIn(t, 10, time.Now().AddDate(1, 0, 0))
	handler := NewGetUnitHandler(h.store.Units())

	got, err := handler.Handle(context.Background(), GetUnitQuery{Actor: staff, UnitID: unit.ID})
	if err != nil || got.ID != unit.ID {
		t.Fatalf("expected unit %d, got %v (%v)", unit.ID, got, err)
	}
	_, err = handler.Handle(context.Background(), GetUnitQuery{Actor: domain.Actor{UserID: 1, ClinicID: 2}, UnitID: unit.ID})
	if !errors.Is(err, domain.ErrUnitNotFound) {
		t.Fatalf("expected not found across clinics, got %v", err)
	}
}

func TestListUnitTransactions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	unit := h.checkIn(t, 10, time.Now().AddDate(1, 0, 0))
	for i := 0; i < 3; i++ {
		if _, err := h.dispenser.CheckOutSpecific(ctx, staff, unit.ID, 1, domain.PatientInfo{}, ""); err != nil {
			t.Fatalf("checkout: %v", err)
		}
	}
	handler := NewListUnitTransactionsHandler(h.store.Units(), h.store.Transactions())

	txns, err := handler.Handle(ctx, ListUnitTransactionsQuery{Actor: staff, UnitID: unit.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(txns))
	}
	if txns[0].Type != domain.TransactionCheckOut || txns[3].Type != domain.TransactionCheckIn {
		t.Fatalf("expected newest first, got %s ... %s", txns[0].Type, txns[3].Type)
	}

	page, err := handler.Handle(ctx, ListUnitTransactionsQuery{Actor: staff, UnitID: unit.ID, Limit: 2, Offset: 2})
	if err != nil || len(page) != 2 || page[1].Type != domain.TransactionCheckIn {
		t.Fatalf("unexpected page: %+v (%v)", page, err)
	}

	if _, err := handler.Handle(ctx, ListUnitTransactionsQuery{Actor: staff, UnitID: 999}); !errors.Is(err, domain.ErrUnitNotFound) {
		t.Fatalf("expected unit not found, got %v", err)
	}
	if _, err := handler.Handle(ctx, ListUnitTransactionsQuery{Actor: staff, UnitID: unit.ID, Offset: -1}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid offset, got %v", err)
	}
}

func TestCheckCapacityQuery(t *testing.T) {
	h := newHarness(t)
	h.checkIn(t, 30, time.Now().AddDate(1, 0, 0))
	handler := NewCheckCapacityHandler(h.dispenser)

	status, err := handler.Handle(context.Background(), CheckCapacityQuery{Actor: staff, LotID: h.lot.ID, Incoming: 25})
	if err != nil {
		t.Fatalf("check capacity: %v", err)
	}
	if status.OK || status.Current != 30 || status.Remaining == nil || *status.Remaining != 20 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if _, err := handler.Handle(context.Background(), CheckCapacityQuery{LotID: h.lot.ID}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected missing actor rejected, got %v", err)
	}
}

func TestPreviewFEFODoesNotMutate(t *testing.T) {
	h := newHarness(t)
	early := h.checkIn(t, 4, time.Now().AddDate(0, 2, 0))
	h.checkIn(t, 8, time.Now().AddDate(0, 9, 0))

	plan, err := NewPreviewFEFOHandler(h.dispenser).Handle(context.Background(), PreviewFEFOQuery{
		Actor: staff, Drug: domain.DrugMatcher{DrugID: h.drug.ID}, Quantity: 6,
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(plan.Steps) != 2 || plan.Steps[0].UnitID != early.ID || plan.Steps[0].Quantity != 4 || plan.Total() != 6 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	got, _ := h.store.Units().FindByID(context.Background(), staff.ClinicID, early.ID)
	if got.AvailableQuantity != 4 {
		t.Fatalf("preview must not decrement, got %d", got.AvailableQuantity)
	}
}
