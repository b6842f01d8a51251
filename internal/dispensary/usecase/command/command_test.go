package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/clinic-dispensary/internal/dispensary/catalog"
	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/internal/dispensary/repository/memory"
	"github.com/tair/clinic-dispensary/kafka"
	"github.com/tair/clinic-dispensary/pkg/lock"
)

var staff = domain.Actor{UserID: 3, ClinicID: 1}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.DispensationEvent
	err    error
}

func (p *recordingPublisher) PublishDispensation(_ context.Context, event kafka.DispensationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type harness struct {
	store     *memory.Store
	resolver  *catalog.Resolver
	dispenser *engine.Dispenser
	events    *recordingPublisher
	drug      *domain.Drug
	lot       *domain.Lot
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	resolver := catalog.NewResolver(store.Drugs(), catalog.NewMapCache())
	drug, _, err := resolver.Register(ctx, &domain.Drug{Name: "Ibuprofen", Strength: decimal.NewFromInt(200), StrengthUnit: "mg", NDC: "0904-5853"})
	if err != nil {
		t.Fatalf("register drug: %v", err)
	}
	location := &domain.Location{ClinicID: staff.ClinicID, Name: "Shelf A", Temperature: domain.TemperatureRoomTemperature}
	if err := store.Locations().Create(ctx, location); err != nil {
		t.Fatalf("create location: %v", err)
	}
	max := 100
	lot := &domain.Lot{ClinicID: staff.ClinicID, Source: "donation", MaxCapacity: &max, LocationID: location.ID}
	if err := store.Lots().Create(ctx, lot); err != nil {
		t.Fatalf("create lot: %v", err)
	}

	units := store.Units()
	dispenser := engine.NewDispenser(
		units,
		store.Transactions(),
		resolver,
		engine.NewCapacityLedger(store.Lots(), units),
		engine.NewAllocator(units, resolver),
		lock.NewLocalLocker(),
	)
	return &harness{store: store, resolver: resolver, dispenser: dispenser, events: &recordingPublisher{}, drug: drug, lot: lot}
}

func (h *harness) checkIn(t *testing.T, qty int, expiry time.Time) *engine.CheckInResult {
	t.Helper()
	res, err := NewCheckInHandler(h.dispenser, h.events).Handle(context.Background(), CheckInCommand{
		Actor: staff, LotID: h.lot.ID, DrugID: h.drug.ID, TotalQuantity: qty, ExpiryDate: expiry,
	})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	return res
}

func TestCheckInPublishesEvent(t *testing.T) {
	h := newHarness(t)
	res := h.checkIn(t, 30, time.Now().AddDate(1, 0, 0))

	if res.Capacity.Remaining == nil || *res.Capacity.Remaining != 70 {
		t.Fatalf("expected remaining capacity 70, got %+v", res.Capacity)
	}
	if len(h.events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(h.events.events))
	}
	ev := h.events.events[0]
	if ev.EventType != kafka.EventTypeUnitCheckedIn || ev.UnitID != res.Unit.ID || ev.Quantity != 30 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestCheckInRejectsMissingFields(t *testing.T) {
	h := newHarness(t)
	handler := NewCheckInHandler(h.dispenser, nil)

	cases := []struct {
		name string
		cmd  CheckInCommand
	}{
		{"no actor", CheckInCommand{LotID: h.lot.ID, DrugID: h.drug.ID, TotalQuantity: 1}},
		{"no lot", CheckInCommand{Actor: staff, DrugID: h.drug.ID, TotalQuantity: 1}},
		{"no drug", CheckInCommand{Actor: staff, LotID: h.lot.ID, TotalQuantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := handler.Handle(context.Background(), tc.cmd); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestCheckInCapacityErrorSurvivesWrapping(t *testing.T) {
	h := newHarness(t)
	h.checkIn(t, 90, time.Now().AddDate(1, 0, 0))

	_, err := NewCheckInHandler(h.dispenser, h.events).Handle(context.Background(), CheckInCommand{
		Actor: staff, LotID: h.lot.ID, DrugID: h.drug.ID, TotalQuantity: 20, ExpiryDate: time.Now().AddDate(1, 0, 0),
	})
	var capErr *domain.CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if capErr.Remaining != 10 {
		t.Fatalf("expected remaining 10, got %d", capErr.Remaining)
	}
	if len(h.events.events) != 1 {
		t.Fatalf("rejected check-in must not publish, got %d events", len(h.events.events))
	}
}

func TestCheckOutFEFOPublishesTouchedUnits(t *testing.T) {
	h := newHarness(t)
	early := h.checkIn(t, 5, time.Now().AddDate(0, 1, 0))
	late := h.checkIn(t, 10, time.Now().AddDate(0, 6, 0))
	h.events.events = nil

	res, err := NewCheckOutFEFOHandler(h.dispenser, h.events).Handle(context.Background(), CheckOutFEFOCommand{
		Actor: staff, Drug: domain.DrugMatcher{NDC: h.drug.NDC}, Quantity: 8,
		Patient: domain.PatientInfo{Name: "J. Doe"},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.TotalDispensed != 8 || len(res.Records) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	ev := h.events.events[0]
	if ev.EventType != kafka.EventTypeUnitCheckedOut || ev.Mode != engine.ModeFEFO {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(ev.UnitIDs) != 2 || ev.UnitIDs[0] != early.Unit.ID || ev.UnitIDs[1] != late.Unit.ID {
		t.Fatalf("expected units in FEFO order, got %v", ev.UnitIDs)
	}
	if ev.UnitID != 0 {
		t.Fatalf("multi-unit event should not carry a single unit id")
	}
}

func TestCheckOutFEFOValidation(t *testing.T) {
	h := newHarness(t)
	handler := NewCheckOutFEFOHandler(h.dispenser, nil)
	if _, err := handler.Handle(context.Background(), CheckOutFEFOCommand{Actor: staff, Quantity: 1}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty matcher, got %v", err)
	}
	if _, err := handler.Handle(context.Background(), CheckOutFEFOCommand{Actor: staff, Drug: domain.DrugMatcher{DrugID: h.drug.ID}}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for zero quantity, got %v", err)
	}
}

func TestPublishFailureDoesNotFailCheckout(t *testing.T) {
	h := newHarness(t)
	unit := h.checkIn(t, 10, time.Now().AddDate(1, 0, 0))
	h.events.err = errors.New("broker down")

	res, err := NewCheckOutSpecificHandler(h.dispenser, h.events).Handle(context.Background(), CheckOutSpecificCommand{
		Actor: staff, UnitID: unit.Unit.ID, Quantity: 4,
	})
	if err != nil {
		t.Fatalf("checkout should commit despite publish failure: %v", err)
	}
	if res.Records[0].Remaining != 6 {
		t.Fatalf("expected 6 remaining, got %d", res.Records[0].Remaining)
	}
}

func TestCheckOutSpecificShortfall(t *testing.T) {
	h := newHarness(t)
	unit := h.checkIn(t, 3, time.Now().AddDate(1, 0, 0))

	_, err := NewCheckOutSpecificHandler(h.dispenser, nil).Handle(context.Background(), CheckOutSpecificCommand{
		Actor: staff, UnitID: unit.Unit.ID, Quantity: 5,
	})
	var qtyErr *domain.InsufficientQuantityError
	if !errors.As(err, &qtyErr) || qtyErr.Shortfall() != 2 {
		t.Fatalf("expected shortfall of 2, got %v", err)
	}
}

func TestQuarantineHandleRequest(t *testing.T) {
	h := newHarness(t)
	unit := h.checkIn(t, 12, time.Now().AddDate(1, 0, 0))
	h.events.events = nil

	handler := NewQuarantineHandler(h.dispenser, h.events)
	err := handler.HandleRequest(context.Background(), kafka.QuarantineRequestedEvent{
		ClinicID: staff.ClinicID, UnitID: unit.Unit.ID, RequestedBy: staff.UserID, Reason: "recall",
	})
	if err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	got, _ := h.store.Units().FindByID(context.Background(), staff.ClinicID, unit.Unit.ID)
	if got.AvailableQuantity != 0 {
		t.Fatalf("expected unit drained, got %d", got.AvailableQuantity)
	}
	if h.events.events[0].EventType != kafka.EventTypeUnitQuarantined || h.events.events[0].Quantity != 12 {
		t.Fatalf("unexpected event: %+v", h.events.events[0])
	}

	err = handler.HandleRequest(context.Background(), kafka.QuarantineRequestedEvent{ClinicID: staff.ClinicID, UnitID: unit.Unit.ID, RequestedBy: staff.UserID})
	if !errors.Is(err, domain.ErrInsufficientQuantity) || !kafka.IsPermanent(err) {
		t.Fatalf("expected empty unit to be rejected permanently, got %v", err)
	}

	err = handler.HandleRequest(context.Background(), kafka.QuarantineRequestedEvent{ClinicID: staff.ClinicID, UnitID: 9999, RequestedBy: staff.UserID})
	if !errors.Is(err, domain.ErrUnitNotFound) || !kafka.IsPermanent(err) {
		t.Fatalf("expected unknown unit to be rejected permanently, got %v", err)
	}
}

func TestAdjustUnitPublishesDelta(t *testing.T) {
	h := newHarness(t)
	unit := h.checkIn(t, 10, time.Now().AddDate(1, 0, 0))
	h.events.events = nil

	available := 7
	res, err := NewAdjustUnitHandler(h.dispenser, h.events).Handle(context.Background(), AdjustUnitCommand{
		Actor: staff, UnitID: unit.Unit.ID, Correction: domain.UnitCorrection{AvailableQuantity: &available}, Reason: "recount",
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if res.Transaction.Quantity != -3 || res.Unit.AvailableQuantity != 7 {
		t.Fatalf("unexpected adjust result: %+v", res)
	}
	if ev := h.events.events[0]; ev.EventType != kafka.EventTypeUnitAdjusted || ev.Quantity != -3 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestCreateLocationAndLot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	location, err := NewCreateLocationHandler(h.store.Locations()).Handle(ctx, CreateLocationCommand{Actor: staff, Name: " Fridge 2 ", Temperature: domain.TemperatureRefrigerated})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	if location.Name != "Fridge 2" {
		t.Fatalf("expected trimmed name, got %q", location.Name)
	}
	if _, err := NewCreateLocationHandler(h.store.Locations()).Handle(ctx, CreateLocationCommand{Actor: staff, Name: "Oven", Temperature: "hot"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid temperature, got %v", err)
	}

	lots := NewCreateLotHandler(h.store.Lots(), h.store.Locations())
	zero := 0
	if _, err := lots.Handle(ctx, CreateLotCommand{Actor: staff, Source: "drive", MaxCapacity: &zero, LocationID: location.ID}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected non-positive capacity rejected, got %v", err)
	}
	if _, err := lots.Handle(ctx, CreateLotCommand{Actor: staff, Source: "drive", LocationID: 999}); !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("expected location not found, got %v", err)
	}
	other := domain.Actor{UserID: 9, ClinicID: 2}
	if _, err := lots.Handle(ctx, CreateLotCommand{Actor: other, Source: "drive", LocationID: location.ID}); !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("expected other clinic's location to be invisible, got %v", err)
	}
	lot, err := lots.Handle(ctx, CreateLotCommand{Actor: staff, Source: "drive", LocationID: location.ID})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	if lot.MaxCapacity != nil || lot.ClinicID != staff.ClinicID {
		t.Fatalf("unexpected lot: %+v", lot)
	}
}

func TestRegisterDrugIdempotent(t *testing.T) {
	h := newHarness(t)
	handler := NewRegisterDrugHandler(h.resolver)
	drug, created, err := handler.Handle(context.Background(), RegisterDrugCommand{
		Actor: staff, Name: "Ibuprofen", Strength: decimal.NewFromInt(200), StrengthUnit: "mg", NDC: h.drug.NDC,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created || drug.ID != h.drug.ID {
		t.Fatalf("expected existing drug %d, got %d created=%v", h.drug.ID, drug.ID, created)
	}
}

type brokenLedger struct {
	domain.TransactionRepository
}

func (brokenLedger) Append(context.Context, *domain.Transaction) error {
	return errors.New("ledger unavailable")
}

func TestQuarantineHandleRequestTransientFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	unit := h.checkIn(t, 4, time.Now().AddDate(1, 0, 0))

	units := h.store.Units()
	dispenser := engine.NewDispenser(
		units,
		brokenLedger{h.store.Transactions()},
		h.resolver,
		engine.NewCapacityLedger(h.store.Lots(), units),
		engine.NewAllocator(units, h.resolver),
		lock.NewLocalLocker(),
	)
	err := NewQuarantineHandler(dispenser, nil).HandleRequest(context.Background(), kafka.QuarantineRequestedEvent{
		ClinicID: staff.ClinicID, UnitID: unit.Unit.ID, RequestedBy: staff.UserID,
	})
	if !errors.Is(err, domain.ErrLedgerWriteFailed) || kafka.IsPermanent(err) {
		t.Fatalf("a ledger outage must be redelivered, got %v", err)
	}
	got, _ := units.FindByID(context.Background(), staff.ClinicID, unit.Unit.ID)
	if got.AvailableQuantity != 4 {
		t.Fatalf("failed quarantine must leave the unit intact, got %d", got.AvailableQuantity)
	}
}
