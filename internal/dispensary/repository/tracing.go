package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
)

var tracer = otel.Tracer("dispensary-repository")

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// UnitRepositoryWithTracing wraps a UnitRepository with tracing
type UnitRepositoryWithTracing struct {
	next domain.UnitRepository
}

// NewGormUnitRepositoryWithTracing creates a traced GORM unit repository
func NewGormUnitRepositoryWithTracing(db *gorm.DB) *UnitRepositoryWithTracing {
	return &UnitRepositoryWithTracing{next: NewGormUnitRepository(db)}
}

// Create with tracing
func (r *UnitRepositoryWithTracing) Create(ctx context.Context, unit *domain.Unit) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Unit.Create",
		trace.WithAttributes(
			attribute.Int("lot.id", int(unit.LotID)),
			attribute.Int("drug.id", int(unit.DrugID)),
			attribute.Int("unit.total_quantity", unit.TotalQuantity),
		),
	)
	defer func() { endSpan(span, err) }()

	if err = r.next.Create(ctx, unit); err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("unit.id", int(unit.ID)))
	return nil
}

// FindByID with tracing
func (r *UnitRepositoryWithTracing) FindByID(ctx context.Context, clinicID, id uint) (unit *domain.Unit, err error) {
	ctx, span := tracer.Start(ctx, "repository.Unit.FindByID",
		trace.WithAttributes(
			attribute.Int("clinic.id", int(clinicID)),
			attribute.Int("unit.id", int(id)),
		),
	)
	defer func() { endSpan(span, err) }()

	return r.next.FindByID(ctx, clinicID, id)
}

// ListAvailable with tracing
func (r *UnitRepositoryWithTracing) ListAvailable(ctx context.Context, clinicID uint, drugIDs []uint) (units []domain.Unit, err error) {
	ctx, span := tracer.Start(ctx, "repository.Unit.ListAvailable",
		trace.WithAttributes(
			attribute.Int("clinic.id", int(clinicID)),
			attribute.Int("drug.count", len(drugIDs)),
		),
	)
	defer func() { endSpan(span, err) }()

	units, err = r.next.ListAvailable(ctx, clinicID, drugIDs)
	span.SetAttributes(attribute.Int("unit.count", len(units)))
	return units, err
}

// SumTotalByLot with tracing
func (r *UnitRepositoryWithTracing) SumTotalByLot(ctx context.Context, lotID uint) (total int, err error) {
	ctx, span := tracer.Start(ctx, "repository.Unit.SumTotalByLot",
		trace.WithAttributes(attribute.Int("lot.id", int(lotID))),
	)
	defer func() { endSpan(span, err) }()

	total, err = r.next.SumTotalByLot(ctx, lotID)
	span.SetAttributes(attribute.Int("lot.current_total", total))
	return total, err
}

// TryDecrement with tracing
func (r *UnitRepositoryWithTracing) TryDecrement(ctx context.Context, clinicID, id uint, amount int) (available int, err error) {
	ctx, span := tracer.Start(ctx, "repository.Unit.TryDecrement",
		trace.WithAttributes(
			attribute.Int("unit.id", int(id)),
			attribute.Int("unit.amount", amount),
		),
	)
	defer func() { endSpan(span, err) }()

	available, err = r.next.TryDecrement(ctx, clinicID, id, amount)
	span.SetAttributes(attribute.Int("unit.available_quantity", available))
	return available, err
}

// Drain with tracing
func (r *UnitRepositoryWithTracing) Drain(ctx context.Context, clinicID, id uint) (unit *domain.Unit, drained int, err error) {
	ctx, span := tracer.Start(ctx, "repository.Unit.Drain",
		trace.WithAttributes(attribute.Int("unit.id", int(id))),
	)
	defer func() { endSpan(span, err) }()

	unit, drained, err = r.next.Drain(ctx, clinicID, id)
	span.SetAttributes(attribute.Int("unit.drained", drained))
	return unit, drained, err
}

// Increment with tracing
func (r *UnitRepositoryWithTracing) Increment(ctx context.Context, clinicID, id uint, amount int) (available int, err error) {
	ctx, span := tracer.Start(ctx, "repository.Unit.Increment",
		trace.WithAttributes(
			attribute.Int("unit.id", int(id)),
			attribute.Int("unit.amount", amount),
		),
	)
	defer func() { endSpan(span, err) }()

	available, err = r.next.Increment(ctx, clinicID, id, amount)
	span.SetAttributes(attribute.Int("unit.available_quantity", available))
	return available, err
}

// SetQuantities with tracing
func (r *UnitRepositoryWithTracing) SetQuantities(ctx context.Context, clinicID, id uint, expected domain.UnitQuantities, correction domain.UnitCorrection) (unit *domain.Unit, err error) {
	ctx, span := tracer.Start(ctx, "repository.Unit.SetQuantities",
		trace.WithAttributes(
			attribute.Int("unit.id", int(id)),
			attribute.Int("unit.expected_total", expected.Total),
			attribute.Int("unit.expected_available", expected.Available),
		),
	)
	defer func() { endSpan(span, err) }()

	return r.next.SetQuantities(ctx, clinicID, id, expected, correction)
}

// Discard with tracing
func (r *UnitRepositoryWithTracing) Discard(ctx context.Context, clinicID, id uint) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Unit.Discard",
		trace.WithAttributes(attribute.Int("unit.id", int(id))),
	)
	defer func() { endSpan(span, err) }()

	return r.next.Discard(ctx, clinicID, id)
}

// TransactionRepositoryWithTracing wraps the ledger with tracing
type TransactionRepositoryWithTracing struct {
	next domain.TransactionRepository
}

func NewGormTransactionRepositoryWithTracing(db *gorm.DB) *TransactionRepositoryWithTracing {
	return &TransactionRepositoryWithTracing{next: NewGormTransactionRepository(db)}
}

// Append with tracing
func (r *TransactionRepositoryWithTracing) Append(ctx context.Context, txn *domain.Transaction) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Transaction.Append",
		trace.WithAttributes(
			attribute.Int("unit.id", int(txn.UnitID)),
			attribute.String("transaction.type", string(txn.Type)),
			attribute.Int("transaction.quantity", txn.Quantity),
		),
	)
	defer func() { endSpan(span, err) }()

	if err = r.next.Append(ctx, txn); err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("transaction.id", int(txn.ID)))
	return nil
}

// ListForUnit with tracing
func (r *TransactionRepositoryWithTracing) ListForUnit(ctx context.Context, clinicID, unitID uint, limit, offset int) (txns []domain.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "repository.Transaction.ListForUnit",
		trace.WithAttributes(
			attribute.Int("unit.id", int(unitID)),
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
		),
	)
	defer func() { endSpan(span, err) }()

	return r.next.ListForUnit(ctx, clinicID, unitID, limit, offset)
}

// LotRepositoryWithTracing wraps a LotRepository with tracing
type LotRepositoryWithTracing struct {
	next domain.LotRepository
}

func NewGormLotRepositoryWithTracing(db *gorm.DB) *LotRepositoryWithTracing {
	return &LotRepositoryWithTracing{next: NewGormLotRepository(db)}
}

func (r *LotRepositoryWithTracing) Create(ctx context.Context, lot *domain.Lot) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Lot.Create",
		trace.WithAttributes(attribute.Int("location.id", int(lot.LocationID))),
	)
	defer func() { endSpan(span, err) }()

	return r.next.Create(ctx, lot)
}

func (r *LotRepositoryWithTracing) FindByID(ctx context.Context, clinicID, id uint) (lot *domain.Lot, err error) {
	ctx, span := tracer.Start(ctx, "repository.Lot.FindByID",
		trace.WithAttributes(attribute.Int("lot.id", int(id))),
	)
	defer func() { endSpan(span, err) }()

	return r.next.FindByID(ctx, clinicID, id)
}

// LocationRepositoryWithTracing wraps a LocationRepository with tracing
type LocationRepositoryWithTracing struct {
	next domain.LocationRepository
}

func NewGormLocationRepositoryWithTracing(db *gorm.DB) *LocationRepositoryWithTracing {
	return &LocationRepositoryWithTracing{next: NewGormLocationRepository(db)}
}

func (r *LocationRepositoryWithTracing) Create(ctx context.Context, location *domain.Location) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Location.Create",
		trace.WithAttributes(attribute.String("location.temperature", location.Temperature)),
	)
	defer func() { endSpan(span, err) }()

	return r.next.Create(ctx, location)
}

func (r *LocationRepositoryWithTracing) FindByID(ctx context.Context, clinicID, id uint) (location *domain.Location, err error) {
	ctx, span := tracer.Start(ctx, "repository.Location.FindByID",
		trace.WithAttributes(attribute.Int("location.id", int(id))),
	)
	defer func() { endSpan(span, err) }()

	return r.next.FindByID(ctx, clinicID, id)
}

// DrugRepositoryWithTracing wraps a DrugRepository with tracing
type DrugRepositoryWithTracing struct {
	next domain.DrugRepository
}

func NewGormDrugRepositoryWithTracing(db *gorm.DB) *DrugRepositoryWithTracing {
	return &DrugRepositoryWithTracing{next: NewGormDrugRepository(db)}
}

func (r *DrugRepositoryWithTracing) Create(ctx context.Context, drug *domain.Drug) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Drug.Create",
		trace.WithAttributes(attribute.String("drug.ndc", drug.NDC)),
	)
	defer func() { endSpan(span, err) }()

	return r.next.Create(ctx, drug)
}

func (r *DrugRepositoryWithTracing) FindByID(ctx context.Context, id uint) (drug *domain.Drug, err error) {
	ctx, span := tracer.Start(ctx, "repository.Drug.FindByID",
		trace.WithAttributes(attribute.Int("drug.id", int(id))),
	)
	defer func() { endSpan(span, err) }()

	return r.next.FindByID(ctx, id)
}

func (r *DrugRepositoryWithTracing) FindByNDC(ctx context.Context, ndc string) (drug *domain.Drug, err error) {
	ctx, span := tracer.Start(ctx, "repository.Drug.FindByNDC",
		trace.WithAttributes(attribute.String("drug.ndc", ndc)),
	)
	defer func() { endSpan(span, err) }()

	return r.next.FindByNDC(ctx, ndc)
}

func (r *DrugRepositoryWithTracing) FindMatching(ctx context.Context, matcher domain.DrugMatcher) (drugs []domain.Drug, err error) {
	ctx, span := tracer.Start(ctx, "repository.Drug.FindMatching",
		trace.WithAttributes(
			attribute.String("drug.name", matcher.Name),
			attribute.String("drug.strength", matcher.Strength.String()),
			attribute.String("drug.strength_unit", matcher.StrengthUnit),
		),
	)
	defer func() { endSpan(span, err) }()

	drugs, err = r.next.FindMatching(ctx, matcher)
	span.SetAttributes(attribute.Int("drug.count", len(drugs)))
	return drugs, err
}
