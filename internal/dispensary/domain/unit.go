package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Unit represents one physical container of medication.
// Invariant: 0 <= AvailableQuantity <= TotalQuantity.
type Unit struct {
	ID                    uint           `json:"id" gorm:"primaryKey"`
	ClinicID              uint           `json:"clinic_id" gorm:"not null;index:idx_units_clinic_drug"`
	LotID                 uint           `json:"lot_id" gorm:"not null;index"`
	DrugID                uint           `json:"drug_id" gorm:"not null;index:idx_units_clinic_drug"`
	TotalQuantity         int            `json:"total_quantity" gorm:"not null"`
	AvailableQuantity     int            `json:"available_quantity" gorm:"not null"`
	ExpiryDate            time.Time      `json:"expiry_date" gorm:"not null;index"`
	ManufacturerLotNumber string         `json:"manufacturer_lot_number,omitempty"`
	Notes                 string         `json:"notes,omitempty"`
	CreatedBy             uint           `json:"created_by"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Unit) TableName() string {
	return "units"
}

// UnitQuantities is the quantity pair compared by SetQuantities
type UnitQuantities struct {
	Total     int
	Available int
}

// Quantities returns the current quantity pair of the unit
func (u Unit) Quantities() UnitQuantities {
	return UnitQuantities{Total: u.TotalQuantity, Available: u.AvailableQuantity}
}

// UnitCorrection carries an administrative override. Nil fields are left unchanged.
type UnitCorrection struct {
	TotalQuantity     *int       `json:"total_quantity,omitempty"`
	AvailableQuantity *int       `json:"available_quantity,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
}

// IsEmpty reports whether the correction changes nothing
func (c UnitCorrection) IsEmpty() bool {
	return c.TotalQuantity == nil && c.AvailableQuantity == nil && c.ExpiryDate == nil && c.Notes == nil
}

// Apply returns a copy of u with the correction applied
func (c UnitCorrection) Apply(u Unit) Unit {
	if c.TotalQuantity != nil {
		u.TotalQuantity = *c.TotalQuantity
	}
	if c.AvailableQuantity != nil {
		u.AvailableQuantity = *c.AvailableQuantity
	}
	if c.ExpiryDate != nil {
		u.ExpiryDate = *c.ExpiryDate
	}
	if c.Notes != nil {
		u.Notes = *c.Notes
	}
	return u
}

// UnitRepository owns the mutable quantity state of units (the UnitStore).
type UnitRepository interface {
	Create(ctx context.Context, unit *Unit) error
	FindByID(ctx context.Context, clinicID, id uint) (*Unit, error)
	// ListAvailable returns units of the given drugs with AvailableQuantity > 0.
	ListAvailable(ctx context.Context, clinicID uint, drugIDs []uint) ([]Unit, error)
	// SumTotalByLot sums TotalQuantity over every live unit of the lot.
	SumTotalByLot(ctx context.Context, lotID uint) (int, error)
	// TryDecrement atomically reduces AvailableQuantity by amount iff
	// amount <= AvailableQuantity and returns the new value.
	TryDecrement(ctx context.Context, clinicID, id uint, amount int) (int, error)
	// Drain atomically sets AvailableQuantity to zero and returns the unit as
	// stored afterwards with the amount removed. An empty unit drains 0.
	Drain(ctx context.Context, clinicID, id uint) (*Unit, int, error)
	// Increment reverses a prior TryDecrement or Drain.
	Increment(ctx context.Context, clinicID, id uint, amount int) (int, error)
	// SetQuantities applies the correction iff the stored quantities still equal expected.
	SetQuantities(ctx context.Context, clinicID, id uint, expected UnitQuantities, correction UnitCorrection) (*Unit, error)
	// Discard soft-deletes a unit whose check-in could not be recorded.
	Discard(ctx context.Context, clinicID, id uint) error
}
